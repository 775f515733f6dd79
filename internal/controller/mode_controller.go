package controller

import (
	"temporalos-be/internal/dto"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/service"
	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/speech"

	"github.com/gofiber/fiber/v2"
)

type IModeController interface {
	RegisterRoutes(r fiber.Router)
}

type modeController struct {
	service service.IModeService
}

func NewModeController(service service.IModeService) IModeController {
	return &modeController{service: service}
}

func (c *modeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/mode/:sessionId")
	h.Post("/start", c.Start)
	h.Get("", c.Show)
	h.Post("/select", c.Select)
	h.Post("/auto", c.SetAuto)
	h.Post("/snapshot", c.Observe)
	h.Post("/speech/start", c.StartSpeech)
	h.Post("/speech/stop", c.StopSpeech)
	h.Post("/speech/end", c.EndSpeech)
	h.Post("/speech/fragment", c.PushFragment)
	h.Post("/speech/error", c.FailSpeech)
	h.Get("/panel", c.Panel)
	h.Post("/recommendation/resolve", c.Resolve)
	h.Delete("", c.Stop)
}

func (c *modeController) Start(ctx *fiber.Ctx) error {
	res, err := c.service.Start(ctx.UserContext(), ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return ctx.Status(status).JSON(serverutils.SuccessResponse("Mode engine started", res))
}

func (c *modeController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get mode", res))
}

func (c *modeController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectModeRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.Select(ctx.Params("sessionId"), req.Mode)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Mode selected", res))
}

func (c *modeController) SetAuto(ctx *fiber.Ctx) error {
	var req dto.AutoModeRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetAuto(ctx.Params("sessionId"), *req.Enabled)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Auto mode updated", res))
}

func (c *modeController) Observe(ctx *fiber.Ctx) error {
	var page signals.PageSnapshot
	if err := serverutils.ParseBody(ctx, &page); err != nil {
		return err
	}
	res, err := c.service.Observe(ctx.Params("sessionId"), &page)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Snapshot received", res))
}

func (c *modeController) StartSpeech(ctx *fiber.Ctx) error {
	res, err := c.service.StartSpeech(ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Listening started", res))
}

func (c *modeController) StopSpeech(ctx *fiber.Ctx) error {
	res, err := c.service.StopSpeech(ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Listening stopped", res))
}

func (c *modeController) EndSpeech(ctx *fiber.Ctx) error {
	if err := c.service.EndSpeech(ctx.Params("sessionId")); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Stream ended", nil))
}

func (c *modeController) PushFragment(ctx *fiber.Ctx) error {
	var req dto.SpeechFragmentRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	if err := c.service.PushFragment(ctx.Params("sessionId"), signals.Fragment{Text: req.Text, Final: req.Final}); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Fragment queued", nil))
}

func (c *modeController) FailSpeech(ctx *fiber.Ctx) error {
	var req dto.SpeechErrorRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	if err := c.service.FailSpeech(ctx.Params("sessionId"), speech.ErrorCode(req.Code)); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Error reported", nil))
}

func (c *modeController) Panel(ctx *fiber.Ctx) error {
	res, err := c.service.Panel(ctx.UserContext(), ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get panel", res))
}

func (c *modeController) Resolve(ctx *fiber.Ctx) error {
	var req dto.ResolveRecommendationRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.Resolve(ctx.UserContext(), ctx.Params("sessionId"), &req, serverutils.ClinicianID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Recommendation resolved", res))
}

func (c *modeController) Stop(ctx *fiber.Ctx) error {
	if err := c.service.Stop(ctx.Params("sessionId")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Mode engine stopped", nil))
}
