package controller

import (
	"temporalos-be/internal/dto"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IReasoningController interface {
	RegisterRoutes(r fiber.Router)
}

type reasoningController struct {
	service service.IReasoningService
}

func NewReasoningController(service service.IReasoningService) IReasoningController {
	return &reasoningController{service: service}
}

func (c *reasoningController) RegisterRoutes(r fiber.Router) {
	r.Post("/reasoning/classify", c.Classify)
	r.Post("/reasoning/explain", c.Explain)
	r.Post("/nlp/analyze", c.Analyze)
}

func (c *reasoningController) Classify(ctx *fiber.Ctx) error {
	var req dto.ClassifyRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success classify", c.service.Classify(ctx.UserContext(), &req)))
}

func (c *reasoningController) Explain(ctx *fiber.Ctx) error {
	var req dto.ExplainRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success explain", c.service.Explain(ctx.UserContext(), &req)))
}

func (c *reasoningController) Analyze(ctx *fiber.Ctx) error {
	var req dto.AnalyzeTextRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success analyze", c.service.Analyze(ctx.UserContext(), &req)))
}
