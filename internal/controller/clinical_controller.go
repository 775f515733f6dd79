package controller

import (
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/service"
	"temporalos-be/pkg/voicecall"

	"github.com/gofiber/fiber/v2"
)

type IClinicalController interface {
	RegisterRoutes(r fiber.Router)
}

type clinicalController struct {
	service service.IClinicalService
}

func NewClinicalController(service service.IClinicalService) IClinicalController {
	return &clinicalController{service: service}
}

func (c *clinicalController) RegisterRoutes(r fiber.Router) {
	e := r.Group("/ehr")
	e.Get("/transcript", c.Transcript)
	e.Get("/patient/:patientId", c.Patient)

	calls := r.Group("/calls")
	calls.Post("/outbound", c.PlaceCall)
	calls.Get("/:callId", c.CallStatus)
}

func (c *clinicalController) Transcript(ctx *fiber.Ctx) error {
	res, err := c.service.Transcript(ctx.UserContext(), ctx.Query("sessionId"), ctx.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get transcript", res))
}

func (c *clinicalController) Patient(ctx *fiber.Ctx) error {
	res, err := c.service.PatientData(ctx.UserContext(), ctx.Params("patientId"), ctx.QueryBool("includeHistory", false))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get patient", res))
}

func (c *clinicalController) PlaceCall(ctx *fiber.Ctx) error {
	var req voicecall.CallRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.PlaceCall(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Call placed", res))
}

func (c *clinicalController) CallStatus(ctx *fiber.Ctx) error {
	res, err := c.service.CallStatus(ctx.UserContext(), ctx.Params("callId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get call", res))
}
