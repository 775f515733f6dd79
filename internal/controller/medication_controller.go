package controller

import (
	"temporalos-be/internal/dto"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/service"
	"temporalos-be/pkg/medication"

	"github.com/gofiber/fiber/v2"
)

type IMedicationController interface {
	RegisterRoutes(r fiber.Router)
}

type medicationController struct {
	medications     service.IMedicationService
	recommendations service.IRecommendationService
}

func NewMedicationController(medications service.IMedicationService, recommendations service.IRecommendationService) IMedicationController {
	return &medicationController{medications: medications, recommendations: recommendations}
}

func (c *medicationController) RegisterRoutes(r fiber.Router) {
	m := r.Group("/medications")
	m.Post("/confirm", c.Confirm)
	m.Get("/logs/:sessionId", c.Logs)
	m.Get("/graph/:sessionId", c.Graph)

	r.Post("/recommendations/generate", c.Recommend)
}

func (c *medicationController) Confirm(ctx *fiber.Ctx) error {
	var req medication.Confirmation
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	if req.ConfirmedBy == "" {
		req.ConfirmedBy = serverutils.ClinicianID(ctx)
	}

	res, err := c.medications.Confirm(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Medication confirmed", res))
}

func (c *medicationController) Logs(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("sessionId")
	logs, err := c.medications.Logs(ctx.UserContext(), sessionID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get medication logs", dto.MedicationLogsResponse{SessionId: sessionID, Logs: logs}))
}

func (c *medicationController) Graph(ctx *fiber.Ctx) error {
	graph, err := c.medications.Graph(ctx.UserContext(), ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get medication graph", graph))
}

func (c *medicationController) Recommend(ctx *fiber.Ctx) error {
	var req dto.GenerateRecommendationRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success generate recommendation", c.recommendations.Generate(ctx.UserContext(), req.PatientContext)))
}
