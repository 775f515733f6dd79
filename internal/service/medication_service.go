package service

import (
	"context"
	"time"

	"temporalos-be/internal/dto"
	"temporalos-be/internal/entity"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/repository/contract"
	"temporalos-be/internal/repository/specification"
	"temporalos-be/pkg/events"
	"temporalos-be/pkg/medication"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type IMedicationService interface {
	Confirm(ctx context.Context, req *medication.Confirmation) (*dto.ConfirmMedicationResponse, error)
	Logs(ctx context.Context, sessionID string) ([]medication.Log, error)
	Graph(ctx context.Context, sessionID string) (medication.Graph, error)
	// SeedDemo confirms the demo medications when the session has none and returns how many were added.
	SeedDemo(ctx context.Context, sessionID, patientID string) (int, error)
}

type medicationAnalyzer interface {
	Analyze(ctx context.Context, c medication.Confirmation) medication.Analysis
}

type medicationService struct {
	repo      contract.MedicationLogRepository
	analyzer  medicationAnalyzer
	publisher events.Publisher
	logger    logger.ILogger
	now       func() time.Time
	seeding   singleflight.Group
}

func NewMedicationService(
	repo contract.MedicationLogRepository,
	analyzer medicationAnalyzer,
	publisher events.Publisher,
	log logger.ILogger,
) IMedicationService {
	return &medicationService{
		repo:      repo,
		analyzer:  analyzer,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (s *medicationService) Confirm(ctx context.Context, req *medication.Confirmation) (*dto.ConfirmMedicationResponse, error) {
	analysis := s.analyzer.Analyze(ctx, *req)

	log := &entity.MedicationLog{
		LogId:       "med-log-" + uuid.NewString(),
		SessionId:   req.SessionID,
		PatientId:   req.PatientID,
		Medication:  req.Medication,
		Dosage:      req.Dosage,
		Route:       req.Route,
		Frequency:   req.Frequency,
		StartDate:   req.StartDate,
		ConfirmedBy: req.ConfirmedBy,
		Analysis:    &analysis,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, err
	}

	s.logger.Info("MEDICATION", "Medication confirmed", map[string]interface{}{
		"session_id": req.SessionID,
		"log_id":     log.LogId,
		"medication": req.Medication,
	})

	event := events.NewMedicationConfirmed(req.SessionID, req.PatientID, log.LogId, req.Medication, req.Dosage, log.CreatedAt)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("MEDICATION", "Failed to publish confirmation event", map[string]interface{}{"error": err.Error()})
	}

	return &dto.ConfirmMedicationResponse{Success: true, LogId: log.LogId, Analysis: &analysis}, nil
}

func (s *medicationService) Logs(ctx context.Context, sessionID string) ([]medication.Log, error) {
	rows, err := s.repo.FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	out := make([]medication.Log, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out, nil
}

func (s *medicationService) Graph(ctx context.Context, sessionID string) (medication.Graph, error) {
	logs, err := s.Logs(ctx, sessionID)
	if err != nil {
		return medication.Graph{}, err
	}
	return medication.BuildGraph(logs), nil
}

func (s *medicationService) SeedDemo(ctx context.Context, sessionID, patientID string) (int, error) {
	added, err, _ := s.seeding.Do(sessionID, func() (interface{}, error) {
		return s.seedDemo(ctx, sessionID, patientID)
	})
	if err != nil {
		return 0, err
	}
	return added.(int), nil
}

func (s *medicationService) seedDemo(ctx context.Context, sessionID, patientID string) (int, error) {
	count, err := s.repo.Count(ctx, specification.BySessionID{SessionID: sessionID})
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	added := 0
	for _, c := range medication.DemoMedications(sessionID, patientID) {
		c := c
		if _, err := s.Confirm(ctx, &c); err != nil {
			// One failed demo entry does not stop the rest.
			s.logger.Warn("MEDICATION", "Failed to seed demo medication", map[string]interface{}{
				"session_id": sessionID,
				"medication": c.Medication,
				"error":      err.Error(),
			})
			continue
		}
		added++
	}
	return added, nil
}
