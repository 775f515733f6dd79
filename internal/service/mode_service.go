package service

import (
	"context"
	"errors"
	"time"

	"temporalos-be/internal/dto"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/engine"
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/panel"
	"temporalos-be/pkg/recommendation"
	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/speech"
	"temporalos-be/pkg/temporal"
)

var ErrEngineNotFound = serverutils.WithKind(serverutils.ErrNotFound, errors.New("mode engine not started for session"))

// SnapshotBroadcaster fans engine snapshots out to connected watchers.
type SnapshotBroadcaster interface {
	Publish(sessionID string, snapshot interface{})
}

type IModeService interface {
	Start(ctx context.Context, sessionID string) (*dto.StartEngineResponse, error)
	Get(sessionID string) (engine.Snapshot, error)
	Select(sessionID, mode string) (engine.Snapshot, error)
	SetAuto(sessionID string, enabled bool) (engine.Snapshot, error)
	Observe(sessionID string, page *signals.PageSnapshot) (engine.Snapshot, error)
	StartSpeech(sessionID string) (engine.Snapshot, error)
	StopSpeech(sessionID string) (engine.Snapshot, error)
	EndSpeech(sessionID string) error
	PushFragment(sessionID string, f signals.Fragment) error
	FailSpeech(sessionID string, code speech.ErrorCode) error
	Panel(ctx context.Context, sessionID string) (panel.Content, error)
	Resolve(ctx context.Context, sessionID string, req *dto.ResolveRecommendationRequest, clinicianID string) (*dto.ResolveRecommendationResponse, error)
	Stop(sessionID string) error
}

type modeService struct {
	registry    *engine.Registry
	sessions    ISessionService
	medications IMedicationService
	ehr         ehr.Provider
	broadcaster SnapshotBroadcaster
	logger      logger.ILogger
	now         func() time.Time
}

func NewModeService(
	registry *engine.Registry,
	sessions ISessionService,
	medications IMedicationService,
	ehrProvider ehr.Provider,
	broadcaster SnapshotBroadcaster,
	log logger.ILogger,
) IModeService {
	return &modeService{
		registry:    registry,
		sessions:    sessions,
		medications: medications,
		ehr:         ehrProvider,
		broadcaster: broadcaster,
		logger:      log,
		now:         time.Now,
	}
}

func (s *modeService) Start(ctx context.Context, sessionID string) (*dto.StartEngineResponse, error) {
	if err := s.sessions.Ensure(ctx, sessionID); err != nil {
		return nil, err
	}

	m, created := s.registry.Start(sessionID)
	if created {
		updates, _ := m.Subscribe()
		go func() {
			// Ends when the engine closes the subscription.
			for snap := range updates {
				s.broadcaster.Publish(sessionID, snap)
			}
		}()
		s.logger.Info("MODE", "Engine started", map[string]interface{}{"session_id": sessionID})
	}
	return &dto.StartEngineResponse{Created: created, State: m.Snapshot()}, nil
}

func (s *modeService) Get(sessionID string) (engine.Snapshot, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return m.Snapshot(), nil
}

func (s *modeService) Select(sessionID, mode string) (engine.Snapshot, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	parsed, err := temporal.ParseMode(mode)
	if err != nil {
		return engine.Snapshot{}, serverutils.WithKind(serverutils.ErrBadRequest, err)
	}
	snap, err := m.Select(parsed)
	return snap, engineError(err)
}

func (s *modeService) SetAuto(sessionID string, enabled bool) (engine.Snapshot, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	snap, err := m.SetAutoMode(enabled)
	return snap, engineError(err)
}

func (s *modeService) Observe(sessionID string, page *signals.PageSnapshot) (engine.Snapshot, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	if err := m.Observe(page); err != nil {
		return engine.Snapshot{}, engineError(err)
	}
	return m.Snapshot(), nil
}

func (s *modeService) StartSpeech(sessionID string) (engine.Snapshot, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	snap, err := m.StartSpeech()
	return snap, engineError(err)
}

func (s *modeService) StopSpeech(sessionID string) (engine.Snapshot, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	snap, err := m.StopSpeech()
	return snap, engineError(err)
}

func (s *modeService) EndSpeech(sessionID string) error {
	m, err := s.machine(sessionID)
	if err != nil {
		return err
	}
	return engineError(m.EndStream())
}

func (s *modeService) PushFragment(sessionID string, f signals.Fragment) error {
	m, err := s.machine(sessionID)
	if err != nil {
		return err
	}
	return engineError(m.PushFragment(f))
}

func (s *modeService) FailSpeech(sessionID string, code speech.ErrorCode) error {
	m, err := s.machine(sessionID)
	if err != nil {
		return err
	}
	return engineError(m.FailStream(code))
}

func (s *modeService) Panel(ctx context.Context, sessionID string) (panel.Content, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return panel.Content{}, err
	}
	mode := m.Snapshot().State.Mode

	logs, err := s.medications.Logs(ctx, sessionID)
	if err != nil {
		return panel.Content{}, err
	}

	patientID := medication.DemoPatientID
	if len(logs) > 0 && logs[0].PatientID != "" {
		patientID = logs[0].PatientID
	}
	patient, err := s.ehr.PatientData(ctx, patientID, false)
	if err != nil {
		s.logger.Warn("MODE", "Panel rendered without patient data", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		patient = nil
	}
	return panel.Build(mode, logs, patient), nil
}

func (s *modeService) Resolve(ctx context.Context, sessionID string, req *dto.ResolveRecommendationRequest, clinicianID string) (*dto.ResolveRecommendationResponse, error) {
	m, err := s.machine(sessionID)
	if err != nil {
		return nil, err
	}

	decision := recommendation.Decision(req.Action)
	before, err := m.ResolveRecommendation(decision, req.Dosage)
	if err != nil {
		return nil, engineError(err)
	}

	resolution := recommendation.Resolution{
		Decision:       decision,
		ModifiedDosage: req.Dosage,
		ResolvedBy:     clinicianID,
		ResolvedAt:     s.now(),
	}
	if req.RejectionReason != nil {
		resolution.Rejection = *req.RejectionReason
	}

	resp := &dto.ResolveRecommendationResponse{
		Decision:       string(decision),
		Recommendation: before,
		Export:         recommendation.ExportDecision(before, resolution),
	}

	switch decision {
	case recommendation.DecisionApprove:
		patientID := req.PatientId
		if patientID == "" {
			patientID = medication.DemoPatientID
		}
		confirmed, err := s.medications.Confirm(ctx, &medication.Confirmation{
			SessionID:   sessionID,
			PatientID:   patientID,
			Medication:  before.Medication,
			Dosage:      before.Dosage,
			StartDate:   resolution.ResolvedAt.Format("2006-01-02"),
			ConfirmedBy: clinicianID,
		})
		if err != nil {
			m.RestoreRecommendation(before)
			return nil, err
		}
		resp.LogId = confirmed.LogId
	case recommendation.DecisionReject:
		signal := temporal.Signal{
			Type: temporal.SignalAction,
			Data: map[string]interface{}{
				"action":     "reject_recommendation",
				"medication": before.Medication,
				"reasons":    resolution.Rejection.Labels(),
			},
		}
		if err := s.sessions.RecordSignal(ctx, sessionID, signal); err != nil {
			s.logger.Warn("MODE", "Failed to record rejection", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	resp.State = m.Snapshot()
	return resp, nil
}

func (s *modeService) Stop(sessionID string) error {
	if !s.registry.Remove(sessionID) {
		return ErrEngineNotFound
	}
	s.logger.Info("MODE", "Engine stopped", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *modeService) machine(sessionID string) (*engine.Machine, error) {
	m, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, ErrEngineNotFound
	}
	return m, nil
}

func engineError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrFutureLocked),
		errors.Is(err, engine.ErrNotListening),
		errors.Is(err, engine.ErrNoRecommendation),
		errors.Is(err, speech.ErrBufferFull):
		return serverutils.WithKind(serverutils.ErrConflict, err)
	case errors.Is(err, engine.ErrInvalidMode):
		return serverutils.WithKind(serverutils.ErrBadRequest, err)
	case errors.Is(err, engine.ErrClosed):
		return serverutils.WithKind(serverutils.ErrNotFound, err)
	default:
		return serverutils.WithKind(serverutils.ErrBadRequest, err)
	}
}
