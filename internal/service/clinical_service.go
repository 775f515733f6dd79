package service

import (
	"context"
	"errors"
	"strings"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/voicecall"
)

type IClinicalService interface {
	Transcript(ctx context.Context, sessionID string, limit int) (*ehr.Transcript, error)
	PatientData(ctx context.Context, patientID string, includeHistory bool) (*ehr.PatientData, error)
	PlaceCall(ctx context.Context, req *voicecall.CallRequest) (*voicecall.CallResult, error)
	CallStatus(ctx context.Context, callID string) (map[string]interface{}, error)
}

type callPlacer interface {
	Outbound(ctx context.Context, req voicecall.CallRequest) (*voicecall.CallResult, error)
	Status(ctx context.Context, callID string) (map[string]interface{}, error)
}

type clinicalService struct {
	ehr    ehr.Provider
	calls  callPlacer
	logger logger.ILogger
}

func NewClinicalService(ehrProvider ehr.Provider, calls callPlacer, log logger.ILogger) IClinicalService {
	return &clinicalService{ehr: ehrProvider, calls: calls, logger: log}
}

func (s *clinicalService) Transcript(ctx context.Context, sessionID string, limit int) (*ehr.Transcript, error) {
	out, err := s.ehr.Transcript(ctx, sessionID, ehr.ClampLimit(limit))
	if err != nil {
		return nil, serverutils.WithKind(serverutils.ErrUnavailable, err)
	}
	return out, nil
}

func (s *clinicalService) PatientData(ctx context.Context, patientID string, includeHistory bool) (*ehr.PatientData, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, serverutils.WithKind(serverutils.ErrBadRequest, errors.New("patient id is required"))
	}
	out, err := s.ehr.PatientData(ctx, patientID, includeHistory)
	switch {
	case errors.Is(err, ehr.ErrPatientNotFound):
		return nil, serverutils.WithKind(serverutils.ErrNotFound, err)
	case err != nil:
		return nil, serverutils.WithKind(serverutils.ErrUnavailable, err)
	}
	return out, nil
}

func (s *clinicalService) PlaceCall(ctx context.Context, req *voicecall.CallRequest) (*voicecall.CallResult, error) {
	result, err := s.calls.Outbound(ctx, *req)
	if err != nil {
		return nil, callError(err)
	}
	s.logger.Info("CALL", "Outbound call placed", map[string]interface{}{"call_id": result.CallID, "status": result.Status})
	return result, nil
}

func (s *clinicalService) CallStatus(ctx context.Context, callID string) (map[string]interface{}, error) {
	out, err := s.calls.Status(ctx, callID)
	if err != nil {
		return nil, callError(err)
	}
	return out, nil
}

// callError reports a missing key and provider failures alike as unavailable.
func callError(err error) error {
	return serverutils.WithKind(serverutils.ErrUnavailable, err)
}
