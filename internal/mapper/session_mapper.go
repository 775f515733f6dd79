package mapper

import (
	"encoding/json"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/model"
	"temporalos-be/pkg/temporal"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) SessionToEntity(s *model.Session) *entity.Session {
	if s == nil {
		return nil
	}

	signals := make([]temporal.Signal, 0, len(s.Signals))
	for i := range s.Signals {
		signals = append(signals, m.SignalToEntity(&s.Signals[i]))
	}

	return &entity.Session{
		SessionId: s.SessionId,
		LastMode:  temporal.Mode(s.LastMode),
		Signals:   signals,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (m *SessionMapper) SessionToModel(s *entity.Session) *model.Session {
	if s == nil {
		return nil
	}
	return &model.Session{
		SessionId: s.SessionId,
		LastMode:  string(s.LastMode),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (m *SessionMapper) SignalToEntity(s *model.SessionSignal) temporal.Signal {
	var data interface{}
	if len(s.Data) > 0 {
		_ = json.Unmarshal(s.Data, &data)
	}
	return temporal.Signal{
		Type:      temporal.SignalType(s.Type),
		Data:      data,
		Timestamp: s.Timestamp,
	}
}

func (m *SessionMapper) SignalToModel(sessionID string, seq int, s temporal.Signal) (*model.SessionSignal, error) {
	raw, err := json.Marshal(s.Data)
	if err != nil {
		return nil, err
	}
	return &model.SessionSignal{
		SessionId: sessionID,
		Seq:       seq,
		Type:      string(s.Type),
		Data:      datatypes.JSON(raw),
		Timestamp: s.Timestamp,
	}, nil
}
