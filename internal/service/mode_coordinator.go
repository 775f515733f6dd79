package service

import (
	"context"

	"temporalos-be/internal/dto"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/temporal"
)

// ModeCoordinator receives engine effects. Persistence happens inline; anything slow
// is handed to the consumer over the in-process bus.
type ModeCoordinator struct {
	sessions  ISessionService
	publisher IPublisherService
	logger    logger.ILogger
}

func NewModeCoordinator(sessions ISessionService, publisher IPublisherService, log logger.ILogger) *ModeCoordinator {
	return &ModeCoordinator{sessions: sessions, publisher: publisher, logger: log}
}

func (c *ModeCoordinator) ModeChanged(ctx context.Context, t temporal.Transition) {
	if t.To.Mode.Clinical() || t.To.Mode == temporal.ModeAuto {
		if err := c.sessions.SetLastMode(ctx, t.SessionID, t.To.Mode); err != nil {
			c.logger.Warn("MODE", "Failed to persist last mode", map[string]interface{}{
				"session_id": t.SessionID,
				"mode":       string(t.To.Mode),
				"error":      err.Error(),
			})
		}
	}

	msg := dto.ModeChangedMessage{
		SessionId:  t.SessionID,
		From:       string(t.From.Mode),
		To:         string(t.To.Mode),
		Source:     string(t.Source),
		Reason:     t.To.Reason,
		Confidence: t.To.Confidence,
		EntryId:    t.EntryID,
		Transcript: t.Transcript,
		OccurredAt: t.To.Timestamp.UnixMilli(),
	}
	if err := c.publisher.Publish(ctx, TopicModeChanged, msg); err != nil {
		c.logger.Error("MODE", "Failed to publish mode change", map[string]interface{}{
			"session_id": t.SessionID,
			"error":      err.Error(),
		})
	}
}

func (c *ModeCoordinator) SignalRecorded(ctx context.Context, sessionID string, s temporal.Signal) {
	if err := c.sessions.RecordSignal(ctx, sessionID, s); err != nil {
		c.logger.Warn("MODE", "Failed to record signal", map[string]interface{}{
			"session_id": sessionID,
			"type":       string(s.Type),
			"error":      err.Error(),
		})
	}
}
