package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"temporalos-be/internal/dto"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/engine"
	"temporalos-be/pkg/events"
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/recommendation"
	"temporalos-be/pkg/temporal"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/sync/semaphore"
)

const maxConcurrentMessages = 8

type IConsumerService interface {
	// Consume handles mode changes until ctx is cancelled, then waits for in-flight work.
	Consume(ctx context.Context) error
}

// EngineLookup finds the running engine of a session.
type EngineLookup interface {
	Get(sessionID string) (*engine.Machine, bool)
}

type consumerService struct {
	subscriber      message.Subscriber
	topicName       string
	events          events.Publisher
	recommendations IRecommendationService
	medications     IMedicationService
	engines         EngineLookup
	logger          logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	publisher events.Publisher,
	recommendations IRecommendationService,
	medications IMedicationService,
	engines EngineLookup,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:      subscriber,
		topicName:       topicName,
		events:          publisher,
		recommendations: recommendations,
		medications:     medications,
		engines:         engines,
		logger:          log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(maxConcurrentMessages)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			// Acked on receipt so one slow session does not hold up the others.
			msg.Ack()
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				cs.processMessage(ctx, msg)
			}()
		}
	}
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ModeChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal mode change", map[string]interface{}{"error": err.Error()})
		return
	}

	event := events.NewModeChanged(payload.SessionId, payload.From, payload.To, payload.Source, payload.Reason,
		payload.Confidence, time.UnixMilli(payload.OccurredAt))
	if err := cs.events.Publish(ctx, event); err != nil {
		cs.logger.Warn("CONSUMER", "Failed to publish mode change event", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
	}

	switch temporal.Mode(payload.To) {
	case temporal.ModeFuture:
		cs.recommend(ctx, payload)
	case temporal.ModePast:
		cs.seedHistory(ctx, payload)
	}
}

func (cs *consumerService) recommend(ctx context.Context, payload dto.ModeChangedMessage) {
	m, ok := cs.engines.Get(payload.SessionId)
	if !ok {
		return
	}

	rec, outcome, err := cs.recommendations.ForSession(ctx, payload.SessionId, payload.Transcript)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to build recommendation, using fallback", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		rec = recommendation.Fallback(BuildPatientContext(nil, nil, payload.Transcript))
		outcome = recommendation.OutcomeFallback
	}

	if !m.SetRecommendation(payload.EntryId, rec) {
		cs.logger.Debug("CONSUMER", "Discarded stale recommendation", map[string]interface{}{
			"session_id": payload.SessionId,
			"entry_id":   payload.EntryId,
		})
		return
	}

	event := events.NewRecommendationGenerated(payload.SessionId, rec.Medication, rec.Dosage, string(outcome), rec.Confidence, time.Now())
	if err := cs.events.Publish(ctx, event); err != nil {
		cs.logger.Warn("CONSUMER", "Failed to publish recommendation event", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
	}
}

func (cs *consumerService) seedHistory(ctx context.Context, payload dto.ModeChangedMessage) {
	added, err := cs.medications.SeedDemo(ctx, payload.SessionId, medication.DemoPatientID)
	if err != nil {
		cs.logger.Warn("CONSUMER", "Failed to seed demo medications", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		return
	}
	if added > 0 {
		cs.logger.Info("CONSUMER", "Seeded demo medications", map[string]interface{}{
			"session_id": payload.SessionId,
			"count":      added,
		})
	}
}
