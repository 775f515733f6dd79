package service

import (
	"context"
	"sync"
	"time"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/repository/fallback"
	"temporalos-be/internal/repository/memory"
	"temporalos-be/internal/repository/specification"
	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/events"
	"temporalos-be/pkg/medication"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

type failingLogs struct {
	createErr error
	readErr   error
}

func (f failingLogs) Create(context.Context, *entity.MedicationLog) error { return f.createErr }
func (f failingLogs) FindAll(context.Context, ...specification.Specification) ([]*entity.MedicationLog, error) {
	return nil, f.readErr
}
func (f failingLogs) Count(context.Context, ...specification.Specification) (int64, error) {
	return 0, f.readErr
}

type recordingTopics struct {
	mu       sync.Mutex
	payloads map[string][]interface{}
}

func (r *recordingTopics) Publish(_ context.Context, topic string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payloads == nil {
		r.payloads = map[string][]interface{}{}
	}
	r.payloads[topic] = append(r.payloads[topic], payload)
	return nil
}

func (r *recordingTopics) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads[topic])
}

type fixture struct {
	sessions    ISessionService
	medications IMedicationService
	events      *recordingEvents
	ehr         ehr.Provider
}

func newFixture() *fixture {
	nop := logger.NewNopLogger()
	sessionStore := fallback.NewSessionRepository(nil, memory.NewSessionRepository(time.Hour), nop)
	logStore := fallback.NewMedicationLogRepository(nil, memory.NewMedicationLogRepository(time.Hour), nop)
	recorded := &recordingEvents{}
	return &fixture{
		sessions:    NewSessionService(sessionStore),
		medications: NewMedicationService(logStore, medication.NewAnalyzer(nil, 0, nop), recorded, nop),
		events:      recorded,
		ehr:         ehr.NewDemoProvider(time.Now),
	}
}
