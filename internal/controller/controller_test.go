package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/repository/fallback"
	"temporalos-be/internal/repository/memory"
	"temporalos-be/internal/service"
	"temporalos-be/pkg/classifier"
	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/engine"
	"temporalos-be/pkg/events"
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/nlp"
	"temporalos-be/pkg/poller"
	"temporalos-be/pkg/recommendation"
	"temporalos-be/pkg/voicecall"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardTopics struct{}

func (discardTopics) Publish(context.Context, string, interface{}) error { return nil }

type discardBroadcaster struct{}

func (discardBroadcaster) Publish(string, interface{}) {}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	nop := logger.NewNopLogger()

	sessions := service.NewSessionService(fallback.NewSessionRepository(nil, memory.NewSessionRepository(time.Hour), nop))
	medications := service.NewMedicationService(
		fallback.NewMedicationLogRepository(nil, memory.NewMedicationLogRepository(time.Hour), nop),
		medication.NewAnalyzer(nil, 0, nop),
		events.NopPublisher{},
		nop,
	)
	ehrProvider := ehr.NewDemoProvider(time.Now)
	recommendations := service.NewRecommendationService(recommendation.NewGenerator(nil, 0, nop), medications, ehrProvider, nop)

	registry := engine.NewRegistry(engine.Deps{
		Effects:   service.NewModeCoordinator(sessions, discardTopics{}, nop),
		Scheduler: poller.NewStepScheduler(),
		Logger:    nop,
	}, engine.Options{PollInterval: time.Second})
	t.Cleanup(registry.Close)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")

	NewSessionController(sessions).RegisterRoutes(api)
	NewModeController(service.NewModeService(registry, sessions, medications, ehrProvider, discardBroadcaster{}, nop)).RegisterRoutes(api)
	NewReasoningController(service.NewReasoningService(classifier.New(nil, 0, nop), nlp.NewAnalyzer(nil, nop))).RegisterRoutes(api)
	NewMedicationController(medications, recommendations).RegisterRoutes(api)
	NewClinicalController(service.NewClinicalService(ehrProvider, voicecall.NewClient(voicecall.Config{}), nop)).RegisterRoutes(api)
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestSessionRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, fiber.MethodPost, "/api/state/session", map[string]string{"sessionId": "s1"})
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "s1", body["data"].(map[string]interface{})["sessionId"])

	status, _ = call(t, app, fiber.MethodPost, "/api/state/session", map[string]string{"sessionId": "s1"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = call(t, app, fiber.MethodPost, "/api/state/session", nil)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Regexp(t, `^session-\d+-[0-9a-f]{8}$`, body["data"].(map[string]interface{})["sessionId"])

	status, _ = call(t, app, fiber.MethodGet, "/api/state/session/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = call(t, app, fiber.MethodPut, "/api/state/session/s1", map[string]string{"lastMode": "sideways"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	status, body = call(t, app, fiber.MethodPut, "/api/state/session/s1", map[string]string{"lastMode": "past"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "past", body["data"].(map[string]interface{})["lastMode"])
}

func TestModeRoutes(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, fiber.MethodGet, "/api/mode/s1", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, fiber.MethodPost, "/api/mode/s1/start", nil)
	assert.Equal(t, fiber.StatusCreated, status)
	status, _ = call(t, app, fiber.MethodPost, "/api/mode/s1/start", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body := call(t, app, fiber.MethodPost, "/api/mode/s1/select", map[string]string{"mode": "past"})
	require.Equal(t, fiber.StatusOK, status)
	state := body["data"].(map[string]interface{})["state"].(map[string]interface{})
	assert.Equal(t, "past", state["mode"])

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"unknown mode", "/api/mode/s1/select", map[string]string{"mode": "sideways"}, fiber.StatusBadRequest},
		{"auto without flag", "/api/mode/s1/auto", map[string]string{}, fiber.StatusBadRequest},
		{"fragment while not listening", "/api/mode/s1/speech/fragment", map[string]interface{}{"text": "hello", "final": true}, fiber.StatusConflict},
		{"resolve without recommendation", "/api/mode/s1/recommendation/resolve", map[string]string{"action": "approve"}, fiber.StatusConflict},
		{"modify without dosage", "/api/mode/s1/recommendation/resolve", map[string]string{"action": "modify"}, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := call(t, app, fiber.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
		})
	}

	status, _ = call(t, app, fiber.MethodDelete, "/api/mode/s1", nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, fiber.MethodDelete, "/api/mode/s1", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestMedicationRoutes(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, fiber.MethodPost, "/api/medications/confirm", map[string]string{"sessionId": "s1"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := call(t, app, fiber.MethodPost, "/api/medications/confirm", map[string]string{
		"sessionId":  "s1",
		"patientId":  "p1",
		"medication": "Metformin",
		"dosage":     "500mg",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Contains(t, body["data"].(map[string]interface{})["logId"], "med-log-")

	status, body = call(t, app, fiber.MethodGet, "/api/medications/logs/s1", nil)
	require.Equal(t, fiber.StatusOK, status)
	logs := body["data"].(map[string]interface{})["logs"].([]interface{})
	assert.Len(t, logs, 1)

	status, _ = call(t, app, fiber.MethodGet, "/api/medications/graph/s1", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestReasoningRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, fiber.MethodPost, "/api/reasoning/classify", map[string]string{"transcript": "reviewing her prior history"})
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, body["data"].(map[string]interface{})["mode"])

	status, _ = call(t, app, fiber.MethodPost, "/api/reasoning/explain", map[string]string{"mode": "auto"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, fiber.MethodPost, "/api/nlp/analyze", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestClinicalRoutes(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"transcript", fiber.MethodGet, "/api/ehr/transcript?sessionId=s1&limit=5", nil, fiber.StatusOK},
		{"call without phone", fiber.MethodPost, "/api/calls/outbound", map[string]string{}, fiber.StatusBadRequest},
		{"call provider not configured", fiber.MethodPost, "/api/calls/outbound", map[string]string{"phoneNumber": "+15550100"}, fiber.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := call(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
		})
	}
}
