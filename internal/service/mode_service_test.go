package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"temporalos-be/internal/dto"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/pkg/engine"
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/panel"
	"temporalos-be/pkg/poller"
	"temporalos-be/pkg/recommendation"
	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/temporal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu    sync.Mutex
	sends map[string]int
}

func (b *recordingBroadcaster) Publish(sessionID string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sends == nil {
		b.sends = map[string]int{}
	}
	b.sends[sessionID]++
}

func (b *recordingBroadcaster) count(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sends[sessionID]
}

type modeFixture struct {
	*fixture
	registry    *engine.Registry
	topics      *recordingTopics
	broadcaster *recordingBroadcaster
	svc         IModeService
}

func newModeFixture(t *testing.T) *modeFixture {
	t.Helper()
	f := newFixture()
	nop := logger.NewNopLogger()
	topics := &recordingTopics{}
	registry := engine.NewRegistry(engine.Deps{
		Effects:   NewModeCoordinator(f.sessions, topics, nop),
		Scheduler: poller.NewStepScheduler(),
		Logger:    nop,
	}, engine.Options{PollInterval: time.Second})
	t.Cleanup(registry.Close)

	b := &recordingBroadcaster{}
	return &modeFixture{
		fixture:     f,
		registry:    registry,
		topics:      topics,
		broadcaster: b,
		svc:         NewModeService(registry, f.sessions, f.medications, f.ehr, b, nop),
	}
}

func TestModeStart(t *testing.T) {
	f := newModeFixture(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, temporal.ModeAuto, first.State.State.Mode)
	assert.True(t, first.State.AutoMode)

	second, err := f.svc.Start(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, second.Created)

	_, err = f.sessions.Get(ctx, "s1")
	assert.NoError(t, err)
	assert.Eventually(t, func() bool { return f.broadcaster.count("s1") > 0 }, time.Second, 10*time.Millisecond)
}

func TestModeRequiresStartedEngine(t *testing.T) {
	f := newModeFixture(t)

	_, err := f.svc.Get("nope")
	assert.ErrorIs(t, err, ErrEngineNotFound)
	assert.Equal(t, http.StatusNotFound, serverutils.StatusFor(err))
	assert.ErrorIs(t, f.svc.Stop("nope"), ErrEngineNotFound)
}

func TestModeSelectPersistsLastMode(t *testing.T) {
	f := newModeFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, "s1")
	require.NoError(t, err)

	snap, err := f.svc.Select("s1", "past")
	require.NoError(t, err)
	assert.Equal(t, temporal.ModePast, snap.State.Mode)
	assert.False(t, snap.AutoMode)

	session, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "past", session.LastMode)
	assert.Equal(t, 1, f.topics.count(TopicModeChanged))
}

func TestModeErrorsMapToStatus(t *testing.T) {
	f := newModeFixture(t)
	_, err := f.svc.Start(context.Background(), "s1")
	require.NoError(t, err)

	_, err = f.svc.Select("s1", "sideways")
	assert.Equal(t, http.StatusBadRequest, serverutils.StatusFor(err))

	_, err = f.svc.Select("s1", "insufficient_data")
	assert.Equal(t, http.StatusBadRequest, serverutils.StatusFor(err))

	err = f.svc.PushFragment("s1", signals.Fragment{Text: "hello", Final: true})
	assert.ErrorIs(t, err, engine.ErrNotListening)
	assert.Equal(t, http.StatusConflict, serverutils.StatusFor(err))

	_, err = f.svc.Resolve(context.Background(), "s1", &dto.ResolveRecommendationRequest{Action: "approve"}, "")
	assert.ErrorIs(t, err, engine.ErrNoRecommendation)
	assert.Equal(t, http.StatusConflict, serverutils.StatusFor(err))
}

func TestModeAutoRejectedWhileFutureLocked(t *testing.T) {
	f := newModeFixture(t)
	_, err := f.svc.Start(context.Background(), "s1")
	require.NoError(t, err)

	_, err = f.svc.StartSpeech("s1")
	require.NoError(t, err)
	require.NoError(t, f.svc.PushFragment("s1", signals.Fragment{Text: "okay I'm done", Final: true}))

	require.Eventually(t, func() bool {
		snap, _ := f.svc.Get("s1")
		return snap.FutureLock && snap.State.Mode == temporal.ModeFuture
	}, time.Second, 5*time.Millisecond)

	_, err = f.svc.SetAuto("s1", true)
	assert.ErrorIs(t, err, engine.ErrFutureLocked)
	assert.Equal(t, http.StatusConflict, serverutils.StatusFor(err))

	snap, err := f.svc.Select("s1", "present")
	require.NoError(t, err)
	assert.False(t, snap.FutureLock)

	snap, err = f.svc.SetAuto("s1", true)
	require.NoError(t, err)
	assert.True(t, snap.AutoMode)
}

func futureWithRecommendation(t *testing.T, f *modeFixture, sessionID string) recommendation.Recommendation {
	t.Helper()
	snap, err := f.svc.Select(sessionID, "future")
	require.NoError(t, err)
	require.NotZero(t, snap.FutureEntryID)

	rec := recommendation.Recommendation{Medication: "Clopidogrel", Dosage: "75mg daily", Duration: "12 months", Confidence: 0.8}
	m, ok := f.registry.Get(sessionID)
	require.True(t, ok)
	require.True(t, m.SetRecommendation(snap.FutureEntryID, rec))
	return rec
}

func TestModeResolveApproveLogsMedication(t *testing.T) {
	f := newModeFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, "s1")
	require.NoError(t, err)
	futureWithRecommendation(t, f, "s1")

	resp, err := f.svc.Resolve(ctx, "s1", &dto.ResolveRecommendationRequest{Action: "approve", PatientId: "P-9"}, "dr-lee")
	require.NoError(t, err)
	assert.Equal(t, "approve", resp.Decision)
	assert.NotEmpty(t, resp.LogId)
	assert.Contains(t, resp.Export, "Decision: APPROVE")
	assert.Contains(t, resp.Export, "Clinician: dr-lee")
	assert.Nil(t, resp.State.Recommendation)

	logs, err := f.medications.Logs(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Clopidogrel", logs[0].Medication)
	assert.Equal(t, "P-9", logs[0].PatientID)
	assert.Equal(t, "dr-lee", logs[0].ConfirmedBy)
}

func TestModeResolveApproveKeepsRecommendationOnFailure(t *testing.T) {
	f := newModeFixture(t)
	nop := logger.NewNopLogger()
	broken := NewMedicationService(failingLogs{createErr: errors.New("disk full")}, medication.NewAnalyzer(nil, 0, nop), f.events, nop)
	svc := NewModeService(f.registry, f.sessions, broken, f.ehr, f.broadcaster, nop)

	ctx := context.Background()
	_, err := svc.Start(ctx, "s1")
	require.NoError(t, err)
	rec := futureWithRecommendation(t, f, "s1")

	_, err = svc.Resolve(ctx, "s1", &dto.ResolveRecommendationRequest{Action: "approve"}, "dr-lee")
	require.Error(t, err)

	snap, err := svc.Get("s1")
	require.NoError(t, err)
	require.NotNil(t, snap.Recommendation)
	assert.Equal(t, rec, *snap.Recommendation)
}

func TestModeResolveModifyKeepsRecommendation(t *testing.T) {
	f := newModeFixture(t)
	_, err := f.svc.Start(context.Background(), "s1")
	require.NoError(t, err)
	futureWithRecommendation(t, f, "s1")

	resp, err := f.svc.Resolve(context.Background(), "s1", &dto.ResolveRecommendationRequest{Action: "modify", Dosage: "150mg daily"}, "")
	require.NoError(t, err)
	assert.Contains(t, resp.Export, "150mg daily (modified from 75mg daily)")
	require.NotNil(t, resp.State.Recommendation)
	assert.Equal(t, "150mg daily", resp.State.Recommendation.Dosage)
}

func TestModeResolveRejectRecordsReason(t *testing.T) {
	f := newModeFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, "s1")
	require.NoError(t, err)
	futureWithRecommendation(t, f, "s1")

	reason := &recommendation.RejectionReason{Cost: true, Other: "formulary"}
	resp, err := f.svc.Resolve(ctx, "s1", &dto.ResolveRecommendationRequest{Action: "reject", RejectionReason: reason}, "")
	require.NoError(t, err)
	assert.Contains(t, resp.Export, "Rejection reasons: Cost, formulary")
	assert.Empty(t, resp.LogId)

	session, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	var found bool
	for _, s := range session.SignalHistory {
		if data, ok := s.Data.(map[string]interface{}); ok && data["action"] == "reject_recommendation" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestModePanelFollowsMode(t *testing.T) {
	f := newModeFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, "s1")
	require.NoError(t, err)

	content, err := f.svc.Panel(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, panel.Title(temporal.ModePresent), content.Title)

	_, err = f.svc.Select("s1", "future")
	require.NoError(t, err)
	content, err = f.svc.Panel(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, panel.Title(temporal.ModeFuture), content.Title)
}

func TestModeObserveRecordsSignals(t *testing.T) {
	f := newModeFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, "s1")
	require.NoError(t, err)

	_, err = f.svc.Observe("s1", &signals.PageSnapshot{URL: "https://ehr.example.org/p/1", ScrollTop: 500, ClassNames: []string{"history-list"}})
	require.NoError(t, err)

	session, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	var types []string
	for _, s := range session.SignalHistory {
		types = append(types, s.Type)
	}
	assert.Equal(t, []string{"action", "scroll"}, types)
}

func TestModeStop(t *testing.T) {
	f := newModeFixture(t)
	_, err := f.svc.Start(context.Background(), "s1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Stop("s1"))
	_, err = f.svc.Get("s1")
	assert.ErrorIs(t, err, ErrEngineNotFound)
	assert.Zero(t, f.registry.Len())
}

func TestModeSpeechLifecycle(t *testing.T) {
	f := newModeFixture(t)
	_, err := f.svc.Start(context.Background(), "s1")
	require.NoError(t, err)

	snap, err := f.svc.StartSpeech("s1")
	require.NoError(t, err)
	assert.True(t, snap.Listening)

	require.NoError(t, f.svc.PushFragment("s1", signals.Fragment{Text: "reviewing the current labs", Final: true}))
	require.Eventually(t, func() bool {
		snap, _ := f.svc.Get("s1")
		return strings.Contains(snap.Transcript, "current labs")
	}, time.Second, 5*time.Millisecond)

	snap, err = f.svc.StopSpeech("s1")
	require.NoError(t, err)
	assert.False(t, snap.Listening)
	assert.ErrorIs(t, f.svc.EndSpeech("s1"), engine.ErrNotListening)
}
