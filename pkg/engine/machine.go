// Package engine owns the authoritative clinician mode for each session. It arbitrates
// between polling detections, speech and manual selections, and enforces the future lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"temporalos-be/internal/metrics"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/poller"
	"temporalos-be/pkg/recommendation"
	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/speech"
	"temporalos-be/pkg/temporal"
)

var (
	ErrFutureLocked     = errors.New("future mode is locked until a manual selection")
	ErrInvalidMode      = errors.New("mode cannot be selected")
	ErrNoRecommendation = errors.New("no recommendation to resolve")
	ErrNotListening     = errors.New("speech listening is not active")
	ErrClosed           = errors.New("engine closed")
)

const (
	ReasonManual      = "Manual selection"
	ReasonVoiceDone   = "Voice command: done"
	ReasonSpeechOnset = "Speech detected while reviewing history"

	speechConfidence = 0.8
)

// Effects receives the consequences of accepted changes, in order. Implementations must
// not call back into the Machine synchronously.
type Effects interface {
	ModeChanged(ctx context.Context, t temporal.Transition)
	SignalRecorded(ctx context.Context, sessionID string, s temporal.Signal)
}

type Deps struct {
	Detector  Detector
	Effects   Effects
	Scheduler poller.Scheduler
	Logger    logger.ILogger
}

type Options struct {
	PollInterval       time.Duration
	SpeechRestartDelay time.Duration
	FragmentBuffer     int
	Clock              func() time.Time
}

// Snapshot is the externally visible state of one session's engine.
type Snapshot struct {
	SessionID             string                         `json:"sessionId"`
	State                 temporal.ModeState             `json:"state"`
	AutoMode              bool                           `json:"autoMode"`
	FutureLock            bool                           `json:"futureLock"`
	Listening             bool                           `json:"listening"`
	Polling               bool                           `json:"polling"`
	Transcript            string                         `json:"transcript"`
	Interim               string                         `json:"interim,omitempty"`
	Recommendation        *recommendation.Recommendation `json:"recommendation,omitempty"`
	RecommendationPending bool                           `json:"recommendationPending"`
	FutureEntryID         uint64                         `json:"futureEntryId,omitempty"`
	Generation            uint64                         `json:"generation"`
}

type change struct {
	transitions []temporal.Transition
	signals     []temporal.Signal
}

type Machine struct {
	id       string
	detector Detector
	effects  Effects
	logger   logger.ILogger
	now      func() time.Time

	poller     *poller.Task
	recognizer *speech.PushRecognizer
	listener   *speech.Listener

	ctx    context.Context
	cancel context.CancelFunc

	// effectsMu is taken while mu is still held, so effects and subscriber
	// deliveries happen in commit order.
	effectsMu sync.Mutex

	mu                    sync.Mutex
	closed                bool
	state                 temporal.ModeState
	autoMode              bool
	futureLock            bool
	generation            uint64
	transcript            []string
	interim               string
	page                  *signals.PageSnapshot
	actions               []string
	scrollTop             int
	entrySeq              uint64
	futureEntry           uint64
	recommendation        *recommendation.Recommendation
	recommendationPending bool
	subscribers           map[int]chan Snapshot
	nextSubscriber        int
}

// New creates an engine in auto mode with polling running.
func New(sessionID string, deps Deps, opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if deps.Effects == nil {
		deps.Effects = nopEffects{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		id:          sessionID,
		detector:    deps.Detector,
		effects:     deps.Effects,
		logger:      deps.Logger,
		now:         opts.Clock,
		ctx:         ctx,
		cancel:      cancel,
		state:       temporal.InitialState(opts.Clock()),
		autoMode:    true,
		subscribers: make(map[int]chan Snapshot),
	}

	m.poller = poller.NewTask(deps.Scheduler, opts.PollInterval, m.Poll)
	m.recognizer = speech.NewPushRecognizer(opts.FragmentBuffer)
	m.listener = speech.NewListener(m.recognizer, m.HandleFragment, speech.Options{
		RestartDelay: opts.SpeechRestartDelay,
		OnRestart:    metrics.SpeechRestarts.Inc,
		OnError: func(err error) {
			metrics.SpeechErrors.WithLabelValues(fmt.Sprint(speech.IsCritical(err))).Inc()
		},
	}, deps.Logger)

	m.poller.Start()
	return m
}

func (m *Machine) ID() string {
	return m.id
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Select applies a manual mode choice. It is always accepted. Choosing anything but future
// releases the future lock; choosing auto hands control back to automatic detection.
func (m *Machine) Select(mode temporal.Mode) (Snapshot, error) {
	if !mode.Valid() || mode == temporal.ModeInsufficientData {
		return Snapshot{}, ErrInvalidMode
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}

	m.generation++
	if mode != temporal.ModeFuture {
		m.futureLock = false
	}
	if mode == temporal.ModeAuto {
		m.setAutoLocked(true)
	} else {
		m.setAutoLocked(false)
	}

	var c change
	to := temporal.ModeState{Mode: mode, Confidence: 1, Reason: ReasonManual, Timestamp: m.now()}
	if t := m.transitionLocked(to, temporal.SourceManual); t != nil {
		c.transitions = append(c.transitions, *t)
	}
	return m.commit(c), nil
}

// SetAutoMode toggles automatic detection without changing the displayed mode.
func (m *Machine) SetAutoMode(enabled bool) (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if enabled && m.futureLock {
		m.mu.Unlock()
		return Snapshot{}, ErrFutureLocked
	}
	if m.autoMode != enabled {
		m.generation++
		m.setAutoLocked(enabled)
	}
	return m.commit(change{}), nil
}

// Observe stores the latest page snapshot for the next poll. A change in the detected
// recent actions is recorded as an action signal, and a scroll of at least
// signals.ScrollThreshold pixels as a scroll signal.
func (m *Machine) Observe(page *signals.PageSnapshot) error {
	if page == nil {
		return nil
	}
	actions := signals.DetectRecentActions(page)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.page = page

	var c change
	if !sameActions(m.actions, actions) {
		m.actions = actions
		c.signals = append(c.signals, temporal.Signal{
			Type:      temporal.SignalAction,
			Data:      map[string]interface{}{"actions": actions, "url": page.URL},
			Timestamp: m.now(),
		})
	}
	if delta := page.ScrollTop - m.scrollTop; delta >= signals.ScrollThreshold || -delta >= signals.ScrollThreshold {
		m.scrollTop = page.ScrollTop
		c.signals = append(c.signals, temporal.Signal{
			Type:      temporal.SignalScroll,
			Data:      map[string]interface{}{"scrollTop": page.ScrollTop, "url": page.URL},
			Timestamp: m.now(),
		})
	}
	m.commit(c)
	return nil
}

// Poll runs one automatic detection. The result is dropped if anything that outranks
// polling happened while the detector was running.
func (m *Machine) Poll(ctx context.Context) {
	m.mu.Lock()
	if m.closed || !m.autoMode || m.futureLock || m.page == nil {
		m.mu.Unlock()
		return
	}
	gen := m.generation
	page := m.page
	m.mu.Unlock()

	d, ok := m.detect(ctx, page)
	if !ok {
		return
	}

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return
	case ctx.Err() != nil:
		m.drop("cancelled", d)
		m.mu.Unlock()
		return
	case gen != m.generation:
		m.drop("stale", d)
		m.mu.Unlock()
		return
	case !m.autoMode || m.futureLock:
		m.drop("blocked", d)
		m.mu.Unlock()
		return
	}

	var c change
	c.signals = append(c.signals, temporal.Signal{
		Type:      temporal.SignalHeuristic,
		Data:      map[string]interface{}{"mode": d.Mode, "confidence": d.Confidence, "reason": d.Reason, "outcome": d.Outcome},
		Timestamp: m.now(),
	})
	if t := m.transitionLocked(d.State(m.now()), temporal.SourcePolling); t != nil {
		c.transitions = append(c.transitions, *t)
	}
	m.commit(c)
}

// HandleFragment consumes one speech fragment. It is the listener's callback.
func (m *Machine) HandleFragment(f signals.Fragment) {
	f = f.Normalize()
	if f.Empty() {
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	var c change
	if !f.Final {
		m.interim = f.Text
		if t := m.speechOnsetLocked(); t != nil {
			c.transitions = append(c.transitions, *t)
		}
		m.commit(c)
		return
	}
	m.interim = ""

	if signals.IsTerminalUtterance(f.Text) {
		m.generation++
		m.futureLock = true
		m.setAutoLocked(false)
		m.listener.Stop()

		to := temporal.ModeState{Mode: temporal.ModeFuture, Confidence: 1, Reason: ReasonVoiceDone, Timestamp: m.now()}
		if t := m.transitionLocked(to, temporal.SourceVoice); t != nil {
			c.transitions = append(c.transitions, *t)
		}
		c.signals = append(c.signals, temporal.Signal{
			Type:      temporal.SignalAction,
			Data:      map[string]interface{}{"action": "force_future", "utterance": f.Text},
			Timestamp: m.now(),
		})
		m.commit(c)
		return
	}

	if t := m.speechOnsetLocked(); t != nil {
		c.transitions = append(c.transitions, *t)
	}

	m.transcript = append(m.transcript, f.Text)
	c.signals = append(c.signals, temporal.Signal{
		Type:      temporal.SignalTranscript,
		Data:      map[string]interface{}{"text": f.Text},
		Timestamp: m.now(),
	})

	if mode, ok := signals.DetectSpeechMode(f.Text); ok && m.autoMode && !m.futureLock {
		to := temporal.ModeState{
			Mode:       mode,
			Confidence: speechConfidence,
			Reason:     fmt.Sprintf("Speech keyword: %s", mode),
			Timestamp:  m.now(),
		}
		if t := m.transitionLocked(to, temporal.SourceSpeech); t != nil {
			m.generation++
			m.setAutoLocked(false)
			c.transitions = append(c.transitions, *t)
		}
	}
	m.commit(c)
}

// StartSpeech is the user-initiated start of continuous listening.
func (m *Machine) StartSpeech() (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if !m.listener.Listening() {
		m.recognizer.Drain()
	}
	m.listener.Start()
	return m.commit(change{}), nil
}

func (m *Machine) StopSpeech() (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	m.listener.Stop()
	m.interim = ""
	return m.commit(change{}), nil
}

// PushFragment queues a recognized fragment for the running listener.
func (m *Machine) PushFragment(f signals.Fragment) error {
	if !m.listener.Listening() {
		return ErrNotListening
	}
	return m.recognizer.Push(f)
}

// EndStream ends the current recognizer stream; the listener restarts it.
func (m *Machine) EndStream() error {
	if !m.listener.Listening() {
		return ErrNotListening
	}
	return m.recognizer.End()
}

// FailStream reports a recognizer error to the listener.
func (m *Machine) FailStream(code speech.ErrorCode) error {
	if !m.listener.Listening() {
		return ErrNotListening
	}
	return m.recognizer.Fail(code)
}

// SetRecommendation stores a recommendation produced for a FUTURE entry. It is ignored
// unless that entry is still the current one.
func (m *Machine) SetRecommendation(entryID uint64, rec recommendation.Recommendation) bool {
	m.mu.Lock()
	if m.closed || entryID == 0 || entryID != m.futureEntry || m.state.Mode != temporal.ModeFuture {
		m.mu.Unlock()
		return false
	}
	m.recommendation = &rec
	m.recommendationPending = false
	m.commit(change{})
	return true
}

// ResolveRecommendation applies a clinician decision and returns the recommendation as it
// was before the decision. Approve and reject clear it; modify replaces the dosage.
func (m *Machine) ResolveRecommendation(d recommendation.Decision, modifiedDosage string) (recommendation.Recommendation, error) {
	if !d.Valid() || (d == recommendation.DecisionModify && strings.TrimSpace(modifiedDosage) == "") {
		return recommendation.Recommendation{}, fmt.Errorf("invalid decision %q", d)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return recommendation.Recommendation{}, ErrClosed
	}
	if m.recommendation == nil {
		m.mu.Unlock()
		return recommendation.Recommendation{}, ErrNoRecommendation
	}

	before := *m.recommendation
	if d == recommendation.DecisionModify {
		modified := before
		modified.Dosage = strings.TrimSpace(modifiedDosage)
		m.recommendation = &modified
	} else {
		m.recommendation = nil
	}
	m.commit(change{})
	return before, nil
}

// RestoreRecommendation puts back a recommendation whose resolution could not be
// completed. It is a no-op once a newer recommendation arrived or FUTURE was left.
func (m *Machine) RestoreRecommendation(rec recommendation.Recommendation) bool {
	m.mu.Lock()
	if m.closed || m.recommendation != nil || m.state.Mode != temporal.ModeFuture {
		m.mu.Unlock()
		return false
	}
	m.recommendation = &rec
	m.commit(change{})
	return true
}

// Subscribe streams snapshots after every change. Slow subscribers only see the latest.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSubscriber
	m.nextSubscriber++
	m.subscribers[id] = ch
	ch <- m.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			_, ok := m.subscribers[id]
			delete(m.subscribers, id)
			m.effectsMu.Lock()
			m.mu.Unlock()
			if ok {
				close(ch)
			}
			m.effectsMu.Unlock()
		})
	}
}

// Close stops polling and listening and ends all subscriptions.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.generation++
	m.poller.Stop()
	subs := m.subscribers
	m.subscribers = map[int]chan Snapshot{}
	m.effectsMu.Lock()
	m.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
	m.effectsMu.Unlock()

	m.listener.Close()
	m.cancel()
}

func (m *Machine) detect(ctx context.Context, page *signals.PageSnapshot) (d Detection, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("ENGINE", "Recovered from panic during detection", map[string]interface{}{
				"session_id": m.id,
				"panic":      fmt.Sprint(r),
			})
			ok = false
		}
	}()
	return m.detector.Detect(ctx, page), true
}

func (m *Machine) drop(reason string, d Detection) {
	metrics.DroppedDetections.WithLabelValues(reason).Inc()
	m.logger.Debug("ENGINE", "Dropped automatic detection", map[string]interface{}{
		"session_id": m.id,
		"reason":     reason,
		"mode":       d.Mode,
	})
}

func (m *Machine) setAutoLocked(enabled bool) {
	m.autoMode = enabled
	if enabled {
		m.poller.Start()
	} else {
		m.poller.Stop()
	}
}

// speechOnsetLocked moves past to present when the clinician starts talking.
func (m *Machine) speechOnsetLocked() *temporal.Transition {
	if m.state.Mode != temporal.ModePast || m.futureLock {
		return nil
	}
	m.generation++
	m.setAutoLocked(false)
	to := temporal.ModeState{Mode: temporal.ModePresent, Confidence: speechConfidence, Reason: ReasonSpeechOnset, Timestamp: m.now()}
	return m.transitionLocked(to, temporal.SourceSpeechOnset)
}

// transitionLocked replaces the state when the mode actually changes and returns the
// transition, or nil when the mode is unchanged.
func (m *Machine) transitionLocked(to temporal.ModeState, source temporal.TransitionSource) *temporal.Transition {
	if to.Mode == m.state.Mode {
		return nil
	}
	from := m.state
	m.state = to

	t := &temporal.Transition{SessionID: m.id, From: from, To: to, Source: source}
	switch to.Mode {
	case temporal.ModePast:
		m.transcript = nil
	case temporal.ModeFuture:
		m.entrySeq++
		m.futureEntry = m.entrySeq
		m.recommendation = nil
		m.recommendationPending = true
		t.EntryID = m.futureEntry
		t.Transcript = strings.Join(m.transcript, " ")
	}
	if to.Mode != temporal.ModeFuture {
		m.futureEntry = 0
		m.recommendation = nil
		m.recommendationPending = false
	}
	return t
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		SessionID:             m.id,
		State:                 m.state,
		AutoMode:              m.autoMode,
		FutureLock:            m.futureLock,
		Listening:             m.listener.Listening(),
		Polling:               m.poller.Running(),
		Transcript:            strings.Join(m.transcript, " "),
		Interim:               m.interim,
		RecommendationPending: m.recommendationPending,
		FutureEntryID:         m.futureEntry,
		Generation:            m.generation,
	}
	if m.recommendation != nil {
		rec := *m.recommendation
		s.Recommendation = &rec
	}
	return s
}

// commit must be called with mu held. It releases mu, then runs effects and notifies
// subscribers while holding effectsMu.
func (m *Machine) commit(c change) Snapshot {
	snap := m.snapshotLocked()
	subs := make([]chan Snapshot, 0, len(m.subscribers))
	for _, ch := range m.subscribers {
		subs = append(subs, ch)
	}

	m.effectsMu.Lock()
	m.mu.Unlock()
	defer m.effectsMu.Unlock()

	for _, t := range c.transitions {
		metrics.ModeTransitions.WithLabelValues(string(t.From.Mode), string(t.To.Mode), string(t.Source)).Inc()
		m.logger.Info("ENGINE", "Mode transition", map[string]interface{}{
			"session_id": m.id,
			"from":       t.From.Mode,
			"to":         t.To.Mode,
			"source":     t.Source,
			"reason":     t.To.Reason,
		})
		m.effects.ModeChanged(m.ctx, t)
	}
	for _, s := range c.signals {
		m.effects.SignalRecorded(m.ctx, m.id, s)
	}
	for _, ch := range subs {
		deliver(ch, snap)
	}
	return snap
}

func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func sameActions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type nopEffects struct{}

func (nopEffects) ModeChanged(context.Context, temporal.Transition)        {}
func (nopEffects) SignalRecorded(context.Context, string, temporal.Signal) {}
