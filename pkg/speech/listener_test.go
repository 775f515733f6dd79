package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/signals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) handle(f signals.Fragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, f.Text)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

const wait = 2 * time.Second
const tick = 5 * time.Millisecond

func TestListenerRestartsAfterStreamEnds(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := NewPushRecognizer(8)
	var out recorder
	var restarts atomic.Int32
	l := NewListener(rec, out.handle, Options{OnRestart: func() { restarts.Add(1) }}, logger.NewNopLogger())
	l.Start()
	defer l.Close()

	require.NoError(t, rec.Push(signals.Fragment{Text: "one", Final: true}))
	require.NoError(t, rec.End())
	require.NoError(t, rec.Push(signals.Fragment{Text: "two", Final: true}))

	assert.Eventually(t, func() bool { return len(out.snapshot()) == 2 }, wait, tick)
	assert.Equal(t, []string{"one", "two"}, out.snapshot())
	assert.GreaterOrEqual(t, restarts.Load(), int32(1))
	assert.True(t, l.Listening())
}

func TestListenerIgnoresTransientErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := NewPushRecognizer(8)
	var out recorder
	var errs atomic.Int32
	l := NewListener(rec, out.handle, Options{OnError: func(error) { errs.Add(1) }}, logger.NewNopLogger())
	l.Start()
	defer l.Close()

	for _, code := range []ErrorCode{ErrCodeNoSpeech, ErrCodeAborted, ErrCodeNetwork} {
		require.NoError(t, rec.Fail(code))
	}
	require.NoError(t, rec.Push(signals.Fragment{Text: "still here", Final: true}))

	assert.Eventually(t, func() bool { return len(out.snapshot()) == 1 }, wait, tick)
	assert.Equal(t, int32(3), errs.Load())
	assert.True(t, l.Listening())
}

func TestListenerStopsOnCriticalError(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, code := range []ErrorCode{ErrCodeNotAllowed, ErrCodeAudioCapture} {
		t.Run(string(code), func(t *testing.T) {
			rec := NewPushRecognizer(8)
			var out recorder
			l := NewListener(rec, out.handle, Options{}, logger.NewNopLogger())
			l.Start()

			require.NoError(t, rec.Fail(code))
			assert.Eventually(t, func() bool { return !l.Listening() }, wait, tick)
			l.Close()

			// A user start recovers.
			rec.Drain()
			l.Start()
			require.NoError(t, rec.Push(signals.Fragment{Text: "back", Final: true}))
			assert.Eventually(t, func() bool { return len(out.snapshot()) == 1 }, wait, tick)
			l.Close()
		})
	}
}

func TestListenerStopFromHandlerSuppressesRestart(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := NewPushRecognizer(8)
	var l *Listener
	var out recorder
	l = NewListener(rec, func(f signals.Fragment) {
		out.handle(f)
		if signals.IsTerminalUtterance(f.Text) {
			l.Stop()
		}
	}, Options{}, logger.NewNopLogger())
	l.Start()

	require.NoError(t, rec.Push(signals.Fragment{Text: "done", Final: true}))
	assert.Eventually(t, func() bool { return !l.Listening() }, wait, tick)
	l.Close()

	require.NoError(t, rec.Push(signals.Fragment{Text: "ignored", Final: true}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"done"}, out.snapshot())
}

// burst delivers all of its fragments back to back without looking at ctx.
type burst struct {
	texts []string
}

func (b burst) Run(ctx context.Context, handle func(signals.Fragment)) error {
	for _, text := range b.texts {
		handle(signals.Fragment{Text: text, Final: true})
	}
	<-ctx.Done()
	return nil
}

func TestListenerDropsFragmentsQueuedBehindStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name  string
		setup func() Recognizer
	}{
		{"push recognizer", func() Recognizer {
			rec := NewPushRecognizer(8)
			for _, text := range []string{"ok done", "after the lock", "more"} {
				_ = rec.Push(signals.Fragment{Text: text, Final: true})
			}
			return rec
		}},
		{"recognizer ignoring ctx", func() Recognizer {
			return burst{texts: []string{"ok done", "after the lock", "more"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l *Listener
			var out recorder
			l = NewListener(tt.setup(), func(f signals.Fragment) {
				out.handle(f)
				if signals.IsTerminalUtterance(f.Text) {
					l.Stop()
				}
			}, Options{}, logger.NewNopLogger())
			l.Start()

			assert.Eventually(t, func() bool { return !l.Listening() }, wait, tick)
			l.Close()
			assert.Equal(t, []string{"ok done"}, out.snapshot())
		})
	}
}

type panicky struct {
	calls atomic.Int32
}

func (p *panicky) Run(ctx context.Context, handle func(signals.Fragment)) error {
	if p.calls.Add(1) == 1 {
		panic("boom")
	}
	handle(signals.Fragment{Text: "recovered", Final: true})
	<-ctx.Done()
	return nil
}

func TestListenerRecoversFromPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &panicky{}
	var out recorder
	var lastErr atomic.Value
	l := NewListener(rec, out.handle, Options{OnError: func(err error) { lastErr.Store(err) }}, logger.NewNopLogger())
	l.Start()
	defer l.Close()

	assert.Eventually(t, func() bool { return len(out.snapshot()) == 1 }, wait, tick)
	err, _ := lastErr.Load().(error)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestStartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := NewPushRecognizer(8)
	l := NewListener(rec, func(signals.Fragment) {}, Options{}, logger.NewNopLogger())
	l.Start()
	l.Start()
	assert.True(t, l.Listening())
	l.Close()
	assert.False(t, l.Listening())
	l.Close()
}

func TestPushRecognizerBackpressure(t *testing.T) {
	rec := NewPushRecognizer(1)
	require.NoError(t, rec.Push(signals.Fragment{Text: "a"}))
	assert.True(t, errors.Is(rec.Push(signals.Fragment{Text: "b"}), ErrBufferFull))
	rec.Drain()
	assert.NoError(t, rec.Push(signals.Fragment{Text: "c"}))
}

func TestIsCritical(t *testing.T) {
	assert.True(t, IsCritical(&RecognitionError{Code: ErrCodeNotAllowed}))
	assert.False(t, IsCritical(&RecognitionError{Code: ErrCodeNetwork}))
	assert.False(t, IsCritical(errors.New("other")))
}
