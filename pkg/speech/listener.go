// Package speech keeps a continuous recognizer running across stream endings and
// transient failures until it is explicitly stopped.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/signals"
)

const DefaultRestartDelay = 50 * time.Millisecond

type ErrorCode string

const (
	ErrCodeNotAllowed   ErrorCode = "not-allowed"
	ErrCodeAudioCapture ErrorCode = "audio-capture"
	ErrCodeNoSpeech     ErrorCode = "no-speech"
	ErrCodeAborted      ErrorCode = "aborted"
	ErrCodeNetwork      ErrorCode = "network"
)

// RecognitionError is a failure reported by a recognizer stream.
type RecognitionError struct {
	Code ErrorCode
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition error: %s", e.Code)
}

// Critical errors stop listening until the user starts it again.
func (e *RecognitionError) Critical() bool {
	return e.Code == ErrCodeNotAllowed || e.Code == ErrCodeAudioCapture
}

func IsCritical(err error) bool {
	var rerr *RecognitionError
	return errors.As(err, &rerr) && rerr.Critical()
}

// Recognizer produces one stream of fragments. Run returns nil when the stream ends on
// its own and must return promptly once ctx is cancelled.
type Recognizer interface {
	Run(ctx context.Context, handle func(signals.Fragment)) error
}

type Options struct {
	RestartDelay time.Duration
	// OnRestart fires before each automatic restart.
	OnRestart func()
	// OnError fires for every stream error, critical or not.
	OnError func(err error)
}

type Listener struct {
	recognizer Recognizer
	handle     func(signals.Fragment)
	opts       Options
	log        logger.ILogger

	mu            sync.Mutex
	shouldRestart bool
	active        bool
	run           int
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewListener(recognizer Recognizer, handle func(signals.Fragment), opts Options, log logger.ILogger) *Listener {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	return &Listener{recognizer: recognizer, handle: handle, opts: opts, log: log}
}

// Start is the user-initiated start. It re-arms automatic restarts and is a no-op when
// already listening.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.shouldRestart = true
	if l.active {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.run++
	l.active = true
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.loop(ctx, l.run, l.done)
}

// Stop disables automatic restart and ends the current stream. It does not wait, so it is
// safe to call from inside the fragment handler.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.shouldRestart = false
	l.active = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Close stops the listener and waits for the stream goroutine to exit.
func (l *Listener) Close() {
	l.Stop()
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Listener) loop(ctx context.Context, run int, done chan struct{}) {
	defer close(done)

	for {
		err := l.stream(ctx)
		if err != nil {
			if l.opts.OnError != nil {
				l.opts.OnError(err)
			}
			if IsCritical(err) {
				l.log.Error("SPEECH", "Critical recognition error, listening stopped", map[string]interface{}{"error": err.Error()})
				l.finish(run)
				return
			}
			l.log.Debug("SPEECH", "Transient recognition error", map[string]interface{}{"error": err.Error()})
		}

		l.mu.Lock()
		restart := l.shouldRestart && l.run == run && ctx.Err() == nil
		l.mu.Unlock()
		if !restart {
			l.finish(run)
			return
		}

		if l.opts.OnRestart != nil {
			l.opts.OnRestart()
		}
		select {
		case <-ctx.Done():
			l.finish(run)
			return
		case <-time.After(l.opts.RestartDelay):
		}
	}
}

// stream runs one recognizer session. A panic is turned into an error so the loop can
// restart instead of dying. Fragments arriving after Stop are dropped even if the
// recognizer has not returned yet.
func (l *Listener) stream(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognizer panic: %v", r)
		}
	}()
	return l.recognizer.Run(ctx, func(f signals.Fragment) {
		if ctx.Err() != nil {
			return
		}
		l.handle(f)
	})
}

func (l *Listener) finish(run int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.run != run {
		return
	}
	l.active = false
	l.shouldRestart = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
