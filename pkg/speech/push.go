package speech

import (
	"context"
	"errors"

	"temporalos-be/pkg/signals"
)

var ErrBufferFull = errors.New("speech fragment buffer full")

type pushItem struct {
	fragment signals.Fragment
	end      bool
	err      error
}

// PushRecognizer is a Recognizer fed from outside, e.g. by fragments posted over HTTP.
// Items pushed between streams wait in the buffer for the next stream.
type PushRecognizer struct {
	items chan pushItem
}

func NewPushRecognizer(buffer int) *PushRecognizer {
	if buffer <= 0 {
		buffer = 64
	}
	return &PushRecognizer{items: make(chan pushItem, buffer)}
}

func (p *PushRecognizer) Run(ctx context.Context, handle func(signals.Fragment)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case it := <-p.items:
			switch {
			case ctx.Err() != nil:
				return nil
			case it.err != nil:
				return it.err
			case it.end:
				return nil
			default:
				handle(it.fragment)
			}
		}
	}
}

func (p *PushRecognizer) Push(f signals.Fragment) error {
	return p.offer(pushItem{fragment: f})
}

// End terminates the current stream as if the recognizer timed out.
func (p *PushRecognizer) End() error {
	return p.offer(pushItem{end: true})
}

func (p *PushRecognizer) Fail(code ErrorCode) error {
	return p.offer(pushItem{err: &RecognitionError{Code: code}})
}

// Drain discards anything still buffered.
func (p *PushRecognizer) Drain() {
	for {
		select {
		case <-p.items:
		default:
			return
		}
	}
}

func (p *PushRecognizer) offer(it pushItem) error {
	select {
	case p.items <- it:
		return nil
	default:
		return ErrBufferFull
	}
}
