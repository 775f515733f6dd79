package entity

import (
	"time"

	"temporalos-be/pkg/temporal"
)

type Session struct {
	SessionId string
	LastMode  temporal.Mode
	Signals   []temporal.Signal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionUpdate is a partial update. A nil field is left unchanged.
type SessionUpdate struct {
	LastMode *temporal.Mode
	Signal   *temporal.Signal
}

func (u SessionUpdate) Empty() bool {
	return u.LastMode == nil && u.Signal == nil
}

// NextSignalTime stamps a signal at now, clamped so history stays non-decreasing.
func NextSignalTime(now, previous time.Time) time.Time {
	if now.Before(previous) {
		return previous
	}
	return now
}

// Clone copies the session so callers cannot alias stored signal history.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Signals = append([]temporal.Signal(nil), s.Signals...)
	return &out
}
