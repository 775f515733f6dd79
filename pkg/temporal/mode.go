package temporal

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the clinician's current temporal cognitive stance.
type Mode string

const (
	ModeAuto             Mode = "auto"
	ModePast             Mode = "past"
	ModePresent          Mode = "present"
	ModeFuture           Mode = "future"
	ModeInsufficientData Mode = "insufficient_data"
)

// MinConfidenceThreshold is the confidence a classification needs to be considered strong evidence.
const MinConfidenceThreshold = 0.75

func (m Mode) Valid() bool {
	switch m {
	case ModeAuto, ModePast, ModePresent, ModeFuture, ModeInsufficientData:
		return true
	}
	return false
}

// Clinical reports whether m is one of past, present or future.
func (m Mode) Clinical() bool {
	return m == ModePast || m == ModePresent || m == ModeFuture
}

func (m Mode) String() string {
	return string(m)
}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// ModeState is the displayed authoritative state. It is replaced wholesale on every transition.
type ModeState struct {
	Mode       Mode      `json:"mode"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

func InitialState(now time.Time) ModeState {
	return ModeState{
		Mode:       ModeAuto,
		Confidence: 0,
		Reason:     "Session initialized",
		Timestamp:  now,
	}
}

// ClassificationResult is the transient output of a detector or classifier.
type ClassificationResult struct {
	Mode       Mode    `json:"mode"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (r ClassificationResult) Confident() bool {
	return r.Confidence >= MinConfidenceThreshold
}

// State wraps the result into a ModeState stamped at now.
func (r ClassificationResult) State(now time.Time) ModeState {
	return ModeState{
		Mode:       r.Mode,
		Confidence: r.Confidence,
		Reason:     r.Reason,
		Timestamp:  now,
	}
}
