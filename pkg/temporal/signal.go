package temporal

import "time"

type SignalType string

const (
	SignalScroll     SignalType = "scroll"
	SignalTranscript SignalType = "transcript"
	SignalAction     SignalType = "action"
	SignalHeuristic  SignalType = "heuristic"
)

func (t SignalType) Valid() bool {
	switch t {
	case SignalScroll, SignalTranscript, SignalAction, SignalHeuristic:
		return true
	}
	return false
}

// Signal is a timestamped unit of evidence recorded for a session. Data is opaque.
type Signal struct {
	Type      SignalType  `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// TransitionSource identifies what caused a mode change.
type TransitionSource string

const (
	SourceManual      TransitionSource = "manual"
	SourceVoice       TransitionSource = "voice"
	SourceSpeech      TransitionSource = "speech"
	SourceSpeechOnset TransitionSource = "speech_onset"
	SourcePolling     TransitionSource = "polling"
)

// Automatic reports whether transitions from this source are subject to autoMode and the future lock.
func (s TransitionSource) Automatic() bool {
	return s == SourceSpeech || s == SourcePolling
}

// Transition describes an accepted mode change.
type Transition struct {
	SessionID string           `json:"sessionId"`
	From      ModeState        `json:"from"`
	To        ModeState        `json:"to"`
	Source    TransitionSource `json:"source"`
	// Transcript carries the accumulated transcript at the moment of the transition.
	Transcript string `json:"transcript,omitempty"`
	// EntryID identifies this particular entry into To.Mode.
	EntryID uint64 `json:"entryId"`
}
