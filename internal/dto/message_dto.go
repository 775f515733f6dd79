package dto

// ModeChangedMessage is the in-process message published on every accepted transition.
type ModeChangedMessage struct {
	SessionId  string  `json:"session_id"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Source     string  `json:"source"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	EntryId    uint64  `json:"entry_id"`
	Transcript string  `json:"transcript,omitempty"`
	OccurredAt int64   `json:"occurred_at"`
}
