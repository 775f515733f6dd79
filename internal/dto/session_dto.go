package dto

type CreateSessionRequest struct {
	SessionId string `json:"sessionId,omitempty" validate:"omitempty,max=128"`
}

type SignalRequest struct {
	Type string      `json:"type" validate:"required,oneof=scroll transcript action"`
	Data interface{} `json:"data"`
}

type UpdateSessionRequest struct {
	LastMode *string       `json:"lastMode,omitempty" validate:"omitempty,oneof=past present future auto"`
	Signal   *SignalRequest `json:"signal,omitempty"`
}

type SignalResponse struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// SessionResponse uses unix milliseconds for all timestamps.
type SessionResponse struct {
	SessionId     string           `json:"sessionId"`
	LastMode      string           `json:"lastMode"`
	SignalHistory []SignalResponse `json:"signalHistory"`
	CreatedAt     int64            `json:"createdAt"`
	UpdatedAt     int64            `json:"updatedAt"`
}
