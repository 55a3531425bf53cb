package session

import "time"

// Status enumerates the per-session view states the frontend renders.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// State is the view state for one session. It holds the most recent
// round only; every completed round overwrites it wholesale.
type State struct {
	SessionID  string    `json:"sessionId"`
	Status     Status    `json:"status"`
	Transcript string    `json:"transcript,omitempty"`
	Reply      string    `json:"reply,omitempty"`
	AudioURL   string    `json:"audioUrl,omitempty"`
	Error      string    `json:"error,omitempty"`
	TurnID     string    `json:"turnId,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
