package session

import "time"

// Turn is the result of one full transcribe → chat → synthesize round.
type Turn struct {
	ID         string `json:"id"`
	SessionID  string `json:"sessionId"`
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	AudioURL   string `json:"audioUrl"`
	// Fallback marks audio produced by the local synthesizer rather
	// than the TTS service.
	Fallback bool `json:"fallback,omitempty"`

	TranscribeMS int64 `json:"transcribeMs"`
	ChatMS       int64 `json:"chatMs"`
	SynthesizeMS int64 `json:"synthesizeMs"`

	CreatedAt time.Time `json:"createdAt"`
}
