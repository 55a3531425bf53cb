package profile

// Profile captures the assistant attributes exposed to the frontend.
// PromptPrefix is prepended to the transcript before the chat call;
// Voice is passed through to the speech synthesizer when set.
type Profile struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description"`
	PromptPrefix string `json:"promptPrefix,omitempty" yaml:"promptPrefix"`
	Voice        string `json:"voice,omitempty" yaml:"voice"`
	Greeting     string `json:"greeting,omitempty" yaml:"greeting"`
}

// Seed provides the default profiles used when no catalog file is configured.
func Seed() []Profile {
	return []Profile{
		{
			ID:           "default",
			Name:         "Assistant",
			Description:  "General-purpose voice assistant.",
			PromptPrefix: "You are a helpful voice assistant. Answer briefly; the reply will be spoken aloud.",
			Greeting:     "Hi! Hold the button and start talking.",
		},
		{
			ID:           "concise",
			Name:         "Concise",
			Description:  "Single-sentence answers, no filler.",
			PromptPrefix: "Answer in one short spoken sentence. No lists, no preamble.",
			Voice:        "narrator-calm",
			Greeting:     "Ask away.",
		},
		{
			ID:           "storyteller",
			Name:         "Storyteller",
			Description:  "Warm, narrative replies for longer listening.",
			PromptPrefix: "Reply in a warm narrative tone suitable for listening, two to four sentences.",
			Voice:        "narrator-warm",
			Greeting:     "Settle in, and tell me what you'd like to hear about.",
		},
	}
}
