package gateway

// Message is the JSON frame exchanged with the speech gateway.
type Message struct {
	Type               string `json:"type"`
	Room               string `json:"room,omitempty"`
	Text               string `json:"text,omitempty"`
	IsFinal            bool   `json:"isFinal,omitempty"`
	AllowInterruptions bool   `json:"allow_interruptions"`
}

const (
	TranscriptMessage = "transcript"
	SayMessage        = "say"
	HelloMessage      = "hello"
)
