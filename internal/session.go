package internal

// Transcript is a normalized view of one chat session and its messages,
// used by the exporters and the local archive
type Transcript struct {
	ID       string    `json:"id" yaml:"id"`
	Source   string    `json:"source" yaml:"source"` // "api", "archive" or "snapshot"
	Messages []Message `json:"messages" yaml:"messages"`
	Metadata Metadata  `json:"metadata" yaml:"metadata"`
}

// Message is one normalized chat turn
type Message struct {
	Timestamp  string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Actor      string `json:"actor" yaml:"actor"` // "user" or "assistant"
	Content    string `json:"content" yaml:"content"`
	References string `json:"references,omitempty" yaml:"references,omitempty"`
}

// Metadata carries the session summary fields
type Metadata struct {
	StartedAt     string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	EndedAt       string `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	MessageCount  int    `json:"message_count" yaml:"message_count"`
	HasReferences bool   `json:"has_references,omitempty" yaml:"has_references,omitempty"`
	BaseURL       string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}
