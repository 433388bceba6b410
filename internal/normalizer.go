package internal

import (
	"fmt"
	"strings"
	"time"
)

// Normalizer turns a session summary and its chat logs into a Transcript
type Normalizer struct {
	// BaseURL, when set, is recorded in the transcript metadata
	BaseURL string
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(baseURL string) *Normalizer {
	return &Normalizer{BaseURL: baseURL}
}

// Normalize builds the transcript of summary from logs, keeping server order
func (n *Normalizer) Normalize(summary SessionSummary, logs []ChatLogEntry, source string) (*Transcript, error) {
	if summary.ID == "" {
		return nil, fmt.Errorf("session has no id")
	}

	messages := make([]Message, 0, len(logs))
	hasRefs := summary.HasReferences
	for _, entry := range logs {
		msg := n.normalizeMessage(entry)
		if msg.References != "" {
			hasRefs = true
		}
		messages = append(messages, msg)
	}

	count := summary.Messages()
	if len(messages) > 0 {
		count = len(messages)
	}

	return &Transcript{
		ID:       summary.ID,
		Source:   source,
		Messages: messages,
		Metadata: Metadata{
			StartedAt:     normalizeTimestamp(summary.StartedAt),
			EndedAt:       normalizeTimestamp(summary.EndedAt),
			MessageCount:  count,
			HasReferences: hasRefs,
			BaseURL:       n.BaseURL,
		},
	}, nil
}

func (n *Normalizer) normalizeMessage(entry ChatLogEntry) Message {
	return Message{
		Timestamp:  normalizeTimestamp(entry.Timestamp),
		Actor:      n.normalizeActor(entry.Role),
		Content:    entry.Content,
		References: strings.TrimSpace(entry.References),
	}
}

// normalizeActor maps anything that is not the bot to "user"
func (n *Normalizer) normalizeActor(role Role) string {
	if role == RoleAssistant {
		return "assistant"
	}
	return "user"
}

// normalizeTimestamp rewrites parsable timestamps as RFC3339 in UTC and
// keeps anything else verbatim
func normalizeTimestamp(ts string) string {
	if ts == "" {
		return ""
	}
	t := ParseTimestamp(ts)
	if t.IsZero() {
		return ts
	}
	return t.UTC().Format(time.RFC3339)
}
