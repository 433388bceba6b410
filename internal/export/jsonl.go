package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/chatdesk/internal"
)

// JSONLExporter writes one message per line
type JSONLExporter struct{}

type jsonlLine struct {
	SessionID  string `json:"session_id"`
	Seq        int    `json:"seq"`
	Actor      string `json:"actor"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp,omitempty"`
	References string `json:"references,omitempty"`
}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(t *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i, msg := range t.Messages {
		line := jsonlLine{
			SessionID:  t.ID,
			Seq:        i,
			Actor:      msg.Actor,
			Content:    msg.Content,
			Timestamp:  msg.Timestamp,
			References: msg.References,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
