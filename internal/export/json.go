package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/chatdesk/internal"
)

// JSONExporter writes one transcript per document. Messages are always an
// array, so a session without logs still reads as `"messages": []`.
type JSONExporter struct {
	// Compact disables indentation
	Compact bool
}

func (e *JSONExporter) Export(t *internal.Transcript, w io.Writer) error {
	out := *t
	if out.Messages == nil {
		out.Messages = []internal.Message{}
	}

	enc := json.NewEncoder(w)
	if !e.Compact {
		enc.SetIndent("", "  ")
	}
	// chat content regularly carries <, > and & from pasted HTML
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode session %s: %w", t.ID, err)
	}
	return nil
}

func (e *JSONExporter) Extension() string { return "json" }
