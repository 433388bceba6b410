package export

import (
	"fmt"
	"io"

	"github.com/iksnae/chatdesk/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter writes the transcript as a YAML document headed by a comment
// naming the session
type YAMLExporter struct{}

func (e *YAMLExporter) Export(t *internal.Transcript, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# chatdesk session %s (%d messages)\n", t.ID, len(t.Messages)); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode session %s: %w", t.ID, err)
	}
	return enc.Close()
}

func (e *YAMLExporter) Extension() string { return "yaml" }
