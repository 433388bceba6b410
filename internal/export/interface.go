package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/chatdesk/internal"
)

// Exporter writes a transcript in one output format
type Exporter interface {
	Export(t *internal.Transcript, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names
var Formats = []string{"jsonl", "md", "yaml", "json"}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// FileName returns the output file name of t for exporter e
func FileName(t *internal.Transcript, e Exporter) string {
	return fmt.Sprintf("session_%s.%s", t.ID, e.Extension())
}
