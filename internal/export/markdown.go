package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/chatdesk/internal"
)

// MarkdownExporter writes a readable transcript
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(t *internal.Transcript, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Chat session %s\n\n", t.ID)
	if t.Metadata.StartedAt != "" {
		fmt.Fprintf(&b, "- **Started:** %s\n", t.Metadata.StartedAt)
	}
	if t.Metadata.EndedAt != "" {
		fmt.Fprintf(&b, "- **Ended:** %s\n", t.Metadata.EndedAt)
	}
	fmt.Fprintf(&b, "- **Messages:** %d\n", len(t.Messages))
	if t.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", t.Source)
	}
	b.WriteString("\n---\n\n")

	for i, msg := range t.Messages {
		heading := actorLabel(msg.Actor)
		if msg.Timestamp != "" {
			heading += " · " + msg.Timestamp
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", heading, escapeMarkdown(msg.Content))

		if msg.References != "" {
			b.WriteString("> **References**\n")
			for _, ref := range strings.Split(msg.References, "\n") {
				if ref = strings.TrimSpace(ref); ref != "" {
					fmt.Fprintf(&b, "> - %s\n", ref)
				}
			}
			b.WriteString("\n")
		}

		if i < len(t.Messages)-1 {
			b.WriteString("---\n\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func actorLabel(actor string) string {
	if actor == "assistant" {
		return "Bot"
	}
	return "User"
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		line = strings.ReplaceAll(line, "__", "\\_\\_")
		if strings.HasPrefix(line, "#") {
			line = "\\" + line
		}
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
