package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/iksnae/chatdesk/internal"
)

func TestJSONLExporter_Export(t *testing.T) {
	tests := []struct {
		name       string
		transcript *internal.Transcript
		wantLines  int
	}{
		{name: "two messages", transcript: internal.CreateTestTranscript("a"), wantLines: 2},
		{name: "no messages", transcript: internal.CreateTestTranscriptWithMessages("b", nil), wantLines: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&JSONLExporter{}).Export(tt.transcript, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			lines := 0
			sc := bufio.NewScanner(&buf)
			for sc.Scan() {
				var line map[string]any
				if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
					t.Fatalf("line %d is not JSON: %v", lines, err)
				}
				if line["session_id"] != tt.transcript.ID {
					t.Errorf("line %d session_id = %v, want %v", lines, line["session_id"], tt.transcript.ID)
				}
				if int(line["seq"].(float64)) != lines {
					t.Errorf("line %d seq = %v", lines, line["seq"])
				}
				lines++
			}
			if lines != tt.wantLines {
				t.Errorf("Export() wrote %d lines, want %d", lines, tt.wantLines)
			}
		})
	}
}
