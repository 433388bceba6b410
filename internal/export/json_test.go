package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/iksnae/chatdesk/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	tr := internal.CreateTestTranscript("json-1")

	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(tr, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got internal.Transcript
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.ID != "json-1" || len(got.Messages) != 2 {
		t.Errorf("Export() = %+v, want id json-1 with 2 messages", got)
	}
	if got.Messages[1].References != "hours.pdf" {
		t.Errorf("references = %q, want hours.pdf", got.Messages[1].References)
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  \"id\"")) {
		t.Error("Export() output is not indented")
	}
}

func TestJSONExporter_NoMessages(t *testing.T) {
	tr := internal.CreateTestTranscriptWithMessages("json-2", nil)

	var buf bytes.Buffer
	if err := (&JSONExporter{Compact: true}).Export(tr, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"messages":[]`)) {
		t.Errorf("Export() = %s, want an empty messages array", buf.String())
	}
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Errorf("compact output spans several lines: %s", buf.String())
	}
	if tr.Messages != nil {
		t.Error("Export() modified the transcript")
	}
}
