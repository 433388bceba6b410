package internal

import (
	"context"
	"sync"
	"testing"

	"github.com/iksnae/chatdesk/testutil"
)

func TestConsole_Archive(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/chat/sessions", 200, `{"success":true,"data":[
		{"uuid":"a","ended_at":"2025-08-13T10:00:00Z","message_count":"2"},
		{"uuid":"broken","ended_at":"2025-08-01T10:00:00Z","message_count":"4"},
		{"uuid":"b","ended_at":"2025-07-30T09:00:00Z","message_count":"2"}
	]}`)
	backend.JSON("GET", "/api/chat/logs/a", 200, testutil.LogsJSON)
	backend.JSON("GET", "/api/chat/logs/b", 200, testutil.LogsJSON)
	backend.JSON("GET", "/api/chat/logs/broken", 500, `{"detail":"sheet unavailable"}`)

	c := newTestConsole(t, backend)
	store, count := newTestStorage(t)

	var mu sync.Mutex
	var progress []int
	res, err := c.Archive(context.Background(), store, 2, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
		progress = append(progress, done)
	})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	if res.Sessions != 2 || res.Messages != 4 {
		t.Errorf("Archive() = %+v, want 2 sessions and 4 messages", res)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "broken" {
		t.Errorf("Failed = %v, want [broken]", res.Failed)
	}
	if len(progress) != 3 {
		t.Errorf("progress callbacks = %d, want 3", len(progress))
	}
	if n := count("chat_logs"); n != 4 {
		t.Errorf("chat_logs rows = %d, want 4", n)
	}

	tr, err := store.LoadTranscript(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Metadata.BaseURL != backend.URL || !tr.Metadata.HasReferences {
		t.Errorf("archived metadata = %+v", tr.Metadata)
	}
}

func TestConsole_ArchiveListFailure(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/chat/sessions", 403, `{"detail":"Permission denied"}`)
	c := newTestConsole(t, backend)
	store, _ := newTestStorage(t)

	if _, err := c.Archive(context.Background(), store, 0, nil); err == nil {
		t.Error("Archive() error = nil, want list failure")
	}
}
