package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/iksnae/chatdesk/internal"
)

const listJSON = `{"success":true,"data":[
	{"uuid":"sess-alpha","ended_at":"2025-08-13T10:00:00Z","message_count":"5"},
	{"uuid":"sess-beta","ended_at":"2025-07-30T09:00:00Z","message_count":"20","has_references":"TRUE"}
]}`

const opsMeJSON = `{"success":true,"data":{"username":"ops","is_super_admin":false,"permissions":{
	"chat-history":{"can_view":true,"can_save":false},
	"gpt-setting":{"can_view":true,"can_save":false}}}}`

const deniedMeJSON = `{"success":true,"data":{"username":"guest","is_super_admin":false,"permissions":{}}}`

func TestSessionsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "ops", opsMeJSON)
	env.backend.JSON("GET", "/api/chat/sessions", 200, listJSON)

	tests := []struct {
		name  string
		args  []string
		first string
	}{
		{name: "default order", args: []string{"sessions"}, first: "sess-alpha"},
		{name: "messages desc", args: []string{"sessions", "--sort", "messages-desc"}, first: "sess-beta"},
		{name: "list alias", args: []string{"list", "-s", "messages-asc"}, first: "sess-alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := env.run(t, tt.args...)
			if err != nil {
				t.Fatalf("%v error = %v", tt.args, err)
			}
			if !strings.Contains(stdout, "2 session(s)") {
				t.Errorf("output missing session count:\n%s", stdout)
			}
			alpha, beta := strings.Index(stdout, "sess-alpha"), strings.Index(stdout, "sess-beta")
			first := "sess-alpha"
			if beta < alpha {
				first = "sess-beta"
			}
			if first != tt.first {
				t.Errorf("first session = %s, want %s", first, tt.first)
			}
		})
	}
}

func TestSessionsCommand_Offline(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "ops", opsMeJSON)

	if _, _, err := env.run(t, "sessions", "--offline"); err == nil || !strings.Contains(err.Error(), "no snapshot") {
		t.Fatalf("offline without snapshot error = %v", err)
	}

	env.backend.JSON("GET", "/api/chat/sessions", 200, listJSON)
	if _, _, err := env.run(t, "sessions"); err != nil {
		t.Fatal(err)
	}
	hits := env.backend.Hits("GET", "/api/chat/sessions")

	stdout, _, err := env.run(t, "sessions", "--offline", "--sort", "messages-desc")
	if err != nil {
		t.Fatalf("sessions --offline error = %v", err)
	}
	if !strings.Contains(stdout, "sess-alpha") || !strings.Contains(stdout, "sess-beta") {
		t.Errorf("offline listing incomplete:\n%s", stdout)
	}
	if got := env.backend.Hits("GET", "/api/chat/sessions"); got != hits {
		t.Errorf("offline listing contacted the backend")
	}

	if _, _, err := env.run(t, "sessions", "--offline", "--clear-cache"); err == nil {
		t.Error("offline listing after --clear-cache should fail")
	}
}

func TestSessionsCommand_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "guest", deniedMeJSON)
	env.backend.JSON("GET", "/api/chat/sessions", 200, listJSON)

	_, _, err := env.run(t, "sessions")
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("sessions without chat-history error = %v", err)
	}
	if env.backend.Hits("GET", "/api/chat/sessions") != 0 {
		t.Error("denied listing reached the backend")
	}

	_, _, err = env.run(t, "sessions", "--sort", "newest")
	if err == nil || !strings.Contains(err.Error(), "invalid sort") {
		t.Errorf("bad sort key error = %v", err)
	}
}

func TestDisplaySessions(t *testing.T) {
	var buf strings.Builder
	displaySessions(&buf, nil, internal.SortDefault, time.Now())
	if !strings.Contains(buf.String(), "No sessions found") {
		t.Errorf("empty listing = %q", buf.String())
	}

	buf.Reset()
	sessions := []internal.SessionSummary{
		testCreateSummary("sess-1", "2025-08-13T10:00:00Z", "12 msgs"),
	}
	displaySessions(&buf, sessions, internal.SortMessagesDesc, time.Now())
	out := buf.String()
	for _, want := range []string{"sess-1", "12", "chatdesk show"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func testCreateSummary(id, endedAt, count string) internal.SessionSummary {
	return internal.SessionSummary{ID: id, EndedAt: endedAt, MessageCount: count}
}
