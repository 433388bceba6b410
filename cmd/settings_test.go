package cmd

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/testutil"
)

const settingsJSON = `{"success":true,"data":{"aiGreeting":"Hello!","gpt-model":"GPT-4o",
	"temperature":"0.5","max-tokens":"1024","references":true}}`

const settingsMeJSON = `{"success":true,"data":{"username":"ops","permissions":{
	"gpt-setting":{"can_view":true,"can_save":true}}}}`

func TestSettingsShow(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "ops", settingsMeJSON)
	env.backend.JSON("GET", "/api/load-settings", 200, settingsJSON)

	tests := []struct {
		format string
		want   []string
	}{
		{format: "yaml", want: []string{"model: gpt-4o", "max_tokens: 1024", "ai_greeting: Hello!"}},
		{format: "json", want: []string{`"gpt_settings"`, `"model": "gpt-4o"`, `"references_enabled": true`}},
	}
	for _, tt := range tests {
		stdout, _, err := env.run(t, "settings", "show", "-f", tt.format)
		if err != nil {
			t.Fatalf("settings show -f %s error = %v", tt.format, err)
		}
		for _, want := range tt.want {
			if !strings.Contains(stdout, want) {
				t.Errorf("%s output missing %q:\n%s", tt.format, want, stdout)
			}
		}
	}

	if _, _, err := env.run(t, "settings", "show", "-f", "toml"); err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestSettingsSave(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "ops", settingsMeJSON)
	env.backend.JSON("GET", "/api/load-settings", 200, settingsJSON)
	var saved internal.SaveSettingsRequest
	env.backend.Handle("POST", "/api/save-settings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&saved)
		testutil.WriteJSON(w, 200, `{"success":true}`)
	})

	file := testutil.WriteFile(t, env.dir, "settings.yaml", []byte("temperature: 1.1\ndownload_button: true\n"))
	if _, _, err := env.run(t, "settings", "save", "--file", file); err != nil {
		t.Fatalf("settings save error = %v", err)
	}
	if saved.GPTSettings.Temperature != 1.1 || !saved.ReferenceSettings.DownloadButtonEnabled {
		t.Errorf("saved = %+v, want file values", saved)
	}
	if saved.GPTSettings.Model != "gpt-4o" || saved.AIGreeting != "Hello!" || saved.GPTSettings.MaxTokens != 1024 {
		t.Errorf("saved = %+v, want unchanged keys kept", saved)
	}

	invalid := testutil.WriteFile(t, env.dir, "hot.yaml", []byte("temperature: 3\n"))
	if _, _, err := env.run(t, "settings", "save", "--file", invalid); err == nil || !strings.Contains(err.Error(), "temperature") {
		t.Errorf("settings save with temperature 3 error = %v", err)
	}
	if got := env.backend.Hits("POST", "/api/save-settings"); got != 1 {
		t.Errorf("save requests = %d, want 1", got)
	}
}

func TestSettingsLoadRetried(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "ops", settingsMeJSON)
	env.backend.JSON("GET", "/api/load-settings", 500, `{"detail":"sheet unavailable"}`)

	_, _, err := env.run(t, "settings", "show")
	if err == nil || !strings.Contains(err.Error(), "failed to load settings") {
		t.Errorf("settings show error = %v", err)
	}
	// settings.retries is 1 in the test config
	if got := env.backend.Hits("GET", "/api/load-settings"); got != 2 {
		t.Errorf("load requests = %d, want 2", got)
	}
}

func TestDocsCommands(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "root", testutil.MeJSON)
	env.backend.JSON("GET", "/api/documents", 200, `[{"name":"faq.pdf"},{"name":"hours.pdf"}]`)
	env.backend.JSON("DELETE", "/api/documents/", 200, `{"success":true}`)

	stdout, _, err := env.run(t, "docs", "list")
	if err != nil {
		t.Fatalf("docs list error = %v", err)
	}
	if !strings.Contains(stdout, "2 document(s)") || !strings.Contains(stdout, "hours.pdf") {
		t.Errorf("docs list output:\n%s", stdout)
	}

	if _, _, err := env.run(t, "docs", "delete", "faq.pdf"); err != nil {
		t.Fatalf("docs delete error = %v", err)
	}
	if env.backend.Hits("DELETE", "/api/documents/faq.pdf") != 1 {
		t.Error("docs delete did not reach the backend")
	}
}
