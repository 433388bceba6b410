package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/iksnae/chatdesk/testutil"
)

func TestClient_Login(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	var body map[string]string
	backend.Handle("POST", "/api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		http.SetCookie(w, &http.Cookie{Name: "admin_token", Value: "tok-123", HttpOnly: true})
		testutil.WriteJSON(w, 200, `{"success":true}`)
	})

	c := newTestClient(t, backend)
	if err := c.Login(context.Background(), "root", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if c.Token() != "tok-123" {
		t.Errorf("Token() = %q, want %q", c.Token(), "tok-123")
	}
	if body["username"] != "root" || body["password"] != "pw" {
		t.Errorf("login body = %v", body)
	}
}

func TestClient_LoginWithoutCookie(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("POST", "/api/admin/login", 200, `{"success":true}`)

	c := newTestClient(t, backend)
	err := c.Login(context.Background(), "root", "pw")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("Login() error = %v, want *ParseError", err)
	}
	if c.Token() != "" {
		t.Errorf("Token() = %q, want empty", c.Token())
	}
}

func TestClient_LoginRejected(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("POST", "/api/admin/login", 401, `{"detail":"Invalid credentials"}`)

	c := newTestClient(t, backend)
	err := c.Login(context.Background(), "root", "wrong")
	if !IsUnauthorized(err) {
		t.Errorf("Login() error = %v, want 401", err)
	}
	if err := c.Login(context.Background(), "", ""); err == nil {
		t.Error("Login() with empty credentials should fail")
	}
}

func TestClient_Logout(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("POST", "/api/admin/logout", 200, `{"success":true}`)

	c := newTestClient(t, backend, WithToken("tok"))
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if c.Token() != "" {
		t.Errorf("Token() = %q after Logout, want empty", c.Token())
	}
}

func TestClient_ListSessions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantIDs []string
	}{
		{name: "envelope", body: testutil.SessionsJSON, wantIDs: []string{"a", "b"}},
		{name: "bare empty array", body: `[]`, wantIDs: []string{}},
		{name: "bare array", body: `[{"uuid":"x"}]`, wantIDs: []string{"x"}},
		{name: "column aliases", body: `{"success":true,"data":[{"id":"y","count":3}]}`, wantIDs: []string{"y"}},
		{name: "malformed", body: `{"success":true,"data":"oops"}`, wantIDs: []string{}},
		{name: "not json", body: `<html>`, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(t)
			backend.JSON("GET", "/api/chat/sessions", 200, tt.body)
			c := newTestClient(t, backend)

			list, err := c.ListSessions(context.Background())
			if err != nil {
				t.Fatalf("ListSessions() error = %v", err)
			}
			if list == nil {
				t.Fatal("ListSessions() = nil, want non-nil")
			}
			got := ids(list)
			if strings.Join(got, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ListSessions() ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestClient_ListSessionsFields(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/chat/sessions", 200, testutil.SessionsJSON)
	c := newTestClient(t, backend)

	list, err := c.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b := list[1]
	if b.Messages() != 20 {
		t.Errorf("Messages() = %d, want 20", b.Messages())
	}
	if !b.HasReferences {
		t.Error("HasReferences = false, want true")
	}
	if b.EndedAt != "2025-07-30T09:00:00Z" {
		t.Errorf("EndedAt = %q", b.EndedAt)
	}
}

func TestClient_ChatLogs(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/chat/logs/", 200, testutil.LogsJSON)
	c := newTestClient(t, backend)

	logs, err := c.ChatLogs(context.Background(), "a")
	if err != nil {
		t.Fatalf("ChatLogs() error = %v", err)
	}
	want := []ChatLogEntry{
		{Role: RoleUser, Content: "Hello", Timestamp: "2025-08-13T09:59:00Z"},
		{Role: RoleAssistant, Content: "Hi, how can I help?", Timestamp: "2025-08-13T10:00:00Z", References: "faq.pdf"},
	}
	if len(logs) != len(want) {
		t.Fatalf("ChatLogs() returned %d entries, want %d", len(logs), len(want))
	}
	for i := range want {
		if logs[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, logs[i], want[i])
		}
	}
	if backend.Hits("GET", "/api/chat/logs/a") != 1 {
		t.Errorf("expected one request to /api/chat/logs/a")
	}

	if _, err := c.ChatLogs(context.Background(), ""); err == nil {
		t.Error("ChatLogs(\"\") should fail")
	}
}

func TestClient_Upload(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	var gotName, gotContent string
	backend.Handle("POST", "/api/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			testutil.WriteJSON(w, 400, map[string]string{"detail": err.Error()})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotContent = header.Filename, string(data)
		testutil.WriteJSON(w, 200, `{"success":true,"message":"ok","filename":"manual.pdf","size":5,
			"drive_upload_scheduled":true,"drive_upload_job_id":"job-9"}`)
	})

	c := newTestClient(t, backend)
	resp, err := c.Upload(context.Background(), "manual.pdf", bytes.NewReader([]byte("%PDF-")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if gotName != "manual.pdf" || gotContent != "%PDF-" {
		t.Errorf("server received %q with %q", gotName, gotContent)
	}
	if resp.DriveUploadJobID != "job-9" {
		t.Errorf("DriveUploadJobID = %q, want job-9", resp.DriveUploadJobID)
	}
	if resp.DriveUploadScheduled == nil || !*resp.DriveUploadScheduled {
		t.Error("DriveUploadScheduled should be true")
	}
}

func TestClient_UploadStatus(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     JobStatus
		wantLink string
	}{
		{name: "pending", body: `{"success":true,"data":{"status":"pending"}}`, want: JobPending},
		{name: "success", body: `{"success":true,"data":{"status":"success","drive_file":{"id":"f","webViewLink":"https://drive/f"}}}`, want: JobSuccess, wantLink: "https://drive/f"},
		{name: "missing status", body: `{"success":true,"data":{}}`, want: JobUnknown},
		{name: "missing data", body: `{"success":true}`, want: JobUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(t)
			backend.JSON("GET", "/api/upload/status/", 200, tt.body)
			c := newTestClient(t, backend)

			data, err := c.UploadStatus(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("UploadStatus() error = %v", err)
			}
			if data.Status != tt.want {
				t.Errorf("Status = %v, want %v", data.Status, tt.want)
			}
			link := ""
			if data.DriveFile != nil {
				link = data.DriveFile.WebViewLink
			}
			if link != tt.wantLink {
				t.Errorf("link = %q, want %q", link, tt.wantLink)
			}
		})
	}
}

func TestClient_Admins(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/admin/users", 200, `{"success":true,"data":[{"username":"root","is_super_admin":true},{"username":"ops"}]}`)
	var upsert map[string]any
	backend.Handle("POST", "/api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&upsert)
		testutil.WriteJSON(w, 200, `{"success":true}`)
	})
	backend.JSON("DELETE", "/api/admin/users/", 200, `{"success":true}`)
	c := newTestClient(t, backend)
	ctx := context.Background()

	users, err := c.ListAdmins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || !users[0].IsSuperAdmin || users[1].IsSuperAdmin {
		t.Errorf("ListAdmins() = %+v", users)
	}

	if err := c.UpsertAdmin(ctx, "ops", "pw", true); err != nil {
		t.Fatal(err)
	}
	if upsert["username"] != "ops" || upsert["is_super_admin"] != true {
		t.Errorf("upsert body = %v", upsert)
	}

	if err := c.DeleteAdmin(ctx, "ops"); err != nil {
		t.Fatal(err)
	}
	if backend.Hits("DELETE", "/api/admin/users/ops") != 1 {
		t.Error("expected DELETE /api/admin/users/ops")
	}
}

func TestClient_Permissions(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/admin/permissions/", 200, `{"success":true,"data":{"chat-history":{"can_view":true,"can_save":false}}}`)
	var body struct {
		Username    string       `json:"username"`
		Permissions []Permission `json:"permissions"`
	}
	backend.Handle("POST", "/api/admin/permissions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		testutil.WriteJSON(w, 200, `{"success":true}`)
	})
	c := newTestClient(t, backend)
	ctx := context.Background()

	perms, err := c.Permissions(ctx, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if !perms["chat-history"].CanView || perms["chat-history"].CanSave {
		t.Errorf("Permissions() = %+v", perms)
	}

	want := []Permission{{Category: "gpt-setting", CanView: true, CanSave: true}}
	if err := c.SetPermissions(ctx, "ops", want); err != nil {
		t.Fatal(err)
	}
	if body.Username != "ops" || len(body.Permissions) != 1 || body.Permissions[0] != want[0] {
		t.Errorf("SetPermissions body = %+v", body)
	}
}

func TestClient_PermissionsEmpty(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/admin/permissions/", 200, `{"success":true,"data":null}`)
	c := newTestClient(t, backend)

	perms, err := c.Permissions(context.Background(), "ops")
	if err != nil {
		t.Fatal(err)
	}
	if perms == nil {
		t.Error("Permissions() = nil, want empty map")
	}
}

func TestClient_Settings(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/load-settings", 200, `{"success":true,"data":{
		"aiGreeting":"Hello!","trainingData":"faq","instructionData":"be brief",
		"gpt-model":"GPT-4o","temperature":"0.3","max-tokens":"1024",
		"references":true,"download-button":false}}`)
	var saved SaveSettingsRequest
	backend.Handle("POST", "/api/save-settings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&saved)
		testutil.WriteJSON(w, 200, `{"success":true}`)
	})
	c := newTestClient(t, backend)
	ctx := context.Background()

	s, err := c.LoadSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Settings{
		AIGreeting:      "Hello!",
		TrainingData:    "faq",
		InstructionData: "be brief",
		Model:           "gpt-4o",
		Temperature:     0.3,
		MaxTokens:       1024,
		References:      true,
	}
	if s != want {
		t.Errorf("LoadSettings() = %+v, want %+v", s, want)
	}

	if err := c.SaveSettings(ctx, s); err != nil {
		t.Fatal(err)
	}
	if saved.GPTSettings.Model != "gpt-4o" || saved.GPTSettings.MaxTokens != 1024 || !saved.ReferenceSettings.ReferencesEnabled {
		t.Errorf("save body = %+v", saved)
	}
}

func TestClient_Documents(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.JSON("GET", "/api/documents", 200, `[{"name":"faq.pdf"},{"name":"hours.pdf"}]`)
	backend.JSON("DELETE", "/api/documents/", 200, `{"success":true}`)
	c := newTestClient(t, backend)
	ctx := context.Background()

	docs, err := c.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Name != "faq.pdf" {
		t.Errorf("ListDocuments() = %+v", docs)
	}

	if err := c.DeleteDocument(ctx, "faq.pdf"); err != nil {
		t.Fatal(err)
	}
	if backend.Hits("DELETE", "/api/documents/faq.pdf") != 1 {
		t.Error("expected DELETE /api/documents/faq.pdf")
	}
}
