package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/chatdesk/testutil"
)

func newTestClient(t *testing.T, backend *testutil.FakeBackend, opts ...ClientOption) *Client {
	t.Helper()
	c, err := NewClient(backend.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "trailing slash trimmed", baseURL: "https://bot.example.com/", want: "https://bot.example.com"},
		{name: "http allowed", baseURL: "http://localhost:8000", want: "http://localhost:8000"},
		{name: "empty", baseURL: "  ", wantErr: true},
		{name: "bad scheme", baseURL: "ftp://bot.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL, WithTimeout(5*time.Second))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("NewClient(%q) error = %T, want *ValidationError", tt.baseURL, err)
				}
				return
			}
			if c.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.want)
			}
		})
	}
}

func TestClient_SendsHeaders(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	var got http.Header
	backend.Handle("GET", "/api/health", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		testutil.WriteJSON(w, 200, `{"status":"ok"}`)
	})

	c := newTestClient(t, backend, WithToken("tok"))
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if got.Get("Authorization") != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", got.Get("Authorization"), "Bearer tok")
	}
	if got.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
}

func TestClient_ErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{name: "detail field", status: 403, body: `{"detail":"Permission denied"}`, wantDetail: "Permission denied"},
		{name: "error field", status: 500, body: `{"error":"sheet unavailable"}`, wantDetail: "sheet unavailable"},
		{name: "message field", status: 400, body: `{"message":"bad input"}`, wantDetail: "bad input"},
		{name: "validation list", status: 422, body: `{"detail":[{"msg":"field required"}]}`, wantDetail: `[{"msg":"field required"}]`},
		{name: "non json body", status: 502, body: `<html>bad gateway</html>`, wantDetail: "request failed (HTTP 502)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(t)
			backend.JSON("GET", "/api/admin/users", tt.status, tt.body)
			c := newTestClient(t, backend)

			_, err := c.ListAdmins(context.Background())
			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("ListAdmins() error = %v, want *NetworkError", err)
			}
			if netErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", netErr.StatusCode, tt.status)
			}
			if netErr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", netErr.Detail, tt.wantDetail)
			}
			if !strings.Contains(netErr.Error(), tt.wantDetail) {
				t.Errorf("Error() = %q, want it to contain %q", netErr.Error(), tt.wantDetail)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend)
	backend.Close()

	err := c.Health(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Health() error = %v, want *NetworkError", err)
	}
	if netErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", netErr.StatusCode)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.Token = "secret"
	backend.JSON("GET", "/api/admin/me", 200, testutil.MeJSON)

	c := newTestClient(t, backend, WithToken("stale"))
	_, err := c.Me(context.Background())
	if !IsUnauthorized(err) {
		t.Errorf("Me() error = %v, want 401", err)
	}

	c.SetToken("secret")
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.Username != "root" || !me.IsSuperAdmin {
		t.Errorf("Me() = %+v", me)
	}
}
