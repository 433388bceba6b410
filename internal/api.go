package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Health checks that the backend is up
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/api/health", nil)
}

// Login authenticates and stores the session token from the login cookie
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return &ValidationError{Field: "credentials", Msg: "username and password are required"}
	}
	body := map[string]string{"username": username, "password": password}
	resp, err := c.postJSON(ctx, "/api/admin/login", body, nil)
	if err != nil {
		return err
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cookieName && cookie.Value != "" {
			c.token = cookie.Value
			return nil
		}
	}
	return &ParseError{Source: "api", Key: "/api/admin/login", Err: fmt.Errorf("response carried no %s cookie", c.cookieName)}
}

// Logout ends the session on the backend and forgets the token
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.postJSON(ctx, "/api/admin/logout", struct{}{}, nil)
	c.token = ""
	return err
}

// Me returns the logged-in admin and their permissions
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var env envelope[Me]
	if err := c.getJSON(ctx, "/api/admin/me", &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ListSessions returns every chat session summary
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/chat/sessions", &raw); err != nil {
		return nil, err
	}
	// An empty sheet is answered with a bare [] instead of an envelope.
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []SessionSummary{}, nil
	}
	if trimmed[0] == '[' {
		var list []SessionSummary
		if err := json.Unmarshal(trimmed, &list); err != nil {
			LogWarn("%v", &ParseError{Source: "api", Key: "/api/chat/sessions", Err: err})
			return []SessionSummary{}, nil
		}
		return list, nil
	}
	var env envelope[[]SessionSummary]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		LogWarn("%v", &ParseError{Source: "api", Key: "/api/chat/sessions", Err: err})
	}
	if env.Data == nil {
		return []SessionSummary{}, nil
	}
	return env.Data, nil
}

// ChatLogs returns the messages of one session in server order
func (c *Client) ChatLogs(ctx context.Context, sessionID string) ([]ChatLogEntry, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "session", Msg: "id must not be empty"}
	}
	var env envelope[[]ChatLogEntry]
	if err := c.getJSON(ctx, "/api/chat/logs/"+url.PathEscape(sessionID), &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []ChatLogEntry{}, nil
	}
	return env.Data, nil
}

// Upload posts a file as multipart form field "file"
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var out UploadResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/upload", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadStatus returns the state of a background Drive upload.
// A missing status field reads as unknown.
func (c *Client) UploadStatus(ctx context.Context, jobID string) (*JobStatusData, error) {
	var env envelope[*JobStatusData]
	if err := c.getJSON(ctx, "/api/upload/status/"+url.PathEscape(jobID), &env); err != nil {
		return nil, err
	}
	data := env.Data
	if data == nil {
		data = &JobStatusData{}
	}
	if data.Status == "" {
		data.Status = JobUnknown
	}
	return data, nil
}

// ListAdmins returns every admin user
func (c *Client) ListAdmins(ctx context.Context) ([]AdminUser, error) {
	var env envelope[[]AdminUser]
	if err := c.getJSON(ctx, "/api/admin/users", &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []AdminUser{}, nil
	}
	return env.Data, nil
}

// UpsertAdmin creates an admin or replaces their password and role
func (c *Client) UpsertAdmin(ctx context.Context, username, password string, superAdmin bool) error {
	body := map[string]any{
		"username":       username,
		"password":       password,
		"is_super_admin": superAdmin,
	}
	_, err := c.postJSON(ctx, "/api/admin/users", body, nil)
	return err
}

// DeleteAdmin removes an admin
func (c *Client) DeleteAdmin(ctx context.Context, username string) error {
	return c.delete(ctx, "/api/admin/users/"+url.PathEscape(username), nil)
}

// Permissions returns the per-category flags of username
func (c *Client) Permissions(ctx context.Context, username string) (map[string]PermissionFlags, error) {
	var env envelope[map[string]PermissionFlags]
	if err := c.getJSON(ctx, "/api/admin/permissions/"+url.PathEscape(username), &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return map[string]PermissionFlags{}, nil
	}
	return env.Data, nil
}

// SetPermissions replaces the permissions of username
func (c *Client) SetPermissions(ctx context.Context, username string, perms []Permission) error {
	body := struct {
		Username    string       `json:"username"`
		Permissions []Permission `json:"permissions"`
	}{Username: username, Permissions: perms}
	_, err := c.postJSON(ctx, "/api/admin/permissions", body, nil)
	return err
}

// LoadSettings returns the bot settings row
func (c *Client) LoadSettings(ctx context.Context) (Settings, error) {
	var env envelope[map[string]any]
	if err := c.getJSON(ctx, "/api/load-settings", &env); err != nil {
		return Settings{}, err
	}
	return SettingsFromMap(env.Data), nil
}

// SaveSettings writes the bot settings row
func (c *Client) SaveSettings(ctx context.Context, s Settings) error {
	_, err := c.postJSON(ctx, "/api/save-settings", s.Request(), nil)
	return err
}

// ListDocuments returns the indexed knowledge documents
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := c.getJSON(ctx, "/api/documents", &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		return []Document{}, nil
	}
	return docs, nil
}

// DeleteDocument removes a document from the index
func (c *Client) DeleteDocument(ctx context.Context, name string) error {
	return c.delete(ctx, "/api/documents/"+url.PathEscape(name), nil)
}
