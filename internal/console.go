package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

const (
	// MaxUploadSize is the largest file the backend accepts
	MaxUploadSize = 50 << 20
	// DefaultSettingsRetries is how many times a failed settings load is retried
	DefaultSettingsRetries = 3
	// DefaultSettingsRetryInterval is the fixed pause between settings retries
	DefaultSettingsRetryInterval = 2 * time.Second
)

// AllowedUploadExtensions are the file types the backend ingests
var AllowedUploadExtensions = []string{
	"pdf", "txt", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"jpg", "jpeg", "png", "gif", "bmp", "webp",
	"mp4", "mov", "avi", "wmv", "flv", "mkv",
	"mp3", "wav", "ogg", "m4a", "aac",
	"zip", "rar", "7z", "tar", "gz",
}

// ConsoleOptions tunes the caches and timers of a Console
type ConsoleOptions struct {
	LogCacheSize          int
	AdminCacheTTL         time.Duration
	PollInterval          time.Duration
	PollTimeout           time.Duration
	SettingsRetries       int
	SettingsRetryInterval time.Duration
	Clock                 Clock
}

// Console holds the state of one admin session: the API client, the log and
// admin caches, the loaded session list and the current admin. It is created
// at startup and Reset on logout.
type Console struct {
	client *Client
	logs   *LogCache
	admins *AdminCache
	poller *JobPoller

	settingsRetries       int
	settingsRetryInterval time.Duration

	fetches singleflight.Group

	mu       sync.RWMutex
	sessions []SessionSummary
	me       *Me
}

// NewConsole wires the caches and the poller around client
func NewConsole(client *Client, opts ConsoleOptions) *Console {
	c := &Console{
		client:                client,
		logs:                  NewLogCache(opts.LogCacheSize),
		settingsRetries:       opts.SettingsRetries,
		settingsRetryInterval: opts.SettingsRetryInterval,
	}
	if c.settingsRetries < 0 {
		c.settingsRetries = 0
	}
	if c.settingsRetryInterval <= 0 {
		c.settingsRetryInterval = DefaultSettingsRetryInterval
	}
	c.admins = NewAdminCache(client.ListAdmins, opts.AdminCacheTTL, opts.Clock)
	c.poller = NewJobPoller(client.UploadStatus, opts.PollInterval, opts.PollTimeout, opts.Clock)
	return c
}

// Client returns the underlying API client
func (c *Console) Client() *Client { return c.client }

// Logs returns the chat log cache
func (c *Console) Logs() *LogCache { return c.logs }

// Me returns the current admin, loading it on first use
func (c *Console) Me(ctx context.Context) (*Me, error) {
	c.mu.RLock()
	me := c.me
	c.mu.RUnlock()
	if me != nil {
		return me, nil
	}
	return c.RefreshMe(ctx)
}

// RefreshMe reloads the current admin and their permissions
func (c *Console) RefreshMe(ctx context.Context) (*Me, error) {
	me, err := c.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.me = me
	c.mu.Unlock()
	return me, nil
}

// Require fails unless the current admin may perform action on category
func (c *Console) Require(ctx context.Context, category string, action Action) error {
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	if !me.Allowed(category, action) {
		return fmt.Errorf("permission denied: %s needs %s access to %s", me.Username, action, category)
	}
	return nil
}

// Reset forgets everything tied to the logged-in admin
func (c *Console) Reset() {
	c.mu.Lock()
	c.sessions = nil
	c.me = nil
	c.mu.Unlock()
	c.logs.Clear()
	c.admins.Invalidate()
	c.client.SetToken("")
}

// LoadSessions fetches the session list and replaces the loaded one.
// Rows repeating an id collapse into the last one.
func (c *Console) LoadSessions(ctx context.Context) ([]SessionSummary, error) {
	list, err := c.client.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	list = NewDeduplicator().Deduplicate(list)

	c.mu.Lock()
	c.sessions = list
	c.mu.Unlock()
	LogDebug("loaded %d session(s)", len(list))
	return slices.Clone(list), nil
}

// SetSessions replaces the loaded list, e.g. with an offline snapshot
func (c *Console) SetSessions(list []SessionSummary) {
	c.mu.Lock()
	c.sessions = slices.Clone(list)
	c.mu.Unlock()
}

// Sessions returns the loaded list ordered by key
func (c *Console) Sessions(key SortKey) []SessionSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return SortSessions(c.sessions, key)
}

// ChatLogs returns the logs of a session from the cache, fetching them on a
// miss. Concurrent misses for the same session share one request, which
// outlives any single caller giving up; it is bounded by the client timeout.
func (c *Console) ChatLogs(ctx context.Context, sessionID string) ([]ChatLogEntry, error) {
	if logs, ok := c.logs.Get(sessionID); ok {
		LogDebug("logs for %s served from cache", sessionID)
		return logs, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.fetches.DoChan(sessionID, func() (interface{}, error) {
		logs, err := c.client.ChatLogs(fetchCtx, sessionID)
		if err != nil {
			return nil, err
		}
		c.logs.Put(sessionID, logs)
		return logs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]ChatLogEntry), nil
	}
}

// Admins returns the admin list through the TTL cache
func (c *Console) Admins(ctx context.Context, force bool) ([]AdminUser, error) {
	return c.admins.Users(ctx, force)
}

// SaveAdmin creates or updates an admin, then invalidates the admin cache
func (c *Console) SaveAdmin(ctx context.Context, username, password string, superAdmin bool) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return &ValidationError{Field: "admin", Msg: "username and password are required"}
	}
	if err := c.client.UpsertAdmin(ctx, username, password, superAdmin); err != nil {
		return err
	}
	c.admins.Invalidate()
	return nil
}

// DeleteAdmin removes an admin, then invalidates the admin cache
func (c *Console) DeleteAdmin(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &ValidationError{Field: "admin", Msg: "username is required"}
	}
	if err := c.client.DeleteAdmin(ctx, username); err != nil {
		return err
	}
	c.admins.Invalidate()
	return nil
}

// SetPermissions replaces the permissions of username, then invalidates the
// admin cache. When the current admin edits themselves, their permissions
// are reloaded.
func (c *Console) SetPermissions(ctx context.Context, username string, perms []Permission) error {
	for _, p := range perms {
		if !IsCategory(p.Category) {
			return &ValidationError{Field: "category", Msg: fmt.Sprintf("unknown category %q", p.Category)}
		}
	}
	if err := c.client.SetPermissions(ctx, username, perms); err != nil {
		return err
	}
	c.admins.Invalidate()

	c.mu.RLock()
	self := c.me != nil && c.me.Username == username
	c.mu.RUnlock()
	if self {
		if _, err := c.RefreshMe(ctx); err != nil {
			LogWarn("failed to reload own permissions: %v", err)
		}
	}
	return nil
}

// ValidateUpload checks a local file before it is sent
func ValidateUpload(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ValidationError{Field: "file", Msg: err.Error()}
	}
	if info.IsDir() {
		return nil, &ValidationError{Field: "file", Msg: fmt.Sprintf("%s is a directory", path)}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !slices.Contains(AllowedUploadExtensions, ext) {
		return nil, &ValidationError{Field: "file", Msg: fmt.Sprintf("unsupported file type %q: %s", ext, filepath.Base(path))}
	}
	if info.Size() > MaxUploadSize {
		return nil, &ValidationError{Field: "file", Msg: fmt.Sprintf("%s exceeds %dMB", filepath.Base(path), MaxUploadSize>>20)}
	}
	return info, nil
}

// Upload validates and sends a local file
func (c *Console) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	if _, err := ValidateUpload(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()
	return c.client.Upload(ctx, filepath.Base(path), f)
}

// WaitForJob polls a background upload until it finishes. onStatus may be nil.
func (c *Console) WaitForJob(ctx context.Context, jobID string, onStatus StatusFunc) (*JobResult, error) {
	return c.poller.Poll(ctx, jobID, onStatus)
}

// LoadSettings loads the bot settings, retrying failures with a fixed pause.
// Authentication failures are not retried.
func (c *Console) LoadSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	attempt := 0
	op := func() error {
		s, err := c.client.LoadSettings(ctx)
		if err != nil {
			var netErr *NetworkError
			if errors.As(err, &netErr) && (netErr.StatusCode == 401 || netErr.StatusCode == 403) {
				return backoff.Permanent(err)
			}
			return err
		}
		settings = s
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.settingsRetryInterval), uint64(c.settingsRetries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		attempt++
		LogWarn("settings load failed, retry %d/%d in %s: %v", attempt, c.settingsRetries, wait, err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes the bot settings
func (c *Console) SaveSettings(ctx context.Context, s Settings) error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return &ValidationError{Field: "temperature", Msg: "must be between 0 and 2"}
	}
	if s.MaxTokens <= 0 {
		return &ValidationError{Field: "max_tokens", Msg: "must be positive"}
	}
	return c.client.SaveSettings(ctx, s)
}
