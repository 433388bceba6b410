package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped when the on-disk snapshot layout changes
const CacheVersion = "1"

// CacheManager keeps an on-disk snapshot of the session list and of fetched
// chat logs so they can be browsed offline
type CacheManager struct {
	cacheDir string
}

// CacheMetadata stores metadata about the snapshot
type CacheMetadata struct {
	BaseURL      string    `json:"base_url" yaml:"base_url"`
	CacheVersion string    `json:"cache_version" yaml:"cache_version"`
	FetchedAt    time.Time `json:"fetched_at" yaml:"fetched_at"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// SessionIndex is the YAML index of the snapshot
type SessionIndex struct {
	Sessions []SessionSummary `yaml:"sessions"`
	Metadata CacheMetadata    `yaml:"metadata"`
}

// cachedLogs is the content of a session_<id>.json file
type cachedLogs struct {
	ID        string         `json:"id"`
	FetchedAt time.Time      `json:"fetched_at"`
	Logs      []ChatLogEntry `json:"logs"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// DefaultCacheDir returns ~/.chatdesk-cache
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".chatdesk-cache"), nil
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	if err := os.MkdirAll(cm.cacheDir, 0700); err != nil {
		return &StorageError{Path: cm.cacheDir, Op: "mkdir", Err: err}
	}
	return nil
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the session index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "sessions.yaml")
}

// GetSessionPath returns the path to a session's log file
func (cm *CacheManager) GetSessionPath(sessionID string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("session_%s.json", sessionID))
}

func validSessionID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return &ValidationError{Field: "session", Msg: fmt.Sprintf("invalid id %q", id)}
	}
	return nil
}

// IsCacheValid reports whether a snapshot exists for baseURL
func (cm *CacheManager) IsCacheValid(baseURL string) bool {
	index, err := cm.LoadIndex()
	if err != nil {
		return false
	}
	return index.Metadata.CacheVersion == CacheVersion &&
		strings.TrimRight(index.Metadata.BaseURL, "/") == strings.TrimRight(baseURL, "/")
}

// LoadIndex loads the session index
func (cm *CacheManager) LoadIndex() (*SessionIndex, error) {
	indexPath := cm.GetIndexPath()
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, &StorageError{Path: indexPath, Op: "read", Err: err}
	}

	var index SessionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: "cache", Key: indexPath, Err: err}
	}

	return &index, nil
}

// SaveIndex saves the session index
func (cm *CacheManager) SaveIndex(index *SessionIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	indexPath := cm.GetIndexPath()
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.WriteFile(indexPath, data, 0600); err != nil {
		return &StorageError{Path: indexPath, Op: "write", Err: err}
	}
	return nil
}

// SaveSessions replaces the snapshot of the session list for baseURL
func (cm *CacheManager) SaveSessions(sessions []SessionSummary, baseURL string) error {
	now := time.Now().UTC()
	index := &SessionIndex{
		Sessions: sessions,
		Metadata: CacheMetadata{
			BaseURL:      baseURL,
			CacheVersion: CacheVersion,
			FetchedAt:    now,
			CreatedAt:    now,
		},
	}

	if existing, err := cm.LoadIndex(); err == nil && existing.Metadata.BaseURL == baseURL {
		index.Metadata.CreatedAt = existing.Metadata.CreatedAt
	}
	if index.Sessions == nil {
		index.Sessions = []SessionSummary{}
	}
	return cm.SaveIndex(index)
}

// LoadSessions returns the snapshot of the session list
func (cm *CacheManager) LoadSessions() ([]SessionSummary, *CacheMetadata, error) {
	index, err := cm.LoadIndex()
	if err != nil {
		return nil, nil, err
	}
	return index.Sessions, &index.Metadata, nil
}

// SaveLogs writes the chat logs of one session
func (cm *CacheManager) SaveLogs(sessionID string, logs []ChatLogEntry) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	path := cm.GetSessionPath(sessionID)
	data, err := json.MarshalIndent(cachedLogs{ID: sessionID, FetchedAt: time.Now().UTC(), Logs: logs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal logs: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// LoadLogs reads the cached chat logs of one session
func (cm *CacheManager) LoadLogs(sessionID string) ([]ChatLogEntry, error) {
	if err := validSessionID(sessionID); err != nil {
		return nil, err
	}
	path := cm.GetSessionPath(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	var cached cachedLogs
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, &ParseError{Source: "cache", Key: path, Err: err}
	}
	if cached.Logs == nil {
		cached.Logs = []ChatLogEntry{}
	}
	return cached.Logs, nil
}

// ClearCache removes the index and every session file
func (cm *CacheManager) ClearCache() error {
	matches, err := filepath.Glob(filepath.Join(cm.cacheDir, "session_*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			LogWarn("Failed to remove %s: %v", path, err)
		}
	}

	indexPath := cm.GetIndexPath()
	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return &StorageError{Path: indexPath, Op: "remove", Err: err}
	}

	return nil
}
