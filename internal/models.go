package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// envelope is the {success, data} wrapper every JSON endpoint answers with
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// SessionSummary is one row of the Sessions sheet
type SessionSummary struct {
	ID            string `json:"uuid" yaml:"uuid"`
	StartedAt     string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	EndedAt       string `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	MessageCount  string `json:"message_count,omitempty" yaml:"message_count,omitempty"`
	HasReferences bool   `json:"has_references,omitempty" yaml:"has_references,omitempty"`
}

// UnmarshalJSON accepts the column aliases the sheet has used over time.
func (s *SessionSummary) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = firstString(raw, "uuid", "id")
	s.StartedAt = firstString(raw, "started_at", "start")
	s.EndedAt = firstString(raw, "ended_at", "end")
	s.MessageCount = firstString(raw, "message_count", "count")
	s.HasReferences = parseBool(firstString(raw, "has_references", "references"))
	return nil
}

// Messages returns the message count, 0 when absent or unparsable
func (s SessionSummary) Messages() int {
	return parseLeadingInt(s.MessageCount)
}

// SortTime is the timestamp the default ordering uses: ended_at, falling
// back to started_at. Absent or unparsable values yield the zero time.
func (s SessionSummary) SortTime() time.Time {
	if s.EndedAt != "" {
		return ParseTimestamp(s.EndedAt)
	}
	return ParseTimestamp(s.StartedAt)
}

// Role of a chat log entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatLogEntry is one message of a session, in server order
type ChatLogEntry struct {
	Role       Role   `json:"role" yaml:"role"`
	Content    string `json:"content" yaml:"content"`
	Timestamp  string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	References string `json:"references,omitempty" yaml:"references,omitempty"`
}

// UnmarshalJSON accepts the ChatLogs sheet columns (type/message) as well as
// the normalized names.
func (e *ChatLogEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Role = normalizeRole(firstString(raw, "type", "role"))
	e.Content = firstString(raw, "message", "content")
	e.Timestamp = firstString(raw, "timestamp")
	e.References = firstString(raw, "references", "References")
	return nil
}

func normalizeRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser
	case "bot", "assistant":
		return RoleAssistant
	default:
		return Role(strings.ToLower(strings.TrimSpace(s)))
	}
}

// AdminUser is an entry of the admin list
type AdminUser struct {
	Username     string `json:"username" yaml:"username"`
	IsSuperAdmin bool   `json:"is_super_admin" yaml:"is_super_admin"`
}

// PermissionFlags are the view/save switches of one category
type PermissionFlags struct {
	CanView bool `json:"can_view" yaml:"can_view"`
	CanSave bool `json:"can_save" yaml:"can_save"`
}

// Permission is one row of a permissions update
type Permission struct {
	Category string `json:"category"`
	CanView  bool   `json:"can_view"`
	CanSave  bool   `json:"can_save"`
}

// Categories known to the backend
var Categories = []string{
	"chatbot-connect",
	"chat-history",
	"gpt-setting",
	"prompt-setting",
	"data-setting",
	"reference-data",
}

// IsCategory reports whether c is a known permission category
func IsCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// Action on a category
type Action string

const (
	ActionView Action = "view"
	ActionSave Action = "save"
)

// Me describes the logged-in admin
type Me struct {
	Username     string                     `json:"username"`
	IsSuperAdmin bool                       `json:"is_super_admin"`
	Permissions  map[string]PermissionFlags `json:"permissions"`
	Categories   []string                   `json:"categories"`
}

// Allowed reports whether the admin may perform action on category.
// Super admins are always allowed.
func (m *Me) Allowed(category string, action Action) bool {
	if m == nil {
		return false
	}
	if m.IsSuperAdmin {
		return true
	}
	flags, ok := m.Permissions[category]
	if !ok {
		return false
	}
	switch action {
	case ActionView:
		return flags.CanView
	case ActionSave:
		return flags.CanSave
	}
	return false
}

// UploadResponse is what POST /api/upload answers
type UploadResponse struct {
	Success                  bool   `json:"success"`
	Message                  string `json:"message"`
	Filename                 string `json:"filename"`
	Size                     int64  `json:"size"`
	UploadedAt               string `json:"uploaded_at"`
	ConvertedPDFPath         string `json:"converted_pdf_path,omitempty"`
	DriveUploadScheduled     *bool  `json:"drive_upload_scheduled,omitempty"`
	DriveUploadScheduleError string `json:"drive_upload_schedule_error,omitempty"`
	DriveUploadJobID         string `json:"drive_upload_job_id,omitempty"`
}

// JobStatus of a background Drive upload
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobSuccess JobStatus = "success"
	JobError   JobStatus = "error"
	JobUnknown JobStatus = "unknown"
)

// Terminal reports whether polling can stop
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobError
}

// DriveFile is the uploaded Drive file
type DriveFile struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

// JobStatusData is the data of GET /api/upload/status/{jobId}
type JobStatusData struct {
	Status    JobStatus  `json:"status"`
	Detail    string     `json:"detail,omitempty"`
	DriveFile *DriveFile `json:"drive_file,omitempty"`
}

// Document is an indexed knowledge document
type Document struct {
	Name string `json:"name"`
}

// Settings holds the bot settings row
type Settings struct {
	AIGreeting      string  `yaml:"ai_greeting"`
	TrainingData    string  `yaml:"training_data"`
	InstructionData string  `yaml:"instruction_data"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	References      bool    `yaml:"references"`
	DownloadButton  bool    `yaml:"download_button"`
}

var modelIDs = map[string]string{
	"GPT-4o-mini": "gpt-4o-mini",
	"GPT-4o":      "gpt-4o",
	"GPT-5-mini":  "gpt-5-mini",
	"GPT-5":       "gpt-5",
}

// SettingsFromMap converts the loosely-typed settings row into Settings,
// applying the same defaults the console always used.
func SettingsFromMap(m map[string]any) Settings {
	s := Settings{
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	s.AIGreeting = anyString(m["aiGreeting"])
	s.TrainingData = anyString(m["trainingData"])
	s.InstructionData = anyString(m["instructionData"])
	if id, ok := modelIDs[anyString(m["gpt-model"])]; ok {
		s.Model = id
	}
	if v, err := strconv.ParseFloat(anyString(m["temperature"]), 64); err == nil && v != 0 {
		s.Temperature = v
	}
	if v := parseLeadingInt(anyString(m["max-tokens"])); v != 0 {
		s.MaxTokens = v
	}
	s.References = m["references"] == true
	s.DownloadButton = m["download-button"] == true
	return s
}

// SaveSettingsRequest is the body of POST /api/save-settings
type SaveSettingsRequest struct {
	AIGreeting      string `json:"ai_greeting"`
	TrainingData    string `json:"training_data"`
	InstructionData string `json:"instruction_data"`
	GPTSettings     struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	} `json:"gpt_settings"`
	ReferenceSettings struct {
		ReferencesEnabled     bool `json:"references_enabled"`
		DownloadButtonEnabled bool `json:"download_button_enabled"`
	} `json:"reference_settings"`
}

// Request builds the save payload from s
func (s Settings) Request() SaveSettingsRequest {
	var req SaveSettingsRequest
	req.AIGreeting = s.AIGreeting
	req.TrainingData = s.TrainingData
	req.InstructionData = s.InstructionData
	req.GPTSettings.Model = s.Model
	req.GPTSettings.Temperature = s.Temperature
	req.GPTSettings.MaxTokens = s.MaxTokens
	req.ReferenceSettings.ReferencesEnabled = s.References
	req.ReferenceSettings.DownloadButtonEnabled = s.DownloadButton
	return req
}

// firstString returns the first present key as a string. Numbers and
// booleans are formatted; null and missing keys are skipped.
func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String()
		}
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			return strconv.FormatBool(b)
		}
	}
	return ""
}

func anyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// parseLeadingInt reads an optional sign and leading digits, ignoring the
// rest ("12 msgs" -> 12). Anything else is 0.
func parseLeadingInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// ParseTimestamp parses the many date formats the sheets contain.
// Unparsable input yields the zero time.
func ParseTimestamp(ts string) time.Time {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	t, err := dateparse.ParseIn(ts, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
