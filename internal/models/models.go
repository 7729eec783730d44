// Package models defines the records clsync extracts from claude.ai and the
// sync run state persisted between invocations.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// FileType classifies a knowledge file by how claude.ai renders it.
type FileType string

const (
	FileTypeText FileType = "text"
	FileTypePDF  FileType = "pdf"
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	return t == FileTypeText || t == FileTypePDF
}

// Project is one claude.ai project as shown on the projects listing.
type Project struct {
	// ID is the path segment from the project URL, stable across renames.
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	// Updated is the site's relative-time label, e.g. "Updated 3 days ago".
	Updated string `json:"updated,omitempty"`
}

// Validate checks the invariants extraction must uphold. Localhost URLs are
// accepted for fixture-served pages.
func (p Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("project has no id")
	}
	if p.Name == "" {
		return fmt.Errorf("project %s has no name", p.ID)
	}
	if !strings.HasPrefix(p.URL, "https://claude.ai/project/") &&
		!strings.HasPrefix(p.URL, "http://localhost") {
		return fmt.Errorf("project %s has unexpected url %q", p.ID, p.URL)
	}
	return nil
}

// KnowledgeFile is one entry in a project's knowledge list.
type KnowledgeFile struct {
	Name     string   `json:"name"`
	FileType FileType `json:"file_type"`
	// Lines is set only for text files; nil means unknown or not applicable.
	Lines     *int   `json:"lines,omitempty"`
	SizeBytes *int64 `json:"size_bytes,omitempty"`
	// Content is the extracted file body. Excluded from metadata JSON, it is
	// persisted as its own file.
	Content string `json:"-"`
}

// Validate checks the invariants extraction must uphold, chiefly that a line
// count implies a text file.
func (f KnowledgeFile) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("knowledge file has no name")
	}
	if !f.FileType.Valid() {
		return fmt.Errorf("knowledge file %s has invalid type %q", f.Name, f.FileType)
	}
	if f.Lines != nil && f.FileType != FileTypeText {
		return fmt.Errorf("knowledge file %s has a line count but type %s", f.Name, f.FileType)
	}
	if f.Lines != nil && *f.Lines < 0 {
		return fmt.Errorf("knowledge file %s has negative line count", f.Name)
	}
	return nil
}

// ContentHash returns the hex SHA-256 of the file content, used to detect
// unchanged files between runs.
func (f KnowledgeFile) ContentHash() string {
	sum := sha256.Sum256([]byte(f.Content))
	return hex.EncodeToString(sum[:])
}

// SyncStatus is the outcome of a sync run.
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusPartial   SyncStatus = "partial"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncState records one sync run for the status command and for skipping
// redundant runs.
type SyncState struct {
	RunID        string     `json:"run_id"`
	LastSync     time.Time  `json:"last_sync"`
	ProjectCount int        `json:"project_count"`
	FileCount    int        `json:"file_count"`
	Status       SyncStatus `json:"status"`
	Error        string     `json:"error,omitempty"`
}

// HoursSinceSync returns how long ago the run happened.
func (s SyncState) HoursSinceSync() float64 {
	if s.LastSync.IsZero() {
		return 0
	}
	return time.Since(s.LastSync).Hours()
}

// IntPtr returns a pointer to v, for optional numeric fields.
func IntPtr(v int) *int { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
