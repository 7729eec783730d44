// Package storage persists sync results: project metadata and knowledge file
// contents on disk, and run state in SQLite.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"clsync/internal/config"
	"clsync/internal/logging"
	"clsync/internal/models"
)

// Local writes each project to <root>/<project-name>/ with a project.json
// manifest and a knowledge/ directory of file contents.
type Local struct {
	root      string
	maxSavers int
}

// NewLocal creates a local store under cfg.Root.
func NewLocal(cfg config.StorageConfig) *Local {
	savers := cfg.MaxSavers
	if savers <= 0 {
		savers = 4
	}
	return &Local{root: cfg.Root, maxSavers: savers}
}

// Root returns the storage root directory.
func (l *Local) Root() string { return l.root }

// ProjectDir returns the directory a project is saved under.
func (l *Local) ProjectDir(p models.Project) string {
	return filepath.Join(l.root, sanitizeName(p.Name))
}

type fileManifest struct {
	models.KnowledgeFile
	ContentHash string `json:"content_hash,omitempty"`
	Saved       bool   `json:"saved"`
}

type projectManifest struct {
	Project models.Project `json:"project"`
	Files   []fileManifest `json:"files"`
	SavedAt time.Time      `json:"saved_at"`
}

// SaveProject writes the project manifest and the content of every file that
// has one. Contents are written concurrently, bounded by MaxSavers.
func (l *Local) SaveProject(ctx context.Context, p models.Project, files []models.KnowledgeFile) error {
	dir := l.ProjectDir(p)
	knowledgeDir := filepath.Join(dir, "knowledge")
	if err := os.MkdirAll(knowledgeDir, 0o755); err != nil {
		return fmt.Errorf("failed to create project dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxSavers)
	for _, f := range files {
		if f.Content == "" {
			continue
		}
		path := filepath.Join(knowledgeDir, sanitizeName(f.Name))
		content := f.Content
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manifest := projectManifest{
		Project: p,
		Files:   make([]fileManifest, 0, len(files)),
		SavedAt: time.Now().UTC(),
	}
	for _, f := range files {
		entry := fileManifest{KnowledgeFile: f, Saved: f.Content != ""}
		if f.Content != "" {
			entry.ContentHash = f.ContentHash()
		}
		manifest.Files = append(manifest.Files, entry)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "project.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	logging.Store("saved project %q: %d files, %d with content", p.Name, len(files), countWithContent(files))
	return nil
}

// LoadManifest reads a previously saved project manifest, or nil when the
// project was never saved.
func (l *Local) LoadManifest(p models.Project) (*models.Project, []models.KnowledgeFile, error) {
	data, err := os.ReadFile(filepath.Join(l.ProjectDir(p), "project.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m projectManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	files := make([]models.KnowledgeFile, 0, len(m.Files))
	for _, f := range m.Files {
		files = append(files, f.KnowledgeFile)
	}
	return &m.Project, files, nil
}

func countWithContent(files []models.KnowledgeFile) int {
	n := 0
	for _, f := range files {
		if f.Content != "" {
			n++
		}
	}
	return n
}

// sanitizeName turns a display name into a safe single path segment.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	out = strings.Trim(out, ".")
	if out == "" {
		return "untitled"
	}
	return out
}
