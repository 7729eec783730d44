// Package syncer orchestrates a full sync run: walk the project listing,
// extract each project's knowledge files, pull text content through the
// preview dialog, and persist everything locally.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clsync/internal/config"
	"clsync/internal/logging"
	"clsync/internal/models"
)

// Extractor is the page-driving surface the orchestrator needs, satisfied by
// browser.Connection.
type Extractor interface {
	Navigate(ctx context.Context, url string) error
	ExtractProjects(ctx context.Context) ([]models.Project, error)
	ExtractKnowledgeFiles(ctx context.Context) ([]models.KnowledgeFile, error)
}

// ContentFetcher reads one file's content through the preview dialog,
// satisfied by modal.Manager.
type ContentFetcher interface {
	FileContent(ctx context.Context, name string) (string, error)
}

// ProjectStore persists a project and its files, satisfied by storage.Local.
type ProjectStore interface {
	SaveProject(ctx context.Context, p models.Project, files []models.KnowledgeFile) error
}

// StateRecorder tracks run outcomes, satisfied by storage.StateDB.
type StateRecorder interface {
	RecordStart(ctx context.Context, runID string) error
	RecordResult(ctx context.Context, state models.SyncState) error
	Last(ctx context.Context) (*models.SyncState, error)
}

// ItemError is one non-fatal failure collected during a run.
type ItemError struct {
	Project string
	File    string
	Err     error
}

func (e ItemError) String() string {
	if e.File != "" {
		return fmt.Sprintf("%s/%s: %v", e.Project, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Project, e.Err)
}

// Progress is the running tally of a sync, also passed to the progress
// callback after every project.
type Progress struct {
	RunID        string
	ProjectCount int
	ProjectsDone int
	FilesDone    int
	Errors       []ItemError
}

// Params wires an orchestrator. State and OnProgress are optional.
type Params struct {
	Conn       Extractor
	Content    ContentFetcher
	Store      ProjectStore
	State      StateRecorder
	Config     config.SyncConfig
	Retry      RetryConfig
	OnProgress func(Progress)
	// Filter restricts the run to projects with these names. Empty means
	// every project. Matching is case-insensitive on the display name.
	Filter []string
}

// Orchestrator runs full syncs.
type Orchestrator struct {
	conn       Extractor
	content    ContentFetcher
	store      ProjectStore
	state      StateRecorder
	cfg        config.SyncConfig
	retry      RetryConfig
	filter     []string
	onProgress func(Progress)
}

// New creates an orchestrator from params.
func New(p Params) *Orchestrator {
	retry := p.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
		if p.Config.MaxRetries > 0 {
			retry.MaxRetries = p.Config.MaxRetries
		}
		if p.Config.InitialBackoffMs > 0 {
			retry.InitialBackoff = time.Duration(p.Config.InitialBackoffMs) * time.Millisecond
		}
		if p.Config.MaxBackoffMs > 0 {
			retry.MaxBackoff = time.Duration(p.Config.MaxBackoffMs) * time.Millisecond
		}
	}
	return &Orchestrator{
		conn:       p.Conn,
		content:    p.Content,
		store:      p.Store,
		state:      p.State,
		cfg:        p.Config,
		retry:      retry,
		filter:     p.Filter,
		onProgress: p.OnProgress,
	}
}

// ShouldSync reports whether a new run is due: true unless the last run
// completed more recently than maxAge.
func (o *Orchestrator) ShouldSync(ctx context.Context, maxAge time.Duration) (bool, error) {
	if o.state == nil {
		return true, nil
	}
	last, err := o.state.Last(ctx)
	if err != nil {
		return true, err
	}
	if last == nil || last.Status != models.SyncStatusCompleted {
		return true, nil
	}
	return time.Since(last.LastSync) >= maxAge, nil
}

// SyncAll runs one full sync. Project and file level failures are collected
// in Progress.Errors and make the run partial; only a failure to extract the
// project listing itself fails the run.
func (o *Orchestrator) SyncAll(ctx context.Context) (*Progress, error) {
	prog := &Progress{RunID: uuid.NewString()}
	timer := logging.StartTimer(logging.CategorySync, "full sync")
	defer timer.Stop()
	logging.Sync("starting run %s", prog.RunID)

	if o.state != nil {
		if err := o.state.RecordStart(ctx, prog.RunID); err != nil {
			return prog, err
		}
	}

	projectsURL := o.cfg.BaseURL + "/projects"
	var projects []models.Project
	err := WithRetry(ctx, "extract project listing", o.retry, func(ctx context.Context) error {
		if err := o.conn.Navigate(ctx, projectsURL); err != nil {
			return err
		}
		var err error
		projects, err = o.conn.ExtractProjects(ctx)
		return err
	})
	if err != nil {
		o.finish(ctx, prog, models.SyncStatusFailed, err.Error())
		return prog, err
	}
	if len(o.filter) > 0 {
		all := len(projects)
		projects = filterProjects(projects, o.filter)
		logging.Sync("project filter matched %d of %d projects", len(projects), all)
	}
	prog.ProjectCount = len(projects)

	for _, p := range projects {
		if ctx.Err() != nil {
			o.finish(ctx, prog, models.SyncStatusPartial, ctx.Err().Error())
			return prog, ctx.Err()
		}
		if err := o.syncProject(ctx, p, prog); err != nil {
			prog.Errors = append(prog.Errors, ItemError{Project: p.Name, Err: err})
			logging.SyncError("project %q failed: %v", p.Name, err)
		} else {
			prog.ProjectsDone++
		}
		o.report(prog)
	}

	status := models.SyncStatusCompleted
	if len(prog.Errors) > 0 {
		status = models.SyncStatusPartial
	}
	o.finish(ctx, prog, status, summarizeErrors(prog.Errors))
	logging.Sync("run %s done: %d/%d projects, %d files, %d errors",
		prog.RunID, prog.ProjectsDone, prog.ProjectCount, prog.FilesDone, len(prog.Errors))
	return prog, nil
}

// syncProject extracts one project's files, fetches text content, and saves
// the result. Per-file content failures are recorded but do not abort the
// project: its metadata still gets persisted.
func (o *Orchestrator) syncProject(ctx context.Context, p models.Project, prog *Progress) error {
	var files []models.KnowledgeFile
	err := WithRetry(ctx, fmt.Sprintf("extract files of %q", p.Name), o.retry, func(ctx context.Context) error {
		if err := o.conn.Navigate(ctx, p.URL); err != nil {
			return err
		}
		var err error
		files, err = o.conn.ExtractKnowledgeFiles(ctx)
		return err
	})
	if err != nil {
		return err
	}

	for i := range files {
		if o.content == nil || files[i].FileType != models.FileTypeText {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := o.content.FileContent(ctx, files[i].Name)
		if err != nil {
			prog.Errors = append(prog.Errors, ItemError{Project: p.Name, File: files[i].Name, Err: err})
			logging.SyncWarn("content of %q/%q: %v", p.Name, files[i].Name, err)
			continue
		}
		files[i].Content = content
	}

	if err := o.store.SaveProject(ctx, p, files); err != nil {
		return err
	}
	prog.FilesDone += len(files)
	return nil
}

func (o *Orchestrator) report(prog *Progress) {
	if o.onProgress != nil {
		o.onProgress(*prog)
	}
}

func (o *Orchestrator) finish(ctx context.Context, prog *Progress, status models.SyncStatus, errMsg string) {
	if o.state == nil {
		return
	}
	state := models.SyncState{
		RunID:        prog.RunID,
		ProjectCount: prog.ProjectsDone,
		FileCount:    prog.FilesDone,
		Status:       status,
		Error:        errMsg,
	}
	if err := o.state.RecordResult(context.WithoutCancel(ctx), state); err != nil {
		logging.SyncError("failed to record run result: %v", err)
	}
}

func filterProjects(projects []models.Project, names []string) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		for _, name := range names {
			if strings.EqualFold(p.Name, name) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func summarizeErrors(errs []ItemError) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].String()
	}
	return fmt.Sprintf("%s (and %d more)", errs[0].String(), len(errs)-1)
}
