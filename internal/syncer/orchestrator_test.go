package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clsync/internal/config"
	"clsync/internal/modal"
	"clsync/internal/models"
)

type fakeConn struct {
	projects     []models.Project
	filesByURL   map[string][]models.KnowledgeFile
	listFailures int

	listCalls   int
	navigations []string
}

func (f *fakeConn) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakeConn) ExtractProjects(context.Context) ([]models.Project, error) {
	f.listCalls++
	if f.listCalls <= f.listFailures {
		return nil, errors.New("page still rendering")
	}
	return f.projects, nil
}

func (f *fakeConn) ExtractKnowledgeFiles(context.Context) ([]models.KnowledgeFile, error) {
	current := f.navigations[len(f.navigations)-1]
	return f.filesByURL[current], nil
}

type fakeContent struct {
	contents map[string]string
	errs     map[string]error
	calls    map[string]int
}

func (f *fakeContent) FileContent(_ context.Context, name string) (string, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	return f.contents[name], nil
}

type fakeStore struct {
	saved map[string][]models.KnowledgeFile
}

func (f *fakeStore) SaveProject(_ context.Context, p models.Project, files []models.KnowledgeFile) error {
	if f.saved == nil {
		f.saved = map[string][]models.KnowledgeFile{}
	}
	f.saved[p.Name] = files
	return nil
}

type fakeState struct {
	started []string
	results []models.SyncState
	last    *models.SyncState
}

func (f *fakeState) RecordStart(_ context.Context, runID string) error {
	f.started = append(f.started, runID)
	return nil
}

func (f *fakeState) RecordResult(_ context.Context, s models.SyncState) error {
	f.results = append(f.results, s)
	return nil
}

func (f *fakeState) Last(context.Context) (*models.SyncState, error) {
	return f.last, nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func project(id, name string) models.Project {
	return models.Project{ID: id, Name: name, URL: "https://claude.ai/project/" + id}
}

func TestSyncAllHappyPath(t *testing.T) {
	conn := &fakeConn{
		projects: []models.Project{project("a", "Alpha"), project("b", "Beta")},
		filesByURL: map[string][]models.KnowledgeFile{
			"https://claude.ai/project/a": {
				{Name: "notes.md", FileType: models.FileTypeText, Lines: models.IntPtr(10)},
				{Name: "deck.pdf", FileType: models.FileTypePDF},
			},
			"https://claude.ai/project/b": {
				{Name: "todo.txt", FileType: models.FileTypeText},
			},
		},
	}
	content := &fakeContent{contents: map[string]string{
		"notes.md": "# notes",
		"todo.txt": "- item",
	}}
	store := &fakeStore{}
	state := &fakeState{}

	var reports []Progress
	o := New(Params{
		Conn: conn, Content: content, Store: store, State: state,
		Config: config.SyncConfig{BaseURL: "https://claude.ai"},
		Retry:  fastRetry(),
		OnProgress: func(p Progress) {
			reports = append(reports, p)
		},
	})

	prog, err := o.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, prog.ProjectsDone)
	assert.Equal(t, 3, prog.FilesDone)
	assert.Empty(t, prog.Errors)

	require.Contains(t, store.saved, "Alpha")
	assert.Equal(t, "# notes", store.saved["Alpha"][0].Content)
	assert.Empty(t, store.saved["Alpha"][1].Content, "pdf content is never fetched")
	assert.Zero(t, content.calls["deck.pdf"])

	require.Len(t, state.results, 1)
	assert.Equal(t, models.SyncStatusCompleted, state.results[0].Status)
	assert.Equal(t, state.started[0], state.results[0].RunID)

	assert.Len(t, reports, 2, "progress reported per project")
	assert.Equal(t, "https://claude.ai/projects", conn.navigations[0])
}

func TestSyncAllProjectFilter(t *testing.T) {
	conn := &fakeConn{
		projects: []models.Project{project("a", "Alpha"), project("b", "Beta")},
		filesByURL: map[string][]models.KnowledgeFile{
			"https://claude.ai/project/a": {{Name: "a.txt", FileType: models.FileTypeText}},
			"https://claude.ai/project/b": {{Name: "b.txt", FileType: models.FileTypeText}},
		},
	}
	store := &fakeStore{}
	o := New(Params{
		Conn: conn, Store: store,
		Config: config.SyncConfig{BaseURL: "https://claude.ai"},
		Retry:  fastRetry(),
		Filter: []string{"beta"},
	})

	prog, err := o.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, prog.ProjectCount, "filter narrows the run before counting")
	assert.Equal(t, 1, prog.ProjectsDone)

	assert.Contains(t, store.saved, "Beta", "matching is case-insensitive")
	assert.NotContains(t, store.saved, "Alpha")
	assert.NotContains(t, conn.navigations, "https://claude.ai/project/a",
		"filtered-out projects are never visited")
}

func TestSyncAllRetriesTransientListingFailure(t *testing.T) {
	conn := &fakeConn{
		projects:     []models.Project{project("a", "Alpha")},
		filesByURL:   map[string][]models.KnowledgeFile{},
		listFailures: 2,
	}
	o := New(Params{
		Conn: conn, Store: &fakeStore{},
		Config: config.SyncConfig{BaseURL: "https://claude.ai"},
		Retry:  fastRetry(),
	})

	prog, err := o.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, conn.listCalls)
	assert.Equal(t, 1, prog.ProjectsDone)
}

func TestSyncAllFailsWhenListingNeverRenders(t *testing.T) {
	conn := &fakeConn{listFailures: 100}
	state := &fakeState{}
	o := New(Params{
		Conn: conn, Store: &fakeStore{}, State: state,
		Config: config.SyncConfig{BaseURL: "https://claude.ai"},
		Retry:  fastRetry(),
	})

	_, err := o.SyncAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	require.Len(t, state.results, 1)
	assert.Equal(t, models.SyncStatusFailed, state.results[0].Status)
}

func TestFileNotFoundIsRecordedNotRetried(t *testing.T) {
	conn := &fakeConn{
		projects: []models.Project{project("a", "Alpha")},
		filesByURL: map[string][]models.KnowledgeFile{
			"https://claude.ai/project/a": {
				{Name: "gone.txt", FileType: models.FileTypeText},
				{Name: "ok.txt", FileType: models.FileTypeText},
			},
		},
	}
	content := &fakeContent{
		contents: map[string]string{"ok.txt": "fine"},
		errs:     map[string]error{"gone.txt": fmt.Errorf("%w: %q", modal.ErrFileNotFound, "gone.txt")},
	}
	store := &fakeStore{}
	state := &fakeState{}
	o := New(Params{
		Conn: conn, Content: content, Store: store, State: state,
		Config: config.SyncConfig{BaseURL: "https://claude.ai"},
		Retry:  fastRetry(),
	})

	prog, err := o.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, content.calls["gone.txt"], "deterministic failures are not retried")
	require.Len(t, prog.Errors, 1)
	assert.Equal(t, "gone.txt", prog.Errors[0].File)

	assert.Equal(t, "fine", store.saved["Alpha"][1].Content, "one bad file does not abort the project")
	assert.Equal(t, models.SyncStatusPartial, state.results[0].Status)
}

func TestShouldSync(t *testing.T) {
	fresh := &fakeState{last: &models.SyncState{
		Status:   models.SyncStatusCompleted,
		LastSync: time.Now().Add(-time.Hour),
	}}
	o := New(Params{Conn: &fakeConn{}, Store: &fakeStore{}, State: fresh, Retry: fastRetry()})

	due, err := o.ShouldSync(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = o.ShouldSync(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, due)

	failed := &fakeState{last: &models.SyncState{Status: models.SyncStatusFailed, LastSync: time.Now()}}
	o = New(Params{Conn: &fakeConn{}, Store: &fakeStore{}, State: failed, Retry: fastRetry()})
	due, err = o.ShouldSync(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, due, "a failed run never suppresses the next one")
}
