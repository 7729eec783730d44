package modal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePage scripts the page-side behavior of each lifecycle script so the
// manager's state machine can be exercised without a browser.
type fakePage struct {
	surfaces    int
	fileOnPage  bool
	openMounts  bool // clicking the card mounts a dialog surface
	closeWorks  bool // the close button actually dismisses the dialog
	escapeWorks bool
	forceWorks  bool
	dialogText  string
	pageText    string

	openClicks  int
	closeClicks int
	forceCloses int
	escapes     int
}

func (f *fakePage) Navigate(context.Context, string) error { return nil }

func (f *fakePage) WaitFor(context.Context, string, time.Duration) error { return nil }

func (f *fakePage) Content(context.Context) (string, error) { return "", nil }

func (f *fakePage) PressEscape(context.Context) error {
	f.escapes++
	if f.escapeWorks {
		f.surfaces = 0
	}
	return nil
}

func (f *fakePage) Eval(_ context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	switch js {
	case jsSurfaceCount:
		return json.RawMessage(fmt.Sprintf("%d", f.surfaces)), nil
	case jsFindFileControl:
		return json.Marshal(f.fileOnPage)
	case jsOpenFile:
		if !f.fileOnPage {
			return json.RawMessage(`false`), nil
		}
		f.openClicks++
		if f.openMounts {
			f.surfaces = 1
		}
		return json.RawMessage(`true`), nil
	case jsDialogContent:
		if f.surfaces == 0 || f.dialogText == "" {
			return json.RawMessage(`null`), nil
		}
		return json.Marshal(map[string]string{"text": f.dialogText, "tier": "monospace"})
	case jsPageScan:
		if f.pageText == "" {
			return json.RawMessage(`null`), nil
		}
		return json.Marshal(map[string]string{"text": f.pageText, "tier": "page-scan"})
	case jsClickClose:
		if f.surfaces == 0 {
			return json.RawMessage(`false`), nil
		}
		f.closeClicks++
		if f.closeWorks {
			f.surfaces = 0
			return json.RawMessage(`true`), nil
		}
		return json.RawMessage(`false`), nil
	case jsForceClose:
		f.forceCloses++
		if f.forceWorks {
			f.surfaces = 0
		}
		return json.RawMessage(`4`), nil
	}
	return nil, fmt.Errorf("unexpected script: %s", js)
}

func fastManager(page *fakePage) *Manager {
	return NewManager(page, Options{
		OpenTimeout:      20 * time.Millisecond,
		CloseTimeout:     20 * time.Millisecond,
		PollInterval:     time.Millisecond,
		SettleDelay:      time.Millisecond,
		MinContentLength: 10,
		EscapePresses:    1,
	})
}

func fileBody() string {
	return strings.Repeat("package main\n", 20)
}

func TestFileContentHappyPath(t *testing.T) {
	page := &fakePage{
		fileOnPage: true,
		openMounts: true,
		closeWorks: true,
		dialogText: fileBody(),
	}
	m := fastManager(page)

	content, err := m.FileContent(context.Background(), "main.go")
	require.NoError(t, err)
	assert.Equal(t, fileBody(), content)
	assert.Equal(t, 1, page.openClicks)
	assert.Equal(t, 1, page.closeClicks)
	assert.Zero(t, page.forceCloses)
	assert.Zero(t, page.surfaces, "dialog must be dismissed after extraction")
}

func TestUnknownFileIssuesNoClick(t *testing.T) {
	page := &fakePage{fileOnPage: false}
	m := fastManager(page)

	_, err := m.FileContent(context.Background(), "missing.txt")
	require.ErrorIs(t, err, ErrFileNotFound)
	assert.Zero(t, page.openClicks)
	assert.Zero(t, page.closeClicks)
	assert.Zero(t, page.escapes)
}

func TestDialogDismissedWhenExtractionFails(t *testing.T) {
	page := &fakePage{
		fileOnPage: true,
		openMounts: true,
		closeWorks: true,
	}
	m := fastManager(page)

	_, err := m.FileContent(context.Background(), "binary.pdf")
	require.ErrorIs(t, err, ErrNoContentExtracted)
	assert.Zero(t, page.surfaces, "dialog must be dismissed even when extraction fails")
	assert.Equal(t, 1, page.closeClicks)
}

func TestDialogDismissedWhenFnFails(t *testing.T) {
	page := &fakePage{
		fileOnPage: true,
		openMounts: true,
		closeWorks: true,
	}
	m := fastManager(page)

	boom := errors.New("boom")
	err := m.WithFileOpen(context.Background(), "notes.md", func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, page.surfaces)
}

func TestStuckDialogForceClosedOnce(t *testing.T) {
	page := &fakePage{
		fileOnPage: true,
		openMounts: true,
		dialogText: fileBody(),
		forceWorks: true,
	}
	m := fastManager(page)

	content, err := m.FileContent(context.Background(), "notes.md")
	require.NoError(t, err, "a stuck dialog must not fail the operation")
	assert.Equal(t, fileBody(), content)
	assert.Equal(t, 1, page.forceCloses)
	assert.Zero(t, page.surfaces)
}

func TestStaleSurfacesClearedBeforeOpen(t *testing.T) {
	page := &fakePage{
		surfaces:   2,
		fileOnPage: true,
		openMounts: true,
		closeWorks: true,
		forceWorks: true,
		dialogText: fileBody(),
	}
	m := fastManager(page)

	content, err := m.FileContent(context.Background(), "notes.md")
	require.NoError(t, err)
	assert.Equal(t, fileBody(), content)
	assert.GreaterOrEqual(t, page.forceCloses, 1, "stale surfaces must be force-closed before acquisition")
}

func TestMetadataLabelRejected(t *testing.T) {
	page := &fakePage{
		fileOnPage: true,
		openMounts: true,
		closeWorks: true,
		dialogText: "2.5 KB • 120 lines",
	}
	m := fastManager(page)

	_, err := m.FileContent(context.Background(), "notes.md")
	assert.ErrorIs(t, err, ErrNoContentExtracted)
}

func TestEmptyDialogNeverFallsBackToPageText(t *testing.T) {
	// A mounted dialog with no readable content must fail extraction; text
	// elsewhere on the page is not the file's body.
	page := &fakePage{
		fileOnPage: true,
		openMounts: true,
		closeWorks: true,
		pageText:   "some unrelated sidebar code block\n" + fileBody(),
	}
	m := fastManager(page)

	_, err := m.FileContent(context.Background(), "empty.txt")
	require.ErrorIs(t, err, ErrNoContentExtracted)
	assert.Zero(t, page.surfaces, "dialog still dismissed")
}

func TestDegradedPageScanWhenNoSurfaceMounts(t *testing.T) {
	page := &fakePage{
		fileOnPage: true,
		openMounts: false,
		pageText:   fileBody(),
	}
	m := fastManager(page)

	content, err := m.FileContent(context.Background(), "notes.md")
	require.NoError(t, err)
	assert.Equal(t, fileBody(), content)
}
