package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clsync/internal/extract"
	"clsync/internal/logging"
	"clsync/internal/models"
)

// ErrExtractionTimeout reports that a page never reached its extraction
// precondition, usually because claude.ai is still rendering or the session
// is not logged in. The condition is transient, so callers retry it.
var ErrExtractionTimeout = errors.New("timed out waiting for page content")

const (
	// mainSelector gates extraction: claude.ai renders all listing content
	// inside the main landmark once the app shell has hydrated.
	mainSelector = "main"

	jsLoginProbe = `() => {
		const labels = ['sign in', 'log in', 'continue with google', 'continue with email'];
		const controls = Array.from(document.querySelectorAll('button, a'));
		return !controls.some(c => labels.includes((c.textContent || '').trim().toLowerCase()));
	}`

	jsClickViewAll = `() => {
		const buttons = Array.from(document.querySelectorAll('button, a'));
		const target = buttons.find(b => (b.textContent || '').trim().toLowerCase() === 'view all');
		if (!target) return false;
		target.click();
		return true;
	}`
)

// ConnectionOptions tune readiness waits and post-interaction settling.
type ConnectionOptions struct {
	ReadyTimeout time.Duration
	SettleDelay  time.Duration
}

func (o ConnectionOptions) withDefaults() ConnectionOptions {
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = 30 * time.Second
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 1500 * time.Millisecond
	}
	return o
}

// Connection drives a single claude.ai tab: navigation, login detection, and
// turning rendered pages into model records via the extraction engine.
type Connection struct {
	page   Page
	engine *extract.Engine
	opts   ConnectionOptions
}

// NewConnection wraps a page handle for extraction work.
func NewConnection(page Page, opts ConnectionOptions) *Connection {
	return &Connection{
		page:   page,
		engine: extract.NewEngine(),
		opts:   opts.withDefaults(),
	}
}

// Page exposes the underlying handle for layers that need raw page access,
// such as the modal manager.
func (c *Connection) Page() Page {
	return c.page
}

// Navigate loads url and waits out the UI settle delay.
func (c *Connection) Navigate(ctx context.Context, url string) error {
	logging.Browser("navigating to %s", url)
	if err := c.page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return sleep(ctx, c.opts.SettleDelay)
}

// IsLoggedIn reports whether the current page shows an authenticated session.
// The probe is heuristic: a page offering sign-in controls is logged out.
func (c *Connection) IsLoggedIn(ctx context.Context) (bool, error) {
	raw, err := c.page.Eval(ctx, jsLoginProbe)
	if err != nil {
		return false, fmt.Errorf("login probe failed: %w", err)
	}
	var loggedIn bool
	if err := json.Unmarshal(raw, &loggedIn); err != nil {
		return false, fmt.Errorf("login probe returned %q: %w", raw, err)
	}
	return loggedIn, nil
}

// ExtractProjects reads the project listing from the current page. The recents
// view truncates the list, so a "View all" control is clicked first when
// present.
func (c *Connection) ExtractProjects(ctx context.Context) ([]models.Project, error) {
	if err := c.awaitReady(ctx); err != nil {
		return nil, err
	}

	raw, err := c.page.Eval(ctx, jsClickViewAll)
	if err != nil {
		logging.BrowserWarn("view-all probe failed: %v", err)
	} else {
		var clicked bool
		if json.Unmarshal(raw, &clicked) == nil && clicked {
			logging.BrowserDebug("expanded project list via view-all")
			if err := sleep(ctx, c.opts.SettleDelay); err != nil {
				return nil, err
			}
		}
	}

	html, err := c.page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	projects, err := c.engine.ProjectsFromHTML(html)
	if err != nil {
		return nil, err
	}
	logging.Extract("extracted %d projects", len(projects))
	return projects, nil
}

// ExtractKnowledgeFiles reads knowledge file metadata from the project page
// currently loaded in the tab.
func (c *Connection) ExtractKnowledgeFiles(ctx context.Context) ([]models.KnowledgeFile, error) {
	if err := c.awaitReady(ctx); err != nil {
		return nil, err
	}
	html, err := c.page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	files, err := c.engine.KnowledgeFilesFromHTML(html)
	if err != nil {
		return nil, err
	}
	logging.Extract("extracted %d knowledge files", len(files))
	return files, nil
}

func (c *Connection) awaitReady(ctx context.Context) error {
	if err := c.page.WaitFor(ctx, mainSelector, c.opts.ReadyTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrExtractionTimeout, err)
	}
	return nil
}

// sleep waits for d unless ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
