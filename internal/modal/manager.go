// Package modal manages the claude.ai file preview dialog: opening a file's
// preview, extracting its content, and guaranteeing the dialog is dismissed
// afterwards. A dialog left open blocks every later interaction on the page,
// so release is unconditional and escalates until the surface is gone.
package modal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"clsync/internal/browser"
	"clsync/internal/logging"
)

var (
	// ErrFileNotFound reports that no file card with the requested name is
	// on the page. Nothing was clicked, so no cleanup is needed and a retry
	// cannot help.
	ErrFileNotFound = errors.New("file not found on page")

	// ErrNoContentExtracted reports that the preview opened but no
	// substantial text could be read from it, e.g. for a binary PDF preview.
	ErrNoContentExtracted = errors.New("no content extracted from preview")
)

// Options tune the dialog lifecycle timing.
type Options struct {
	// OpenTimeout bounds the wait for a dialog surface after clicking a
	// file card. Expiry is not fatal: extraction degrades to a page scan.
	OpenTimeout time.Duration
	// CloseTimeout bounds each wait for dialog surfaces to disappear.
	CloseTimeout time.Duration
	// PollInterval is the surface-count sampling period.
	PollInterval time.Duration
	// SettleDelay is the pause after activation before reading content.
	SettleDelay time.Duration
	// MinContentLength is the smallest extracted text accepted as content.
	MinContentLength int
	// EscapePresses is how many Escape signals a force close sends.
	EscapePresses int
}

func (o Options) withDefaults() Options {
	if o.OpenTimeout == 0 {
		o.OpenTimeout = 5 * time.Second
	}
	if o.CloseTimeout == 0 {
		o.CloseTimeout = 5 * time.Second
	}
	if o.PollInterval == 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = time.Second
	}
	if o.MinContentLength == 0 {
		o.MinContentLength = 10
	}
	if o.EscapePresses == 0 {
		o.EscapePresses = 3
	}
	return o
}

// Manager owns dialog acquisition and release on one page.
type Manager struct {
	page browser.Page
	opts Options
}

// NewManager creates a dialog manager for page.
func NewManager(page browser.Page, opts Options) *Manager {
	return &Manager{page: page, opts: opts.withDefaults()}
}

// WithFileOpen opens the preview for the named file, runs fn while it is
// open, then dismisses it. The dismissal runs on every path once the open
// click has been issued, including fn returning an error or panicking.
func (m *Manager) WithFileOpen(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	if err := m.ensureCleanState(ctx); err != nil {
		return err
	}

	found, err := m.evalBool(ctx, jsFindFileControl, name)
	if err != nil {
		return fmt.Errorf("file probe failed: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}

	clicked, err := m.evalBool(ctx, jsOpenFile, name)
	if err != nil {
		return fmt.Errorf("file activation failed: %w", err)
	}
	if !clicked {
		// The card disappeared between probe and click.
		return fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}

	defer func() {
		m.release(ctx)
	}()

	if werr := m.waitSurfaces(ctx, false, m.opts.OpenTimeout); werr != nil {
		logging.ModalWarn("no dialog surface appeared for %q, continuing degraded", name)
	} else {
		logging.ModalDebug("preview open for %q", name)
	}
	if err := sleep(ctx, m.opts.SettleDelay); err != nil {
		return err
	}

	return fn(ctx)
}

// FileContent opens the named file's preview and returns its text content.
func (m *Manager) FileContent(ctx context.Context, name string) (string, error) {
	var content string
	err := m.WithFileOpen(ctx, name, func(ctx context.Context) error {
		text, err := m.extractContent(ctx)
		if err != nil {
			return err
		}
		content = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// ensureCleanState force-closes dialog surfaces left over from a previous
// operation before a new acquisition starts.
func (m *Manager) ensureCleanState(ctx context.Context) error {
	count, err := m.surfaceCount(ctx)
	if err != nil {
		return fmt.Errorf("surface probe failed: %w", err)
	}
	if count == 0 {
		return nil
	}
	logging.ModalWarn("%d stale dialog surfaces before open, forcing close", count)
	m.forceClose(ctx)
	if err := m.waitSurfaces(ctx, true, m.opts.CloseTimeout); err != nil {
		logging.ModalError("stale dialog surfaces persist after force close")
	}
	return nil
}

// release dismisses the dialog, escalating from the polite close button
// through Escape to the force-close script. Failures are logged, never
// returned: a stuck dialog must not overwrite the operation's result, and
// the force close leaves the page usable regardless.
func (m *Manager) release(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), 3*m.opts.CloseTimeout)
	defer cancel()

	clicked, err := m.evalBool(ctx, jsClickClose)
	if err != nil {
		logging.ModalWarn("close click failed: %v", err)
	}
	if !clicked || err != nil {
		if perr := m.page.PressEscape(ctx); perr != nil {
			logging.ModalWarn("escape press failed: %v", perr)
		}
	}
	if m.waitSurfaces(ctx, true, m.opts.CloseTimeout) == nil {
		return
	}

	logging.ModalWarn("dialog stuck open, forcing close")
	m.forceClose(ctx)
	if err := m.waitSurfaces(ctx, true, m.opts.CloseTimeout); err != nil {
		logging.ModalError("dialog surfaces still present after force close")
	}
}

// forceClose runs the in-page teardown script and follows it with repeated
// Escape presses for listeners the teardown could not reach.
func (m *Manager) forceClose(ctx context.Context) {
	raw, err := m.page.Eval(ctx, jsForceClose)
	if err != nil {
		logging.ModalError("force close script failed: %v", err)
	} else {
		var actions int
		if json.Unmarshal(raw, &actions) == nil {
			logging.Modal("force close took %d interventions", actions)
		}
	}
	for i := 0; i < m.opts.EscapePresses; i++ {
		if err := m.page.PressEscape(ctx); err != nil {
			logging.ModalWarn("escape press failed: %v", err)
			return
		}
		if sleep(ctx, m.opts.PollInterval) != nil {
			return
		}
	}
}

// extractContent reads the preview text. With a dialog surface mounted only
// the in-dialog tiers may answer; a mounted surface that yields nothing
// substantial is a firm ErrNoContentExtracted, never a reason to scrape
// unrelated page text as the file body. The page-wide scan exists solely for
// the degraded case where no surface mounted at all.
func (m *Manager) extractContent(ctx context.Context) (string, error) {
	count, err := m.surfaceCount(ctx)
	if err != nil {
		return "", fmt.Errorf("surface probe failed: %w", err)
	}
	if count > 0 {
		return m.runContentScript(ctx, jsDialogContent)
	}
	return m.runContentScript(ctx, jsPageScan)
}

func (m *Manager) runContentScript(ctx context.Context, script string) (string, error) {
	raw, err := m.page.Eval(ctx, script)
	if err != nil {
		return "", fmt.Errorf("content script failed: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", ErrNoContentExtracted
	}
	var res struct {
		Text string `json:"text"`
		Tier string `json:"tier"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", ErrNoContentExtracted
	}
	if !m.substantial(res.Text) {
		return "", ErrNoContentExtracted
	}
	logging.ModalDebug("extracted %d chars via %s", len(res.Text), res.Tier)
	return res.Text, nil
}

// metadataRe matches size or line-count labels that the scan can pick up
// instead of file content, e.g. "2.5 KB" or "120 lines".
var metadataRe = regexp.MustCompile(`(?i)^[\d.,]+\s*(kb|mb|lines?)\b`)

// substantial rejects extractions that are too short to be file content or
// are just the file's metadata label.
func (m *Manager) substantial(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < m.opts.MinContentLength {
		return false
	}
	if len(trimmed) < 100 && metadataRe.MatchString(trimmed) {
		return false
	}
	return true
}

// waitSurfaces polls the surface count until it reaches the wanted state:
// gone=true waits for zero surfaces, gone=false waits for at least one.
func (m *Manager) waitSurfaces(ctx context.Context, gone bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		count, err := m.surfaceCount(ctx)
		if err == nil {
			if gone && count == 0 {
				return nil
			}
			if !gone && count > 0 {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("dialog surfaces did not reach wanted state within %s", timeout)
		}
		if err := sleep(ctx, m.opts.PollInterval); err != nil {
			return err
		}
	}
}

func (m *Manager) surfaceCount(ctx context.Context) (int, error) {
	raw, err := m.page.Eval(ctx, jsSurfaceCount)
	if err != nil {
		return 0, err
	}
	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, fmt.Errorf("surface count returned %q: %w", raw, err)
	}
	return count, nil
}

func (m *Manager) evalBool(ctx context.Context, js string, args ...interface{}) (bool, error) {
	raw, err := m.page.Eval(ctx, js, args...)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("script returned %q: %w", raw, err)
	}
	return v, nil
}

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
