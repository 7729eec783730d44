// Package browser owns the Chrome DevTools connection: launching or
// attaching to a Chrome instance, handing out page handles, and the
// page-level operations (navigate, evaluate, wait, snapshot) the extraction
// and modal layers are built on.
package browser

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
)

// Page is the capability surface the rest of clsync drives a browser tab
// through. Extraction and modal code depend on this interface, not on rod,
// so tests can script a page without a browser.
type Page interface {
	// Navigate loads the URL and waits for the document to load.
	Navigate(ctx context.Context, url string) error
	// Eval runs a JS function expression against the current DOM and
	// returns its JSON-serialized result, nil for null/undefined.
	Eval(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error)
	// WaitFor blocks until the selector matches an element or the timeout
	// elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Content returns the full current markup of the page.
	Content(ctx context.Context) (string, error)
	// PressEscape sends an Escape key signal to the page.
	PressEscape(ctx context.Context) error
}

// rodPage adapts a rod page to the Page interface.
type rodPage struct {
	page       *rod.Page
	navTimeout time.Duration
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.navTimeout)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) Eval(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value.Nil() {
		return nil, nil
	}
	return res.Value.MarshalJSON()
}

func (p *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	return err
}

func (p *rodPage) Content(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) PressEscape(ctx context.Context) error {
	return p.page.Context(ctx).Keyboard.Press(input.Escape)
}
