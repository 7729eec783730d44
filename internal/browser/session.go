package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"clsync/internal/config"
	"clsync/internal/logging"
)

// Manager owns the lifetime of a Chrome instance. It either attaches to a
// running browser through its debugger URL, which keeps the user's logged-in
// profile, or launches a fresh one.
type Manager struct {
	cfg config.BrowserConfig

	mu         sync.Mutex
	browser    *rod.Browser
	launcher   *launcher.Launcher
	controlURL string
	running    bool
}

// NewManager creates a session manager. Call Start before requesting pages.
func NewManager(cfg config.BrowserConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Start connects to Chrome. Attaching via DebuggerURL is preferred because
// the user's existing session carries the claude.ai login cookies.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(m.cfg.Headless)
		if m.cfg.ChromeBin != "" {
			l = l.Bin(m.cfg.ChromeBin)
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("failed to launch chrome: %w", err)
		}
		m.launcher = l
		controlURL = url
		logging.Browser("launched chrome at %s", controlURL)
	} else {
		logging.Browser("attaching to chrome at %s", controlURL)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if m.launcher != nil {
			m.launcher.Kill()
			m.launcher = nil
		}
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	m.running = true
	return nil
}

// ControlURL returns the debugger URL of the connected browser, empty before
// Start.
func (m *Manager) ControlURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controlURL
}

// OpenPage creates a new tab at url and returns its handle.
func (m *Manager) OpenPage(ctx context.Context, url string) (Page, error) {
	m.mu.Lock()
	browser := m.browser
	m.mu.Unlock()
	if browser == nil {
		return nil, fmt.Errorf("browser session not started")
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if m.cfg.ViewportWidth > 0 && m.cfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  m.cfg.ViewportWidth,
			Height: m.cfg.ViewportHeight,
		}); err != nil {
			logging.BrowserWarn("failed to set viewport: %v", err)
		}
	}
	return &rodPage{page: page, navTimeout: m.cfg.NavigationTimeout()}, nil
}

// FindPage returns an existing tab whose URL contains urlSubstr. Used when
// attaching to the user's Chrome where a claude.ai tab is often already open.
func (m *Manager) FindPage(ctx context.Context, urlSubstr string) (Page, error) {
	m.mu.Lock()
	browser := m.browser
	m.mu.Unlock()
	if browser == nil {
		return nil, fmt.Errorf("browser session not started")
	}

	pages, err := browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	for _, page := range pages {
		info, err := page.Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, urlSubstr) {
			logging.Browser("reusing existing tab %s", info.URL)
			return &rodPage{page: page, navTimeout: m.cfg.NavigationTimeout()}, nil
		}
	}
	return nil, fmt.Errorf("no open tab matching %q", urlSubstr)
}

// Shutdown disconnects from the browser and, when we launched it, kills the
// process. An attached browser is left running.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher = nil
	}
	return err
}
