package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://claude.ai", cfg.Sync.BaseURL)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
browser:
  debugger_url: ws://127.0.0.1:9222/devtools/browser/abc
  headless: true
  navigation_timeout_ms: 5000
sync:
  max_retries: 1
  settle_delay_ms: 10
storage:
  root: /tmp/clsync-test
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.Browser.DebuggerURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5000, cfg.Browser.NavigationTimeoutMs)
	assert.Equal(t, 1, cfg.Sync.MaxRetries)
	assert.Equal(t, "/tmp/clsync-test", cfg.Storage.Root)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLSYNC_DEBUGGER_URL", "ws://10.0.0.5:9222")
	t.Setenv("CLSYNC_HEADLESS", "true")
	t.Setenv("CLSYNC_STORAGE_ROOT", "/data/claude")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ws://10.0.0.5:9222", cfg.Browser.DebuggerURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "/data/claude", cfg.Storage.Root)
}

func TestTimeoutHelpers(t *testing.T) {
	var b BrowserConfig
	assert.Equal(t, int64(60000), b.NavigationTimeout().Milliseconds())
	b.NavigationTimeoutMs = 1500
	assert.Equal(t, int64(1500), b.NavigationTimeout().Milliseconds())

	var s SyncConfig
	assert.Equal(t, int64(1500), s.SettleDelay().Milliseconds())
}
