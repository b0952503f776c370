package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
log:
  path: /var/log/nginx/access.log
webhook:
  url: https://hooks.example.com/T000/B000
`

func TestLoadFromBytes_Minimal(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "/var/log/nginx/access.log", cfg.Log.Path)
	assert.Equal(t, "https://hooks.example.com/T000/B000", cfg.Webhook.URL)

	// Defaults fill in the rest.
	assert.Equal(t, 2.0, cfg.Alerts.ErrorRateThreshold)
	assert.Equal(t, 200, cfg.Alerts.WindowSize)
	assert.Equal(t, 10, cfg.Alerts.MinSamples)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.Cooldown.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Log.PollInterval.Std())
	assert.Equal(t, []string{"nginx-health", "healthz"}, cfg.Log.SkipRequests)
	assert.Equal(t, 3, cfg.Webhook.MaxAttempts)
	assert.Equal(t, 30, cfg.Source.MaxFailures)
	assert.False(t, cfg.Alerts.MaintenanceMode)
}

func TestLoadFromBytes_FullConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
log:
  path: /tmp/access.log
  from_start: true
  poll_interval: 100ms
  skip_requests: ["ping"]
alerts:
  error_rate_threshold: 5.5
  window_size: 50
  min_samples: 5
  cooldown: 90s
  maintenance_mode: true
webhook:
  url: https://hooks.example.com/x
  timeout: 2s
  max_attempts: 5
history:
  path: /tmp/poolwatch.db
ops:
  enabled: true
  port: 9999
monitoring:
  log_level: debug
  log_format: json
source:
  max_failures: 10
`))
	require.NoError(t, err)

	assert.True(t, cfg.Log.FromStart)
	assert.Equal(t, 100*time.Millisecond, cfg.Log.PollInterval.Std())
	assert.Equal(t, []string{"ping"}, cfg.Log.SkipRequests)
	assert.Equal(t, 5.5, cfg.Alerts.ErrorRateThreshold)
	assert.Equal(t, 50, cfg.Alerts.WindowSize)
	assert.Equal(t, 90*time.Second, cfg.Alerts.Cooldown.Std())
	assert.True(t, cfg.Alerts.MaintenanceMode)
	assert.Equal(t, 2*time.Second, cfg.Webhook.Timeout.Std())
	assert.Equal(t, 5, cfg.Webhook.MaxAttempts)
	assert.Equal(t, "/tmp/poolwatch.db", cfg.History.Path)
	assert.True(t, cfg.Ops.Enabled)
	assert.Equal(t, 9999, cfg.Ops.Port)
	assert.Equal(t, "debug", cfg.Monitoring.LogLevel)
	assert.Equal(t, 10, cfg.Source.MaxFailures)
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	t.Setenv("POOLWATCH_TEST_HOOK", "https://hooks.example.com/from-env")

	cfg, err := LoadFromBytes([]byte(`
log:
  path: ${POOLWATCH_TEST_LOG:-/var/log/nginx/access.log}
webhook:
  url: ${POOLWATCH_TEST_HOOK}
`))
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/from-env", cfg.Webhook.URL)
	assert.Equal(t, "/var/log/nginx/access.log", cfg.Log.Path)
}

func TestLoadFromBytes_EnvOverrides(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example.com/override")
	t.Setenv("LOG_FILE", "/srv/logs/access.log")
	t.Setenv("MAINTENANCE_MODE", "TRUE")

	cfg, err := LoadFromBytes([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/override", cfg.Webhook.URL)
	assert.Equal(t, "/srv/logs/access.log", cfg.Log.Path)
	assert.True(t, cfg.Alerts.MaintenanceMode)
}

func TestLoadFromBytes_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing log path": `
webhook:
  url: https://hooks.example.com/x
`,
		"missing webhook url": `
log:
  path: /tmp/access.log
`,
		"bad threshold": `
log:
  path: /tmp/access.log
webhook:
  url: https://hooks.example.com/x
alerts:
  error_rate_threshold: 250
`,
		"bad window size": `
log:
  path: /tmp/access.log
webhook:
  url: https://hooks.example.com/x
alerts:
  window_size: -5
`,
		"bad duration": `
log:
  path: /tmp/access.log
  poll_interval: sometimes
webhook:
  url: https://hooks.example.com/x
`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromBytes_DryRunNeedsNoURL(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
log:
  path: /tmp/access.log
webhook:
  dry_run: true
`))
	require.NoError(t, err)
	assert.True(t, cfg.Webhook.DryRun)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestReloader_AppliesChangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0644))

	var mu sync.Mutex
	var got []bool
	r := NewReloader(path, 10*time.Millisecond, func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, cfg.Alerts.MaintenanceMode)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx, nil)

	// Rewrite with maintenance mode on; ensure the mtime moves forward.
	updated := minimalYAML + "\nalerts:\n  maintenance_mode: true\n"
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))
	now := time.Now()
	require.NoError(t, os.Chtimes(path, now, now))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1]
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReloader_ForceChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0644))

	applied := make(chan *Config, 1)
	r := NewReloader(path, time.Hour, func(cfg *Config) { applied <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	force := make(chan struct{}, 1)
	go r.Run(ctx, force)

	force <- struct{}{}

	select {
	case cfg := <-applied:
		assert.Equal(t, "/var/log/nginx/access.log", cfg.Log.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("forced reload not applied")
	}
}

func TestReloader_KeepsPreviousOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{not yaml"), 0644))

	called := false
	r := NewReloader(path, time.Hour, func(*Config) { called = true })
	r.reload()

	assert.False(t, called)
}
