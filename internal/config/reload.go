package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Reloader re-reads the config file while the engine runs, so an operator can
// toggle maintenance mode without a restart. It polls the file's mtime and
// also reloads immediately when poked (main wires SIGHUP to the force
// channel). A file that fails to parse is ignored: the previous configuration
// stays in effect.
type Reloader struct {
	path     string
	interval time.Duration
	modTime  time.Time
	apply    func(*Config)
}

// NewReloader creates a reloader for the config file at path. apply is called
// with each successfully reloaded configuration.
func NewReloader(path string, interval time.Duration, apply func(*Config)) *Reloader {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	r := &Reloader{path: path, interval: interval, apply: apply}
	if st, err := os.Stat(path); err == nil {
		r.modTime = st.ModTime()
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context, force <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st, err := os.Stat(r.path)
			if err != nil {
				continue
			}
			if !st.ModTime().After(r.modTime) {
				continue
			}
			r.modTime = st.ModTime()
			r.reload()
		case <-force:
			r.reload()
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("config reload failed, keeping previous configuration")
		return
	}
	log.Info().Bool("maintenance_mode", cfg.Alerts.MaintenanceMode).Msg("configuration reloaded")
	r.apply(cfg)
}
