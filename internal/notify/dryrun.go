package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/poolwatch/poolwatch/internal/alert"
)

// DryRun logs alerts instead of delivering them. Used when no webhook is
// configured or during local testing.
type DryRun struct{}

// Send logs the alert at warn level so it stands out in the engine's output.
func (DryRun) Send(_ context.Context, a alert.Alert) error {
	log.Warn().
		Str("alert_id", a.ID).
		Str("kind", string(a.Kind)).
		Msg("dry-run: " + a.Summary)
	return nil
}
