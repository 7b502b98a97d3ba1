// Package observability wires structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the queue core, following the same shape the
// ambient observability stack uses across the example pack.
package observability

import (
	"log/slog"
	"os"

	"github.com/fairyhunter13/redisqueue/internal/config"
)

// SetupLogger configures a JSON slog logger tagged with service/env
// fields, matching the teacher's SetupLogger shape.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With(
		slog.String("service", "redisqueue"),
		slog.String("env", cfg.AppEnv),
	)
}
