package observability

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/redisqueue/internal/config"
)

// tracerName identifies spans emitted by the queue core.
const tracerName = "github.com/fairyhunter13/redisqueue/queue"

// SetupTracing installs a TracerProvider tagged with the service name.
// Exporting spans to a collector is left to the embedding application
// (wire an exporter and pass it to a custom sdktrace.NewTracerProvider); this
// only establishes the provider and resource attributes so the core's
// spans are attributed correctly once an exporter is attached upstream.
func SetupTracing(cfg config.Config) (func(context.Context) error, error) {
	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceNameKey.String("redisqueue"),
		semconv.DeploymentEnvironmentKey.String(cfg.AppEnv),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	slog.Info("tracing configured", slog.String("env", cfg.AppEnv))
	return tp.Shutdown, nil
}

// Tracer returns the queue core's tracer.
func Tracer() trace.Tracer { return otel.Tracer(tracerName) }
