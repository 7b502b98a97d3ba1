// Package queue implements the durable, at-least-once job queue core: the
// atomic push protocol, the two-queue dequeue-with-lock consumer loop, the
// in-flight reaper, and the state-wait primitive described by the queue
// specification. It talks to its backing store, codec, scheduler, and
// metrics recorder exclusively through the domain ports so any Redis-like
// store can stand in behind domain.Store.
package queue

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/redisqueue/domain"
)

// minTTLLockMargin is the required gap between TTLStateInfo and LockTime
// (invariant 1 in the queue specification): it guarantees that when the
// reaper finds an expired lock, the state record is still readable.
const minTTLLockMargin = 60 * time.Second

// defaultReaperInterval is how often the reaper scans the in-flight list
// when Config.ReaperInterval is left zero.
const defaultReaperInterval = 5 * time.Second

// Config configures a Queue[D]. Name, Store, Handler, and DocCodec are
// required; Scheduler, Recorder, Logger, and Tracer fall back to the
// defaults documented on each field if left zero.
type Config[D domain.Document] struct {
	// Name identifies the queue; it is embedded in every derived key so
	// multiple queues can share one store.
	Name string

	// Timeout bounds the consumer's blocking right-pop-left-push.
	Timeout time.Duration
	// TTLStateInfo is the time-to-live applied to content and state keys.
	TTLStateInfo time.Duration
	// LockTime is the time-to-live applied to the per-document lock.
	// TTLStateInfo - LockTime must exceed 60s (invariant 1).
	LockTime time.Duration
	// DiscardTime is the maximum age between push and dispatch beyond
	// which a claimed document is skipped rather than executed.
	DiscardTime time.Duration
	// ReaperInterval is the sleep between in-flight scans. Defaults to 5s.
	ReaperInterval time.Duration

	// Store is the backing key/value + list + pub/sub implementation.
	Store domain.Store
	// DocCodec serializes/deserializes the user document type D.
	DocCodec domain.Codec[D]
	// Handler runs user logic for a claimed, non-stale document. It must
	// eventually call Queue.SetState(id, DONE|FAILED, info); the core
	// never infers success from a nil return.
	Handler domain.Handler[D]
	// Scheduler accepts or rejects a dispatched task. If nil, a small
	// bounded in-process pool is created automatically (2 workers, a
	// backlog of 16).
	Scheduler domain.Scheduler

	// Recorder reports queue metrics. Defaults to a no-op.
	Recorder domain.Recorder
	// Logger receives structured log output. Defaults to slog.Default().
	Logger *slog.Logger
	// Tracer wraps push/setState/execute in spans. Defaults to the
	// global OpenTelemetry tracer.
	Tracer trace.Tracer
}

func (c Config[D]) validate() error {
	if c.Name == "" {
		return errInvalidConfig("name must not be empty", nil)
	}
	if c.Store == nil {
		return errInvalidConfig("store must not be nil", nil)
	}
	if c.DocCodec == nil {
		return errInvalidConfig("doc codec must not be nil", nil)
	}
	if c.Handler == nil {
		return errInvalidConfig("handler must not be nil", nil)
	}
	if c.TTLStateInfo-c.LockTime <= minTTLLockMargin {
		return errInvalidConfig("ttlStateInfo - lockTime must exceed 60s", nil)
	}
	return nil
}

func (c Config[D]) reaperInterval() time.Duration {
	if c.ReaperInterval > 0 {
		return c.ReaperInterval
	}
	return defaultReaperInterval
}

func (c Config[D]) recorder() domain.Recorder {
	if c.Recorder != nil {
		return c.Recorder
	}
	return noopRecorder{}
}

func (c Config[D]) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config[D]) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return otel.Tracer("github.com/fairyhunter13/redisqueue/queue")
}

type noopRecorder struct{}

func (noopRecorder) ObservePushLatency(string, time.Duration)    {}
func (noopRecorder) ObserveIdle(string, time.Duration)           {}
func (noopRecorder) ObserveExecuteWait(string, time.Duration)    {}
func (noopRecorder) ObserveRestoreBlocked(string, time.Duration) {}
func (noopRecorder) SetReadyLength(string, int64)                {}
func (noopRecorder) IncSerializationError(string)                {}

var _ domain.Recorder = noopRecorder{}
