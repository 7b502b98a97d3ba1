// Package domain defines the core entities, ports, and sentinel errors
// shared by the queue core and its store/codec/metrics adapters.
package domain

import (
	"context"
	"time"
)

// Document is an opaque user payload. The ID is the sole identity used for
// all keying; it must be non-empty and must not change over the document's
// lifetime.
type Document interface {
	ID() string
}

// State is the lifecycle state of a document. The legal transition graph is
// NEW -> PROCESSING -> DONE|FAILED. There are no reverse transitions; DONE
// and FAILED are terminal.
type State string

// Queue states.
const (
	StateNew        State = "NEW"
	StateProcessing State = "PROCESSING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// IsTerminal reports whether s is DONE or FAILED.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// TimedPayload pairs a document with the timestamp at which it was pushed.
// The timestamp is assigned once, at push, and never updated.
type TimedPayload[D Document] struct {
	Document       D
	EnqueuedAtUnix int64 // milliseconds
}

// StateInfo is the value stored at state(id): the current state, the time
// it was last written, and a free-form info string used for FAILED detail.
type StateInfo struct {
	State           State
	LastUpdateUnix  int64 // milliseconds
	Info            string
}

// ExtendedStateInfo pairs a StateInfo with the store key it was read from,
// for callers enumerating every known document.
type ExtendedStateInfo struct {
	Key       string
	StateInfo StateInfo
}

// Recorder is the metrics port. The core reports exactly these named
// slots; a Prometheus-backed implementation and a no-op implementation are
// provided in internal/observability.
type Recorder interface {
	ObservePushLatency(queue string, d time.Duration)
	ObserveIdle(queue string, d time.Duration)
	ObserveExecuteWait(queue string, d time.Duration)
	ObserveRestoreBlocked(queue string, d time.Duration)
	SetReadyLength(queue string, n int64)
	IncSerializationError(queue string)
}

// Handler is the external scheduler hook: a single execute(document) call.
// The handler owns transitioning the document to DONE or FAILED before it
// returns; the core never infers success from a nil error.
type Handler[D Document] interface {
	Execute(ctx context.Context, doc D) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc[D Document] func(ctx context.Context, doc D) error

// Execute implements Handler.
func (f HandlerFunc[D]) Execute(ctx context.Context, doc D) error { return f(ctx, doc) }
