package domain

import (
	"context"
	"time"
)

// Message is a single pub/sub payload delivered on a subscription channel.
type Message struct {
	Payload string
}

// Subscription is a live pub/sub subscription to a single channel. Callers
// must Close it when done; Close is safe to call more than once.
type Subscription interface {
	// Channel returns the delivery channel. It is closed when the
	// subscription is closed or the underlying connection is lost.
	Channel() <-chan Message
	Close() error
}

// Pipeline batches non-blocking write commands for a single round trip.
// The store guarantees all-or-nothing application of the batch: either
// every queued command applies or none do. No command in a batch may
// depend on the result of a prior command in the same batch.
type Pipeline interface {
	SetEX(key string, ttl time.Duration, value string)
	LPush(key string, values ...string)
	LRem(key string, count int64, value string)
	Publish(channel string, message string)
	// Exec submits the batch. On success it returns nil; on failure no
	// queued command is considered to have applied.
	Exec(ctx context.Context) error
}

// Store is the backing key/value + list + pub/sub contract the queue core
// needs. A concrete adapter (internal/storeadapter) implements it against a
// real Redis-compatible client.
type Store interface {
	// Pipeline returns a fresh batch of non-blocking write commands.
	Pipeline() Pipeline

	// Get reads a string key. ok is false when the key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// TTL returns the remaining time-to-live of key. ok is false, with a
	// zero ttl, when the key does not exist (missing or expired) or has no
	// expiry; those cases are not told apart.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// LRange returns the list elements in [start, stop], Redis semantics
	// (stop == -1 means "to the end").
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// LLen returns the length of a list (0 if the key does not exist).
	LLen(ctx context.Context, key string) (int64, error)

	// BRPopLPush blocks up to timeout for an element to appear on source,
	// then atomically moves it to the head of destination. ok is false on
	// timeout (no error).
	BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) (value string, ok bool, err error)

	// Publish sends message on channel outside of a pipeline; used by
	// callers that need a single fire-and-forget publish (e.g. the
	// reaper's STOP sentinel, which is not paired with a write to the
	// same key and so does not need a pipeline).
	Publish(ctx context.Context, channel string, message string) error

	// Subscribe opens a subscription to channel. The subscription must be
	// confirmed active before Subscribe returns, so a caller performing a
	// catch-up read immediately afterward cannot miss a message published
	// after the read.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Keys lists keys matching a glob pattern. Used only for diagnostics
	// (getStates); never on the hot path.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// ClaimLock atomically refreshes a short-TTL lock key, reads the prior
	// state string at stateKey (empty string, false if absent), and
	// leaves the state key untouched — the caller decides the next state
	// write. It exists so the consumer's claim step (lock refresh + state
	// read) is one round trip instead of two, closing the race where a
	// second consumer's claim could interleave between them.
	ClaimLock(ctx context.Context, lockKey string, lockTTL time.Duration, stateKey string) (priorState string, hadState bool, err error)
}
