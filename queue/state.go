package queue

import (
	"context"
	"iter"
	"log/slog"

	"github.com/fairyhunter13/redisqueue/domain"
)

// SetState writes a fresh StateInfo for id and publishes it on the
// document's state channel. The write and publish are submitted as a
// single pipelined batch so the publish never races ahead of a reader
// that hasn't yet seen the write. Handlers must call this to transition a
// claimed document to DONE or FAILED; the core never infers completion
// from a handler returning without error.
func (q *Queue[D]) SetState(ctx context.Context, id string, state domain.State, info string) error {
	ctx, span := q.cfg.tracer().Start(ctx, "queue.set_state")
	defer span.End()

	si := domain.StateInfo{State: state, LastUpdateUnix: nowMillis(), Info: info}
	s, err := q.stateCodec.Serialize(si)
	if err != nil {
		q.cfg.recorder().IncSerializationError(q.cfg.Name)
		return &domain.QueueError{Op: "set_state", Err: err}
	}

	pipe := q.cfg.Store.Pipeline()
	pipe.SetEX(q.scheme.State(id), q.cfg.TTLStateInfo, s)
	pipe.Publish(q.scheme.StateChannel(id), s)
	if err := pipe.Exec(ctx); err != nil {
		return &domain.QueueError{Op: "set_state", Err: err}
	}
	return nil
}

// GetState reads the current StateInfo for id. ok is false when no state
// record exists (never pushed, or evicted by TTL).
func (q *Queue[D]) GetState(ctx context.Context, id string) (domain.StateInfo, bool, error) {
	v, ok, err := q.cfg.Store.Get(ctx, q.scheme.State(id))
	if err != nil {
		return domain.StateInfo{}, false, &domain.QueueError{Op: "get_state", Err: err}
	}
	if !ok {
		return domain.StateInfo{}, false, nil
	}
	si, err := q.stateCodec.Deserialize(v)
	if err != nil {
		q.cfg.recorder().IncSerializationError(q.cfg.Name)
		return domain.StateInfo{}, false, &domain.QueueError{Op: "get_state", Err: err}
	}
	return si, true, nil
}

// GetStates lazily enumerates every known StateInfo for this queue by
// scanning the store for state keys. Entries that expire or fail to
// deserialize between the scan and the read are skipped rather than
// surfaced as errors, matching the "optional" result the specification
// calls for; skipped deserialization failures still increment the
// serialization-error counter.
func (q *Queue[D]) GetStates(ctx context.Context) iter.Seq[domain.ExtendedStateInfo] {
	return func(yield func(domain.ExtendedStateInfo) bool) {
		stateKeys, err := q.cfg.Store.Keys(ctx, q.scheme.StatePattern())
		if err != nil {
			q.cfg.logger().Warn("get_states: key scan failed", slog.String("queue", q.cfg.Name), slog.Any("error", err))
			return
		}
		for _, key := range stateKeys {
			v, ok, err := q.cfg.Store.Get(ctx, key)
			if err != nil || !ok {
				continue
			}
			si, err := q.stateCodec.Deserialize(v)
			if err != nil {
				q.cfg.recorder().IncSerializationError(q.cfg.Name)
				continue
			}
			if !yield(domain.ExtendedStateInfo{Key: key, StateInfo: si}) {
				return
			}
		}
	}
}
