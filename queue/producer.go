package queue

import (
	"context"
	"errors"
	"time"

	"github.com/fairyhunter13/redisqueue/domain"
)

// Push atomically enqueues doc: it pre-claims the lock, pushes the ID onto
// the ready list, writes the content and NEW state records, and publishes
// the NEW state — all as one pipelined batch, so a consumer claiming
// between any two of these steps can never observe a half-written
// document. It returns once the store has durably observed the write.
func (q *Queue[D]) Push(ctx context.Context, doc D) error {
	start := time.Now()
	ctx, span := q.cfg.tracer().Start(ctx, "queue.push")
	defer span.End()

	id := doc.ID()
	if id == "" {
		return &domain.QueueError{Op: "push", Err: errors.New("document id must not be empty")}
	}

	now := nowMillis()
	payload := domain.TimedPayload[D]{Document: doc, EnqueuedAtUnix: now}
	payloadStr, err := q.payloadCodec.Serialize(payload)
	if err != nil {
		q.cfg.recorder().IncSerializationError(q.cfg.Name)
		return &domain.QueueError{Op: "push", Err: err}
	}

	stateInfo := domain.StateInfo{State: domain.StateNew, LastUpdateUnix: now}
	stateStr, err := q.stateCodec.Serialize(stateInfo)
	if err != nil {
		q.cfg.recorder().IncSerializationError(q.cfg.Name)
		return &domain.QueueError{Op: "push", Err: err}
	}

	pipe := q.cfg.Store.Pipeline()
	pipe.SetEX(q.scheme.Lock(id), q.cfg.LockTime, "locked")
	pipe.LPush(q.scheme.Ready(), id)
	pipe.SetEX(q.scheme.Content(id), q.cfg.TTLStateInfo, payloadStr)
	pipe.SetEX(q.scheme.State(id), q.cfg.TTLStateInfo, stateStr)
	pipe.Publish(q.scheme.StateChannel(id), stateStr)
	if err := pipe.Exec(ctx); err != nil {
		return &domain.QueueError{Op: "push", Err: err}
	}

	q.cfg.recorder().ObservePushLatency(q.cfg.Name, time.Since(start))
	return nil
}
