package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/redisqueue/domain"
)

// consumerLoop runs the main dequeue loop until Close is called. Each
// iteration blocks up to cfg.Timeout waiting for an ID to arrive on the
// ready list; a timeout with nothing to claim simply re-checks running
// and loops, which is also how the loop notices it has been asked to
// stop.
func (q *Queue[D]) consumerLoop() {
	defer q.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // never give up; this loop runs for the life of the queue

	for q.running.Load() {
		idleStart := time.Now()
		id, ok, err := q.cfg.Store.BRPopLPush(context.Background(), q.scheme.Ready(), q.scheme.Inflight(), q.cfg.Timeout)
		q.cfg.recorder().ObserveIdle(q.cfg.Name, time.Since(idleStart))

		if err != nil {
			q.cfg.logger().Warn("consumer: blocking pop failed, backing off",
				slog.String("queue", q.cfg.Name), slog.Any("error", err))
			q.sleepOrStop(bo.NextBackOff())
			continue
		}
		bo.Reset()

		if !ok {
			continue // nothing arrived within the timeout; recheck running
		}

		q.handleClaimed(id)
	}
}

// sleepOrStop sleeps for d unless the queue is closed first.
func (q *Queue[D]) sleepOrStop(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-q.stopCh:
	}
}

// handleClaimed runs the claim -> fetch -> discard-check -> dispatch steps
// for one ID popped from the ready list. On any early return the ID stays
// on the in-flight list; the reaper is responsible for eventually
// recovering or discarding it.
func (q *Queue[D]) handleClaimed(id string) {
	ctx := context.Background()
	log := q.cfg.logger()

	priorState, hadState, err := q.cfg.Store.ClaimLock(ctx, q.scheme.Lock(id), q.cfg.LockTime, q.scheme.State(id))
	if err != nil {
		log.Error("consumer: claim failed", slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		return
	}
	if hadState {
		if si, perr := q.stateCodec.Deserialize(priorState); perr == nil && si.State != domain.StateNew {
			log.Warn("consumer: claimed id was not in NEW state",
				slog.String("queue", q.cfg.Name), slog.String("id", id), slog.String("state", string(si.State)))
		}
	}

	if err := q.SetState(ctx, id, domain.StateProcessing, ""); err != nil {
		log.Error("consumer: failed to set PROCESSING", slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		return
	}

	contentStr, ok, err := q.cfg.Store.Get(ctx, q.scheme.Content(id))
	if err != nil || !ok {
		log.Warn("consumer: content missing or unreadable, abandoning iteration",
			slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		return
	}

	payload, err := q.payloadCodec.Deserialize(contentStr)
	if err != nil {
		q.cfg.recorder().IncSerializationError(q.cfg.Name)
		log.Warn("consumer: content undeserializable, abandoning iteration",
			slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		return
	}

	age := time.Duration(nowMillis()-payload.EnqueuedAtUnix) * time.Millisecond
	if age >= q.cfg.DiscardTime {
		log.Warn("consumer: discarding document older than discardTime",
			slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Duration("age", age))
		return
	}

	q.dispatch(ctx, id, payload.Document)
}

// dispatch submits the document to the scheduler. A rejection (pool full)
// is compensated by re-enqueueing the ID onto the ready list; it is never
// surfaced to a push caller.
func (q *Queue[D]) dispatch(ctx context.Context, id string, doc D) {
	log := q.cfg.logger()
	execStart := time.Now()

	err := q.scheduler.Submit(func() {
		spanCtx, span := q.cfg.tracer().Start(context.Background(), "queue.execute")
		defer span.End()
		if err := q.cfg.Handler.Execute(spanCtx, doc); err != nil {
			log.Error("consumer: handler returned an error; it must still call SetState",
				slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		}
	})
	q.cfg.recorder().ObserveExecuteWait(q.cfg.Name, time.Since(execStart))

	if err != nil {
		log.Warn("consumer: scheduler rejected submission, re-enqueueing",
			slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		q.compensateRejection(ctx, id)
	}
}

// compensateRejection re-enqueues id onto the ready list. The
// specification's source material performs this compensation as an lpush
// into the string content key, which is a latent bug (see DESIGN.md); this
// implementation corrects it to a real re-queue.
func (q *Queue[D]) compensateRejection(ctx context.Context, id string) {
	pipe := q.cfg.Store.Pipeline()
	pipe.LRem(q.scheme.Inflight(), 1, id)
	pipe.LPush(q.scheme.Ready(), id)
	if err := pipe.Exec(ctx); err != nil {
		q.cfg.logger().Error("consumer: rejection compensation failed",
			slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
	}
}
