package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/fairyhunter13/redisqueue/domain"
	"github.com/fairyhunter13/redisqueue/internal/keys"
)

// reaperLoop scans the in-flight list every ReaperInterval and resurrects
// or discards entries whose lock has expired. It wakes immediately on
// Close rather than waiting out the remainder of its sleep.
func (q *Queue[D]) reaperLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.reaperInterval())
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.reapOnce(context.Background())
		}
	}
}

// reapOnce enumerates every in-flight ID. This lrange is unbounded, as in
// the source protocol this queue implements; a very large sustained
// backlog would make each scan O(n), see SPEC_FULL.md §1 / DESIGN.md.
func (q *Queue[D]) reapOnce(ctx context.Context) {
	ids, err := q.cfg.Store.LRange(ctx, q.scheme.Inflight(), 0, -1)
	if err != nil {
		q.cfg.logger().Warn("reaper: in-flight scan failed", slog.String("queue", q.cfg.Name), slog.Any("error", err))
		return
	}
	for _, id := range ids {
		q.reapOne(ctx, id)
	}
}

func (q *Queue[D]) reapOne(ctx context.Context, id string) {
	log := q.cfg.logger()

	_, live, err := q.cfg.Store.TTL(ctx, q.scheme.Lock(id))
	if err != nil {
		log.Warn("reaper: lock TTL read failed", slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		return
	}
	if live {
		return // another consumer owns this ID
	}

	start := time.Now()
	defer func() { q.cfg.recorder().ObserveRestoreBlocked(q.cfg.Name, time.Since(start)) }()

	si, ok, err := q.GetState(ctx, id)
	if err != nil {
		log.Error("reaper: state read failed", slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
		return
	}
	if !ok {
		// Content and state both TTL-expired; nothing left to recover or
		// clean up from here. A later pass sees the same thing and is
		// equally unable to act; this matches the source behavior.
		log.Info("reaper: in-flight id has no state record, leaving for TTL eviction",
			slog.String("queue", q.cfg.Name), slog.String("id", id))
		return
	}

	switch si.State {
	case domain.StateProcessing:
		if err := q.requeue(ctx, id); err != nil {
			log.Error("reaper: requeue failed", slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
			return
		}
		log.Warn("reaper: recovered in-flight document from a dead consumer",
			slog.String("queue", q.cfg.Name), slog.String("id", id))
	case domain.StateDone:
		if err := q.cleanupAndStop(ctx, id); err != nil {
			log.Error("reaper: cleanup failed", slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
			return
		}
		log.Debug("reaper: cleaned a completed in-flight entry", slog.String("queue", q.cfg.Name), slog.String("id", id))
	case domain.StateFailed, domain.StateNew:
		if err := q.cleanupAndStop(ctx, id); err != nil {
			log.Error("reaper: cleanup failed", slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
			return
		}
		log.Error("reaper: losing a job, unlocked in-flight entry will not progress",
			slog.String("queue", q.cfg.Name), slog.String("id", id), slog.String("state", string(si.State)))
	}
}

// requeue moves id from in-flight back to the head of ready so the next
// consumer to claim it jumps the line — intentional, favoring fast
// recovery over strict FIFO under failure.
func (q *Queue[D]) requeue(ctx context.Context, id string) error {
	pipe := q.cfg.Store.Pipeline()
	pipe.LRem(q.scheme.Inflight(), 1, id)
	pipe.LPush(q.scheme.Ready(), id)
	return pipe.Exec(ctx)
}

// cleanupAndStop removes id from in-flight and publishes the STOP
// sentinel so any stale waiter fails instead of blocking forever.
func (q *Queue[D]) cleanupAndStop(ctx context.Context, id string) error {
	pipe := q.cfg.Store.Pipeline()
	pipe.LRem(q.scheme.Inflight(), 1, id)
	pipe.Publish(q.scheme.StateChannel(id), keys.StopSentinel)
	return pipe.Exec(ctx)
}
