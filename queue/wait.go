package queue

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fairyhunter13/redisqueue/domain"
	"github.com/fairyhunter13/redisqueue/internal/keys"
)

// Future resolves when the document it was created for reaches one of its
// target states, or fails with a *domain.WaitError on timeout, context
// cancellation, or receipt of the reap STOP sentinel.
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future resolves or ctx is done, whichever comes
// first.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return &domain.WaitError{Reason: "context done", Err: ctx.Err()}
	}
}

// GetFutureForDocumentStateWait subscribes to id's state channel and
// returns a Future that resolves once GetState(id) is in targets. The
// subscription is confirmed active, and a catch-up read of the current
// state performed, before this call returns — so a state transition that
// happens concurrently with subscribing can never be missed. timeout is
// counted from when this call returns, not from when Wait is called; it
// does not bound this call itself.
func (q *Queue[D]) GetFutureForDocumentStateWait(ctx context.Context, targets []domain.State, id string, timeout time.Duration) (*Future, error) {
	sub, err := q.cfg.Store.Subscribe(ctx, q.scheme.StateChannel(id))
	if err != nil {
		return nil, &domain.StateFutureInitializationError{ID: id, Err: err}
	}

	fut := newFuture()

	// Catch-up read: must happen after the subscription is confirmed
	// active (Store.Subscribe guarantees this) to close the lost-wakeup
	// race between "state already reached target" and "message arrives
	// before we start listening".
	if si, ok, err := q.GetState(ctx, id); err == nil && ok && slices.Contains(targets, si.State) {
		fut.complete(nil)
		_ = sub.Close()
		return fut, nil
	}

	go q.awaitState(sub, fut, targets, id, timeout, q.stopSignal())
	return fut, nil
}

// stopSignal snapshots the current stop channel under the lifecycle lock
// so a concurrently running awaitState goroutine never reads q.stopCh
// while StartConsumer/Close is reassigning or closing it.
func (q *Queue[D]) stopSignal() chan struct{} {
	q.lifecycleMu.Lock()
	defer q.lifecycleMu.Unlock()
	return q.stopCh
}

func (q *Queue[D]) awaitState(sub domain.Subscription, fut *Future, targets []domain.State, id string, timeout time.Duration, stopCh chan struct{}) {
	defer func() { _ = sub.Close() }()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		select {
		case msg, ok := <-sub.Channel():
			if !ok {
				fut.complete(&domain.WaitError{ID: id, Reason: "subscription closed"})
				return
			}
			if msg.Payload == keys.StopSentinel {
				fut.complete(&domain.WaitError{ID: id, Reason: "document was reaped as lost"})
				return
			}
			si, err := q.stateCodec.Deserialize(msg.Payload)
			if err != nil {
				q.cfg.recorder().IncSerializationError(q.cfg.Name)
				q.cfg.logger().Warn("wait: undeserializable state message, ignoring",
					slog.String("queue", q.cfg.Name), slog.String("id", id), slog.Any("error", err))
				continue
			}
			if slices.Contains(targets, si.State) {
				fut.complete(nil)
				return
			}
		case <-timeoutCh:
			fut.complete(&domain.WaitError{ID: id, Reason: "timed out"})
			return
		case <-stopCh:
			fut.complete(&domain.WaitError{ID: id, Reason: "queue closed"})
			return
		}
	}
}

// PushAndWait pushes doc and waits for it to reach DONE or FAILED. The
// wait subscription is created before Push is called, so the NEW state
// publish emitted by Push can never race ahead of the subscriber.
func (q *Queue[D]) PushAndWait(ctx context.Context, doc D, timeout time.Duration) error {
	fut, err := q.GetFutureForDocumentStateWait(ctx, []domain.State{domain.StateDone, domain.StateFailed}, doc.ID(), timeout)
	if err != nil {
		return err
	}
	if err := q.Push(ctx, doc); err != nil {
		return err
	}
	return fut.Wait(ctx)
}
