package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/redisqueue/domain"
	"github.com/fairyhunter13/redisqueue/internal/codec"
	"github.com/fairyhunter13/redisqueue/internal/keys"
	"github.com/fairyhunter13/redisqueue/internal/schedulerpool"
)

// closeDrainTimeout bounds how long Close waits for the consumer and
// reaper loops, and then the scheduler, to drain.
const closeDrainTimeout = time.Minute

// readyGaugeInterval is how often the cached ready-list-length gauge
// refreshes, per the metrics contract in the queue specification.
const readyGaugeInterval = 15 * time.Second

// Queue is the durable, at-least-once job queue core for document type D.
// It is safe for concurrent use: Push, SetState, GetState, GetStates, and
// the wait primitives may be called from any goroutine while the consumer
// and reaper loops run.
type Queue[D domain.Document] struct {
	cfg          Config[D]
	scheme       keys.Scheme
	payloadCodec domain.Codec[domain.TimedPayload[D]]
	stateCodec   domain.Codec[domain.StateInfo]
	scheduler    domain.Scheduler
	ownsSched    bool

	running atomic.Bool

	lifecycleMu sync.Mutex // guards start/stop and the fields below
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New constructs a Queue. It returns domain.ErrInvalidConfig wrapped if
// required fields are missing or if TTLStateInfo - LockTime does not
// exceed 60s (invariant 1).
func New[D domain.Document](cfg Config[D]) (*Queue[D], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	q := &Queue[D]{
		cfg:          cfg,
		scheme:       keys.New(cfg.Name),
		payloadCodec: codec.NewTimedPayload[D](cfg.DocCodec),
		stateCodec:   codec.NewJSON[domain.StateInfo](),
	}
	if cfg.Scheduler != nil {
		q.scheduler = cfg.Scheduler
	} else {
		q.scheduler = schedulerpool.New(2, 16)
		q.ownsSched = true
	}
	return q, nil
}

// GetName returns the queue name.
func (q *Queue[D]) GetName() string { return q.cfg.Name }

// StartConsumer starts the consumer loop, the reaper loop, and the cached
// ready-length gauge refresher. It is a no-op if already running.
func (q *Queue[D]) StartConsumer() {
	q.lifecycleMu.Lock()
	defer q.lifecycleMu.Unlock()
	if q.running.Load() {
		return
	}
	q.running.Store(true)
	q.stopCh = make(chan struct{})

	q.wg.Add(3)
	go q.consumerLoop()
	go q.reaperLoop()
	go q.readyGaugeLoop()
}

// Close stops both loops, waits for them to drain, then closes the
// scheduler. push remains callable afterward (it only touches the store)
// but no further progress occurs. Close is idempotent.
func (q *Queue[D]) Close(ctx context.Context) error {
	q.lifecycleMu.Lock()
	if !q.running.Load() {
		q.lifecycleMu.Unlock()
		return nil
	}
	q.running.Store(false)
	close(q.stopCh)
	q.lifecycleMu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	deadline := time.NewTimer(closeDrainTimeout)
	defer deadline.Stop()
	select {
	case <-drained:
	case <-ctx.Done():
		return fmt.Errorf("queue close: %w", ctx.Err())
	case <-deadline.C:
		return fmt.Errorf("queue close: loops did not drain within %s", closeDrainTimeout)
	}

	if q.ownsSched {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeDrainTimeout)
		defer cancel()
		if err := q.scheduler.Close(closeCtx); err != nil {
			return fmt.Errorf("queue close: scheduler: %w", err)
		}
	}
	return nil
}

func (q *Queue[D]) readyGaugeLoop() {
	defer q.wg.Done()
	ticker := time.NewTicker(readyGaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			n, err := q.cfg.Store.LLen(context.Background(), q.scheme.Ready())
			if err != nil {
				q.cfg.logger().Warn("ready length refresh failed", slog.String("queue", q.cfg.Name), slog.Any("error", err))
				continue
			}
			q.cfg.recorder().SetReadyLength(q.cfg.Name, n)
		}
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }
