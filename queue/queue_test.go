package queue_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/redisqueue/domain"
	"github.com/fairyhunter13/redisqueue/internal/codec"
	"github.com/fairyhunter13/redisqueue/internal/storeadapter"
	"github.com/fairyhunter13/redisqueue/queue"
)

// testDoc is the minimal concrete Document used across queue tests.
type testDoc struct {
	IDValue string `json:"id"`
}

func (d testDoc) ID() string { return d.IDValue }

func newTestStore(t *testing.T) (domain.Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	// miniredis does not expire keys on its own; advance its clock in step
	// with wall time so lock TTLs lapse as they would on a real Redis.
	stop := make(chan struct{})
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				mr.FastForward(10 * time.Millisecond)
			}
		}
	}()
	cleanup := func() {
		close(stop)
		_ = rdb.Close()
		mr.Close()
	}
	return storeadapter.New(rdb), cleanup
}

// recordingHandler calls a user-supplied function and otherwise sets DONE.
type recordingHandler struct {
	q       *queue.Queue[testDoc]
	onExec  func(ctx context.Context, doc testDoc) error
	execCnt atomic.Int32
}

func (h *recordingHandler) Execute(ctx context.Context, doc testDoc) error {
	h.execCnt.Add(1)
	if h.onExec != nil {
		return h.onExec(ctx, doc)
	}
	return h.q.SetState(ctx, doc.ID(), domain.StateDone, "")
}

func newQueue(t *testing.T, store domain.Store, handler domain.Handler[testDoc], cfgOverrides func(*queue.Config[testDoc])) *queue.Queue[testDoc] {
	t.Helper()
	cfg := queue.Config[testDoc]{
		Name:           "q-" + t.Name(),
		Timeout:        1 * time.Second,
		TTLStateInfo:   time.Hour,
		LockTime:       5 * time.Second,
		DiscardTime:    time.Hour,
		ReaperInterval: 100 * time.Millisecond,
		Store:          store,
		DocCodec:       codec.NewJSON[testDoc](),
		Handler:        handler,
	}
	if cfgOverrides != nil {
		cfgOverrides(&cfg)
	}
	q, err := queue.New(cfg)
	require.NoError(t, err)
	return q
}

func TestPushAndWait_RoundTrip(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	h := &recordingHandler{}
	q := newQueue(t, store, h, nil)
	h.q = q
	q.StartConsumer()
	defer func() { require.NoError(t, q.Close(context.Background())) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := q.PushAndWait(ctx, testDoc{IDValue: "A"}, 5*time.Second)
	require.NoError(t, err)

	si, ok, err := q.GetState(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.StateDone, si.State)
}

func TestHandlerCrash_ReaperRequeuesAndConsumerRecovers(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	var attempt atomic.Int32
	h := &recordingHandler{
		onExec: func(ctx context.Context, doc testDoc) error {
			if attempt.Add(1) == 1 {
				// Simulate a consumer that dies mid-job: never calls
				// SetState, so the ID is stranded PROCESSING in-flight.
				return nil
			}
			return nil // later attempts also skip SetState; the test only checks redelivery
		},
	}
	q := newQueue(t, store, h, func(c *queue.Config[testDoc]) {
		c.LockTime = 200 * time.Millisecond
		c.ReaperInterval = 150 * time.Millisecond
	})
	h.q = q
	q.StartConsumer()
	defer func() { require.NoError(t, q.Close(context.Background())) }()

	require.NoError(t, q.Push(context.Background(), testDoc{IDValue: "B"}))

	require.Eventually(t, func() bool {
		return attempt.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond, "first claim never happened")

	// Wait past LockTime + a couple of reaper scans for recovery + redelivery.
	require.Eventually(t, func() bool {
		si, ok, err := q.GetState(context.Background(), "B")
		return err == nil && ok && si.State == domain.StateProcessing && attempt.Load() >= 2
	}, 3*time.Second, 20*time.Millisecond, "reaper never recovered the stranded job")
}

func TestDiscard_StaleDocumentSkippedByConsumer(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	h := &recordingHandler{}
	q := newQueue(t, store, h, func(c *queue.Config[testDoc]) {
		c.DiscardTime = 50 * time.Millisecond
		c.ReaperInterval = time.Hour // keep the reaper from cleaning up mid-assertion
	})
	h.q = q

	require.NoError(t, q.Push(context.Background(), testDoc{IDValue: "C"}))
	time.Sleep(200 * time.Millisecond) // age the document past DiscardTime before the consumer starts

	q.StartConsumer()
	defer func() { require.NoError(t, q.Close(context.Background())) }()

	require.Eventually(t, func() bool {
		si, ok, err := q.GetState(context.Background(), "C")
		return err == nil && ok && si.State == domain.StateProcessing
	}, 2*time.Second, 10*time.Millisecond, "document was never claimed")

	require.Never(t, func() bool {
		return h.execCnt.Load() > 0
	}, 300*time.Millisecond, 20*time.Millisecond, "discarded document must not be dispatched")
}

func TestLostSubscription_ReaperPublishesStopForDoneOrphan(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	h := &recordingHandler{}
	q := newQueue(t, store, h, func(c *queue.Config[testDoc]) {
		c.LockTime = 100 * time.Millisecond
		c.ReaperInterval = 80 * time.Millisecond
	})
	h.q = q

	ctx := context.Background()
	require.NoError(t, q.Push(ctx, testDoc{IDValue: "D"}))

	// A waiter whose target set does not include DONE: the document
	// really did finish, but this waiter will only ever be unblocked by
	// the reaper's STOP sentinel once the entry is recognized as
	// orphaned and abandoned.
	fut, err := q.GetFutureForDocumentStateWait(ctx, []domain.State{domain.StateFailed}, "D", 3*time.Second)
	require.NoError(t, err)

	// Simulate the handler finishing (DONE) without removing "D" from
	// in-flight: write DONE directly, then start the queue. The consumer
	// claims "D" from ready and the handler sets DONE again; nothing
	// removes "D" from in-flight, so once its lock expires the reaper finds
	// a DONE orphan and publishes STOP.
	require.NoError(t, q.SetState(ctx, "D", domain.StateDone, ""))

	q.StartConsumer()
	defer func() { require.NoError(t, q.Close(context.Background())) }()

	err = fut.Wait(context.Background())
	require.Error(t, err)
	var waitErr *domain.WaitError
	require.ErrorAs(t, err, &waitErr)
}

func TestConstruction_RejectsTightTTLLockMargin(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, err := queue.New(queue.Config[testDoc]{
		Name:         "q",
		Timeout:      time.Second,
		TTLStateInfo: 60 * time.Second,
		LockTime:     10 * time.Second,
		DiscardTime:  time.Hour,
		Store:        store,
		DocCodec:     codec.NewJSON[testDoc](),
		Handler:      domain.HandlerFunc[testDoc](func(context.Context, testDoc) error { return nil }),
	})
	require.Error(t, err)
}

func TestPush_ConcurrentPushesAllObservable(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	h := &recordingHandler{}
	q := newQueue(t, store, h, nil)
	h.q = q

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, q.Push(context.Background(), testDoc{IDValue: fmt.Sprintf("P%d", i)}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		si, ok, err := q.GetState(context.Background(), fmt.Sprintf("P%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, domain.StateNew, si.State)
	}
}
