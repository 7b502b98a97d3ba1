package schedulerpool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/redisqueue/internal/schedulerpool"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := schedulerpool.New(2, 4)

	var ran atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(func() {
			if ran.Add(1) == 3 {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all tasks ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
}

func TestPool_RejectsWhenBacklogFull(t *testing.T) {
	block := make(chan struct{})
	p := schedulerpool.New(1, 0)

	// Occupy the single worker so the next submission has nowhere to go.
	require.NoError(t, p.Submit(func() { <-block }))

	err := p.Submit(func() {})
	require.ErrorIs(t, err, schedulerpool.ErrRejected)

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
}

func TestPool_SubmitAfterCloseIsRejected(t *testing.T) {
	p := schedulerpool.New(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))

	err := p.Submit(func() {})
	require.ErrorIs(t, err, schedulerpool.ErrRejected)
}
