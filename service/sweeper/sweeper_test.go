package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestOnceContinuesAfterFailure(t *testing.T) {
	var ran int32
	s := New(clock.NewMock(), time.Minute, nil,
		Job{Name: "stories", Run: func(ctx context.Context) (int, error) { return 0, errors.New("boom") }},
		Job{Name: "messages", Run: func(ctx context.Context) (int, error) {
			atomic.AddInt32(&ran, 1)
			return 3, nil
		}},
	)
	got := s.Once(context.Background())
	assert.Equal(t, 3, got["messages"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestRunOnStartAndOnTick(t *testing.T) {
	clk := clock.NewMock()
	var runs int32
	s := New(clk, time.Minute, nil, Job{Name: "count", Run: func(ctx context.Context) (int, error) {
		atomic.AddInt32(&runs, 1)
		return 0, nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)
	clk.Add(time.Minute)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
