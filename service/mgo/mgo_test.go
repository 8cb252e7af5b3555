package mgo

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"FlashChat/data/database/mgo/mongoutil"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	prev := time.Duration(0)
	for i := 0; i < 4; i++ {
		d := backoff(i)
		want := baseBackoff << i
		assert.LessOrEqual(t, d, want)
		assert.GreaterOrEqual(t, d, want-want/10)
		assert.Greater(t, d, prev)
		prev = d
	}
	assert.LessOrEqual(t, backoff(30), maxBackoff)
	assert.LessOrEqual(t, backoff(100), maxBackoff)
}

func TestWatchKeepsClientAcrossFailures(t *testing.T) {
	clk := clock.NewMock()
	var fail atomic.Bool
	var pings atomic.Int32
	m := newManager(nil, func(context.Context) error {
		pings.Add(1)
		if fail.Load() {
			return assert.AnError
		}
		return nil
	}, clk, zap.NewNop())
	m.Watch(time.Second)

	fail.Store(true)
	clk.Add(time.Second)
	assert.Eventually(t, func() bool { return !m.Healthy() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, m.Err(), assert.AnError)

	fail.Store(false)
	n := pings.Load()
	assert.Eventually(t, func() bool {
		clk.Add(time.Second)
		return pings.Load() > n && m.Healthy()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Close(context.Background()))
	require.NoError(t, m.Close(context.Background()))
}

func TestWatchAfterCloseIsNoop(t *testing.T) {
	m := newManager(nil, func(context.Context) error { return nil }, clock.NewMock(), zap.NewNop())
	require.NoError(t, m.Close(context.Background()))
	m.Watch(time.Second)
	assert.Nil(t, m.cancel)
}

func TestConnectStopsOnValidationError(t *testing.T) {
	_, err := Connect(context.Background(), mongoutil.Config{Uri: "mongodb://localhost:27017"}, clock.NewMock(), zap.NewNop())
	require.Error(t, err)
}
