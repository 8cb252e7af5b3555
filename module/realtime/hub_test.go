package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(n *atomic.Int32) Factory {
	return func() (store.CancelFunc, error) {
		return store.OnceCancel(func() error { n.Add(1); return nil }), nil
	}
}

func TestSubscribeReplacesAndCancelsOld(t *testing.T) {
	h := NewHub(nil)
	var first, second atomic.Int32
	require.NoError(t, h.Subscribe(MessagesKey("u"), counting(&first)))
	require.NoError(t, h.Subscribe(MessagesKey("u"), counting(&second)))

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(0), second.Load())
	assert.Equal(t, []string{"messages:u"}, h.Keys())

	assert.True(t, h.Cancel(MessagesKey("u")))
	assert.False(t, h.Cancel(MessagesKey("u")))
	assert.Equal(t, int32(1), second.Load())
}

func TestCancelAllContinuesPastFailures(t *testing.T) {
	h := NewHub(nil)
	var ok atomic.Int32
	require.NoError(t, h.Subscribe("bad", func() (store.CancelFunc, error) {
		return func() error { return errors.New("network gone") }, nil
	}))
	require.NoError(t, h.Subscribe("panics", func() (store.CancelFunc, error) {
		return func() error { panic("boom") }, nil
	}))
	require.NoError(t, h.Subscribe(PresenceKey("a"), counting(&ok)))
	require.NoError(t, h.Subscribe(TypingKey("a_b"), counting(&ok)))

	assert.Equal(t, 4, h.CancelAll())
	assert.Equal(t, int32(2), ok.Load())
	assert.Equal(t, 0, h.Len())

	assert.Equal(t, 0, h.CancelAll())
}

func TestFactoryErrorLeavesNoEntry(t *testing.T) {
	h := NewHub(nil)
	boom := errors.New("listen failed")
	err := h.Subscribe("k", func() (store.CancelFunc, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, h.Has("k"))
}

func TestReentrantCallsFromCancel(t *testing.T) {
	h := NewHub(nil)
	var inner atomic.Int32
	require.NoError(t, h.Subscribe("outer", func() (store.CancelFunc, error) {
		return func() error {
			// 取消时再操作 hub 不会死锁
			h.Cancel("other")
			return h.Subscribe("after", counting(&inner))
		}, nil
	}))
	require.NoError(t, h.Subscribe("other", counting(&inner)))

	assert.True(t, h.Cancel("outer"))
	assert.Equal(t, int32(1), inner.Load())
	assert.True(t, h.Has("after"))
}

func TestReentrantSubscribeFromFactory(t *testing.T) {
	h := NewHub(nil)
	var n atomic.Int32
	require.NoError(t, h.Subscribe("a", func() (store.CancelFunc, error) {
		require.NoError(t, h.Subscribe("b", counting(&n)))
		return counting(&n)()
	}))
	assert.Equal(t, []string{"a", "b"}, h.Keys())
}

func TestClosedHubRejectsSubscribe(t *testing.T) {
	h := NewHub(nil)
	var n atomic.Int32
	require.NoError(t, h.Subscribe("a", counting(&n)))
	h.Close()
	h.Close()
	assert.Equal(t, int32(1), n.Load())

	err := h.Subscribe("b", counting(&n))
	assert.ErrorIs(t, err, errs.ErrHubClosed)
	assert.Equal(t, 0, h.Len())
}

func TestConcurrentSubscribeCancel(t *testing.T) {
	h := NewHub(nil)
	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = h.Subscribe("k", counting(&n))
		}()
		go func() {
			defer wg.Done()
			h.CancelAll()
		}()
	}
	wg.Wait()
	h.CancelAll()
	assert.Equal(t, int32(50), n.Load())
}
