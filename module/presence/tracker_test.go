package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store/memstore"
	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(cfg Config) (*Tracker, *memstore.Store, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	st := memstore.New(clk)
	return NewTracker(st, clk, cfg, nil), st, clk
}

func TestStartHeartbeatStop(t *testing.T) {
	ctx := context.Background()
	tr, st, clk := setup(Config{})
	start := clk.Now()

	require.NoError(t, tr.Start(ctx, "A"))
	p, _ := st.GetPresence(ctx, "A")
	assert.True(t, p.Online)
	assert.Equal(t, start, p.LastHeartbeat)

	clk.Add(DefaultHeartbeat)
	assert.Eventually(t, func() bool {
		p, _ := st.GetPresence(ctx, "A")
		return p.LastHeartbeat.Equal(start.Add(DefaultHeartbeat))
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, tr.Stop(ctx, "A"))
	p, _ = st.GetPresence(ctx, "A")
	assert.False(t, p.Online)
	assert.Zero(t, tr.Tracking())
}

func TestRefCountedConnections(t *testing.T) {
	ctx := context.Background()
	tr, st, _ := setup(Config{})

	require.NoError(t, tr.Start(ctx, "A"))
	require.NoError(t, tr.Start(ctx, "A"))
	assert.Equal(t, 1, tr.Tracking())

	require.NoError(t, tr.Stop(ctx, "A"))
	p, _ := st.GetPresence(ctx, "A")
	assert.True(t, p.Online)

	require.NoError(t, tr.Stop(ctx, "A"))
	p, _ = st.GetPresence(ctx, "A")
	assert.False(t, p.Online)
}

func TestStopUntrackedMarksOffline(t *testing.T) {
	ctx := context.Background()
	tr, st, _ := setup(Config{})
	require.NoError(t, tr.Stop(ctx, "ghost"))
	p, _ := st.GetPresence(ctx, "ghost")
	assert.False(t, p.Online)
}

func TestReconnectRacingDisconnectStaysOnline(t *testing.T) {
	ctx := context.Background()
	tr, st, _ := setup(Config{})

	for i := 0; i < 200; i++ {
		require.NoError(t, tr.Start(ctx, "A"))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Stop(ctx, "A"))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Start(ctx, "A"))
		}()
		wg.Wait()

		p, err := st.GetPresence(ctx, "A")
		require.NoError(t, err)
		require.True(t, p.Online, "round %d", i)
		assert.Equal(t, 1, tr.Tracking())

		require.NoError(t, tr.Stop(ctx, "A"))
		p, _ = st.GetPresence(ctx, "A")
		require.False(t, p.Online)
	}
	assert.Empty(t, tr.locks)
}

func TestStaleHeartbeatReadsOffline(t *testing.T) {
	ctx := context.Background()
	tr, st, clk := setup(Config{StaleAfter: time.Minute})
	require.NoError(t, st.SetPresence(ctx, model.Presence{UserID: "A", Online: true, LastHeartbeat: clk.Now()}))

	p, err := tr.Get(ctx, "A")
	require.NoError(t, err)
	assert.True(t, p.Online)

	clk.Add(2 * time.Minute)
	p, err = tr.Get(ctx, "A")
	require.NoError(t, err)
	assert.False(t, p.Online)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := setup(Config{})

	var mu sync.Mutex
	var got []bool
	cancel, err := tr.Subscribe(ctx, "A", func(p model.Presence) {
		mu.Lock()
		got = append(got, p.Online)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)

	require.NoError(t, tr.Start(ctx, "A"))
	require.NoError(t, tr.Stop(ctx, "A"))
	require.NoError(t, cancel())
	require.NoError(t, tr.Start(ctx, "A"))
	tr.Close(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, got)
}

func TestTyping(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := setup(Config{})
	key := model.ConversationKey("A", "B")

	var got []model.Typing
	cancel, err := tr.SubscribeTyping(ctx, key, func(ty model.Typing) { got = append(got, ty) }, nil)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, tr.SetTyping(ctx, key, "A", true))
	err = tr.SetTyping(ctx, key, "C", true)
	assert.Equal(t, errs.AuthorizationError, errs.Code(err))

	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].UserID)
	assert.True(t, got[0].Typing)
}

func TestCloseMarksEveryoneOffline(t *testing.T) {
	ctx := context.Background()
	tr, st, _ := setup(Config{})
	require.NoError(t, tr.Start(ctx, "A"))
	require.NoError(t, tr.Start(ctx, "B"))
	tr.Close(ctx)

	for _, uid := range []string{"A", "B"} {
		p, _ := st.GetPresence(ctx, uid)
		assert.False(t, p.Online, uid)
	}
	assert.Zero(t, tr.Tracking())
}
