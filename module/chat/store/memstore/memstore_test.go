package memstore

import (
	"context"
	"testing"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() (*Store, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(clk), clk
}

func TestMarkViewedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore()
	m := &model.Message{SenderID: "a", RecipientID: "b", ConversationKey: model.ConversationKey("a", "b"), TimerSeconds: 5, Status: model.StatusSent}
	require.NoError(t, s.InsertMessage(ctx, m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, clk.Now(), m.CreatedAt)

	now := clk.Now()
	got, won, err := s.MarkMessageViewed(ctx, m.ID, now, now.Add(5*time.Second))
	require.NoError(t, err)
	assert.True(t, won)
	assert.True(t, got.Consistent())

	again, won, err := s.MarkMessageViewed(ctx, m.ID, now.Add(time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, won)
	assert.Equal(t, *got.ExpiresAt, *again.ExpiresAt)

	_, _, err = s.MarkMessageViewed(ctx, "missing", now, now)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListMessagesHidesExpired(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore()
	key := model.ConversationKey("a", "b")
	var ids []string
	for i := 0; i < 3; i++ {
		m := &model.Message{SenderID: "a", RecipientID: "b", ConversationKey: key, TimerSeconds: 1}
		require.NoError(t, s.InsertMessage(ctx, m))
		ids = append(ids, m.ID)
		clk.Add(time.Second)
	}
	now := clk.Now()
	_, _, err := s.MarkMessageViewed(ctx, ids[0], now, now.Add(time.Second))
	require.NoError(t, err)

	list, err := s.ListMessages(ctx, key, now.Add(2*time.Second), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[1], list[0].ID)

	latest, err := s.LatestMessage(ctx, key, now)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)

	expired, err := s.ListExpiredMessages(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, ids[0], expired[0].ID)
}

func TestWatchMessagesFiltersByParticipant(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore()
	var got []store.Change[model.Message]
	cancel, err := s.WatchMessages(ctx, "b", func(c store.Change[model.Message]) { got = append(got, c) }, nil)
	require.NoError(t, err)

	mine := &model.Message{SenderID: "a", RecipientID: "b"}
	other := &model.Message{SenderID: "a", RecipientID: "c"}
	require.NoError(t, s.InsertMessage(ctx, mine))
	require.NoError(t, s.InsertMessage(ctx, other))
	_, err = s.DeleteMessage(ctx, mine.ID)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, store.OpAdded, got[0].Op)
	assert.Equal(t, store.OpRemoved, got[1].Op)
	assert.Nil(t, got[1].Doc)

	require.NoError(t, cancel())
	require.NoError(t, cancel())
	assert.Equal(t, 0, s.Watchers())
}

func TestRecordStoryViewIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore()
	st := &model.Story{OwnerID: "o", CreatedAt: clk.Now(), ExpiresAt: clk.Now().Add(model.StoryTTL)}
	require.NoError(t, s.InsertStory(ctx, st))

	for i := 0; i < 3; i++ {
		_, _, err := s.RecordStoryView(ctx, st.ID, "v", clk.Now())
		require.NoError(t, err)
	}
	got, err := s.GetStory(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)
	assert.Len(t, got.Viewers, 1)
}

func TestConversationOrdering(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore()
	_, err := s.EnsureConversation(ctx, model.ConversationKey("u", "z"), model.SortedPair("u", "z"), clk.Now())
	require.NoError(t, err)
	for _, peer := range []string{"p1", "p2"} {
		clk.Add(time.Minute)
		require.NoError(t, s.UpsertConversation(ctx, store.ConversationPatch{
			Key:           model.ConversationKey("u", peer),
			Participants:  model.SortedPair("u", peer),
			LastMessageAt: clk.Now(),
			UpdatedAt:     clk.Now(),
		}))
	}
	list, err := s.ListConversations(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "p2_u", list[0].ID)
	assert.Equal(t, "p1_u", list[1].ID)
	assert.Equal(t, "u_z", list[2].ID)
}
