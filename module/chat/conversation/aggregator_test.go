package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/module/chat/store/memstore"
	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup() (*Aggregator, *memstore.Store, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	st := memstore.New(clk)
	return NewAggregator(st, st, clk, nil), st, clk
}

func TestUpsertPreviewPerspective(t *testing.T) {
	ctx := context.Background()
	a, _, clk := setup()
	require.NoError(t, a.Upsert(ctx, UpsertRequest{SenderID: "A", RecipientID: "B", MessageID: "m1", At: clk.Now(), PreviewText: "hi"}))

	fromA, err := a.ListSummaries(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, fromA, 1)
	assert.Equal(t, "You: hi", fromA[0].ViewPreview)
	assert.Equal(t, "B", fromA[0].PeerID)

	fromB, err := a.ListSummaries(ctx, "B", 0)
	require.NoError(t, err)
	assert.Equal(t, "hi", fromB[0].ViewPreview)
	assert.Equal(t, model.ConversationKey("A", "B"), fromB[0].ID)
}

func TestUpsertKeepsPreviewWhenEmpty(t *testing.T) {
	ctx := context.Background()
	a, st, clk := setup()
	require.NoError(t, a.Upsert(ctx, UpsertRequest{SenderID: "A", RecipientID: "B", MessageID: "m1", PreviewKind: model.MediaPhoto}))
	clk.Add(time.Second)
	require.NoError(t, a.Upsert(ctx, UpsertRequest{SenderID: "B", RecipientID: "A", MessageID: "m2"}))

	c, err := st.GetConversation(ctx, "A_B")
	require.NoError(t, err)
	assert.Equal(t, model.PreviewPhoto, c.Preview)
	assert.Equal(t, "m2", c.LastMessageID)
	assert.Equal(t, "B", c.LastSenderID)
	assert.Equal(t, clk.Now(), *c.LastMessageAt)
}

func TestUpsertTruncatesLongText(t *testing.T) {
	ctx := context.Background()
	a, st, _ := setup()
	require.NoError(t, a.Upsert(ctx, UpsertRequest{SenderID: "A", RecipientID: "B", PreviewText: strings.Repeat("x", 40)}))
	c, err := st.GetConversation(ctx, "A_B")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 30)+"...", c.Preview)
}

func TestStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a, _, _ := setup()
	c1, err := a.Start(ctx, "B", "A")
	require.NoError(t, err)
	assert.Nil(t, c1.LastMessageAt)
	c2, err := a.Start(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)

	_, err = a.Start(ctx, "A", "A")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestListRecentOrder(t *testing.T) {
	ctx := context.Background()
	a, _, clk := setup()
	_, err := a.Start(ctx, "me", "quiet")
	require.NoError(t, err)
	for _, peer := range []string{"old", "new"} {
		clk.Add(time.Minute)
		require.NoError(t, a.Upsert(ctx, UpsertRequest{SenderID: peer, RecipientID: "me", At: clk.Now(), PreviewText: "yo"}))
	}
	list, err := a.ListRecent(ctx, "me", 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "me_new", list[0].ID)
	assert.Equal(t, "me_old", list[1].ID)
	assert.Equal(t, "me_quiet", list[2].ID)
}

func TestBackfillFromLatestMessage(t *testing.T) {
	ctx := context.Background()
	a, st, _ := setup()
	_, err := a.Start(ctx, "A", "B")
	require.NoError(t, err)
	require.NoError(t, st.InsertMessage(ctx, &model.Message{SenderID: "A", RecipientID: "B", ConversationKey: "A_B", Text: "legacy"}))

	out, err := a.ListSummaries(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "You: legacy", out[0].ViewPreview)

	stored, err := st.GetConversation(ctx, "A_B")
	require.NoError(t, err)
	assert.Empty(t, stored.Preview)
}

func TestSubscribeSeesUpserts(t *testing.T) {
	ctx := context.Background()
	a, _, _ := setup()
	var got []store.Change[model.Conversation]
	cancel, err := a.Subscribe(ctx, "B", func(c store.Change[model.Conversation]) { got = append(got, c) }, nil)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, a.Upsert(ctx, UpsertRequest{SenderID: "A", RecipientID: "B", PreviewText: "hey"}))
	require.NoError(t, a.Upsert(ctx, UpsertRequest{SenderID: "A", RecipientID: "C", PreviewText: "hey"}))
	require.Len(t, got, 1)
	assert.Equal(t, "hey", got[0].Doc.Preview)
}
