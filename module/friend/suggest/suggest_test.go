package suggest

import (
	"context"
	"testing"

	"FlashChat/module/chat/store/memstore"
	"FlashChat/module/friend/directory"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJaccard(t *testing.T) {
	assert.Zero(t, Jaccard(nil, []string{"a"}))
	assert.Zero(t, Jaccard([]string{"a"}, nil))
	assert.Zero(t, Jaccard(nil, nil))
	assert.Equal(t, 1.0, Jaccard([]string{"a", "b"}, []string{"b", "a"}))

	x := []string{"go", "chess", "jazz"}
	y := []string{"go", "jazz", "hiking", "tea"}
	assert.InDelta(t, 2.0/5.0, Jaccard(x, y), 1e-9)
	assert.Equal(t, Jaccard(x, y), Jaccard(y, x))
	assert.Equal(t, 2, SharedCount(x, y))

	assert.Equal(t, 1.0, Jaccard([]string{"a", "a"}, []string{"a"}))
}

func TestSuggestMergeOrder(t *testing.T) {
	ctx := context.Background()
	g := memstore.New(clock.NewMock())
	g.AddFriend("me", "f1")
	g.AddFriend("me", "f2")
	g.AddFriend("f1", "m1")
	g.AddFriend("f2", "m1")
	g.AddFriend("f1", "m2")
	g.AddFriend("f1", "c1")

	dir := directory.NewMemory()
	dir.SetContact("hash-c1", "c1")
	dir.SetContact("hash-f1", "f1")
	dir.SetInterests("me", "go", "chess", "jazz")
	dir.SetInterests("i1", "go", "chess")
	dir.SetInterests("i2", "go")
	dir.SetInterests("i3", "go", "chess", "rust", "tea")
	dir.SetInterests("m2", "go")

	svc := NewService(g, dir, nil)
	got, err := svc.Suggest(ctx, "me", []string{"hash-c1", "hash-f1"}, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.UserID)
	}
	// c1 同时是共同好友，保留通讯录来源；m2 同时兴趣相似，保留共同好友来源
	assert.Equal(t, []string{"c1", "m1", "m2", "i1", "i3", "i2"}, ids)
	assert.Equal(t, SourceContact, got[0].Source)
	assert.Equal(t, 2, got[1].Shared)
	assert.Equal(t, SourceMutual, got[2].Source)
	assert.Equal(t, SourceInterest, got[3].Source)
	assert.InDelta(t, 2.0/3.0, got[3].Score, 1e-9)
}

func TestInterestTieBrokenBySharedCount(t *testing.T) {
	xs := []Suggestion{
		{UserID: "a", Source: SourceInterest, Score: 0.5, Shared: 1},
		{UserID: "b", Source: SourceInterest, Score: 0.5, Shared: 3},
		{UserID: "c", Source: SourceMutual, Shared: 1},
	}
	Sort(xs)
	assert.Equal(t, "c", xs[0].UserID)
	assert.Equal(t, "b", xs[1].UserID)
	assert.Equal(t, "a", xs[2].UserID)
}

func TestSuggestLimit(t *testing.T) {
	ctx := context.Background()
	g := memstore.New(clock.NewMock())
	dir := directory.NewMemory()
	dir.SetInterests("me", "go")
	for _, id := range []string{"a", "b", "c"} {
		dir.SetInterests(id, "go")
	}
	got, err := NewService(g, dir, nil).Suggest(ctx, "me", nil, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
