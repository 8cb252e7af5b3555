package mongostore

import (
	"errors"
	"testing"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestToSetDocOmitsFields(t *testing.T) {
	m := &model.Message{ID: "m1", SenderID: "a", RecipientID: "b", TimerSeconds: 5, Status: model.StatusSent}
	doc, err := toSetDoc(m, model.MessageFieldID, model.MessageFieldCreatedAt)
	require.NoError(t, err)
	assert.NotContains(t, doc, "_id")
	assert.NotContains(t, doc, "created_at")
	assert.NotContains(t, doc, "expires_at")
	assert.Equal(t, "a", doc[model.MessageFieldSenderID])
	assert.Equal(t, false, doc[model.MessageFieldViewed])
}

func TestOpOf(t *testing.T) {
	cases := map[string]store.Op{"insert": store.OpAdded, "update": store.OpModified, "replace": store.OpModified, "delete": store.OpRemoved}
	for in, want := range cases {
		got, ok := opOf(in)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := opOf("invalidate")
	assert.False(t, ok)
}

func TestChangeEventDecode(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"operationType": "insert",
		"documentKey":   bson.M{"_id": "m1"},
		"fullDocument":  bson.M{"_id": "m1", "sender_id": "a", "timer_seconds": 3},
	})
	require.NoError(t, err)
	var ev changeEvent[model.Message]
	require.NoError(t, bson.Unmarshal(raw, &ev))
	assert.Equal(t, "m1", ev.DocumentKey.ID)
	require.NotNil(t, ev.FullDocument)
	assert.Equal(t, 3, ev.FullDocument.TimerSeconds)
}

func TestWrapErrIsStoreError(t *testing.T) {
	cause := errors.New("timeout")
	err := wrapErr(cause, "get message", "id", "m1")
	assert.ErrorIs(t, err, errs.ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, wrapErr(nil, "noop"))
}

func TestValidKeyPart(t *testing.T) {
	assert.True(t, validKeyPart("user-1"))
	assert.False(t, validKeyPart("a.b"))
	assert.False(t, validKeyPart("$x"))
	assert.False(t, validKeyPart(""))
}

func TestStoryRoundTripKeepsViewers(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st := model.Story{ID: "s1", Viewers: map[string]time.Time{"v": at}, ViewCount: 1}
	raw, err := bson.Marshal(st)
	require.NoError(t, err)
	var out model.Story
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.True(t, out.Viewers["v"].Equal(at))
}

func TestMessageWatchFiltersDeletesByParticipant(t *testing.T) {
	p := messageWatchPipeline("u")
	require.Len(t, p, 1)
	match, ok := p[0][0].Value.(bson.M)
	require.True(t, ok)
	or, ok := match["$or"].(bson.A)
	require.True(t, ok)

	var deletes []bson.M
	for _, c := range or {
		cond := c.(bson.M)
		if cond["operationType"] == "delete" {
			deletes = append(deletes, cond)
		}
	}
	require.Len(t, deletes, 2)
	for _, d := range deletes {
		assert.Len(t, d, 2)
	}
	assert.Equal(t, "u", deletes[0]["fullDocumentBeforeChange."+model.MessageFieldSenderID])
	assert.Equal(t, "u", deletes[1]["fullDocumentBeforeChange."+model.MessageFieldRecipientID])
}

func TestPreImagesCommand(t *testing.T) {
	cmd := preImagesCommand("message")
	assert.Equal(t, "collMod", cmd[0].Key)
	assert.Equal(t, "message", cmd[0].Value)
	assert.Equal(t, bson.M{"enabled": true}, cmd[1].Value)
}
