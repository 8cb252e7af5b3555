package mongostore

import (
	"context"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertConversation 合并写，preview 仅在 HasPreview 时覆盖
func (s *Store) UpsertConversation(ctx context.Context, p store.ConversationPatch) error {
	set := bson.M{
		model.ConversationFieldParticipants:  p.Participants,
		model.ConversationFieldLastMessageID: p.LastMessageID,
		model.ConversationFieldLastMessageAt: p.LastMessageAt,
		model.ConversationFieldLastSenderID:  p.LastSenderID,
		model.ConversationFieldUpdatedAt:     p.UpdatedAt,
	}
	if p.HasPreview {
		set[model.ConversationFieldPreview] = p.Preview
	}
	_, err := s.ConvColl.UpdateOne(ctx,
		bson.M{model.ConversationFieldID: p.Key},
		bson.M{
			"$setOnInsert": bson.M{model.ConversationFieldCreatedAt: p.UpdatedAt},
			"$set":         set,
		},
		options.Update().SetUpsert(true),
	)
	return wrapErr(err, "upsert conversation", "key", p.Key)
}

func (s *Store) EnsureConversation(ctx context.Context, key string, participants [2]string, at time.Time) (bool, error) {
	res, err := s.ConvColl.UpdateOne(ctx,
		bson.M{model.ConversationFieldID: key},
		bson.M{"$setOnInsert": bson.M{
			model.ConversationFieldParticipants: participants,
			model.ConversationFieldCreatedAt:    at,
			model.ConversationFieldUpdatedAt:    at,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, wrapErr(err, "ensure conversation", "key", key)
	}
	return res.UpsertedCount > 0, nil
}

func (s *Store) GetConversation(ctx context.Context, key string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{model.ConversationFieldID: key}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("conversation not found", "key", key)
	}
	if err != nil {
		return nil, wrapErr(err, "get conversation", "key", key)
	}
	return &c, nil
}

// ListConversations 缺少 last_message_at 的文档在倒序中自然排在最后
func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]*model.Conversation, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: model.ConversationFieldLastMessageAt, Value: -1},
		{Key: model.ConversationFieldID, Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.ConvColl.Find(ctx, bson.M{model.ConversationFieldParticipants: userID}, opts)
	if err != nil {
		return nil, wrapErr(err, "list conversations", "user", userID)
	}
	out := make([]*model.Conversation, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErr(err, "decode conversations", "user", userID)
	}
	return out, nil
}

func (s *Store) WatchConversations(ctx context.Context, userID string, h store.Handler[model.Conversation], onErr store.ErrorHandler) (store.CancelFunc, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"fullDocument." + model.ConversationFieldParticipants: userID}}},
	}
	return watch(ctx, s.log, s.ConvColl, pipeline, h, onErr)
}
