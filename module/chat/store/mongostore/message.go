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

// InsertMessage created_at 由 MongoDB $currentDate 生成
func (s *Store) InsertMessage(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = newID()
	}
	doc, err := toSetDoc(m, model.MessageFieldID, model.MessageFieldCreatedAt)
	if err != nil {
		return wrapErr(err, "encode message", "id", m.ID)
	}
	var out model.Message
	err = s.MsgColl.FindOneAndUpdate(ctx,
		bson.M{model.MessageFieldID: m.ID},
		bson.M{
			"$setOnInsert": doc,
			"$currentDate": bson.M{model.MessageFieldCreatedAt: true},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return wrapErr(err, "insert message", "id", m.ID)
	}
	m.CreatedAt = out.CreatedAt
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := s.MsgColl.FindOne(ctx, bson.M{model.MessageFieldID: id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("message not found", "id", id)
	}
	if err != nil {
		return nil, wrapErr(err, "get message", "id", id)
	}
	return &m, nil
}

func (s *Store) MarkMessageViewed(ctx context.Context, id string, viewedAt, expiresAt time.Time) (*model.Message, bool, error) {
	var m model.Message
	err := s.MsgColl.FindOneAndUpdate(ctx,
		bson.M{model.MessageFieldID: id, model.MessageFieldViewed: false},
		bson.M{"$set": bson.M{
			model.MessageFieldViewed:    true,
			model.MessageFieldViewedAt:  viewedAt,
			model.MessageFieldExpiresAt: expiresAt,
			model.MessageFieldStatus:    model.StatusViewed,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	switch {
	case err == nil:
		return &m, true, nil
	case err == mongo.ErrNoDocuments:
		// 不存在，或已被其他查看者抢先
		cur, gerr := s.GetMessage(ctx, id)
		return cur, false, gerr
	default:
		return nil, false, wrapErr(err, "mark viewed", "id", id)
	}
}

func (s *Store) TransitionStatus(ctx context.Context, id string, from, to model.Status) (bool, error) {
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MessageFieldID: id, model.MessageFieldStatus: from},
		bson.M{"$set": bson.M{model.MessageFieldStatus: to}},
	)
	if err != nil {
		return false, wrapErr(err, "transition status", "id", id, "to", to)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) IncScreenshots(ctx context.Context, id string) error {
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{model.MessageFieldID: id},
		bson.M{"$inc": bson.M{model.MessageFieldScreenshots: 1}},
	)
	if err != nil {
		return wrapErr(err, "inc screenshots", "id", id)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message not found", "id", id)
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, id string) (bool, error) {
	res, err := s.MsgColl.DeleteOne(ctx, bson.M{model.MessageFieldID: id})
	if err != nil {
		return false, wrapErr(err, "delete message", "id", id)
	}
	return res.DeletedCount > 0, nil
}

// notExpired expires_at 不存在或晚于 now
func notExpired(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{model.MessageFieldExpiresAt: bson.M{"$exists": false}},
		bson.M{model.MessageFieldExpiresAt: bson.M{"$gt": now}},
	}}
}

func (s *Store) ListMessages(ctx context.Context, key string, now time.Time, limit int) ([]*model.Message, error) {
	filter := bson.M{"$and": bson.A{
		bson.M{model.MessageFieldConversationKey: key},
		notExpired(now),
	}}
	// 倒序取最近 limit 条，再翻转为升序
	opts := options.Find().SetSort(bson.D{{Key: model.MessageFieldCreatedAt, Value: -1}, {Key: model.MessageFieldID, Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.MsgColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr(err, "list messages", "key", key)
	}
	out := make([]*model.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErr(err, "decode messages", "key", key)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) LatestMessage(ctx context.Context, key string, now time.Time) (*model.Message, error) {
	list, err := s.ListMessages(ctx, key, now, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (s *Store) ListExpiredMessages(ctx context.Context, now time.Time, limit int) ([]*model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: model.MessageFieldExpiresAt, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.MsgColl.Find(ctx, bson.M{model.MessageFieldExpiresAt: bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, wrapErr(err, "list expired messages")
	}
	out := make([]*model.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErr(err, "decode expired messages")
	}
	return out, nil
}

func (s *Store) InsertScreenshot(ctx context.Context, ev *model.ScreenshotEvent) error {
	if ev.ID == "" {
		ev.ID = newID()
	}
	_, err := s.ScreenshotColl.InsertOne(ctx, ev)
	return wrapErr(err, "insert screenshot", "message", ev.MessageID)
}

// messageWatchPipeline 删除事件没有 fullDocument，按删除前镜像的收发双方过滤
func messageWatchPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"fullDocument." + model.MessageFieldSenderID: userID},
			bson.M{"fullDocument." + model.MessageFieldRecipientID: userID},
			bson.M{"operationType": "delete", "fullDocumentBeforeChange." + model.MessageFieldSenderID: userID},
			bson.M{"operationType": "delete", "fullDocumentBeforeChange." + model.MessageFieldRecipientID: userID},
		}}}},
	}
}

func (s *Store) WatchMessages(ctx context.Context, userID string, h store.Handler[model.Message], onErr store.ErrorHandler) (store.CancelFunc, error) {
	return watch(ctx, s.log, s.MsgColl, messageWatchPipeline(userID), h, onErr)
}
