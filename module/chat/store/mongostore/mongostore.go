// Package mongostore implements the document-store collaborators on MongoDB.
package mongostore

import (
	"context"
	"strings"

	"FlashChat/data/database"
	"FlashChat/logger"
	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var _ store.DocumentStore = (*Store)(nil)

type Store struct {
	MsgColl        *mongo.Collection // message
	ScreenshotColl *mongo.Collection // screenshot
	ConvColl       *mongo.Collection // conversation
	StoryColl      *mongo.Collection // story
	FriendColl     *mongo.Collection // friend

	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		MsgColl:        database.Collection(db, &model.Message{}),
		ScreenshotColl: database.Collection(db, &model.ScreenshotEvent{}),
		ConvColl:       database.Collection(db, &model.Conversation{}),
		StoryColl:      database.Collection(db, &model.Story{}),
		FriendColl:     database.Collection(db, &model.Friend{}),
		log:            logger.Or(log).Named("mongostore"),
	}
}

// EnsureIndexes 启动时建索引，重复执行无副作用
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.MsgColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: model.MessageFieldConversationKey, Value: 1}, {Key: model.MessageFieldCreatedAt, Value: 1}}},
			{Keys: bson.D{{Key: model.MessageFieldExpiresAt, Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: model.MessageFieldSenderID, Value: 1}}},
			{Keys: bson.D{{Key: model.MessageFieldRecipientID, Value: 1}}},
		}},
		{s.ScreenshotColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "message_id", Value: 1}}},
		}},
		{s.ConvColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: model.ConversationFieldParticipants, Value: 1}, {Key: model.ConversationFieldLastMessageAt, Value: -1}}},
		}},
		{s.StoryColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: model.StoryFieldOwnerID, Value: 1}, {Key: model.StoryFieldExpiresAt, Value: 1}}},
			{Keys: bson.D{{Key: model.StoryFieldExpiresAt, Value: 1}}},
		}},
		{s.FriendColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: model.FriendFieldOwnerUserID, Value: 1}, {Key: model.FriendFieldFriendUserID, Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return wrapErr(err, "create indexes", "coll", spec.coll.Name())
		}
	}
	// 删除事件靠前镜像按参与者过滤，需要 MongoDB 6.0+
	if err := s.MsgColl.Database().RunCommand(ctx, preImagesCommand(s.MsgColl.Name())).Err(); err != nil {
		s.log.Warn("enable change stream pre-images failed, removals will not be pushed",
			zap.String("coll", s.MsgColl.Name()), zap.Error(err))
	}
	return nil
}

func preImagesCommand(coll string) bson.D {
	return bson.D{
		{Key: "collMod", Value: coll},
		{Key: "changeStreamPreAndPostImages", Value: bson.M{"enabled": true}},
	}
}

// wrapErr 驱动错误统一转成 ErrStore，保留原始错误链
func wrapErr(err error, op string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errs.ErrStore.WrapCause(errors.Wrap(err, "mongo"), op, kv...)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// toSetDoc 结构体转 bson.M，去掉 omit 中的字段
func toSetDoc(v any, omit ...string) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for _, k := range omit {
		delete(m, k)
	}
	return m, nil
}

// validKeyPart 作为字段路径一部分的 ID 不能带 . 或 $
func validKeyPart(id string) bool {
	return id != "" && !strings.ContainsAny(id, ".$")
}
