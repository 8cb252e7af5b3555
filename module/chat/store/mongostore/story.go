package mongostore

import (
	"context"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertStory(ctx context.Context, st *model.Story) error {
	if st.ID == "" {
		st.ID = newID()
	}
	if st.Viewers == nil {
		st.Viewers = map[string]time.Time{}
	}
	_, err := s.StoryColl.InsertOne(ctx, st)
	return wrapErr(err, "insert story", "id", st.ID)
}

func (s *Store) GetStory(ctx context.Context, id string) (*model.Story, error) {
	var st model.Story
	err := s.StoryColl.FindOne(ctx, bson.M{model.StoryFieldID: id}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("story not found", "id", id)
	}
	if err != nil {
		return nil, wrapErr(err, "get story", "id", id)
	}
	return &st, nil
}

// RecordStoryView 单条条件更新：viewers.<id> 不存在才写入并 $inc view_count
func (s *Store) RecordStoryView(ctx context.Context, id, viewerID string, at time.Time) (*model.Story, bool, error) {
	if !validKeyPart(viewerID) {
		return nil, false, errs.ErrValidation.WrapMsg("invalid viewer id", "viewer", viewerID)
	}
	path := model.StoryFieldViewers + "." + viewerID
	var st model.Story
	err := s.StoryColl.FindOneAndUpdate(ctx,
		bson.M{model.StoryFieldID: id, path: bson.M{"$exists": false}},
		bson.M{
			"$set": bson.M{path: at},
			"$inc": bson.M{model.StoryFieldViewCount: 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&st)
	switch {
	case err == nil:
		return &st, true, nil
	case err == mongo.ErrNoDocuments:
		cur, gerr := s.GetStory(ctx, id)
		return cur, false, gerr
	default:
		return nil, false, wrapErr(err, "record story view", "id", id)
	}
}

func (s *Store) ListStoriesByOwners(ctx context.Context, owners []string, now time.Time) ([]*model.Story, error) {
	if len(owners) == 0 {
		return []*model.Story{}, nil
	}
	cur, err := s.StoryColl.Find(ctx,
		bson.M{
			model.StoryFieldOwnerID:   bson.M{"$in": owners},
			model.StoryFieldExpiresAt: bson.M{"$gt": now},
		},
		options.Find().SetSort(bson.D{{Key: model.StoryFieldCreatedAt, Value: 1}, {Key: model.StoryFieldID, Value: 1}}),
	)
	if err != nil {
		return nil, wrapErr(err, "list stories", "owners", len(owners))
	}
	out := make([]*model.Story, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErr(err, "decode stories")
	}
	return out, nil
}

func (s *Store) DeleteStory(ctx context.Context, id string) (bool, error) {
	res, err := s.StoryColl.DeleteOne(ctx, bson.M{model.StoryFieldID: id})
	if err != nil {
		return false, wrapErr(err, "delete story", "id", id)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) ListExpiredStories(ctx context.Context, now time.Time, limit int) ([]*model.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: model.StoryFieldExpiresAt, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.StoryColl.Find(ctx, bson.M{model.StoryFieldExpiresAt: bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, wrapErr(err, "list expired stories")
	}
	out := make([]*model.Story, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErr(err, "decode expired stories")
	}
	return out, nil
}
