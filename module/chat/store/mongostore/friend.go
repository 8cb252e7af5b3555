package mongostore

import (
	"context"
	"sort"

	"FlashChat/module/chat/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func activeFriend(owner string) bson.M {
	return bson.M{
		model.FriendFieldOwnerUserID: owner,
		model.FriendFieldStatus:      model.FriendStatusAccepted,
		model.FriendFieldIsBlocked:   false,
	}
}

// AreFriends 以 a 的好友列表为准
func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	filter := activeFriend(a)
	filter[model.FriendFieldFriendUserID] = b
	n, err := s.FriendColl.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, wrapErr(err, "are friends", "a", a, "b", b)
	}
	return n > 0, nil
}

func (s *Store) Friends(ctx context.Context, userID string) ([]string, error) {
	cur, err := s.FriendColl.Find(ctx, activeFriend(userID),
		options.Find().SetProjection(bson.M{model.FriendFieldFriendUserID: 1}))
	if err != nil {
		return nil, wrapErr(err, "list friends", "user", userID)
	}
	var rows []model.Friend
	if err := cur.All(ctx, &rows); err != nil {
		return nil, wrapErr(err, "decode friends", "user", userID)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.FriendUserID)
	}
	sort.Strings(out)
	return out, nil
}
