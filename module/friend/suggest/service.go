package suggest

import (
	"context"
	"sort"

	"FlashChat/logger"
	"FlashChat/module/chat/store"
	"FlashChat/module/friend/directory"
	"FlashChat/tools/errs"

	"go.uber.org/zap"
)

type Source string

const (
	SourceContact  Source = "contact"
	SourceMutual   Source = "mutual_friend"
	SourceInterest Source = "interest"
)

// 数值越小越靠前
var priority = map[Source]int{
	SourceContact:  0,
	SourceMutual:   1,
	SourceInterest: 2,
}

const (
	DefaultLimit       = 20
	interestCandidates = 200
)

type Suggestion struct {
	UserID string  `json:"userId"`
	Source Source  `json:"source"`
	Score  float64 `json:"score,omitempty"`
	// Shared 共同好友数或共同兴趣数
	Shared int `json:"shared"`
}

type Service struct {
	friends store.FriendGraph
	dir     directory.Directory
	log     *zap.Logger
}

func NewService(friends store.FriendGraph, dir directory.Directory, log *zap.Logger) *Service {
	return &Service{friends: friends, dir: dir, log: logger.Or(log).Named("suggest")}
}

// Suggest 合并通讯录、共同好友、兴趣相似三路结果；同一用户只保留优先级最高的一条
func (s *Service) Suggest(ctx context.Context, userID string, contactHashes []string, limit int) ([]Suggestion, error) {
	if userID == "" {
		return nil, errs.ErrValidation.WrapMsg("user id required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	friends, err := s.friends.Friends(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude := map[string]struct{}{userID: {}}
	for _, f := range friends {
		exclude[f] = struct{}{}
	}

	best := map[string]Suggestion{}
	offer := func(c Suggestion) {
		if _, skip := exclude[c.UserID]; skip {
			return
		}
		if cur, ok := best[c.UserID]; ok && priority[cur.Source] <= priority[c.Source] {
			return
		}
		best[c.UserID] = c
	}

	if s.dir != nil && len(contactHashes) > 0 {
		ids, err := s.dir.LookupContacts(ctx, contactHashes)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			offer(Suggestion{UserID: id, Source: SourceContact})
		}
	}

	mutual := map[string]int{}
	for _, f := range friends {
		fof, err := s.friends.Friends(ctx, f)
		if err != nil {
			s.log.Warn("friends of friend failed", zap.String("friend", f), zap.Error(err))
			continue
		}
		for _, id := range fof {
			mutual[id]++
		}
	}
	for id, n := range mutual {
		offer(Suggestion{UserID: id, Source: SourceMutual, Shared: n})
	}

	if s.dir != nil {
		mine, err := s.dir.Interests(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(mine) > 0 {
			others, err := s.dir.SharingInterests(ctx, userID, mine, interestCandidates)
			if err != nil {
				return nil, err
			}
			for id, tags := range others {
				score := Jaccard(mine, tags)
				if score == 0 {
					continue
				}
				offer(Suggestion{UserID: id, Source: SourceInterest, Score: score, Shared: SharedCount(mine, tags)})
			}
		}
	}

	out := make([]Suggestion, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	Sort(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Sort 来源优先级 > 相似度 > 共同数量 > 用户 ID
func Sort(xs []Suggestion) {
	sort.Slice(xs, func(i, j int) bool {
		a, b := xs[i], xs[j]
		if pa, pb := priority[a.Source], priority[b.Source]; pa != pb {
			return pa < pb
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Shared != b.Shared {
			return a.Shared > b.Shared
		}
		return a.UserID < b.UserID
	})
}
