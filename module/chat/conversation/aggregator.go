// Package conversation maintains the per-pair conversation summaries.
package conversation

import (
	"context"
	"time"

	"FlashChat/logger"
	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const defaultListLimit = 50

type UpsertRequest struct {
	SenderID    string
	RecipientID string
	MessageID   string
	At          time.Time // 消息的服务端时间
	PreviewText string
	PreviewKind model.MediaKind
}

// Summary 会话列表项，预览已按查看者视角渲染
type Summary struct {
	*model.Conversation
	PeerID      string `json:"peerId"`
	ViewPreview string `json:"viewPreview"`
}

type Aggregator struct {
	convs store.ConversationStore
	msgs  store.MessageStore
	clk   clock.Clock
	log   *zap.Logger
}

func NewAggregator(convs store.ConversationStore, msgs store.MessageStore, clk clock.Clock, log *zap.Logger) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{convs: convs, msgs: msgs, clk: clk, log: logger.Or(log).Named("conversation")}
}

// Upsert 合并写会话摘要；没有文本和媒体时不覆盖原预览
func (a *Aggregator) Upsert(ctx context.Context, req UpsertRequest) error {
	if req.SenderID == "" || req.RecipientID == "" {
		return errs.ErrValidation.WrapMsg("conversation needs two participants")
	}
	preview, ok := model.BuildPreview(req.PreviewText, req.PreviewKind)
	at := req.At
	if at.IsZero() {
		at = a.clk.Now()
	}
	return a.convs.UpsertConversation(ctx, store.ConversationPatch{
		Key:           model.ConversationKey(req.SenderID, req.RecipientID),
		Participants:  model.SortedPair(req.SenderID, req.RecipientID),
		LastMessageID: req.MessageID,
		LastMessageAt: at,
		LastSenderID:  req.SenderID,
		Preview:       preview,
		HasPreview:    ok,
		UpdatedAt:     a.clk.Now(),
	})
}

// Start 用户主动打开会话，尚无消息时只建参与者
func (a *Aggregator) Start(ctx context.Context, userID, peerID string) (*model.Conversation, error) {
	if userID == "" || peerID == "" || userID == peerID {
		return nil, errs.ErrValidation.WrapMsg("invalid conversation participants", "user", userID, "peer", peerID)
	}
	key := model.ConversationKey(userID, peerID)
	created, err := a.convs.EnsureConversation(ctx, key, model.SortedPair(userID, peerID), a.clk.Now())
	if err != nil {
		return nil, err
	}
	if created {
		a.log.Debug("conversation started", zap.String("key", key))
	}
	return a.convs.GetConversation(ctx, key)
}

// ListRecent 按最后消息时间倒序
func (a *Aggregator) ListRecent(ctx context.Context, userID string, limit int) ([]*model.Conversation, error) {
	if userID == "" {
		return nil, errs.ErrValidation.WrapMsg("user id required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return a.convs.ListConversations(ctx, userID, limit)
}

// ListSummaries ListRecent 加上预览回填和视角渲染
func (a *Aggregator) ListSummaries(ctx context.Context, userID string, limit int) ([]Summary, error) {
	convs, err := a.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	a.BackfillPreviews(ctx, convs)
	out := make([]Summary, 0, len(convs))
	for _, c := range convs {
		out = append(out, Summary{Conversation: c, PeerID: c.Peer(userID), ViewPreview: c.PreviewFor(userID)})
	}
	return out, nil
}

// BackfillPreviews 预览为空的会话取最新未过期消息推导预览，只改返回值不回写
func (a *Aggregator) BackfillPreviews(ctx context.Context, convs []*model.Conversation) {
	if a.msgs == nil {
		return
	}
	now := a.clk.Now()
	for _, c := range convs {
		if c.Preview != "" {
			continue
		}
		m, err := a.msgs.LatestMessage(ctx, c.ID, now)
		if err != nil {
			a.log.Warn("backfill preview", zap.String("key", c.ID), zap.Error(err))
			continue
		}
		if m == nil {
			continue
		}
		if p, ok := model.BuildPreview(m.Text, m.PreviewKind()); ok {
			c.Preview = p
			c.LastSenderID = m.SenderID
		}
	}
}

// Subscribe 用户参与的会话变更
func (a *Aggregator) Subscribe(ctx context.Context, userID string, h store.Handler[model.Conversation], onErr store.ErrorHandler) (store.CancelFunc, error) {
	return a.convs.WatchConversations(ctx, userID, h, onErr)
}
