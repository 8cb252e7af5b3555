package chat

import (
	"context"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
)

// Inbox 消息变更与送达回执
type Inbox interface {
	SubscribeInbox(ctx context.Context, userID string, h store.Handler[model.Message], onErr store.ErrorHandler) (store.CancelFunc, error)
	MarkDelivered(ctx context.Context, id, recipientID string) (bool, error)
}

// ConversationFeed 会话列表变更
type ConversationFeed interface {
	Subscribe(ctx context.Context, userID string, h store.Handler[model.Conversation], onErr store.ErrorHandler) (store.CancelFunc, error)
}

// Presence 在线与输入中状态
type Presence interface {
	Start(ctx context.Context, uid string) error
	Stop(ctx context.Context, uid string) error
	Subscribe(ctx context.Context, uid string, fn func(model.Presence), onErr store.ErrorHandler) (store.CancelFunc, error)
	SetTyping(ctx context.Context, conversationKey, uid string, typing bool) error
	SubscribeTyping(ctx context.Context, conversationKey string, fn func(model.Typing), onErr store.ErrorHandler) (store.CancelFunc, error)
}

type Deps struct {
	Inbox         Inbox
	Conversations ConversationFeed
	Presence      Presence
}
