// Package store declares the persistence collaborators the lifecycle managers
// depend on. mongostore and memstore implement them.
package store

import (
	"context"
	"time"

	"FlashChat/module/chat/model"
)

type Op string

const (
	OpAdded    Op = "added"
	OpModified Op = "modified"
	OpRemoved  Op = "removed"
)

// Change 一条变更事件；removed 时 Doc 为空，只有 ID
type Change[T any] struct {
	Op  Op
	ID  string
	Doc *T
}

type Handler[T any] func(Change[T])

// ErrorHandler 订阅出错时回调，订阅随后结束
type ErrorHandler func(error)

// CancelFunc 取消订阅，重复调用安全
type CancelFunc func() error

// ConversationPatch 会话合并写：只覆盖给出的字段，不存在则创建
type ConversationPatch struct {
	Key           string
	Participants  [2]string
	LastMessageID string
	LastMessageAt time.Time
	LastSenderID  string
	Preview       string
	HasPreview    bool
	UpdatedAt     time.Time
}

type MessageStore interface {
	// InsertMessage 分配 ID 与服务端 CreatedAt，回写到 m
	InsertMessage(ctx context.Context, m *model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	// MarkMessageViewed 仅当 viewed=false 时写入；won=false 时返回当前存储状态
	MarkMessageViewed(ctx context.Context, id string, viewedAt, expiresAt time.Time) (msg *model.Message, won bool, err error)
	// TransitionStatus 状态为 from 时切换为 to
	TransitionStatus(ctx context.Context, id string, from, to model.Status) (bool, error)
	IncScreenshots(ctx context.Context, id string) error
	// DeleteMessage 不存在时 deleted=false 且无错误
	DeleteMessage(ctx context.Context, id string) (deleted bool, err error)
	// ListMessages 会话内 created_at 升序，排除 expires_at <= now 的消息
	ListMessages(ctx context.Context, conversationKey string, now time.Time, limit int) ([]*model.Message, error)
	// LatestMessage 会话内最新的未过期消息，没有时返回 nil
	LatestMessage(ctx context.Context, conversationKey string, now time.Time) (*model.Message, error)
	ListExpiredMessages(ctx context.Context, now time.Time, limit int) ([]*model.Message, error)
	// WatchMessages 用户作为发送者或接收者的消息变更。
	// removed 事件无法按参与者过滤，订阅方按已知 ID 自行筛选
	WatchMessages(ctx context.Context, userID string, h Handler[model.Message], onErr ErrorHandler) (CancelFunc, error)
}

type ScreenshotStore interface {
	InsertScreenshot(ctx context.Context, ev *model.ScreenshotEvent) error
}

type ConversationStore interface {
	UpsertConversation(ctx context.Context, p ConversationPatch) error
	// EnsureConversation 不存在时只带参与者创建
	EnsureConversation(ctx context.Context, key string, participants [2]string, at time.Time) (created bool, err error)
	GetConversation(ctx context.Context, key string) (*model.Conversation, error)
	// ListConversations 按 last_message_at 倒序，无消息的排最后
	ListConversations(ctx context.Context, userID string, limit int) ([]*model.Conversation, error)
	WatchConversations(ctx context.Context, userID string, h Handler[model.Conversation], onErr ErrorHandler) (CancelFunc, error)
}

type StoryStore interface {
	InsertStory(ctx context.Context, s *model.Story) error
	GetStory(ctx context.Context, id string) (*model.Story, error)
	// RecordStoryView viewers 中没有 viewerID 时写入并 view_count+1，返回最新状态
	RecordStoryView(ctx context.Context, id, viewerID string, at time.Time) (s *model.Story, recorded bool, err error)
	// ListStoriesByOwners 未过期故事，created_at 升序
	ListStoriesByOwners(ctx context.Context, owners []string, now time.Time) ([]*model.Story, error)
	DeleteStory(ctx context.Context, id string) (deleted bool, err error)
	ListExpiredStories(ctx context.Context, now time.Time, limit int) ([]*model.Story, error)
}

// FriendGraph 好友关系只读视图
type FriendGraph interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
	Friends(ctx context.Context, userID string) ([]string, error)
}

// DocumentStore 文档库的全部能力
type DocumentStore interface {
	MessageStore
	ScreenshotStore
	ConversationStore
	StoryStore
	FriendGraph
}

// MediaStore 媒体对象存储
type MediaStore interface {
	// Upload 返回可长期访问的 URL
	Upload(ctx context.Context, data []byte, contentType string, meta map[string]string) (string, error)
	// Delete 不存在时不报错
	Delete(ctx context.Context, url string) error
}

// PresenceStore 在线状态与输入中状态
type PresenceStore interface {
	SetPresence(ctx context.Context, p model.Presence) error
	// GetPresence 没有记录时返回 Online=false 的零值
	GetPresence(ctx context.Context, userID string) (model.Presence, error)
	WatchPresence(ctx context.Context, userID string, fn func(model.Presence), onErr ErrorHandler) (CancelFunc, error)
	PublishTyping(ctx context.Context, t model.Typing) error
	WatchTyping(ctx context.Context, conversationKey string, fn func(model.Typing), onErr ErrorHandler) (CancelFunc, error)
}

// MediaReader 可选能力：按 ID 读取媒体内容，供 HTTP 下载使用
type MediaReader interface {
	Open(ctx context.Context, id string) (data []byte, contentType string, err error)
}
