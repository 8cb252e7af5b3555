package model

import (
	"time"
)

const (
	MessageTableName    = "message"
	ScreenshotTableName = "screenshot"

	// MaxTextRunes 文本消息长度上限（按字符计）
	MaxTextRunes = 500
	// DefaultTimerSeconds 未指定计时器时的默认阅后销毁秒数
	DefaultTimerSeconds = 5
)

// AllowedTimers 可选的阅后销毁秒数
var AllowedTimers = []int{1, 3, 5, 10, 15, 30, 60}

type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool { return k == MediaPhoto || k == MediaVideo }

// MediaRef 媒体引用：上传到 MediaStore 之后得到的持久 URL
type MediaRef struct {
	URL         string    `bson:"url" json:"url"`
	Kind        MediaKind `bson:"kind" json:"kind"`
	ContentType string    `bson:"content_type,omitempty" json:"contentType,omitempty"`
}

// Status 消息状态。expired 不落库，由 ExpiresAt 与当前时间比较推断
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusViewed    Status = "viewed"
	StatusExpired   Status = "expired"
)

// Message 阅后即焚消息
type Message struct {
	ID              string    `bson:"_id" json:"id"`
	SenderID        string    `bson:"sender_id" json:"senderId"`
	RecipientID     string    `bson:"recipient_id" json:"recipientId"`
	ConversationKey string    `bson:"conversation_key" json:"conversationKey"`
	Text            string    `bson:"text,omitempty" json:"text,omitempty"`
	Media           *MediaRef `bson:"media,omitempty" json:"media,omitempty"`
	TimerSeconds    int       `bson:"timer_seconds" json:"timerSeconds"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"` // 服务端时间

	Viewed    bool       `bson:"viewed" json:"viewed"`
	ViewedAt  *time.Time `bson:"viewed_at,omitempty" json:"viewedAt,omitempty"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expiresAt,omitempty"` // 仅在 viewed=true 时存在
	Status    Status     `bson:"status" json:"status"`

	Screenshots int `bson:"screenshots" json:"screenshots"`
}

func (m *Message) GetTableName() string { return MessageTableName }

// Timer 阅后销毁时长
func (m *Message) Timer() time.Duration {
	return time.Duration(m.TimerSeconds) * time.Second
}

// IsParticipant 发送者或接收者
func (m *Message) IsParticipant(userID string) bool {
	return userID != "" && (userID == m.SenderID || userID == m.RecipientID)
}

// IsExpired 已查看且到达过期时间
func (m *Message) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// EffectiveStatus 读侧状态：过期的消息报告 expired
func (m *Message) EffectiveStatus(now time.Time) Status {
	if m.IsExpired(now) {
		return StatusExpired
	}
	return m.Status
}

// MarkViewed 第一次查看：写入 viewedAt/expiresAt 并切到 viewed
func (m *Message) MarkViewed(at time.Time) {
	exp := at.Add(m.Timer())
	m.Viewed = true
	m.ViewedAt = &at
	m.ExpiresAt = &exp
	m.Status = StatusViewed
}

// Consistent 检查 expiresAt 存在 当且仅当 viewed，且等于 viewedAt + timer
func (m *Message) Consistent() bool {
	if !m.Viewed {
		return m.ExpiresAt == nil && m.ViewedAt == nil
	}
	if m.ExpiresAt == nil || m.ViewedAt == nil {
		return false
	}
	return m.ExpiresAt.Equal(m.ViewedAt.Add(m.Timer()))
}

// PreviewKind 会话预览的来源类型
func (m *Message) PreviewKind() MediaKind {
	if m.Media == nil {
		return ""
	}
	return m.Media.Kind
}

// Clone 深拷贝，内存存储返回副本用
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Media != nil {
		media := *m.Media
		c.Media = &media
	}
	if m.ViewedAt != nil {
		t := *m.ViewedAt
		c.ViewedAt = &t
	}
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// ValidTimer 是否在可选计时器集合中
func ValidTimer(seconds int, allowed []int) bool {
	if len(allowed) == 0 {
		allowed = AllowedTimers
	}
	for _, s := range allowed {
		if s == seconds {
			return true
		}
	}
	return false
}

// ScreenshotEvent 截图记录
type ScreenshotEvent struct {
	ID        string    `bson:"_id" json:"id"`
	MessageID string    `bson:"message_id" json:"messageId"`
	ViewerID  string    `bson:"viewer_id" json:"viewerId"`
	SenderID  string    `bson:"sender_id" json:"senderId"`
	At        time.Time `bson:"at" json:"at"`
}

func (s *ScreenshotEvent) GetTableName() string { return ScreenshotTableName }

// bson 字段名
const (
	MessageFieldID              = "_id"
	MessageFieldSenderID        = "sender_id"
	MessageFieldRecipientID     = "recipient_id"
	MessageFieldConversationKey = "conversation_key"
	MessageFieldCreatedAt       = "created_at"
	MessageFieldViewed          = "viewed"
	MessageFieldViewedAt        = "viewed_at"
	MessageFieldExpiresAt       = "expires_at"
	MessageFieldStatus          = "status"
	MessageFieldScreenshots     = "screenshots"
)
