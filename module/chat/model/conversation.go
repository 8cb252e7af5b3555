package model

import (
	"time"
	"unicode/utf8"
)

const (
	ConversationTableName = "conversation"

	PreviewPhoto = "📷 Photo"
	PreviewVideo = "🎥 Video"
	// PreviewTextRunes 文本预览截断长度
	PreviewTextRunes = 30
	previewEllipsis  = "..."
	previewSelf      = "You: "
)

// Conversation 单聊会话摘要，每对参与者最多一条，按 ConversationKey 作主键
type Conversation struct {
	ID            string     `bson:"_id" json:"id"`
	Participants  [2]string  `bson:"participants" json:"participants"`
	LastMessageID string     `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastMessageAt *time.Time `bson:"last_message_at,omitempty" json:"lastMessageAt,omitempty"`
	LastSenderID  string     `bson:"last_sender_id,omitempty" json:"lastSenderId,omitempty"`
	Preview       string     `bson:"preview,omitempty" json:"preview,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updatedAt"`
}

func (c *Conversation) GetTableName() string { return ConversationTableName }

// Peer 会话中的另一方
func (c *Conversation) Peer(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.Participants[0] == userID || c.Participants[1] == userID)
}

// PreviewFor 按查看者视角渲染预览：自己发的最后一条加 "You: " 前缀
func (c *Conversation) PreviewFor(viewerID string) string {
	if c.Preview == "" {
		return ""
	}
	if viewerID != "" && c.LastSenderID == viewerID {
		return previewSelf + c.Preview
	}
	return c.Preview
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	if c.LastMessageAt != nil {
		t := *c.LastMessageAt
		cp.LastMessageAt = &t
	}
	return &cp
}

// BuildPreview 图片/视频为固定文案，文本按 PreviewTextRunes 截断加省略号；都没有时 ok=false
func BuildPreview(text string, kind MediaKind) (preview string, ok bool) {
	switch kind {
	case MediaPhoto:
		return PreviewPhoto, true
	case MediaVideo:
		return PreviewVideo, true
	}
	if text == "" {
		return "", false
	}
	if utf8.RuneCountInString(text) <= PreviewTextRunes {
		return text, true
	}
	r := []rune(text)
	return string(r[:PreviewTextRunes]) + previewEllipsis, true
}

const (
	ConversationFieldID            = "_id"
	ConversationFieldParticipants  = "participants"
	ConversationFieldLastMessageID = "last_message_id"
	ConversationFieldLastMessageAt = "last_message_at"
	ConversationFieldLastSenderID  = "last_sender_id"
	ConversationFieldPreview       = "preview"
	ConversationFieldCreatedAt     = "created_at"
	ConversationFieldUpdatedAt     = "updated_at"
)
