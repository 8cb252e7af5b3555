package model

import "time"

const (
	StoryTableName = "story"
	// StoryTTL 故事固定存活 24 小时
	StoryTTL = 24 * time.Hour
)

type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyFriends Privacy = "friends"
	PrivacyCustom  Privacy = "custom"
)

func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyFriends, PrivacyCustom:
		return true
	}
	return false
}

// Story 24 小时故事。Viewers 每个查看者只记一次，ViewCount 与其长度一致
type Story struct {
	ID        string               `bson:"_id" json:"id"`
	OwnerID   string               `bson:"owner_id" json:"ownerId"`
	Media     MediaRef             `bson:"media" json:"media"`
	Text      string               `bson:"text,omitempty" json:"text,omitempty"`
	Privacy   Privacy              `bson:"privacy" json:"privacy"`
	AllowList []string             `bson:"allow_list,omitempty" json:"allowList,omitempty"`
	CreatedAt time.Time            `bson:"created_at" json:"createdAt"`
	ExpiresAt time.Time            `bson:"expires_at" json:"expiresAt"`
	Viewers   map[string]time.Time `bson:"viewers" json:"-"`
	ViewCount int                  `bson:"view_count" json:"viewCount"`
}

func (s *Story) GetTableName() string { return StoryTableName }

// IsExpired 到达 expiresAt 即过期，与清理任务的 expires_at <= now 一致
func (s *Story) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Story) HasViewed(userID string) bool {
	_, ok := s.Viewers[userID]
	return ok
}

func (s *Story) Allowed(userID string) bool {
	for _, id := range s.AllowList {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	c := *s
	c.AllowList = append([]string(nil), s.AllowList...)
	c.Viewers = make(map[string]time.Time, len(s.Viewers))
	for k, v := range s.Viewers {
		c.Viewers[k] = v
	}
	return &c
}

// StoryView 带“我是否看过”标记的故事
type StoryView struct {
	*Story
	Viewed bool `json:"viewed"`
}

// StoryGroup 某个好友的全部有效故事
type StoryGroup struct {
	OwnerID     string      `json:"ownerId"`
	Stories     []StoryView `json:"stories"`
	HasUnviewed bool        `json:"hasUnviewed"`
}

// StoryViewer 查看记录
type StoryViewer struct {
	UserID   string    `json:"userId"`
	ViewedAt time.Time `json:"viewedAt"`
}

const (
	StoryFieldID        = "_id"
	StoryFieldOwnerID   = "owner_id"
	StoryFieldCreatedAt = "created_at"
	StoryFieldExpiresAt = "expires_at"
	StoryFieldViewers   = "viewers"
	StoryFieldViewCount = "view_count"
)
