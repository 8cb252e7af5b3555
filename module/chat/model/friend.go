package model

import (
	"time"
)

const (
	FriendTableName = "friend"

	FriendStatusPending  int32 = 0
	FriendStatusAccepted int32 = 1
	FriendStatusRejected int32 = 2
	FriendStatusDeleted  int32 = 3
)

// Friend 表示用户好友关系（单向存储，一般为双向各存一条记录）
// 在 MongoDB 中以 owner_user_id + friend_user_id 作为唯一索引。这里只读
type Friend struct {
	OwnerUserID  string `bson:"owner_user_id"`  // 拥有者用户ID（谁的好友列表）
	FriendUserID string `bson:"friend_user_id"` // 好友用户ID（对方）

	IsBlocked bool  `bson:"is_blocked"` // 是否已拉黑该好友
	Status    int32 `bson:"status"`     // 好友关系状态（0=待验证，1=已同意，2=已拒绝，3=已删除）

	CreateTime time.Time `bson:"create_time"`
	UpdateTime time.Time `bson:"update_time"`
}

func (f *Friend) GetTableName() string { return FriendTableName }

// Active 已同意且未拉黑
func (f *Friend) Active() bool {
	return f.Status == FriendStatusAccepted && !f.IsBlocked
}

const (
	FriendFieldOwnerUserID  = "owner_user_id"
	FriendFieldFriendUserID = "friend_user_id"
	FriendFieldStatus       = "status"
	FriendFieldIsBlocked    = "is_blocked"
)
