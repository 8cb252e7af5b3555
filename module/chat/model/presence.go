package model

import "time"

// Presence 在线状态，每个用户一条
type Presence struct {
	UserID        string    `json:"userId"`
	Online        bool      `json:"online"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// EffectiveOnline 读侧判断；staleAfter>0 时心跳过旧视为离线
func (p Presence) EffectiveOnline(now time.Time, staleAfter time.Duration) bool {
	if !p.Online {
		return false
	}
	if staleAfter <= 0 {
		return true
	}
	return now.Sub(p.LastHeartbeat) <= staleAfter
}

// Typing 输入中状态
type Typing struct {
	ConversationKey string    `json:"conversationKey"`
	UserID          string    `json:"userId"`
	Typing          bool      `json:"typing"`
	At              time.Time `json:"at"`
}
