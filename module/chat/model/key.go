package model

import "strings"

// ConversationKeySep 用户 ID 中不允许出现的分隔符
const ConversationKeySep = "_"

// ConversationKey 单聊会话主键：两个参与者 ID 排序后用 "_" 拼接，与参数顺序无关
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ConversationKeySep + b
}

// SortedPair 返回排序后的参与者对，和 ConversationKey 的顺序一致
func SortedPair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// SplitConversationKey 还原参与者对；key 不合法时 ok=false
func SplitConversationKey(key string) (pair [2]string, ok bool) {
	a, b, found := strings.Cut(key, ConversationKeySep)
	if !found || a == "" || b == "" || strings.Contains(b, ConversationKeySep) {
		return pair, false
	}
	return [2]string{a, b}, true
}
