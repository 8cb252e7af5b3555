package kafka

import (
	"fmt"
	"hash/crc32"
)

// GenTopicsWithPattern 生成 N 个 Topic：flashchat.notify-00, flashchat.notify-01, ...
func GenTopicsWithPattern(cfg *AppConfig) []string {
	n := cfg.TopicCount
	if n <= 0 {
		n = 1
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf(cfg.TopicPattern, i))
	}
	return out
}

// SelectTopicByUser 同一 userId 永远命中同一个 Topic
func SelectTopicByUser(userId string, topics []string) string {
	if len(topics) == 0 {
		return ""
	}
	h := crc32.ChecksumIEEE([]byte(userId))
	idx := int(h % uint32(len(topics)))
	return topics[idx]
}
