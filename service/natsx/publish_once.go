package natsx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

const HeaderMsgID = "Nats-Msg-Id"

// 生成随机 msgID（16字节）
func genMsgID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// PublishOnce 带 Nats-Msg-Id 的发布，JetStream 按它去重；msgID 为空则自动生成
func (p *NatsxProducer) PublishOnce(ctx context.Context, biz, key string, data []byte, hdr map[string]string, msgID string) error {
	h := make(map[string]string, len(hdr)+1)
	for k, v := range hdr {
		h[k] = v
	}
	if msgID == "" {
		msgID = genMsgID()
	}
	h[HeaderMsgID] = msgID
	return p.Publish(ctx, biz, key, data, h)
}
