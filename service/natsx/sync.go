package natsx

import (
	"context"
	"time"
)

// NatsxSyncPublisher 同步发布器（带重试）
type NatsxSyncPublisher struct {
	P       *NatsxProducer
	Retries int
	Backoff time.Duration
}

func (sp *NatsxSyncPublisher) PublishOnce(ctx context.Context, biz, key string, payload []byte, hdr map[string]string, msgID string) error {
	if msgID == "" {
		// 重试时保持同一个 ID，服务端才能去重
		msgID = genMsgID()
	}
	var err error
	for i := 0; i <= sp.Retries; i++ {
		err = sp.P.PublishOnce(ctx, biz, key, payload, hdr, msgID)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sp.Backoff):
		}
	}
	return err
}
