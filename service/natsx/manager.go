package natsx

import (
	"context"
	"fmt"
	"time"
)

// NatsManager 统一门面：对外只暴露这一个对象来用
type NatsManager struct {
	client   *NatsxClient
	producer *NatsxSyncPublisher
}

// NewNatsManager 连接并注册路由
func NewNatsManager(cfg NatsxConfig, routes ...NatsxRoute) (*NatsManager, error) {
	c, err := NewNatsxClient(cfg)
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		if err := c.RegisterRoute(r); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return &NatsManager{
		client:   c,
		producer: &NatsxSyncPublisher{P: NewNatsxProducer(c), Retries: 2, Backoff: 200 * time.Millisecond},
	}, nil
}

// Close 释放资源
func (m *NatsManager) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

// PublishOnce 按 biz 路由发送，msgID 用于去重
func (m *NatsManager) PublishOnce(ctx context.Context, biz, key string, data []byte, hdr map[string]string, msgID string) error {
	if m == nil || m.producer == nil {
		return fmt.Errorf("manager not initialized")
	}
	return m.producer.PublishOnce(ctx, biz, key, data, hdr, msgID)
}
