package natsx

import (
	"context"
	"fmt"
	"strings"
)

// NatsxProducer 生产端
type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

// Subject 把路由 subject 中的 {key} 替换为 key，便于按用户分 subject
func Subject(pattern, key string) string {
	return strings.ReplaceAll(pattern, "{key}", key)
}

// Publish 按 Biz 路由发送
func (p *NatsxProducer) Publish(ctx context.Context, biz, key string, data []byte, hdr map[string]string) error {
	r, ok := p.c.route(biz)
	if !ok {
		return fmt.Errorf("route not found: %s", biz)
	}
	subject := Subject(r.Subject, key)
	switch r.Mode {
	case Core:
		return p.c.sendCore(subject, data, hdr)
	case JetStream:
		return p.c.sendJS(ctx, subject, data, hdr)
	default:
		return fmt.Errorf("unsupported mode")
	}
}
