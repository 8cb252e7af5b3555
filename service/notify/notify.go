// Package notify delivers best-effort user notifications. Failures are logged
// and never reach the caller.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"FlashChat/logger"
	"FlashChat/service/kafka"
	"FlashChat/service/natsx"
	"FlashChat/tools/ids"

	"go.uber.org/zap"
)

type Kind string

const (
	KindNewMessage    Kind = "new_message"
	KindMessageViewed Kind = "message_viewed"
	KindScreenshot    Kind = "screenshot"
	KindStoryViewed   Kind = "story_viewed"
)

type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	MessageID string    `json:"messageId,omitempty"`
	StoryID   string    `json:"storyId,omitempty"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc 适配普通函数
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogNotifier 只打日志，开发环境用
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: logger.Or(log).Named("notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.log.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("to", n.To),
		zap.String("from", n.From),
		zap.String("message", n.MessageID),
		zap.String("story", n.StoryID))
	return nil
}

const natsBiz = "notify"

// NatsPublisher natsx.NatsManager 的发布能力
type NatsPublisher interface {
	PublishOnce(ctx context.Context, biz, key string, data []byte, hdr map[string]string, msgID string) error
}

// NatsNotifier 发到 subject（{key} 替换为接收者），通知 ID 作为 Nats-Msg-Id 去重
type NatsNotifier struct {
	pub NatsPublisher
}

func NewNatsNotifier(pub NatsPublisher) *NatsNotifier {
	return &NatsNotifier{pub: pub}
}

// NatsRoute notify 业务的路由
func NatsRoute(subject string, jetStream bool) natsx.NatsxRoute {
	mode := natsx.Core
	if jetStream {
		mode = natsx.JetStream
	}
	return natsx.NatsxRoute{Biz: natsBiz, Subject: subject, Mode: mode}
}

func (n *NatsNotifier) Notify(ctx context.Context, note Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return n.pub.PublishOnce(ctx, natsBiz, note.To, data, map[string]string{"kind": string(note.Kind)}, note.ID)
}

// KafkaSender kafka.Producer 的发送能力
type KafkaSender interface {
	Send(key string, value []byte, headers map[string]string) (topic string, partition int32, offset int64, err error)
}

var _ KafkaSender = (*kafka.Producer)(nil)

// KafkaNotifier 以接收者为 key，同一用户的通知保持顺序
type KafkaNotifier struct {
	sender KafkaSender
}

func NewKafkaNotifier(sender KafkaSender) *KafkaNotifier {
	return &KafkaNotifier{sender: sender}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, _, _, err = k.sender.Send(n.To, data, map[string]string{"kind": string(n.Kind), "id": n.ID})
	return err
}

func newNotificationID() string {
	return ids.New("ntf")
}
