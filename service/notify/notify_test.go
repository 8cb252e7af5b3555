package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlashChat/service/kafka"
)

type recorder struct {
	mu  sync.Mutex
	got []Notification
	err error
}

func (r *recorder) Notify(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

func TestDispatchFillsDefaults(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	rec := &recorder{}
	d := NewDispatcher(rec, clk, 0, nil)

	d.Dispatch(Notification{Kind: KindNewMessage, To: "b", From: "a", MessageID: "m1"})
	d.Dispatch(Notification{Kind: KindNewMessage})
	d.Wait()

	got := rec.all()
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, clk.Now(), got[0].At)
}

func TestDispatchSwallowsFailures(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}
	d := NewDispatcher(rec, nil, time.Second, nil)
	assert.NotPanics(t, func() {
		d.Dispatch(Notification{Kind: KindScreenshot, To: "a"})
		d.Wait()
	})
	assert.Len(t, rec.all(), 1)
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := NewDispatcher(NotifierFunc(func(context.Context, Notification) error { panic("boom") }), nil, time.Second, nil)
	d.Dispatch(Notification{Kind: KindScreenshot, To: "a"})
	d.Wait()
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(Notification{To: "a"})
	d.Wait()
}

type natsRecorder struct {
	biz, key, msgID string
	data            []byte
}

func (n *natsRecorder) PublishOnce(ctx context.Context, biz, key string, data []byte, hdr map[string]string, msgID string) error {
	n.biz, n.key, n.data, n.msgID = biz, key, data, msgID
	return nil
}

func TestNatsNotifier(t *testing.T) {
	pub := &natsRecorder{}
	n := NewNatsNotifier(pub)
	require.NoError(t, n.Notify(context.Background(), Notification{ID: "ntf_1", Kind: KindMessageViewed, To: "a", From: "b"}))
	assert.Equal(t, "notify", pub.biz)
	assert.Equal(t, "a", pub.key)
	assert.Equal(t, "ntf_1", pub.msgID)

	var decoded Notification
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	assert.Equal(t, KindMessageViewed, decoded.Kind)

	r := NatsRoute("flashchat.notify.{key}", true)
	assert.Equal(t, "notify", r.Biz)
}

func TestKafkaNotifier(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var n Notification
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		if n.To != "b" {
			return errors.New("wrong recipient")
		}
		return nil
	})
	p := kafka.NewProducerWith(kafka.DefaultConfig(), nil, sp)
	n := NewKafkaNotifier(p)
	require.NoError(t, n.Notify(context.Background(), Notification{Kind: KindNewMessage, To: "b"}))
	require.NoError(t, p.Close())

	sp2 := mocks.NewSyncProducer(t, nil)
	sp2.ExpectSendMessageAndFail(sarama.ErrNotConnected)
	n2 := NewKafkaNotifier(kafka.NewProducerWith(kafka.DefaultConfig(), nil, sp2))
	assert.Error(t, n2.Notify(context.Background(), Notification{Kind: KindNewMessage, To: "b"}))
}
