package notify

import (
	"context"
	"sync"
	"time"

	"FlashChat/logger"
	"FlashChat/tools/safe"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Dispatcher 异步投递，调用方不等待结果
type Dispatcher struct {
	n       Notifier
	clk     clock.Clock
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(n Notifier, clk clock.Clock, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.New()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{n: n, clk: clk, timeout: timeout, log: logger.Or(log).Named("notify")}
}

// Dispatch 补齐 ID/时间后在独立 goroutine 中发送；失败只记日志
func (d *Dispatcher) Dispatch(n Notification) {
	if d == nil || d.n == nil || n.To == "" {
		return
	}
	if n.ID == "" {
		n.ID = newNotificationID()
	}
	if n.At.IsZero() {
		n.At = d.clk.Now()
	}
	d.wg.Add(1)
	safe.Go("notify.dispatch", func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.n.Notify(ctx, n); err != nil {
			d.log.Warn("notification dropped",
				zap.String("kind", string(n.Kind)),
				zap.String("to", n.To),
				zap.Error(err))
		}
	})
}

// Wait 等待已派发的通知完成，关闭和测试时用
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}
