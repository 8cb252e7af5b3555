// Package message implements the ephemeral-message lifecycle: send, view with
// a countdown, timed deletion and the maintenance sweep.
package message

import (
	"context"
	"time"

	"FlashChat/logger"
	"FlashChat/module/chat/conversation"
	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/service/notify"
	"FlashChat/tools/deferred"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

type Config struct {
	DefaultTimer  int   `mapstructure:"default_timer"`
	AllowedTimers []int `mapstructure:"allowed_timers"`
	MaxTextRunes  int   `mapstructure:"max_text_runes"`
	SweepBatch    int   `mapstructure:"sweep_batch"`
}

func (c *Config) setDefaults() {
	if c.DefaultTimer <= 0 {
		c.DefaultTimer = model.DefaultTimerSeconds
	}
	if len(c.AllowedTimers) == 0 {
		c.AllowedTimers = model.AllowedTimers
	}
	if c.MaxTextRunes <= 0 {
		c.MaxTextRunes = model.MaxTextRunes
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = 100
	}
}

// Upserter 会话摘要写入方
type Upserter interface {
	Upsert(ctx context.Context, req conversation.UpsertRequest) error
}

// Dispatcher 尽力而为的通知出口
type Dispatcher interface {
	Dispatch(n notify.Notification)
}

type Deps struct {
	Messages    store.MessageStore
	Screenshots store.ScreenshotStore
	Media       store.MediaStore
	Aggregator  Upserter
	Notifier    Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
}

type Manager struct {
	msgs   store.MessageStore
	shots  store.ScreenshotStore
	media  store.MediaStore
	agg    Upserter
	notify Dispatcher
	clk    clock.Clock
	sched  *deferred.Scheduler
	cfg    Config
	log    *zap.Logger
}

func NewManager(d Deps, cfg Config) *Manager {
	cfg.setDefaults()
	clk := d.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		msgs:   d.Messages,
		shots:  d.Screenshots,
		media:  d.Media,
		agg:    d.Aggregator,
		notify: d.Notifier,
		clk:    clk,
		sched:  deferred.New(clk),
		cfg:    cfg,
		log:    logger.Or(d.Logger).Named("message"),
	}
}

// Close 丢弃所有待执行的删除；进程重启同样会丢失，由 SweepExpired 兜底
func (m *Manager) Close() {
	m.sched.Stop()
}

// PendingDeletions 已排期但尚未执行的删除数
func (m *Manager) PendingDeletions() int {
	return m.sched.Len()
}

func (m *Manager) dispatch(n notify.Notification) {
	if m.notify != nil {
		m.notify.Dispatch(n)
	}
}

func timerKey(id string) string { return "msg:" + id }

func (m *Manager) scheduleDelete(id string, at time.Time) {
	m.sched.At(timerKey(id), at, func(ctx context.Context) {
		if err := m.Delete(ctx, id); err != nil {
			m.log.Warn("timed delete failed", zap.String("id", id), zap.Error(err))
		}
	})
}
