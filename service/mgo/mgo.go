package mgo

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"FlashChat/data/database/mgo/mongoutil"
	"FlashChat/logger"

	"github.com/benbjohnson/clock"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	// HealthEvery 默认健康检查周期
	HealthEvery = 10 * time.Second
)

// Manager 进程内唯一的 Mongo 连接，由调用方持有并负责 Close。
// 连接建立后不会被替换：断线由驱动连接池自行恢复，健康检查只记录状态
type Manager struct {
	cli  *mongoutil.Client
	ping func(ctx context.Context) error
	clk  clock.Clock
	log  *zap.Logger

	healthy atomic.Bool
	lastErr atomic.Value // error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func newManager(cli *mongoutil.Client, ping func(ctx context.Context) error, clk clock.Clock, log *zap.Logger) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	m := &Manager{cli: cli, ping: ping, clk: clk, log: logger.Or(log).Named("mongo")}
	m.healthy.Store(true)
	return m
}

// backoff 第 attempt 次失败后的等待时间，带 0~20% 抖动
func backoff(attempt int) time.Duration {
	d := baseBackoff << attempt
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	return d - time.Duration(rand.Int63n(int64(d/5)+1))/2
}

// Connect 按退避重试直到连上、遇到不可重试的错误或 ctx 结束
func Connect(ctx context.Context, cfg mongoutil.Config, clk clock.Clock, log *zap.Logger) (*Manager, error) {
	if clk == nil {
		clk = clock.New()
	}
	log = logger.Or(log).Named("mongo")
	for attempt := 0; ; attempt++ {
		cli, err := mongoutil.Dial(ctx, &cfg)
		if err == nil {
			log.Info("connected", zap.String("db", cfg.Database), zap.Int("attempt", attempt))
			return newManager(cli, cli.Ping, clk, log), nil
		}
		if !mongoutil.Retryable(ctx, err) || attempt+1 >= cfg.MaxRetry {
			return nil, err
		}
		log.Warn("connect failed", zap.Error(err), zap.Int("attempt", attempt))
		t := clk.Timer(backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (m *Manager) DB() *mongo.Database { return m.cli.DB() }

// Healthy 最近一次健康检查是否成功
func (m *Manager) Healthy() bool { return m.healthy.Load() }

// Err 最近一次健康检查的错误
func (m *Manager) Err() error {
	if v, ok := m.lastErr.Load().(error); ok {
		return v
	}
	return nil
}

func (m *Manager) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, HealthEvery/2)
	defer cancel()
	err := m.ping(pctx)
	if err == nil {
		if !m.healthy.Swap(true) {
			m.log.Info("mongo recovered")
		}
		return
	}
	m.lastErr.Store(err)
	if m.healthy.Swap(false) {
		m.log.Error("mongo health check failed", zap.Error(err))
	}
}

// Watch 后台周期 ping，Close 时停止
func (m *Manager) Watch(every time.Duration) {
	if every <= 0 {
		every = HealthEvery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	ticker := m.clk.Ticker(every)
	go func() {
		defer close(m.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Close 停止健康检查并断开连接，重复调用无副作用
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if m.cli == nil {
		return nil
	}
	return m.cli.Disconnect(ctx)
}
