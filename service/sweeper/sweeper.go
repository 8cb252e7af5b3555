// Package sweeper periodically reclaims expired stories and messages whose
// in-process deletion timers never fired.
package sweeper

import (
	"context"
	"time"

	"FlashChat/logger"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const DefaultInterval = 5 * time.Minute

// Job 一次清理，返回删除条数
type Job struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

type Sweeper struct {
	jobs     []Job
	clk      clock.Clock
	interval time.Duration
	log      *zap.Logger
}

func New(clk clock.Clock, interval time.Duration, log *zap.Logger, jobs ...Job) *Sweeper {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{jobs: jobs, clk: clk, interval: interval, log: logger.Or(log).Named("sweeper")}
}

// Once 依次执行每个任务；单个任务失败不影响后续任务
func (s *Sweeper) Once(ctx context.Context) map[string]int {
	out := make(map[string]int, len(s.jobs))
	for _, j := range s.jobs {
		n, err := j.Run(ctx)
		out[j.Name] = n
		if err != nil {
			s.log.Warn("sweep failed", zap.String("job", j.Name), zap.Int("deleted", n), zap.Error(err))
			continue
		}
		if n > 0 {
			s.log.Info("sweep done", zap.String("job", j.Name), zap.Int("deleted", n))
		}
	}
	return out
}

// Run 启动时先跑一次，之后按间隔执行，直到 ctx 结束
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clk.Ticker(s.interval)
	defer ticker.Stop()
	s.Once(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Once(ctx)
		}
	}
}
