// Package deferred runs keyed, cancellable one-shot tasks at a wall-clock deadline.
package deferred

import (
	"context"
	"sync"
	"time"

	"FlashChat/tools/safe"

	"github.com/benbjohnson/clock"
)

// Task runs once when its deadline passes. ctx is cancelled by Scheduler.Stop.
type Task func(ctx context.Context)

type entry struct {
	timer *clock.Timer
}

type Scheduler struct {
	clk    clock.Clock
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
}

func New(clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clk:     clk,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]*entry),
	}
}

// At schedules task under key; an existing task with the same key is replaced.
// A deadline already in the past runs immediately on its own goroutine.
func (s *Scheduler) At(key string, deadline time.Time, task Task) {
	delay := deadline.Sub(s.clk.Now())
	if delay < 0 {
		delay = 0
	}
	s.After(key, delay, task)
}

func (s *Scheduler) After(key string, delay time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.pending[key]; ok {
		old.timer.Stop()
		delete(s.pending, key)
	}
	if delay <= 0 {
		ctx := s.ctx
		safe.Go("deferred:"+key, func() { task(ctx) })
		return
	}
	e := &entry{}
	e.timer = s.clk.AfterFunc(delay, func() {
		s.mu.Lock()
		cur, ok := s.pending[key]
		if !ok || cur != e {
			// 已被取消或替换
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		s.mu.Unlock()

		defer safe.Recover("deferred:" + key)
		task(s.ctx)
	})
	s.pending[key] = e
}

// Cancel reports whether a pending task was removed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, key)
	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop drops every pending task and cancels the context handed to running ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for k, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, k)
	}
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
}
