// Package presence keeps per-user online state fresh with a heartbeat and
// relays typing indicators.
package presence

import (
	"context"
	"sync"
	"time"

	"FlashChat/logger"
	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"
	"FlashChat/tools/safe"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const DefaultHeartbeat = 30 * time.Second

type Config struct {
	Heartbeat  time.Duration `mapstructure:"presence_heartbeat"`
	StaleAfter time.Duration `mapstructure:"presence_stale_after"`
}

type session struct {
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Tracker 同一用户的多个连接共用一个心跳，引用计数归零才下线。
// 同一用户的 Start/Stop 串行执行，计数变化和对应的写入不会交错
type Tracker struct {
	st    store.PresenceStore
	clk   clock.Clock
	cfg   Config
	log   *zap.Logger
	mu    sync.Mutex
	users map[string]*session
	locks map[string]*userLock
}

func NewTracker(st store.PresenceStore, clk clock.Clock, cfg Config, log *zap.Logger) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	return &Tracker{
		st:    st,
		clk:   clk,
		cfg:   cfg,
		log:   logger.Or(log).Named("presence"),
		users: make(map[string]*session),
		locks: make(map[string]*userLock),
	}
}

func (t *Tracker) lockUser(uid string) (unlock func()) {
	t.mu.Lock()
	l, ok := t.locks[uid]
	if !ok {
		l = &userLock{}
		t.locks[uid] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(t.locks, uid)
		}
		t.mu.Unlock()
	}
}

func (t *Tracker) write(ctx context.Context, uid string, online bool) error {
	return t.st.SetPresence(ctx, model.Presence{UserID: uid, Online: online, LastHeartbeat: t.clk.Now()})
}

// Start 占一个引用、标记在线并（重新）开始心跳。
// 写入失败时引用仍然保留，调用方照常 Stop
func (t *Tracker) Start(ctx context.Context, uid string) error {
	if uid == "" {
		return errs.ErrValidation.WrapMsg("user id required")
	}
	unlock := t.lockUser(uid)
	defer unlock()

	t.mu.Lock()
	refs := 1
	old, ok := t.users[uid]
	if ok {
		refs = old.refs + 1
	}
	s := t.spawn(uid)
	s.refs = refs
	t.users[uid] = s
	t.mu.Unlock()

	if ok {
		old.cancel()
		<-old.done
	}
	return t.write(ctx, uid, true)
}

func (t *Tracker) spawn(uid string) *session {
	hbCtx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel, done: make(chan struct{})}
	ticker := t.clk.Ticker(t.cfg.Heartbeat)
	safe.Go("presence.heartbeat", func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := t.write(hbCtx, uid, true); err != nil {
					t.log.Warn("heartbeat failed", zap.String("user", uid), zap.Error(err))
				}
			}
		}
	})
	return s
}

// Stop 释放一个引用；最后一个引用释放时停止心跳并写离线
func (t *Tracker) Stop(ctx context.Context, uid string) error {
	unlock := t.lockUser(uid)
	defer unlock()

	t.mu.Lock()
	s, ok := t.users[uid]
	if ok {
		s.refs--
		if s.refs > 0 {
			t.mu.Unlock()
			return nil
		}
		delete(t.users, uid)
	}
	t.mu.Unlock()

	if ok {
		s.cancel()
		<-s.done
	}
	return t.write(ctx, uid, false)
}

// Tracking 当前持有心跳的用户数
func (t *Tracker) Tracking() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// Get 读侧会按 StaleAfter 修正 Online
func (t *Tracker) Get(ctx context.Context, uid string) (model.Presence, error) {
	p, err := t.st.GetPresence(ctx, uid)
	if err != nil {
		return p, err
	}
	p.Online = p.EffectiveOnline(t.clk.Now(), t.cfg.StaleAfter)
	return p, nil
}

func (t *Tracker) Subscribe(ctx context.Context, uid string, fn func(model.Presence), onErr store.ErrorHandler) (store.CancelFunc, error) {
	return t.st.WatchPresence(ctx, uid, func(p model.Presence) {
		p.Online = p.EffectiveOnline(t.clk.Now(), t.cfg.StaleAfter)
		fn(p)
	}, onErr)
}

func (t *Tracker) SetTyping(ctx context.Context, conversationKey, uid string, typing bool) error {
	pair, ok := model.SplitConversationKey(conversationKey)
	if !ok || (uid != pair[0] && uid != pair[1]) {
		return errs.ErrAuthorization.WrapMsg("not a participant", "conversation", conversationKey, "user", uid)
	}
	return t.st.PublishTyping(ctx, model.Typing{
		ConversationKey: conversationKey,
		UserID:          uid,
		Typing:          typing,
		At:              t.clk.Now(),
	})
}

func (t *Tracker) SubscribeTyping(ctx context.Context, conversationKey string, fn func(model.Typing), onErr store.ErrorHandler) (store.CancelFunc, error) {
	return t.st.WatchTyping(ctx, conversationKey, fn, onErr)
}

// Close 停掉全部心跳并把这些用户写成离线
func (t *Tracker) Close(ctx context.Context) {
	t.mu.Lock()
	users := t.users
	t.users = make(map[string]*session)
	t.mu.Unlock()

	for uid, s := range users {
		unlock := t.lockUser(uid)
		s.cancel()
		<-s.done
		if err := t.write(ctx, uid, false); err != nil {
			t.log.Warn("mark offline failed", zap.String("user", uid), zap.Error(err))
		}
		unlock()
	}
}
