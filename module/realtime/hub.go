// Package realtime keeps the live change subscriptions of one session and
// tears them down together.
package realtime

import (
	"fmt"
	"sort"
	"sync"

	"FlashChat/logger"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"go.uber.org/zap"
)

// Factory 建立订阅并返回其取消函数
type Factory func() (store.CancelFunc, error)

func MessagesKey(userID string) string      { return "messages:" + userID }
func ConversationsKey(userID string) string { return "conversations:" + userID }
func PresenceKey(userID string) string      { return "presence:" + userID }
func TypingKey(conversationKey string) string {
	return "typing:" + conversationKey
}

// Hub 订阅注册表。锁只保护 map，取消函数与 Factory 都在锁外执行，
// 因此回调内部再调用 Subscribe/Cancel 是安全的
type Hub struct {
	mu     sync.Mutex
	subs   map[string]store.CancelFunc
	closed bool
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[string]store.CancelFunc),
		log:  logger.Or(log).Named("realtime"),
	}
}

// Subscribe 先取消同名旧订阅，再建立新订阅
func (h *Hub) Subscribe(key string, factory Factory) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errs.ErrHubClosed.WrapMsg("subscribe on closed hub", "key", key)
	}
	old := h.subs[key]
	delete(h.subs, key)
	h.mu.Unlock()

	h.invoke(key, old)

	cancel, err := factory()
	if err != nil {
		return err
	}
	if cancel == nil {
		cancel = store.OnceCancel(nil)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.invoke(key, cancel)
		return errs.ErrHubClosed.WrapMsg("hub closed during subscribe", "key", key)
	}
	// 并发的 Subscribe 已经写入同名订阅时，以后到者为准
	displaced := h.subs[key]
	h.subs[key] = cancel
	h.mu.Unlock()

	h.invoke(key, displaced)
	return nil
}

// Cancel 取消并移除；key 不存在时返回 false
func (h *Hub) Cancel(key string) bool {
	h.mu.Lock()
	c, ok := h.subs[key]
	delete(h.subs, key)
	h.mu.Unlock()

	if ok {
		h.invoke(key, c)
	}
	return ok
}

// CancelAll 取消全部订阅，单个失败只记日志；可重复调用。返回取消的数量
func (h *Hub) CancelAll() int {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]store.CancelFunc)
	h.mu.Unlock()

	for key, c := range subs {
		h.invoke(key, c)
	}
	return len(subs)
}

// Close CancelAll 之后拒绝新的订阅
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.CancelAll()
}

func (h *Hub) Keys() []string {
	h.mu.Lock()
	keys := make([]string, 0, len(h.subs))
	for k := range h.subs {
		keys = append(keys, k)
	}
	h.mu.Unlock()
	sort.Strings(keys)
	return keys
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Has(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.subs[key]
	return ok
}

func (h *Hub) invoke(key string, c store.CancelFunc) {
	if c == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("cancel panicked", zap.String("key", key), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := c(); err != nil {
		h.log.Warn("cancel failed", zap.String("key", key), zap.Error(err))
	}
}
