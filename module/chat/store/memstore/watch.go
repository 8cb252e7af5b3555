package memstore

import (
	"context"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
)

// 回调在写操作的 goroutine 中同步执行，且不持有任何锁

func (s *Store) register(add func(id int)) int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.nextID++
	add(s.nextID)
	return s.nextID
}

func (s *Store) unregister(del func()) store.CancelFunc {
	return store.OnceCancel(func() error {
		s.watchMu.Lock()
		del()
		s.watchMu.Unlock()
		return nil
	})
}

func (s *Store) WatchMessages(ctx context.Context, userID string, h store.Handler[model.Message], onErr store.ErrorHandler) (store.CancelFunc, error) {
	w := watcher[model.Message]{
		match: func(m *model.Message) bool { return m.IsParticipant(userID) },
		h:     h,
	}
	id := s.register(func(id int) { s.msgW[id] = w })
	return s.unregister(func() { delete(s.msgW, id) }), nil
}

func (s *Store) WatchConversations(ctx context.Context, userID string, h store.Handler[model.Conversation], onErr store.ErrorHandler) (store.CancelFunc, error) {
	w := watcher[model.Conversation]{
		match: func(c *model.Conversation) bool { return c.HasParticipant(userID) },
		h:     h,
	}
	id := s.register(func(id int) { s.convW[id] = w })
	return s.unregister(func() { delete(s.convW, id) }), nil
}

func (s *Store) emitMessage(op store.Op, id string, m *model.Message) {
	s.watchMu.RLock()
	hs := make([]store.Handler[model.Message], 0, len(s.msgW))
	for _, w := range s.msgW {
		if w.match(m) {
			hs = append(hs, w.h)
		}
	}
	s.watchMu.RUnlock()

	for _, h := range hs {
		ch := store.Change[model.Message]{Op: op, ID: id}
		if op != store.OpRemoved {
			ch.Doc = m.Clone()
		}
		h(ch)
	}
}

func (s *Store) emitConversation(op store.Op, id string, c *model.Conversation) {
	s.watchMu.RLock()
	hs := make([]store.Handler[model.Conversation], 0, len(s.convW))
	for _, w := range s.convW {
		if w.match(c) {
			hs = append(hs, w.h)
		}
	}
	s.watchMu.RUnlock()

	for _, h := range hs {
		h(store.Change[model.Conversation]{Op: op, ID: id, Doc: c.Clone()})
	}
}

// ---------------- 在线状态 ----------------

func (s *Store) SetPresence(ctx context.Context, p model.Presence) error {
	s.mu.Lock()
	s.presence[p.UserID] = p
	s.mu.Unlock()

	s.watchMu.RLock()
	var fns []func(model.Presence)
	for id, fn := range s.presW {
		if s.presKey[id] == p.UserID {
			fns = append(fns, fn)
		}
	}
	s.watchMu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
	return nil
}

func (s *Store) GetPresence(ctx context.Context, userID string) (model.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[userID]
	if !ok {
		return model.Presence{UserID: userID}, nil
	}
	return p, nil
}

func (s *Store) WatchPresence(ctx context.Context, userID string, fn func(model.Presence), onErr store.ErrorHandler) (store.CancelFunc, error) {
	id := s.register(func(id int) {
		s.presW[id] = fn
		s.presKey[id] = userID
	})
	return s.unregister(func() {
		delete(s.presW, id)
		delete(s.presKey, id)
	}), nil
}

func (s *Store) PublishTyping(ctx context.Context, t model.Typing) error {
	s.watchMu.RLock()
	var fns []func(model.Typing)
	for id, fn := range s.typW {
		if s.typKey[id] == t.ConversationKey {
			fns = append(fns, fn)
		}
	}
	s.watchMu.RUnlock()
	for _, fn := range fns {
		fn(t)
	}
	return nil
}

func (s *Store) WatchTyping(ctx context.Context, key string, fn func(model.Typing), onErr store.ErrorHandler) (store.CancelFunc, error) {
	id := s.register(func(id int) {
		s.typW[id] = fn
		s.typKey[id] = key
	})
	return s.unregister(func() {
		delete(s.typW, id)
		delete(s.typKey, id)
	}), nil
}

// Watchers 当前订阅数，测试用
func (s *Store) Watchers() int {
	s.watchMu.RLock()
	defer s.watchMu.RUnlock()
	return len(s.msgW) + len(s.convW) + len(s.presW) + len(s.typW)
}
