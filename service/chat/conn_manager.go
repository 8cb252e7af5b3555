package chat

import (
	"sync"
)

// ConnManager 本节点的会话索引：sessionID -> Session，userID -> sessions
type ConnManager struct {
	mu     sync.RWMutex
	byID   map[string]*Session
	byUser map[string]map[string]*Session
}

func NewConnManager() *ConnManager {
	return &ConnManager{
		byID:   make(map[string]*Session),
		byUser: make(map[string]map[string]*Session),
	}
}

func (m *ConnManager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s
	set, ok := m.byUser[s.UserID]
	if !ok {
		set = make(map[string]*Session)
		m.byUser[s.UserID] = set
	}
	set[s.ID] = s
}

func (m *ConnManager) Remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, s.ID)
	if set, ok := m.byUser[s.UserID]; ok {
		delete(set, s.ID)
		if len(set) == 0 {
			delete(m.byUser, s.UserID)
		}
	}
}

func (m *ConnManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	return s, ok
}

// UserSessions 某用户在本节点的全部连接
func (m *ConnManager) UserSessions(userID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.byUser[userID]))
	for _, s := range m.byUser[userID] {
		out = append(out, s)
	}
	return out
}

func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Close 关闭所有连接；会话自己的退出流程负责 Remove
func (m *ConnManager) Close() {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		all = append(all, s)
	}
	m.mu.RUnlock()
	for _, s := range all {
		s.Close()
	}
}
