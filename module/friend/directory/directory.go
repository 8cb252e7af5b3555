// Package directory resolves users by contact hash and by interest tag.
package directory

import (
	"context"
	"sort"
	"sync"
)

// Directory 好友推荐所需的用户资料查询
type Directory interface {
	// LookupContacts 通讯录哈希命中的用户
	LookupContacts(ctx context.Context, hashes []string) ([]string, error)
	Interests(ctx context.Context, userID string) ([]string, error)
	// SharingInterests 至少有一个相同兴趣的用户及其全部兴趣，不含 userID 自己
	SharingInterests(ctx context.Context, userID string, tags []string, limit int) (map[string][]string, error)
}

// Memory 内存实现，开发模式和测试使用
type Memory struct {
	mu        sync.RWMutex
	contacts  map[string]string
	interests map[string][]string
}

func NewMemory() *Memory {
	return &Memory{contacts: map[string]string{}, interests: map[string][]string{}}
}

func (m *Memory) SetContact(hash, userID string) {
	m.mu.Lock()
	m.contacts[hash] = userID
	m.mu.Unlock()
}

func (m *Memory) SetInterests(userID string, tags ...string) {
	m.mu.Lock()
	m.interests[userID] = append([]string(nil), tags...)
	m.mu.Unlock()
}

func (m *Memory) LookupContacts(ctx context.Context, hashes []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, h := range hashes {
		uid, ok := m.contacts[h]
		if !ok {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out, nil
}

func (m *Memory) Interests(ctx context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.interests[userID]...), nil
}

func (m *Memory) SharingInterests(ctx context.Context, userID string, tags []string, limit int) (map[string][]string, error) {
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	m.mu.RLock()
	ids := make([]string, 0)
	for uid, ts := range m.interests {
		if uid == userID {
			continue
		}
		for _, t := range ts {
			if _, ok := want[t]; ok {
				ids = append(ids, uid)
				break
			}
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make(map[string][]string, len(ids))
	for _, uid := range ids {
		out[uid] = append([]string(nil), m.interests[uid]...)
	}
	m.mu.RUnlock()
	return out, nil
}
