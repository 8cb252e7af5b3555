// Package memstore keeps every collection in process memory. Used by the
// dev profile (store.driver=memory) and by tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"
	"FlashChat/tools/ids"

	"github.com/benbjohnson/clock"
)

var (
	_ store.DocumentStore = (*Store)(nil)
	_ store.PresenceStore = (*Store)(nil)
	_ store.MediaStore    = (*Store)(nil)
)

type Store struct {
	clk clock.Clock

	mu            sync.RWMutex
	messages      map[string]*model.Message
	conversations map[string]*model.Conversation
	stories       map[string]*model.Story
	screenshots   []*model.ScreenshotEvent
	friends       map[string]map[string]struct{}
	presence      map[string]model.Presence
	media         map[string]blob

	watchMu sync.RWMutex
	nextID  int
	msgW    map[int]watcher[model.Message]
	convW   map[int]watcher[model.Conversation]
	presW   map[int]func(model.Presence)
	presKey map[int]string
	typW    map[int]func(model.Typing)
	typKey  map[int]string

	// FailUpload 非空时 Upload 返回该错误，测试用
	FailUpload error
}

type blob struct {
	data        []byte
	contentType string
}

type watcher[T any] struct {
	match func(*T) bool
	h     store.Handler[T]
}

func New(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		clk:           clk,
		messages:      make(map[string]*model.Message),
		conversations: make(map[string]*model.Conversation),
		stories:       make(map[string]*model.Story),
		friends:       make(map[string]map[string]struct{}),
		presence:      make(map[string]model.Presence),
		media:         make(map[string]blob),
		msgW:          make(map[int]watcher[model.Message]),
		convW:         make(map[int]watcher[model.Conversation]),
		presW:         make(map[int]func(model.Presence)),
		presKey:       make(map[int]string),
		typW:          make(map[int]func(model.Typing)),
		typKey:        make(map[int]string),
	}
}

func notFound(kind, id string) error {
	return errs.ErrNotFound.WrapMsg(kind+" not found", "id", id)
}

func limitOf(n, size int) int {
	if n <= 0 || n > size {
		return size
	}
	return n
}

// ---------------- 消息 ----------------

func (s *Store) InsertMessage(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	if m.ID == "" {
		m.ID = ids.New("msg")
	}
	m.CreatedAt = s.clk.Now()
	cp := m.Clone()
	s.messages[m.ID] = cp
	s.mu.Unlock()

	s.emitMessage(store.OpAdded, cp.ID, cp)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, notFound("message", id)
	}
	return m.Clone(), nil
}

func (s *Store) MarkMessageViewed(ctx context.Context, id string, viewedAt, expiresAt time.Time) (*model.Message, bool, error) {
	s.mu.Lock()
	m, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return nil, false, notFound("message", id)
	}
	if m.Viewed {
		cp := m.Clone()
		s.mu.Unlock()
		return cp, false, nil
	}
	m.Viewed = true
	m.ViewedAt = &viewedAt
	m.ExpiresAt = &expiresAt
	m.Status = model.StatusViewed
	cp := m.Clone()
	s.mu.Unlock()

	s.emitMessage(store.OpModified, id, cp)
	return cp.Clone(), true, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id string, from, to model.Status) (bool, error) {
	s.mu.Lock()
	m, ok := s.messages[id]
	if !ok || m.Status != from {
		s.mu.Unlock()
		return false, nil
	}
	m.Status = to
	cp := m.Clone()
	s.mu.Unlock()

	s.emitMessage(store.OpModified, id, cp)
	return true, nil
}

func (s *Store) IncScreenshots(ctx context.Context, id string) error {
	s.mu.Lock()
	m, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return notFound("message", id)
	}
	m.Screenshots++
	cp := m.Clone()
	s.mu.Unlock()

	s.emitMessage(store.OpModified, id, cp)
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	m, ok := s.messages[id]
	if ok {
		delete(s.messages, id)
	}
	s.mu.Unlock()

	if ok {
		s.emitMessage(store.OpRemoved, id, m)
	}
	return ok, nil
}

func (s *Store) messagesOf(key string, now time.Time) []*model.Message {
	out := make([]*model.Message, 0)
	for _, m := range s.messages {
		if m.ConversationKey != key || m.IsExpired(now) {
			continue
		}
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ListMessages(ctx context.Context, key string, now time.Time, limit int) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.messagesOf(key, now)
	// 取最近的 limit 条，仍按时间升序返回
	if n := limitOf(limit, len(out)); n < len(out) {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (s *Store) LatestMessage(ctx context.Context, key string, now time.Time) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.messagesOf(key, now)
	if len(out) == 0 {
		return nil, nil
	}
	return out[len(out)-1], nil
}

func (s *Store) ListExpiredMessages(ctx context.Context, now time.Time, limit int) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Message, 0)
	for _, m := range s.messages {
		if m.IsExpired(now) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out[:limitOf(limit, len(out))], nil
}

func (s *Store) InsertScreenshot(ctx context.Context, ev *model.ScreenshotEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = ids.New("shot")
	}
	cp := *ev
	s.screenshots = append(s.screenshots, &cp)
	return nil
}

// Screenshots 测试辅助
func (s *Store) Screenshots(messageID string) []model.ScreenshotEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ScreenshotEvent
	for _, ev := range s.screenshots {
		if ev.MessageID == messageID {
			out = append(out, *ev)
		}
	}
	return out
}

// ---------------- 会话 ----------------

func (s *Store) UpsertConversation(ctx context.Context, p store.ConversationPatch) error {
	s.mu.Lock()
	c, ok := s.conversations[p.Key]
	op := store.OpModified
	if !ok {
		c = &model.Conversation{ID: p.Key, Participants: p.Participants, CreatedAt: p.UpdatedAt}
		s.conversations[p.Key] = c
		op = store.OpAdded
	}
	at := p.LastMessageAt
	c.Participants = p.Participants
	c.LastMessageID = p.LastMessageID
	c.LastMessageAt = &at
	c.LastSenderID = p.LastSenderID
	if p.HasPreview {
		c.Preview = p.Preview
	}
	c.UpdatedAt = p.UpdatedAt
	cp := c.Clone()
	s.mu.Unlock()

	s.emitConversation(op, cp.ID, cp)
	return nil
}

func (s *Store) EnsureConversation(ctx context.Context, key string, participants [2]string, at time.Time) (bool, error) {
	s.mu.Lock()
	if _, ok := s.conversations[key]; ok {
		s.mu.Unlock()
		return false, nil
	}
	c := &model.Conversation{ID: key, Participants: participants, CreatedAt: at, UpdatedAt: at}
	s.conversations[key] = c
	cp := c.Clone()
	s.mu.Unlock()

	s.emitConversation(store.OpAdded, key, cp)
	return true, nil
}

func (s *Store) GetConversation(ctx context.Context, key string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[key]
	if !ok {
		return nil, notFound("conversation", key)
	}
	return c.Clone(), nil
}

func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]*model.Conversation, error) {
	s.mu.RLock()
	out := make([]*model.Conversation, 0)
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			out = append(out, c.Clone())
		}
	}
	s.mu.RUnlock()

	SortConversations(out)
	return out[:limitOf(limit, len(out))], nil
}

// SortConversations last_message_at 倒序，nil 排最后，再按 ID 稳定排序
func SortConversations(cs []*model.Conversation) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].LastMessageAt, cs[j].LastMessageAt
		switch {
		case a == nil && b == nil:
			return cs[i].ID < cs[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return cs[i].ID < cs[j].ID
		}
		return a.After(*b)
	})
}

// ---------------- 故事 ----------------

func (s *Store) InsertStory(ctx context.Context, st *model.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = ids.New("sty")
	}
	if st.Viewers == nil {
		st.Viewers = map[string]time.Time{}
	}
	s.stories[st.ID] = st.Clone()
	return nil
}

func (s *Store) GetStory(ctx context.Context, id string) (*model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	if !ok {
		return nil, notFound("story", id)
	}
	return st.Clone(), nil
}

func (s *Store) RecordStoryView(ctx context.Context, id, viewerID string, at time.Time) (*model.Story, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok {
		return nil, false, notFound("story", id)
	}
	if _, seen := st.Viewers[viewerID]; seen {
		return st.Clone(), false, nil
	}
	st.Viewers[viewerID] = at
	st.ViewCount++
	return st.Clone(), true, nil
}

func (s *Store) ListStoriesByOwners(ctx context.Context, owners []string, now time.Time) ([]*model.Story, error) {
	want := make(map[string]struct{}, len(owners))
	for _, o := range owners {
		want[o] = struct{}{}
	}
	s.mu.RLock()
	out := make([]*model.Story, 0)
	for _, st := range s.stories {
		if _, ok := want[st.OwnerID]; ok && !st.IsExpired(now) {
			out = append(out, st.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteStory(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stories[id]
	delete(s.stories, id)
	return ok, nil
}

func (s *Store) ListExpiredStories(ctx context.Context, now time.Time, limit int) ([]*model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Story, 0)
	for _, st := range s.stories {
		// expires_at <= now
		if !st.ExpiresAt.After(now) {
			out = append(out, st.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out[:limitOf(limit, len(out))], nil
}

// ---------------- 好友 ----------------

// AddFriend 写入双向好友关系
func (s *Store) AddFriend(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range [][2]string{{a, b}, {b, a}} {
		set, ok := s.friends[p[0]]
		if !ok {
			set = make(map[string]struct{})
			s.friends[p[0]] = set
		}
		set[p[1]] = struct{}{}
	}
}

func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.friends[a][b]
	return ok, nil
}

func (s *Store) Friends(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.friends[userID]))
	for f := range s.friends[userID] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// ---------------- 媒体 ----------------

const mediaScheme = "mem://media/"

func (s *Store) Upload(ctx context.Context, data []byte, contentType string, meta map[string]string) (string, error) {
	if s.FailUpload != nil {
		return "", s.FailUpload
	}
	url := mediaScheme + ids.GenerateString()
	s.mu.Lock()
	s.media[url] = blob{data: append([]byte(nil), data...), contentType: contentType}
	s.mu.Unlock()
	return url, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	delete(s.media, url)
	s.mu.Unlock()
	return nil
}

func (s *Store) HasMedia(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.media[url]
	return ok
}

// Open 以 URL 末段作为 ID
func (s *Store) Open(ctx context.Context, id string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.media[mediaScheme+id]
	if !ok {
		return nil, "", notFound("media", id)
	}
	return append([]byte(nil), b.data...), b.contentType, nil
}
