// Package story manages 24-hour stories: creation, privacy-checked viewing,
// friend feeds and expiry.
package story

import (
	"context"
	"sort"
	"time"

	"FlashChat/logger"
	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/service/notify"
	"FlashChat/tools/deferred"
	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

type Config struct {
	TTL          time.Duration `mapstructure:"story_ttl"`
	CleanupBatch int           `mapstructure:"sweep_batch"`
}

type Dispatcher interface {
	Dispatch(n notify.Notification)
}

type Deps struct {
	Stories  store.StoryStore
	Friends  store.FriendGraph
	Media    store.MediaStore
	Notifier Dispatcher
	Clock    clock.Clock
	Logger   *zap.Logger
}

type Manager struct {
	stories store.StoryStore
	friends store.FriendGraph
	media   store.MediaStore
	notify  Dispatcher
	clk     clock.Clock
	sched   *deferred.Scheduler
	ttl     time.Duration
	batch   int
	log     *zap.Logger
}

func NewManager(d Deps, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = model.StoryTTL
	}
	if cfg.CleanupBatch <= 0 {
		cfg.CleanupBatch = 100
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		stories: d.Stories,
		friends: d.Friends,
		media:   d.Media,
		notify:  d.Notifier,
		clk:     clk,
		sched:   deferred.New(clk),
		ttl:     cfg.TTL,
		batch:   cfg.CleanupBatch,
		log:     logger.Or(d.Logger).Named("story"),
	}
}

func (m *Manager) Close() { m.sched.Stop() }

type MediaUpload struct {
	Data        []byte
	ContentType string
	Kind        model.MediaKind
}

type CreateRequest struct {
	OwnerID   string
	Media     MediaUpload
	Text      string
	Privacy   model.Privacy
	AllowList []string
}

func timerKey(id string) string { return "story:" + id }

func (m *Manager) validate(req *CreateRequest) error {
	if req.OwnerID == "" {
		return errs.ErrValidation.WrapMsg("owner required")
	}
	if req.Privacy == "" {
		req.Privacy = model.PrivacyFriends
	}
	if !req.Privacy.Valid() {
		return errs.ErrValidation.WrapMsg("unknown privacy", "privacy", req.Privacy)
	}
	if req.Privacy == model.PrivacyCustom && len(req.AllowList) == 0 {
		return errs.ErrValidation.WrapMsg("custom privacy needs an allow list")
	}
	if !req.Media.Kind.Valid() || len(req.Media.Data) == 0 {
		return errs.ErrValidation.WrapMsg("story needs a photo or video")
	}
	if utf8Len(req.Text) > model.MaxTextRunes {
		return errs.ErrValidation.WrapMsg("caption too long")
	}
	return nil
}

// Create 上传媒体后写入故事，并在 24 小时后删除
func (m *Manager) Create(ctx context.Context, req CreateRequest) (string, error) {
	if err := m.validate(&req); err != nil {
		return "", err
	}
	url, err := m.media.Upload(ctx, req.Media.Data, req.Media.ContentType, map[string]string{
		"owner": req.OwnerID,
		"kind":  string(req.Media.Kind),
	})
	if err != nil {
		if errs.Code(err) == errs.UploadError {
			return "", err
		}
		return "", errs.ErrUpload.WrapCause(err, "upload story media", "owner", req.OwnerID)
	}

	now := m.clk.Now()
	st := &model.Story{
		OwnerID:   req.OwnerID,
		Media:     model.MediaRef{URL: url, Kind: req.Media.Kind, ContentType: req.Media.ContentType},
		Text:      req.Text,
		Privacy:   req.Privacy,
		AllowList: dedupe(req.AllowList),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Viewers:   map[string]time.Time{},
	}
	if err := m.stories.InsertStory(ctx, st); err != nil {
		if derr := m.media.Delete(ctx, url); derr != nil {
			m.log.Warn("orphan story media", zap.String("url", url), zap.Error(derr))
		}
		return "", err
	}

	m.sched.At(timerKey(st.ID), st.ExpiresAt, func(ctx context.Context) {
		if err := m.Delete(ctx, st.ID); err != nil {
			m.log.Warn("timed story delete failed", zap.String("id", st.ID), zap.Error(err))
		}
	})
	return st.ID, nil
}

// CanView owner 永远可见；friends 询问好友关系；custom 看白名单
func (m *Manager) CanView(ctx context.Context, st *model.Story, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	if viewerID == st.OwnerID {
		return true, nil
	}
	switch st.Privacy {
	case model.PrivacyPublic:
		return true, nil
	case model.PrivacyFriends:
		return m.friends.AreFriends(ctx, st.OwnerID, viewerID)
	case model.PrivacyCustom:
		return st.Allowed(viewerID), nil
	}
	return false, nil
}

func (m *Manager) live(ctx context.Context, id string) (*model.Story, error) {
	st, err := m.stories.GetStory(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.IsExpired(m.clk.Now()) {
		return nil, errs.ErrNotFound.WrapMsg("story expired", "id", id)
	}
	return st, nil
}

// View 首次查看记入 viewers 并计数，重复查看不变
func (m *Manager) View(ctx context.Context, id, viewerID string) (*model.Story, error) {
	st, err := m.live(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := m.CanView(ctx, st, viewerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrAuthorization.WrapMsg("story not visible", "story", id, "viewer", viewerID)
	}
	if st.HasViewed(viewerID) {
		return st, nil
	}

	cur, recorded, err := m.stories.RecordStoryView(ctx, id, viewerID, m.clk.Now())
	if err != nil {
		return nil, err
	}
	if recorded && viewerID != cur.OwnerID && m.notify != nil {
		m.notify.Dispatch(notify.Notification{
			Kind:    notify.KindStoryViewed,
			To:      cur.OwnerID,
			From:    viewerID,
			StoryID: id,
		})
	}
	return cur, nil
}

// ListForFriends 按好友分组的有效故事；组内按创建时间升序，有未看的组排前面
func (m *Manager) ListForFriends(ctx context.Context, userID string) ([]model.StoryGroup, error) {
	friends, err := m.friends.Friends(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friends) == 0 {
		return []model.StoryGroup{}, nil
	}
	stories, err := m.stories.ListStoriesByOwners(ctx, friends, m.clk.Now())
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int)
	groups := make([]model.StoryGroup, 0)
	for _, st := range stories {
		// 好友可见的故事仍需过隐私检查（custom 白名单）
		if st.Privacy == model.PrivacyCustom && !st.Allowed(userID) {
			continue
		}
		i, ok := idx[st.OwnerID]
		if !ok {
			i = len(groups)
			idx[st.OwnerID] = i
			groups = append(groups, model.StoryGroup{OwnerID: st.OwnerID})
		}
		viewed := st.HasViewed(userID)
		groups[i].Stories = append(groups[i].Stories, model.StoryView{Story: st, Viewed: viewed})
		if !viewed {
			groups[i].HasUnviewed = true
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].HasUnviewed != groups[j].HasUnviewed {
			return groups[i].HasUnviewed
		}
		return latest(groups[i]).After(latest(groups[j]))
	})
	return groups, nil
}

func latest(g model.StoryGroup) time.Time {
	var t time.Time
	for _, s := range g.Stories {
		if s.CreatedAt.After(t) {
			t = s.CreatedAt
		}
	}
	return t
}

func (m *Manager) ListOwn(ctx context.Context, userID string) ([]*model.Story, error) {
	return m.stories.ListStoriesByOwners(ctx, []string{userID}, m.clk.Now())
}

// GetViewers 仅作者可查，按查看时间倒序
func (m *Manager) GetViewers(ctx context.Context, id, ownerID string) ([]model.StoryViewer, error) {
	st, err := m.stories.GetStory(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.OwnerID != ownerID {
		return nil, errs.ErrAuthorization.WrapMsg("only the owner can list viewers", "story", id)
	}
	out := make([]model.StoryViewer, 0, len(st.Viewers))
	for uid, at := range st.Viewers {
		out = append(out, model.StoryViewer{UserID: uid, ViewedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ViewedAt.Equal(out[j].ViewedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ViewedAt.After(out[j].ViewedAt)
	})
	return out, nil
}

// Delete 先删媒体再删文档，不存在时无操作
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.sched.Cancel(timerKey(id))
	st, err := m.stories.GetStory(ctx, id)
	if errs.Code(err) == errs.NotFoundError {
		return nil
	}
	if err != nil {
		return err
	}
	if m.media != nil && st.Media.URL != "" {
		if err := m.media.Delete(ctx, st.Media.URL); err != nil {
			m.log.Warn("story media delete failed", zap.String("id", id), zap.Error(err))
		}
	}
	_, err = m.stories.DeleteStory(ctx, id)
	return err
}

func (m *Manager) DeleteOwn(ctx context.Context, id, ownerID string) error {
	st, err := m.stories.GetStory(ctx, id)
	if err != nil {
		return err
	}
	if st.OwnerID != ownerID {
		return errs.ErrAuthorization.WrapMsg("only the owner can delete a story", "story", id)
	}
	return m.Delete(ctx, id)
}

// CleanupExpired 分页删除 expires_at <= now 的故事，直到不满一页
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch, err := m.stories.ListExpiredStories(ctx, m.clk.Now(), m.batch)
		if err != nil {
			return total, err
		}
		deleted := 0
		for _, st := range batch {
			if err := m.Delete(ctx, st.ID); err != nil {
				m.log.Warn("cleanup delete failed", zap.String("id", st.ID), zap.Error(err))
				continue
			}
			deleted++
		}
		total += deleted
		if len(batch) < m.batch || deleted == 0 {
			break
		}
	}
	if total > 0 {
		m.log.Info("expired stories cleaned", zap.Int("count", total))
	}
	return total, nil
}
