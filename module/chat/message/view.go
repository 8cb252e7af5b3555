package message

import (
	"context"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/service/notify"
	"FlashChat/tools/errs"

	"go.uber.org/zap"
)

func (m *Manager) load(ctx context.Context, id string) (*model.Message, error) {
	msg, err := m.msgs.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.IsExpired(m.clk.Now()) {
		// 定时器没能执行（例如进程重启），这里顺手补删
		m.scheduleDelete(id, m.clk.Now())
		return nil, errs.ErrNotFound.WrapMsg("message expired", "id", id)
	}
	return msg, nil
}

// View 第一次查看开始倒计时；重复查看返回已存状态，不会重新计时
func (m *Manager) View(ctx context.Context, id, viewerID string) (*model.Message, error) {
	msg, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !msg.IsParticipant(viewerID) {
		return nil, errs.ErrAuthorization.WrapMsg("not a participant", "message", id, "viewer", viewerID)
	}
	if msg.Viewed {
		return msg, nil
	}

	viewedAt := m.clk.Now()
	expiresAt := viewedAt.Add(msg.Timer())
	cur, won, err := m.msgs.MarkMessageViewed(ctx, id, viewedAt, expiresAt)
	if err != nil {
		return nil, err
	}
	if !won {
		// 并发查看输给了别人，返回胜者写入的状态
		return cur, nil
	}

	m.scheduleDelete(id, *cur.ExpiresAt)
	m.log.Debug("message viewed", zap.String("id", id), zap.Time("expires_at", *cur.ExpiresAt))

	if viewerID == cur.RecipientID {
		m.dispatch(notify.Notification{
			Kind:      notify.KindMessageViewed,
			To:        cur.SenderID,
			From:      viewerID,
			MessageID: id,
		})
	}
	return cur, nil
}

// MarkDelivered 接收端确认收到：只做 sent -> delivered
func (m *Manager) MarkDelivered(ctx context.Context, id, recipientID string) (bool, error) {
	msg, err := m.load(ctx, id)
	if err != nil {
		return false, err
	}
	if recipientID == "" || msg.RecipientID != recipientID {
		return false, errs.ErrAuthorization.WrapMsg("only the recipient can ack delivery", "message", id)
	}
	return m.msgs.TransitionStatus(ctx, id, model.StatusSent, model.StatusDelivered)
}

// ReportScreenshot 记录截图并通知发送者，不改变查看和过期状态
func (m *Manager) ReportScreenshot(ctx context.Context, id, viewerID string) error {
	msg, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if !msg.IsParticipant(viewerID) {
		return errs.ErrAuthorization.WrapMsg("not a participant", "message", id, "viewer", viewerID)
	}
	if m.shots != nil {
		if err := m.shots.InsertScreenshot(ctx, &model.ScreenshotEvent{
			MessageID: id,
			ViewerID:  viewerID,
			SenderID:  msg.SenderID,
			At:        m.clk.Now(),
		}); err != nil {
			return err
		}
	}
	if err := m.msgs.IncScreenshots(ctx, id); err != nil {
		return err
	}
	if viewerID != msg.SenderID {
		m.dispatch(notify.Notification{
			Kind:      notify.KindScreenshot,
			To:        msg.SenderID,
			From:      viewerID,
			MessageID: id,
		})
	}
	return nil
}

// ListConversation 两人之间的未过期消息，按服务端创建时间升序
func (m *Manager) ListConversation(ctx context.Context, userID, peerID string, limit int) ([]*model.Message, error) {
	if userID == "" || peerID == "" {
		return nil, errs.ErrValidation.WrapMsg("user and peer required")
	}
	if limit <= 0 {
		limit = 100
	}
	return m.msgs.ListMessages(ctx, model.ConversationKey(userID, peerID), m.clk.Now(), limit)
}

// SubscribeInbox 用户收发消息的变更
func (m *Manager) SubscribeInbox(ctx context.Context, userID string, h store.Handler[model.Message], onErr store.ErrorHandler) (store.CancelFunc, error) {
	return m.msgs.WatchMessages(ctx, userID, h, onErr)
}
