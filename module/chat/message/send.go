package message

import (
	"context"
	"unicode/utf8"

	"FlashChat/module/chat/conversation"
	"FlashChat/module/chat/model"
	"FlashChat/service/notify"
	"FlashChat/tools/errs"

	"go.uber.org/zap"
)

type MediaUpload struct {
	Data        []byte
	ContentType string
	Kind        model.MediaKind
}

type SendRequest struct {
	SenderID     string
	RecipientID  string
	Media        *MediaUpload
	TimerSeconds int
	Text         string
}

func (m *Manager) validate(req *SendRequest) error {
	if req.SenderID == "" || req.RecipientID == "" {
		return errs.ErrValidation.WrapMsg("sender and recipient required")
	}
	if req.SenderID == req.RecipientID {
		return errs.ErrValidation.WrapMsg("cannot send to self", "user", req.SenderID)
	}
	if req.Text == "" && req.Media == nil {
		return errs.ErrValidation.WrapMsg("message needs text or media")
	}
	if n := utf8.RuneCountInString(req.Text); n > m.cfg.MaxTextRunes {
		return errs.ErrValidation.WrapMsg("text too long", "runes", n, "max", m.cfg.MaxTextRunes)
	}
	if req.Media != nil {
		if !req.Media.Kind.Valid() {
			return errs.ErrValidation.WrapMsg("unsupported media kind", "kind", req.Media.Kind)
		}
		if len(req.Media.Data) == 0 {
			return errs.ErrValidation.WrapMsg("empty media payload")
		}
	}
	if req.TimerSeconds == 0 {
		req.TimerSeconds = m.cfg.DefaultTimer
	}
	if !model.ValidTimer(req.TimerSeconds, m.cfg.AllowedTimers) {
		return errs.ErrValidation.WrapMsg("unsupported timer", "seconds", req.TimerSeconds)
	}
	return nil
}

// Send 先上传媒体，再写消息；会话摘要与通知失败都不影响结果
func (m *Manager) Send(ctx context.Context, req SendRequest) (string, error) {
	if err := m.validate(&req); err != nil {
		return "", err
	}

	msg := &model.Message{
		SenderID:        req.SenderID,
		RecipientID:     req.RecipientID,
		ConversationKey: model.ConversationKey(req.SenderID, req.RecipientID),
		Text:            req.Text,
		TimerSeconds:    req.TimerSeconds,
		Status:          model.StatusSent,
	}

	if req.Media != nil {
		url, err := m.media.Upload(ctx, req.Media.Data, req.Media.ContentType, map[string]string{
			"sender": req.SenderID,
			"kind":   string(req.Media.Kind),
		})
		if err != nil {
			if errs.Code(err) == errs.UploadError {
				return "", err
			}
			return "", errs.ErrUpload.WrapCause(err, "upload media", "sender", req.SenderID)
		}
		msg.Media = &model.MediaRef{URL: url, Kind: req.Media.Kind, ContentType: req.Media.ContentType}
	}

	if err := m.msgs.InsertMessage(ctx, msg); err != nil {
		if msg.Media != nil {
			if derr := m.media.Delete(ctx, msg.Media.URL); derr != nil {
				m.log.Warn("orphan media after failed insert", zap.String("url", msg.Media.URL), zap.Error(derr))
			}
		}
		return "", err
	}

	// 与消息写入不是原子的：失败时摘要滞后，下一条消息会纠正
	if m.agg != nil {
		if err := m.agg.Upsert(ctx, conversation.UpsertRequest{
			SenderID:    msg.SenderID,
			RecipientID: msg.RecipientID,
			MessageID:   msg.ID,
			At:          msg.CreatedAt,
			PreviewText: msg.Text,
			PreviewKind: msg.PreviewKind(),
		}); err != nil {
			m.log.Error("conversation upsert failed", zap.String("key", msg.ConversationKey), zap.String("message", msg.ID), zap.Error(err))
		}
	}

	m.dispatch(notify.Notification{
		Kind:      notify.KindNewMessage,
		To:        msg.RecipientID,
		From:      msg.SenderID,
		MessageID: msg.ID,
	})
	return msg.ID, nil
}
