package message

import (
	"context"

	"FlashChat/tools/errs"

	"go.uber.org/zap"
)

// Delete 先删媒体（失败只记日志）再删文档；消息不存在时什么也不做
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.sched.Cancel(timerKey(id))

	msg, err := m.msgs.GetMessage(ctx, id)
	if errs.Code(err) == errs.NotFoundError {
		return nil
	}
	if err != nil {
		return err
	}
	if msg.Media != nil && m.media != nil {
		if err := m.media.Delete(ctx, msg.Media.URL); err != nil {
			m.log.Warn("media delete failed", zap.String("id", id), zap.String("url", msg.Media.URL), zap.Error(err))
		}
	}
	if _, err := m.msgs.DeleteMessage(ctx, id); err != nil {
		return err
	}
	return nil
}

// SweepExpired 分批删除 expires_at <= now 的消息，返回删除条数；重复执行无副作用
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch, err := m.msgs.ListExpiredMessages(ctx, m.clk.Now(), m.cfg.SweepBatch)
		if err != nil {
			return total, err
		}
		deleted := 0
		for _, msg := range batch {
			if err := m.Delete(ctx, msg.ID); err != nil {
				m.log.Warn("sweep delete failed", zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			deleted++
		}
		total += deleted
		// 不足一页说明已扫完；整页都删失败时也停止，避免死循环
		if len(batch) < m.cfg.SweepBatch || deleted == 0 {
			break
		}
	}
	if total > 0 {
		m.log.Info("expired messages swept", zap.Int("count", total))
	}
	return total, nil
}
