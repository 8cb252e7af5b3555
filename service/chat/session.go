package chat

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/module/realtime"
	"FlashChat/tools/errs"
	"FlashChat/tools/safe"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameSize   = 8 << 10
	sendQueueSize  = 256
	teardownBudget = 3 * time.Second
)

// Session 一条 websocket 连接；它的全部订阅登记在自己的 Hub 中，断开时一次性取消
type Session struct {
	ID     string
	UserID string

	conn *websocket.Conn
	hub  *realtime.Hub
	deps Deps
	clk  clock.Clock
	log  *zap.Logger

	send      chan OutFrame
	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(id, userID string, conn *websocket.Conn, deps Deps, clk clock.Clock, log *zap.Logger) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		conn:   conn,
		hub:    realtime.NewHub(log),
		deps:   deps,
		clk:    clk,
		log:    log.With(zap.String("session", id), zap.String("user", userID)),
		send:   make(chan OutFrame, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// Close 关闭底层连接，读循环随之退出
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

// Subscriptions 当前订阅的 key，调试和测试用
func (s *Session) Subscriptions() []string { return s.hub.Keys() }

func (s *Session) emit(f OutFrame) {
	if f.TS.IsZero() {
		f.TS = s.clk.Now()
	}
	select {
	case <-s.closed:
	case s.send <- f:
	default:
		s.log.Warn("send queue full, drop frame", zap.String("type", f.Type))
	}
}

func (s *Session) fail(err error) {
	s.emit(errorFrame(err, s.clk.Now()))
}

func (s *Session) onStreamErr(key string) store.ErrorHandler {
	return func(err error) {
		s.log.Warn("subscription ended", zap.String("key", key), zap.Error(err))
		s.fail(err)
	}
}

// run 建立默认订阅、启动写协程并阻塞在读循环上，返回前完成全部清理
func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.deps.Presence.Start(ctx, s.UserID); err != nil {
		s.log.Warn("presence start failed", zap.Error(err))
	}

	writerDone := make(chan struct{})
	safe.Go("ws.write", func() {
		defer close(writerDone)
		s.writeLoop()
	})

	if err := s.subscribeDefaults(ctx); err != nil {
		s.log.Warn("default subscriptions failed", zap.Error(err))
		s.fail(err)
	}
	s.emit(OutFrame{Type: EventHello, ID: s.ID, Data: map[string]string{"userId": s.UserID}})

	s.readLoop(ctx)

	// 退出：先取消订阅，再下线
	n := s.hub.CancelAll()
	s.hub.Close()
	s.Close()
	<-writerDone

	stopCtx, stopCancel := context.WithTimeout(context.Background(), teardownBudget)
	defer stopCancel()
	if err := s.deps.Presence.Stop(stopCtx, s.UserID); err != nil {
		s.log.Warn("presence stop failed", zap.Error(err))
	}
	s.log.Debug("session closed", zap.Int("cancelled", n))
}

func (s *Session) subscribeDefaults(ctx context.Context) error {
	uid := s.UserID
	key := realtime.MessagesKey(uid)
	if err := s.hub.Subscribe(key, func() (store.CancelFunc, error) {
		// 存储层已按参与者过滤，包括删除事件
		return s.deps.Inbox.SubscribeInbox(ctx, uid, func(c store.Change[model.Message]) {
			if c.Op == store.OpRemoved {
				s.emit(OutFrame{Type: EventMessage, Op: string(c.Op), ID: c.ID})
				return
			}
			s.emit(OutFrame{Type: EventMessage, Op: string(c.Op), ID: c.ID, Data: c.Doc})
		}, s.onStreamErr(key))
	}); err != nil {
		return err
	}

	ckey := realtime.ConversationsKey(uid)
	return s.hub.Subscribe(ckey, func() (store.CancelFunc, error) {
		return s.deps.Conversations.Subscribe(ctx, uid, func(c store.Change[model.Conversation]) {
			var data any
			if c.Doc != nil {
				data = map[string]any{
					"conversation": c.Doc,
					"peerId":       c.Doc.Peer(uid),
					"viewPreview":  c.Doc.PreviewFor(uid),
				}
			}
			s.emit(OutFrame{Type: EventConversation, Op: string(c.Op), ID: c.ID, Data: data})
		}, s.onStreamErr(ckey))
	})
}

func (s *Session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.log.Debug("peer closed")
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				s.log.Info("read timeout")
			} else {
				select {
				case <-s.closed:
				default:
					s.log.Info("read error", zap.Error(err))
				}
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		f, err := ParseFrameJSON(data)
		if err != nil {
			s.fail(err)
			continue
		}
		if err := s.handle(ctx, f); err != nil {
			s.fail(err)
		}
	}
}

func (s *Session) handle(ctx context.Context, f *InFrame) error {
	switch f.Type {
	case FramePing:
		s.emit(OutFrame{Type: EventPong})
		return nil

	case FrameTyping:
		return s.deps.Presence.SetTyping(ctx, f.ConversationKey, s.UserID, f.Typing)

	case FrameWatchPresence:
		if f.UserID == "" {
			return errs.ErrValidation.WrapMsg("userId required")
		}
		key := realtime.PresenceKey(f.UserID)
		return s.hub.Subscribe(key, func() (store.CancelFunc, error) {
			return s.deps.Presence.Subscribe(ctx, f.UserID, func(p model.Presence) {
				s.emit(OutFrame{Type: EventPresence, ID: p.UserID, Data: p})
			}, s.onStreamErr(key))
		})

	case FrameWatchTyping:
		pair, ok := model.SplitConversationKey(f.ConversationKey)
		if !ok || (pair[0] != s.UserID && pair[1] != s.UserID) {
			return errs.ErrAuthorization.WrapMsg("not a participant", "conversation", f.ConversationKey)
		}
		key := realtime.TypingKey(f.ConversationKey)
		return s.hub.Subscribe(key, func() (store.CancelFunc, error) {
			return s.deps.Presence.SubscribeTyping(ctx, f.ConversationKey, func(t model.Typing) {
				if t.UserID == s.UserID {
					return
				}
				s.emit(OutFrame{Type: EventTyping, ID: t.ConversationKey, Data: t})
			}, s.onStreamErr(key))
		})

	case FrameUnwatch:
		// 默认的消息和会话订阅随连接存活，不允许单独取消
		if !strings.HasPrefix(f.Key, "presence:") && !strings.HasPrefix(f.Key, "typing:") {
			return errs.ErrValidation.WrapMsg("cannot unwatch", "key", f.Key)
		}
		s.hub.Cancel(f.Key)
		return nil

	case FrameDelivered:
		if f.MessageID == "" {
			return errs.ErrValidation.WrapMsg("messageId required")
		}
		_, err := s.deps.Inbox.MarkDelivered(ctx, f.MessageID, s.UserID)
		return err
	}
	return errs.ErrValidation.WrapMsg("unknown frame type", "type", f.Type)
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case f := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				s.log.Info("write failed", zap.Error(err))
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}
