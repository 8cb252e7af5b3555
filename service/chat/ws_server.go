// Package chat serves the realtime websocket: one Session per connection,
// each owning a subscription hub that is torn down when the socket closes.
package chat

import (
	"context"
	"net/http"

	"FlashChat/logger"
	"FlashChat/middleware/security"
	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Server struct {
	deps     Deps
	conns    *ConnManager
	upgrader websocket.Upgrader
	clk      clock.Clock
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewServer(deps Deps, clk clock.Clock, log *zap.Logger) *Server {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		deps:  deps,
		conns: NewConnManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clk:    clk,
		log:    logger.Or(log).Named("ws"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Server) ConnMgr() *ConnManager { return s.conns }

// HandleWS 需挂在鉴权中间件之后
func (s *Server) HandleWS(c *gin.Context) {
	uid := security.UserID(c)
	if uid == "" {
		err := errs.ErrUnauthenticated.WrapMsg("websocket needs an authenticated user")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": errs.UnauthenticatedError, "msg": "UnauthenticatedError", "detail": err.Error()})
		return
	}
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败，Upgrade 已写回错误响应
		s.log.Info("upgrade websocket error", zap.Error(err))
		return
	}

	sess := newSession(uuid.NewString(), uid, ws, s.deps, s.clk, s.log)
	s.conns.Add(sess)
	defer s.conns.Remove(sess)
	s.log.Debug("session opened", zap.String("session", sess.ID), zap.String("user", uid))

	sess.run(s.ctx)
}

// Shutdown 关闭全部连接；每个会话会自行取消订阅并下线
func (s *Server) Shutdown() {
	s.cancel()
	s.conns.Close()
}
