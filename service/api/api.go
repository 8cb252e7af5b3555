// Package api exposes the lifecycle managers over HTTP under /v1.
package api

import (
	"net/http"
	"strconv"
	"time"

	"FlashChat/logger"
	"FlashChat/middleware"
	"FlashChat/module/chat/conversation"
	"FlashChat/module/chat/message"
	"FlashChat/module/chat/store"
	"FlashChat/module/friend/suggest"
	"FlashChat/module/presence"
	"FlashChat/module/story"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Messages      *message.Manager
	Conversations *conversation.Aggregator
	Stories       *story.Manager
	Presence      *presence.Tracker
	Suggest       *suggest.Service
	Media         store.MediaReader
	// WS 为空时不注册 /v1/ws
	WS     gin.HandlerFunc
	Auth   gin.HandlerFunc
	Logger *zap.Logger
	Clock  clock.Clock
	// Origins 跨域白名单，空表示不限制
	Origins []string
}

type Server struct {
	d   Deps
	clk clock.Clock
	log *zap.Logger
	// checks 运行期可增减的前置检查
	checks *middleware.MiddlewareManager
}

func NewServer(d Deps) *Server {
	clk := d.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Server{d: d, clk: clk, log: logger.Or(d.Logger).Named("api"), checks: middleware.NewManager()}
}

func (s *Server) now() time.Time { return s.clk.Now() }

// Checks 额外的前置检查，例如维护开关
func (s *Server) Checks() *middleware.MiddlewareManager { return s.checks }

// Engine 组装路由
func (s *Server) Engine() *gin.Engine {
	e := gin.New()
	e.Use(middleware.Recover(), middleware.AccessLog(s.log))
	s.checks.Add(middleware.Origin(s.d.Origins))
	e.Use(s.checks.Use())

	e.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	v1 := middleware.NewRouter(e.Group("/v1"), s.d.Auth)
	auth := middleware.RouteOpt{IsAuth: true}

	v1.POST("/messages", s.handle(s.sendMessage), auth)
	v1.POST("/messages/:id/view", s.handle(s.viewMessage), auth)
	v1.POST("/messages/:id/delivered", s.handle(s.markDelivered), auth)
	v1.POST("/messages/:id/screenshot", s.handle(s.reportScreenshot), auth)

	v1.GET("/conversations", s.handle(s.listConversations), auth)
	v1.POST("/conversations", s.handle(s.startConversation), auth)
	v1.GET("/conversations/:peer/messages", s.handle(s.listMessages), auth)

	v1.POST("/stories", s.handle(s.createStory), auth)
	v1.GET("/stories/feed", s.handle(s.storyFeed), auth)
	v1.GET("/stories/mine", s.handle(s.myStories), auth)
	v1.POST("/stories/:id/view", s.handle(s.viewStory), auth)
	v1.GET("/stories/:id/viewers", s.handle(s.storyViewers), auth)
	v1.DELETE("/stories/:id", s.handle(s.deleteStory), auth)

	v1.GET("/presence/:uid", s.handle(s.getPresence), auth)
	v1.POST("/friends/suggestions", s.handle(s.suggestFriends), auth)
	v1.GET("/media/:id", s.handle(s.downloadMedia), auth)

	if s.d.WS != nil {
		v1.GET("/ws", s.d.WS, auth)
	}
	return e
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func zapPath(c *gin.Context) zap.Field { return zap.String("path", c.Request.URL.Path) }
func zapErr(err error) zap.Field       { return zap.Error(err) }
