package main

import (
	"context"
	"io"
	"time"

	"FlashChat/global/config"
	"FlashChat/logger"
	authmw "FlashChat/middleware/security"
	"FlashChat/module/chat/conversation"
	"FlashChat/module/chat/message"
	"FlashChat/module/chat/store"
	"FlashChat/module/chat/store/memstore"
	"FlashChat/module/chat/store/mongostore"
	"FlashChat/module/friend/directory"
	"FlashChat/module/friend/suggest"
	"FlashChat/module/presence"
	"FlashChat/module/story"
	"FlashChat/service/api"
	"FlashChat/service/chat"
	"FlashChat/service/kafka"
	mgoSrv "FlashChat/service/mgo"
	"FlashChat/service/natsx"
	"FlashChat/service/notify"
	"FlashChat/service/storage"
	"FlashChat/service/storage/gridfs"
	redisx "FlashChat/service/storage/redis"
	"FlashChat/service/sweeper"
	"FlashChat/tools/errs"
	"FlashChat/tools/security"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const mongoConnectTimeout = 15 * time.Second

// backend 存储相关依赖
type backend struct {
	docs     store.DocumentStore
	media    store.MediaStore
	reader   store.MediaReader
	presence store.PresenceStore
	dir      directory.Directory
}

// App 进程内全部组件
type App struct {
	cfg     config.AppConfig
	clk     clock.Clock
	log     *zap.Logger
	b       backend
	notify  *notify.Dispatcher
	agg     *conversation.Aggregator
	msgs    *message.Manager
	stories *story.Manager
	pres    *presence.Tracker
	suggest *suggest.Service
	ws      *chat.Server
	sweeper *sweeper.Sweeper

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (a *App) onClose(fn func() error) { a.closers = append(a.closers, closerFunc(fn)) }

func jwtOptions(cfg config.AppConfig, clk clock.Clock) security.Options {
	opts := security.DefaultOptions([]byte(cfg.JWT.Secret))
	if cfg.JWT.Alg != "" {
		opts.Alg = cfg.JWT.Alg
	}
	if cfg.JWT.TTL > 0 {
		opts.TTL = cfg.JWT.TTL
	}
	opts.Clock = clk
	return opts
}

// NewApp 按配置连接后端并组装管理器
func NewApp(ctx context.Context, cfg config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, clk: clock.New(), log: logger.L()}
	if err := a.openBackend(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	n, err := a.openNotifier()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.notify = notify.NewDispatcher(n, a.clk, cfg.Notify.Timeout, a.log)

	lc := cfg.Lifecycle
	a.agg = conversation.NewAggregator(a.b.docs, a.b.docs, a.clk, a.log)
	a.msgs = message.NewManager(message.Deps{
		Messages:    a.b.docs,
		Screenshots: a.b.docs,
		Media:       a.b.media,
		Aggregator:  a.agg,
		Notifier:    a.notify,
		Clock:       a.clk,
		Logger:      a.log,
	}, message.Config{
		DefaultTimer:  lc.DefaultTimer,
		AllowedTimers: lc.AllowedTimers,
		MaxTextRunes:  lc.MaxTextRunes,
		SweepBatch:    lc.SweepBatch,
	})
	a.stories = story.NewManager(story.Deps{
		Stories:  a.b.docs,
		Friends:  a.b.docs,
		Media:    a.b.media,
		Notifier: a.notify,
		Clock:    a.clk,
		Logger:   a.log,
	}, story.Config{TTL: lc.StoryTTL, CleanupBatch: lc.SweepBatch})
	a.pres = presence.NewTracker(a.b.presence, a.clk, presence.Config{
		Heartbeat:  lc.PresenceHeartbeat,
		StaleAfter: lc.PresenceStaleAfter,
	}, a.log)
	a.suggest = suggest.NewService(a.b.docs, a.b.dir, a.log)
	a.ws = chat.NewServer(chat.Deps{Inbox: a.msgs, Conversations: a.agg, Presence: a.pres}, a.clk, a.log)
	a.sweeper = sweeper.New(a.clk, lc.SweepInterval, a.log,
		sweeper.Job{Name: "messages", Run: a.msgs.SweepExpired},
		sweeper.Job{Name: "stories", Run: a.stories.CleanupExpired},
	)
	return a, nil
}

func (a *App) openBackend(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Store.Driver {
	case config.StoreMongo:
		wctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
		defer cancel()
		m, err := mgoSrv.Connect(wctx, cfg.Mongo, a.clk, a.log)
		if err != nil {
			return errs.WrapMsg(err, "mongo not ready", "database", cfg.Mongo.Database)
		}
		// 在 HTTP 与 ws 全部排空之后才断开
		a.onClose(func() error {
			dctx, dcancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
			defer dcancel()
			return m.Close(dctx)
		})
		m.Watch(mgoSrv.HealthEvery)
		db := m.DB()
		docs := mongostore.New(db, a.log)
		if err := docs.EnsureIndexes(ctx); err != nil {
			return err
		}
		media, err := gridfs.New(db, cfg.Media.Bucket, cfg.Media.BaseURL)
		if err != nil {
			return err
		}
		rdb, err := redisx.NewClient(ctx, cfg.Redis)
		if err != nil {
			return errs.ErrStore.WrapCause(err, "connect redis", "addr", cfg.Redis.Addr)
		}
		a.onClose(rdb.Close)
		a.b = backend{
			docs:     docs,
			media:    media,
			reader:   media,
			presence: storage.NewRedisPresence(rdb, cfg.Lifecycle.PresenceTTL, a.log),
		}
	default:
		mem := memstore.New(a.clk)
		a.b = backend{docs: mem, media: mem, reader: mem, presence: mem}
	}

	if cfg.Postgres.DSN == "" {
		a.b.dir = directory.NewMemory()
		return nil
	}
	pg, err := directory.NewPgDirectory(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	a.onClose(func() error { pg.Close(); return nil })
	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	a.b.dir = pg
	return nil
}

func (a *App) openNotifier() (notify.Notifier, error) {
	cfg := a.cfg.Notify
	switch cfg.Driver {
	case config.NotifyNats:
		m, err := natsx.NewNatsManager(cfg.Nats, notify.NatsRoute(cfg.NatsSubject, cfg.JetStream))
		if err != nil {
			return nil, errs.WrapMsg(err, "connect nats", "servers", cfg.Nats.Servers)
		}
		a.onClose(m.Close)
		return notify.NewNatsNotifier(m), nil
	case config.NotifyKafka:
		p, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, errs.WrapMsg(err, "connect kafka", "brokers", cfg.Kafka.Brokers)
		}
		a.onClose(p.Close)
		return notify.NewKafkaNotifier(p), nil
	}
	return notify.NewLogNotifier(a.log), nil
}

// Handler HTTP 入口
func (a *App) Handler() *api.Server {
	return api.NewServer(api.Deps{
		Messages:      a.msgs,
		Conversations: a.agg,
		Stories:       a.stories,
		Presence:      a.pres,
		Suggest:       a.suggest,
		Media:         a.b.reader,
		WS:            a.ws.HandleWS,
		Auth:          authmw.Middleware(authmw.DefaultOptions(jwtOptions(a.cfg, a.clk))),
		Logger:        a.log,
		Clock:         a.clk,
	})
}

// Close 先停入口再停后端，逆序关闭连接
func (a *App) Close(ctx context.Context) {
	if a.ws != nil {
		a.ws.Shutdown()
	}
	if a.msgs != nil {
		a.msgs.Close()
	}
	if a.stories != nil {
		a.stories.Close()
	}
	if a.pres != nil {
		a.pres.Close(ctx)
	}
	if a.notify != nil {
		a.notify.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
