// Package config loads the service configuration from a YAML file, FLASHCHAT_*
// environment variables and, optionally, a nacos-hosted overlay.
package config

import (
	"strings"
	"sync"
	"time"

	"FlashChat/data/database/mgo/mongoutil"
	"FlashChat/logger"
	"FlashChat/module/chat/model"
	"FlashChat/service/kafka"
	"FlashChat/service/nacos"
	"FlashChat/service/natsx"
	redis "FlashChat/service/storage/redis"
	"FlashChat/tools/errs"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvPrefix = "FLASHCHAT"

// Default 全内存、可直接运行的配置
func Default() AppConfig {
	return AppConfig{
		Node:   NodeConfig{ID: 1},
		Server: ServerConfig{Addr: ":8080", Mode: "release"},
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Driver: StoreMemory},
		Mongo: mongoutil.Config{
			Uri:         "mongodb://localhost:27017",
			Database:    "flashchat",
			MaxPoolSize: 20,
			MaxRetry:    3,
		},
		Redis: redis.Config{Addr: "127.0.0.1:6379"},
		Media: MediaConfig{Bucket: "media", BaseURL: "/v1/media/"},
		Notify: NotifyConfig{
			Driver:      NotifyLog,
			Timeout:     3 * time.Second,
			NatsSubject: "flashchat.notify.{key}",
			Nats: natsx.NatsxConfig{
				Servers:       []string{"nats://127.0.0.1:4222"},
				Name:          "flashchat",
				ReconnectWait: 2 * time.Second,
				Timeout:       5 * time.Second,
			},
			Kafka: kafka.DefaultConfig(),
		},
		JWT: JWTConfig{Alg: "HS256", TTL: 2 * time.Hour},
		Lifecycle: LifecycleConfig{
			DefaultTimer:       model.DefaultTimerSeconds,
			AllowedTimers:      append([]int(nil), model.AllowedTimers...),
			MaxTextRunes:       model.MaxTextRunes,
			StoryTTL:           model.StoryTTL,
			PresenceHeartbeat:  30 * time.Second,
			PresenceStaleAfter: 0,
			PresenceTTL:        0,
			SweepInterval:      5 * time.Minute,
			SweepBatch:         100,
		},
		Nacos: nacos.Config{DataID: "flashchat.yaml", Group: "DEFAULT_GROUP", ServiceName: "flashchat-api"},
	}
}

// Validate 检查启动所必需的项
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreMongo:
	default:
		return errs.ErrValidation.WrapMsg("unknown store driver", "driver", c.Store.Driver)
	}
	switch c.Notify.Driver {
	case NotifyLog, NotifyNats, NotifyKafka:
	default:
		return errs.ErrValidation.WrapMsg("unknown notify driver", "driver", c.Notify.Driver)
	}
	if c.Lifecycle.DefaultTimer <= 0 || !model.ValidTimer(c.Lifecycle.DefaultTimer, c.Lifecycle.AllowedTimers) {
		return errs.ErrValidation.WrapMsg("default timer must be one of the allowed timers", "timer", c.Lifecycle.DefaultTimer)
	}
	if c.Lifecycle.SweepBatch <= 0 {
		return errs.ErrValidation.WrapMsg("sweep batch must be positive")
	}
	if c.Store.Driver == StoreMongo && c.Mongo.Uri == "" && len(c.Mongo.Address) == 0 {
		return errs.ErrValidation.WrapMsg("mongo store needs uri or address")
	}
	return nil
}

// 环境变量覆盖的键
var envKeys = []string{
	"node.id",
	"server.addr", "server.mode",
	"log.level",
	"store.driver",
	"mongo.uri", "mongo.database", "mongo.username", "mongo.password",
	"redis.addr", "redis.password", "redis.db",
	"postgres.dsn",
	"notify.driver", "notify.nats.servers", "notify.kafka.brokers",
	"jwt.secret", "jwt.ttl",
	"lifecycle.sweep_interval", "lifecycle.presence_stale_after",
	"nacos.enabled", "nacos.host", "nacos.port", "nacos.namespace",
	"nacos.username", "nacos.password", "nacos.register",
}

// decodeOption 解码到预填默认值的结构上：列表和 map 整体替换而不是按下标合并
func decodeOption() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
		dc.ZeroFields = true
	}
}

// Loader 持有 viper 实例，远端覆盖到来时重新解码
type Loader struct {
	vmu     sync.Mutex
	v       *viper.Viper
	mu      sync.RWMutex
	cfg     AppConfig
	subs    []func(AppConfig)
	watcher *nacos.Watcher
}

// NewLoader path 为空时只用默认值和环境变量
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, errs.WrapMsg(err, "bind env", "key", k)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.ErrValidation.WrapMsg("read config file", "path", path, "err", err.Error())
		}
	}
	l := &Loader{v: v}
	if err := l.decode(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) decode() error {
	cfg := Default()
	if err := l.v.Unmarshal(&cfg, decodeOption()); err != nil {
		return errs.ErrValidation.WrapMsg("decode config", "err", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.cfg = cfg
	subs := append([]func(AppConfig){}, l.subs...)
	l.mu.Unlock()
	for _, fn := range subs {
		fn(cfg)
	}
	return nil
}

func (l *Loader) Config() AppConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// OnChange 每次重新解码成功后回调
func (l *Loader) OnChange(fn func(AppConfig)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

// Merge 把一段 YAML 合并到当前配置之上
func (l *Loader) Merge(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	l.vmu.Lock()
	defer l.vmu.Unlock()
	if err := l.v.MergeConfig(strings.NewReader(content)); err != nil {
		return errs.ErrValidation.WrapMsg("merge remote config", "err", err.Error())
	}
	return l.decode()
}

// WatchRemote 拉取 nacos 上的配置并监听变更
func (l *Loader) WatchRemote(src nacos.ConfigSource) error {
	cfg := l.Config()
	w := nacos.NewWatcher(src, cfg.Nacos.DataID, cfg.Nacos.Group)
	content, err := w.Start(func(data string) {
		if err := l.Merge(data); err != nil {
			logger.Warn("nacos config rejected", zap.Error(err))
			return
		}
		logger.Info("nacos config applied", zap.String("data_id", cfg.Nacos.DataID))
	})
	if err != nil {
		return err
	}
	l.watcher = w
	return l.Merge(content)
}

func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Stop()
}

// Load 读取文件和环境变量，不连接 nacos
func Load(path string) (AppConfig, error) {
	l, err := NewLoader(path)
	if err != nil {
		return AppConfig{}, err
	}
	return l.Config(), nil
}
