package config

import (
	"time"

	"FlashChat/data/database/mgo/mongoutil"
	"FlashChat/service/kafka"
	"FlashChat/service/nacos"
	"FlashChat/service/natsx"
	redis "FlashChat/service/storage/redis"
)

const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"

	NotifyLog   = "log"
	NotifyNats  = "nats"
	NotifyKafka = "kafka"
)

type AppConfig struct {
	Node      NodeConfig       `mapstructure:"node"`
	Server    ServerConfig     `mapstructure:"server"`
	Log       LogConfig        `mapstructure:"log"`
	Store     StoreConfig      `mapstructure:"store"`
	Mongo     mongoutil.Config `mapstructure:"mongo"`
	Redis     redis.Config     `mapstructure:"redis"`
	Postgres  PostgresConfig   `mapstructure:"postgres"`
	Media     MediaConfig      `mapstructure:"media"`
	Notify    NotifyConfig     `mapstructure:"notify"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	Lifecycle LifecycleConfig  `mapstructure:"lifecycle"`
	Nacos     nacos.Config     `mapstructure:"nacos"`
}

type NodeConfig struct {
	ID int64 `mapstructure:"id"` // 雪花 ID 节点号
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // gin: debug/release/test
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory | mongo
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"` // 为空时使用内存目录
}

type MediaConfig struct {
	Bucket  string `mapstructure:"bucket"`
	BaseURL string `mapstructure:"base_url"`
}

type NotifyConfig struct {
	Driver      string            `mapstructure:"driver"` // log | nats | kafka
	Timeout     time.Duration     `mapstructure:"timeout"`
	NatsSubject string            `mapstructure:"nats_subject"`
	JetStream   bool              `mapstructure:"jetstream"`
	Nats        natsx.NatsxConfig `mapstructure:"nats"`
	Kafka       kafka.AppConfig   `mapstructure:"kafka"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Alg    string        `mapstructure:"alg"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type LifecycleConfig struct {
	DefaultTimer       int           `mapstructure:"default_timer"`
	AllowedTimers      []int         `mapstructure:"allowed_timers"`
	MaxTextRunes       int           `mapstructure:"max_text_runes"`
	StoryTTL           time.Duration `mapstructure:"story_ttl"`
	PresenceHeartbeat  time.Duration `mapstructure:"presence_heartbeat"`
	PresenceStaleAfter time.Duration `mapstructure:"presence_stale_after"`
	PresenceTTL        time.Duration `mapstructure:"presence_ttl"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	SweepBatch         int           `mapstructure:"sweep_batch"`
}
