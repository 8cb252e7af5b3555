package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"FlashChat/module/chat/model"
	"FlashChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Lifecycle.DefaultTimer)
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.PresenceHeartbeat)
	assert.Equal(t, 24*time.Hour, cfg.Lifecycle.StoryTTL)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flashchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
store:
  driver: mongo
mongo:
  uri: mongodb://db:27017
lifecycle:
  allowed_timers: [3, 5, 10]
  sweep_interval: 90s
notify:
  driver: kafka
  kafka:
    brokers: [k1:9092, k2:9092]
`), 0o600))
	t.Setenv("FLASHCHAT_JWT_SECRET", "from-env")
	t.Setenv("FLASHCHAT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.Uri)
	assert.Equal(t, "flashchat", cfg.Mongo.Database)
	assert.Equal(t, []int{3, 5, 10}, cfg.Lifecycle.AllowedTimers)
	assert.False(t, model.ValidTimer(60, cfg.Lifecycle.AllowedTimers))
	assert.Equal(t, 90*time.Second, cfg.Lifecycle.SweepInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notify.Kafka.Brokers)
	assert.Equal(t, "flashchat.notify-%02d", cfg.Notify.Kafka.TopicPattern)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: sqlite\n"), 0o600))
	_, err := Load(path)
	assert.Equal(t, errs.ValidationError, errs.Code(err))
}

func TestMergeOverlay(t *testing.T) {
	l, err := NewLoader("")
	require.NoError(t, err)

	var seen []string
	l.OnChange(func(c AppConfig) { seen = append(seen, c.Log.Level) })

	require.NoError(t, l.Merge("log:\n  level: warn\n"))
	assert.Equal(t, "warn", l.Config().Log.Level)
	assert.Equal(t, ":8080", l.Config().Server.Addr)
	assert.Equal(t, []string{"warn"}, seen)

	assert.Error(t, l.Merge("lifecycle:\n  default_timer: 7\n"))
	assert.Equal(t, 5, l.Config().Lifecycle.DefaultTimer)
}

func TestShorterListsReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
lifecycle:
  allowed_timers: [5]
notify:
  kafka:
    brokers: [only:9092]
`), 0o600))
	t.Setenv("FLASHCHAT_NOTIFY_NATS_SERVERS", "nats://one:4222")

	l, err := NewLoader(path)
	require.NoError(t, err)
	cfg := l.Config()
	assert.Equal(t, []int{5}, cfg.Lifecycle.AllowedTimers)
	assert.Equal(t, []string{"only:9092"}, cfg.Notify.Kafka.Brokers)
	assert.Equal(t, []string{"nats://one:4222"}, cfg.Notify.Nats.Servers)
	assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)

	require.NoError(t, l.Merge("lifecycle:\n  allowed_timers: [5, 10]\n"))
	assert.Equal(t, []int{5, 10}, l.Config().Lifecycle.AllowedTimers)
}
