package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"FlashChat/logger"
	"FlashChat/module/chat/model"
	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"
	"FlashChat/tools/safe"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ store.PresenceStore = (*RedisPresence)(nil)

const (
	fieldOnline    = "online"
	fieldHeartbeat = "hb_ms"
)

// presence hash: im:presence:<user>   {online, hb_ms}
// presence 频道: im:presence:ch:<user>
// typing 频道:   im:typing:<conversationKey>
func presenceKey(user string) string     { return "im:presence:" + user }
func presenceChannel(user string) string { return "im:presence:ch:" + user }
func typingChannel(key string) string    { return "im:typing:" + key }

// RedisPresence 在线状态写 hash，变更通过 pub/sub 推送
type RedisPresence struct {
	rdb *redis.Client
	// TTL 记录过期时间，<=0 不过期；通常取心跳间隔的若干倍
	ttl time.Duration
	log *zap.Logger
}

func NewRedisPresence(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisPresence {
	return &RedisPresence{rdb: rdb, ttl: ttl, log: logger.Or(log).Named("presence.redis")}
}

func wrapRedis(err error, op string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errs.ErrStore.WrapCause(errors.Wrap(err, "redis"), op, kv...)
}

func (r *RedisPresence) SetPresence(ctx context.Context, p model.Presence) error {
	online := "0"
	if p.Online {
		online = "1"
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return errs.ErrStore.WrapCause(err, "encode presence", "user", p.UserID)
	}
	key := presenceKey(p.UserID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldOnline, online, fieldHeartbeat, p.LastHeartbeat.UnixMilli())
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		pipe.Publish(ctx, presenceChannel(p.UserID), payload)
		return nil
	})
	return wrapRedis(err, "set presence", "user", p.UserID)
}

func (r *RedisPresence) GetPresence(ctx context.Context, userID string) (model.Presence, error) {
	out := model.Presence{UserID: userID}
	vals, err := r.rdb.HGetAll(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(vals) == 0) {
		return out, nil
	}
	if err != nil {
		return out, wrapRedis(err, "get presence", "user", userID)
	}
	out.Online = vals[fieldOnline] == "1"
	if ms, perr := strconv.ParseInt(vals[fieldHeartbeat], 10, 64); perr == nil {
		out.LastHeartbeat = time.UnixMilli(ms)
	}
	return out, nil
}

func (r *RedisPresence) WatchPresence(ctx context.Context, userID string, fn func(model.Presence), onErr store.ErrorHandler) (store.CancelFunc, error) {
	return subscribe(ctx, r, presenceChannel(userID), fn, onErr)
}

func (r *RedisPresence) PublishTyping(ctx context.Context, t model.Typing) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return errs.ErrStore.WrapCause(err, "encode typing", "key", t.ConversationKey)
	}
	return wrapRedis(r.rdb.Publish(ctx, typingChannel(t.ConversationKey), payload).Err(), "publish typing", "key", t.ConversationKey)
}

func (r *RedisPresence) WatchTyping(ctx context.Context, key string, fn func(model.Typing), onErr store.ErrorHandler) (store.CancelFunc, error) {
	return subscribe(ctx, r, typingChannel(key), fn, onErr)
}

// subscribe 订阅频道并把 JSON 负载解码后回调
func subscribe[T any](ctx context.Context, r *RedisPresence, channel string, fn func(T), onErr store.ErrorHandler) (store.CancelFunc, error) {
	ps := r.rdb.Subscribe(ctx, channel)
	// 等待订阅确认，确保返回后不会漏掉消息
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, wrapRedis(err, "subscribe", "channel", channel)
	}
	ch := ps.Channel()
	safe.Go("redis.subscribe:"+channel, func() {
		for msg := range ch {
			var v T
			if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
				r.log.Warn("decode pubsub payload", zap.String("channel", channel), zap.Error(err))
				if onErr != nil {
					onErr(errs.ErrStore.WrapCause(err, "decode payload", "channel", channel))
				}
				continue
			}
			fn(v)
		}
	})
	return store.OnceCancel(ps.Close), nil
}
