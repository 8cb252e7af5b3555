package mongoutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"FlashChat/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultMaxPoolSize = 100
	defaultMaxRetry    = 3
)

// Config MongoDB 连接配置。Uri 优先，否则用 Address 拼
type Config struct {
	Uri         string   `mapstructure:"uri"`
	Address     []string `mapstructure:"address"`
	Database    string   `mapstructure:"database"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	AuthSource  string   `mapstructure:"auth_source"`
	MaxPoolSize int      `mapstructure:"max_pool_size"`
	MaxRetry    int      `mapstructure:"max_retry"`
}

// Normalize 校验并补默认值；没有 Uri 时由 Address 生成
func (c *Config) Normalize() error {
	if c.Uri == "" && len(c.Address) == 0 {
		return errs.ErrValidation.WrapMsg("mongo uri or address is required")
	}
	if c.Database == "" {
		return errs.ErrValidation.WrapMsg("mongo database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = defaultMaxRetry
	}
	if c.Uri == "" {
		src := c.AuthSource
		if src == "" {
			src = c.Database
		}
		c.Uri = buildURI(c, src)
	}
	return nil
}

func buildURI(c *Config, authSource string) string {
	cred := ""
	if c.Username != "" && c.Password != "" {
		cred = fmt.Sprintf("%s:%s@", c.Username, c.Password)
	}
	return fmt.Sprintf("mongodb://%s%s/%s?authSource=%s&maxPoolSize=%d",
		cred, strings.Join(c.Address, ","), c.Database, authSource, c.MaxPoolSize)
}

// ClientOptions 由 Config 生成驱动参数；单独给出的用户名覆盖 URI 里的认证
func (c *Config) ClientOptions() *options.ClientOptions {
	opts := options.Client().ApplyURI(c.Uri).SetAppName("FlashChat")
	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(c.MaxPoolSize))
	}
	if c.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   c.Username,
			Password:   c.Password,
			AuthSource: c.AuthSource,
		})
	}
	return opts
}

// Client 驱动 client 与目标库
type Client struct {
	cli *mongo.Client
	db  *mongo.Database
}

func (c *Client) DB() *mongo.Database { return c.db }

func (c *Client) Ping(ctx context.Context) error {
	return c.cli.Ping(ctx, readpref.Primary())
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.cli.Disconnect(ctx)
}

// Dial 建立连接并 ping 一次；失败时释放 client
func Dial(ctx context.Context, c *Config) (*Client, error) {
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	cli, err := mongo.Connect(ctx, c.ClientOptions())
	if err != nil {
		return nil, errs.ErrStore.WrapCause(err, "mongo connect", "database", c.Database)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, errs.ErrStore.WrapCause(err, "mongo ping", "database", c.Database)
	}
	return &Client{cli: cli, db: cli.Database(c.Database)}, nil
}

// Retryable 认证失败(18)和未授权(13)重试没有意义
func Retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errs.Code(err) == errs.ValidationError {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code != 13 && cmdErr.Code != 18
	}
	return true
}
