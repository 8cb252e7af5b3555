package nacos

import (
	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/pkg/errors"
)

// Config nacos 连接与配置项坐标
type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      uint64 `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DataID    string `mapstructure:"data_id"`
	Group     string `mapstructure:"group"`
	// Register 为 true 时把 HTTP 服务注册到命名服务
	Register    bool   `mapstructure:"register"`
	ServiceName string `mapstructure:"service_name"`
	CacheDir    string `mapstructure:"cache_dir"`
	LogDir      string `mapstructure:"log_dir"`
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8848
	}
	if c.Group == "" {
		c.Group = "DEFAULT_GROUP"
	}
	if c.CacheDir == "" {
		c.CacheDir = "nacos/cache"
	}
	if c.LogDir == "" {
		c.LogDir = "nacos/log"
	}
	return c
}

func (c Config) params() vo.NacosClientParam {
	c = c.withDefaults()
	return vo.NacosClientParam{
		ClientConfig: constant.NewClientConfig(
			constant.WithNamespaceId(c.Namespace),
			constant.WithTimeoutMs(5000),
			constant.WithNotLoadCacheAtStart(true),
			constant.WithLogLevel("warn"),
			constant.WithCacheDir(c.CacheDir),
			constant.WithLogDir(c.LogDir),
			constant.WithUsername(c.Username),
			constant.WithPassword(c.Password),
		),
		ServerConfigs: []constant.ServerConfig{
			*constant.NewServerConfig(c.Host, c.Port),
		},
	}
}

func NewConfigClient(c Config) (config_client.IConfigClient, error) {
	cli, err := clients.NewConfigClient(c.params())
	if err != nil {
		return nil, errors.Wrap(err, "create nacos config client")
	}
	return cli, nil
}

func NewNamingClient(c Config) (naming_client.INamingClient, error) {
	cli, err := clients.NewNamingClient(c.params())
	if err != nil {
		return nil, errors.Wrap(err, "create nacos naming client")
	}
	return cli, nil
}
