package nacos

import (
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/pkg/errors"
)

// Naming nacos 命名客户端中用到的部分
type Naming interface {
	RegisterInstance(param vo.RegisterInstanceParam) (bool, error)
	DeregisterInstance(param vo.DeregisterInstanceParam) (bool, error)
}

// Registry 把本节点的 HTTP 服务登记为临时实例
type Registry struct {
	client      Naming
	ServiceName string
	IP          string
	Port        uint64
	Group       string
	Metadata    map[string]string
}

func NewRegistry(client Naming, serviceName, ip string, port uint64) *Registry {
	return &Registry{
		client:      client,
		ServiceName: serviceName,
		IP:          ip,
		Port:        port,
		Group:       "DEFAULT_GROUP",
		Metadata:    map[string]string{"protocol": "http", "version": "v1"},
	}
}

func (r *Registry) Register() error {
	ok, err := r.client.RegisterInstance(vo.RegisterInstanceParam{
		Ip:          r.IP,
		Port:        r.Port,
		ServiceName: r.ServiceName,
		GroupName:   r.Group,
		ClusterName: "DEFAULT",
		Weight:      1,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		Metadata:    r.Metadata,
	})
	if err != nil {
		return errors.Wrap(err, "register instance")
	}
	if !ok {
		return errors.New("register instance: returned false")
	}
	return nil
}

func (r *Registry) Deregister() error {
	_, err := r.client.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          r.IP,
		Port:        r.Port,
		ServiceName: r.ServiceName,
		GroupName:   r.Group,
		Cluster:     "DEFAULT",
		Ephemeral:   true,
	})
	if err != nil {
		return errors.Wrap(err, "deregister instance")
	}
	return nil
}
