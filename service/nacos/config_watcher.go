package nacos

import (
	"sync"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/pkg/errors"
)

// ConfigSource nacos 配置客户端中用到的部分
type ConfigSource interface {
	GetConfig(param vo.ConfigParam) (string, error)
	ListenConfig(params vo.ConfigParam) error
	CancelListenConfig(params vo.ConfigParam) error
}

// Watcher 保存最近一次拉取到的配置内容
type Watcher struct {
	src    ConfigSource
	dataID string
	group  string

	mu      sync.RWMutex
	current string
}

func NewWatcher(src ConfigSource, dataID, group string) *Watcher {
	if group == "" {
		group = "DEFAULT_GROUP"
	}
	return &Watcher{src: src, dataID: dataID, group: group}
}

// Start 先同步读取一次，再监听后续推送；onChange 在 nacos 的回调协程中执行
func (w *Watcher) Start(onChange func(data string)) (string, error) {
	content, err := w.src.GetConfig(vo.ConfigParam{DataId: w.dataID, Group: w.group})
	if err != nil {
		return "", errors.Wrapf(err, "get nacos config %s/%s", w.group, w.dataID)
	}
	w.set(content)

	err = w.src.ListenConfig(vo.ConfigParam{
		DataId: w.dataID,
		Group:  w.group,
		OnChange: func(namespace, group, dataId, data string) {
			w.set(data)
			if onChange != nil {
				onChange(data)
			}
		},
	})
	if err != nil {
		return content, errors.Wrapf(err, "listen nacos config %s/%s", w.group, w.dataID)
	}
	return content, nil
}

func (w *Watcher) Stop() error {
	return w.src.CancelListenConfig(vo.ConfigParam{DataId: w.dataID, Group: w.group})
}

func (w *Watcher) set(data string) {
	w.mu.Lock()
	w.current = data
	w.mu.Unlock()
}

func (w *Watcher) Current() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}
