package nacos

import (
	"errors"
	"testing"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	content  string
	getErr   error
	listener func(namespace, group, dataId, data string)
}

func (f *fakeSource) GetConfig(p vo.ConfigParam) (string, error) { return f.content, f.getErr }

func (f *fakeSource) ListenConfig(p vo.ConfigParam) error {
	f.listener = p.OnChange
	return nil
}

func (f *fakeSource) CancelListenConfig(p vo.ConfigParam) error {
	f.listener = nil
	return nil
}

func TestWatcherPushesChanges(t *testing.T) {
	src := &fakeSource{content: "a: 1"}
	w := NewWatcher(src, "flashchat.yaml", "")

	var pushed []string
	first, err := w.Start(func(data string) { pushed = append(pushed, data) })
	require.NoError(t, err)
	assert.Equal(t, "a: 1", first)
	require.NotNil(t, src.listener)

	src.listener("", "DEFAULT_GROUP", "flashchat.yaml", "a: 2")
	assert.Equal(t, "a: 2", w.Current())
	assert.Equal(t, []string{"a: 2"}, pushed)

	require.NoError(t, w.Stop())
	assert.Nil(t, src.listener)
}

func TestWatcherGetError(t *testing.T) {
	w := NewWatcher(&fakeSource{getErr: errors.New("down")}, "x", "g")
	_, err := w.Start(nil)
	assert.Error(t, err)
}

type fakeNaming struct {
	registered vo.RegisterInstanceParam
	gone       bool
}

func (f *fakeNaming) RegisterInstance(p vo.RegisterInstanceParam) (bool, error) {
	f.registered = p
	return true, nil
}

func (f *fakeNaming) DeregisterInstance(p vo.DeregisterInstanceParam) (bool, error) {
	f.gone = true
	return true, nil
}

func TestRegistry(t *testing.T) {
	n := &fakeNaming{}
	r := NewRegistry(n, "flashchat-api", "10.0.0.2", 8080)
	require.NoError(t, r.Register())
	assert.Equal(t, "flashchat-api", n.registered.ServiceName)
	assert.Equal(t, uint64(8080), n.registered.Port)
	assert.True(t, n.registered.Ephemeral)
	require.NoError(t, r.Deregister())
	assert.True(t, n.gone)
}
