package natsx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "flashchat.notify.u1", Subject("flashchat.notify.{key}", "u1"))
	assert.Equal(t, "static", Subject("static", "u1"))
}

func TestRouteRegistry(t *testing.T) {
	c := &NatsxClient{routes: map[string]NatsxRoute{}}
	assert.Error(t, c.RegisterRoute(NatsxRoute{Biz: "notify"}))
	require.NoError(t, c.RegisterRoute(NatsxRoute{Biz: "notify", Subject: "n.{key}"}))
	r, ok := c.route("notify")
	assert.True(t, ok)
	assert.Equal(t, Core, r.Mode)

	p := NewNatsxProducer(c)
	assert.ErrorContains(t, p.Publish(context.Background(), "missing", "u", nil, nil), "route not found")
}

func TestNewMsgCopiesHeaders(t *testing.T) {
	msg := newMsg("s", []byte("x"), map[string]string{HeaderMsgID: "abc"})
	assert.Equal(t, "abc", msg.Header.Get(HeaderMsgID))
	assert.Equal(t, "s", msg.Subject)
}

func TestNewClientNeedsServers(t *testing.T) {
	_, err := NewNatsxClient(NatsxConfig{})
	assert.Error(t, err)
}

func TestGenMsgID(t *testing.T) {
	a, b := genMsgID(), genMsgID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
