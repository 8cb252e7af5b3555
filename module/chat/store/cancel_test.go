package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnceCancel(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	c := OnceCancel(func() error { calls++; return boom })
	assert.ErrorIs(t, c(), boom)
	assert.ErrorIs(t, c(), boom)
	assert.Equal(t, 1, calls)

	assert.NoError(t, OnceCancel(nil)())
}
