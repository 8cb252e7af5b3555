package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeErrorIsThroughWrap(t *testing.T) {
	err := ErrNotFound.WrapMsg("message not found", "id", "m1")
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAuthorization))
	assert.Equal(t, NotFoundError, Code(err))
	assert.Contains(t, err.Error(), "message not found, id=m1")

	outer := fmt.Errorf("view: %w", err)
	assert.True(t, errors.Is(outer, ErrNotFound))
	assert.Equal(t, NotFoundError, Code(outer))
}

func TestCodeForPlainError(t *testing.T) {
	assert.Equal(t, 0, Code(nil))
	assert.Equal(t, ServerInternalError, Code(errors.New("boom")))
}

func TestWrapMsgKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := WrapMsg(cause, "insert message", "coll", "message")
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "insert message, coll=message: dial tcp: refused", err.Error())
	assert.Nil(t, WrapMsg(nil, "x"))
}

func TestCodeRelation(t *testing.T) {
	rel := newCodeRelation()
	require.NoError(t, rel.Add(StoreError, UploadError))
	assert.True(t, rel.Is(StoreError, UploadError))
	assert.False(t, rel.Is(UploadError, StoreError))
	assert.Error(t, rel.Add(StoreError))
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	d := ErrValidation.WithDetail("text too long")
	assert.Equal(t, "text too long", d.Detail)
	assert.Empty(t, ErrValidation.Detail)
}

func TestWrapCauseKeepsBoth(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrStore.WrapCause(cause, "insert message", "id", "m1")
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StoreError, Code(err))
	assert.Equal(t, "1005 StoreError insert message, id=m1: connection reset", err.Error())
	assert.Nil(t, ErrStore.WrapCause(nil, "noop"))
}
