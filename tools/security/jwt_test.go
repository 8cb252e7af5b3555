package security

import (
	"testing"
	"time"

	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerify(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Now())
	opts := DefaultOptions([]byte("secret"))
	opts.Clock = clk

	tok, exp, err := Generate(opts, "u1", []string{"chat"})
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(2*time.Hour).Unix(), exp.Unix())

	claims, err := Verify(opts, tok, HashToken(tok))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())

	_, err = Verify(opts, tok, "sha256:other")
	assert.Equal(t, errs.UnauthenticatedError, errs.Code(err))
}

func TestVerifyRejects(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Now())
	opts := DefaultOptions([]byte("secret"))
	opts.Clock = clk
	tok, _, err := Generate(opts, "u1", nil)
	require.NoError(t, err)

	other := opts
	other.Secret = []byte("another")
	_, err = Verify(other, tok, "")
	assert.Equal(t, errs.UnauthenticatedError, errs.Code(err))

	clk.Add(3 * time.Hour)
	_, err = Verify(opts, tok, "")
	assert.Equal(t, errs.UnauthenticatedError, errs.Code(err))

	_, err = Verify(opts, "garbage", "")
	assert.Equal(t, errs.UnauthenticatedError, errs.Code(err))
}

func TestGenerateValidation(t *testing.T) {
	_, _, err := Generate(DefaultOptions([]byte("s")), "", nil)
	assert.Equal(t, errs.ValidationError, errs.Code(err))
	_, _, err = Generate(Options{Alg: "RS256", Secret: []byte("s")}, "u", nil)
	assert.Equal(t, errs.ValidationError, errs.Code(err))
	_, _, err = Generate(Options{}, "u", nil)
	assert.Equal(t, errs.ValidationError, errs.Code(err))
}
