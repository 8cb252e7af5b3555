package mongoutil

import (
	"context"
	"testing"

	"FlashChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNormalizeBuildsURIFromAddress(t *testing.T) {
	c := &Config{Address: []string{"m1:27017", "m2:27017"}, Database: "flashchat", Username: "u", Password: "p"}
	require.NoError(t, c.Normalize())
	assert.Equal(t, "mongodb://u:p@m1:27017,m2:27017/flashchat?authSource=flashchat&maxPoolSize=100", c.Uri)
	assert.Equal(t, defaultMaxRetry, c.MaxRetry)
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	assert.Equal(t, errs.ValidationError, errs.Code((&Config{Database: "x"}).Normalize()))
	assert.Equal(t, errs.ValidationError, errs.Code((&Config{Uri: "mongodb://localhost"}).Normalize()))
}

func TestClientOptionsKeepURI(t *testing.T) {
	c := &Config{Uri: "mongodb://localhost:27017", Database: "x"}
	require.NoError(t, c.Normalize())
	opts := c.ClientOptions()
	assert.Equal(t, []string{"localhost:27017"}, opts.Hosts)
	require.NotNil(t, opts.MaxPoolSize)
	assert.EqualValues(t, defaultMaxPoolSize, *opts.MaxPoolSize)
}

func TestBuildURIWithoutCredentials(t *testing.T) {
	c := &Config{Address: []string{"localhost:27017"}, Database: "db", MaxPoolSize: 10}
	assert.Equal(t, "mongodb://localhost:27017/db?authSource=db&maxPoolSize=10", buildURI(c, "db"))
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Retryable(ctx, assert.AnError))
	assert.False(t, Retryable(ctx, mongo.CommandError{Code: 18}))
	assert.False(t, Retryable(ctx, (&Config{}).Normalize()))
	assert.False(t, Retryable(ctx, errs.ErrStore.WrapCause(mongo.CommandError{Code: 13}, "ping")))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, Retryable(cctx, assert.AnError))
}
