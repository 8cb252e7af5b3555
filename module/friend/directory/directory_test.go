package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLookupContacts(t *testing.T) {
	d := NewMemory()
	d.SetContact("h1", "u1")
	d.SetContact("h2", "u1")
	d.SetContact("h3", "u2")

	ids, err := d.LookupContacts(context.Background(), []string{"h1", "h2", "h3", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)
}

func TestMemorySharingInterests(t *testing.T) {
	ctx := context.Background()
	d := NewMemory()
	d.SetInterests("me", "go", "chess")
	d.SetInterests("a", "go", "rust")
	d.SetInterests("b", "cooking")
	d.SetInterests("c", "chess")

	got, err := d.SharingInterests(ctx, "me", []string{"go", "chess"}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"go", "rust"}, got["a"])
	assert.Contains(t, got, "c")
	assert.NotContains(t, got, "me")

	got, _ = d.SharingInterests(ctx, "me", []string{"go", "chess"}, 1)
	assert.Len(t, got, 1)
}
