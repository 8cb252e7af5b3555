package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIsMonotonic(t *testing.T) {
	g := NewGenerator(7)
	seen := make(map[int64]struct{}, 5000)
	var last int64
	for i := 0; i < 5000; i++ {
		id := g.Next()
		assert.Greater(t, id, last)
		last = id
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 5000)
}

func TestClockRollbackDoesNotRepeat(t *testing.T) {
	g := NewGenerator(3)
	ms := epoch + 10_000
	g.now = func() int64 { return ms }
	a := g.Next()
	ms -= 5
	b := g.Next()
	assert.Greater(t, b, a)
}

func TestNewPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(New("msg"), "msg_"))
	assert.NotContains(t, New(""), "_")
}
