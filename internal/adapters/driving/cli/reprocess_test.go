package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkiv-labs/arkiv/internal/dispatch"
)

func items(paths ...string) []dispatch.WorkItem {
	out := make([]dispatch.WorkItem, len(paths))
	for i, p := range paths {
		out[i] = dispatch.WorkItem{PathDisplay: p}
	}
	return out
}

func TestWindow(t *testing.T) {
	backlog := items("/a", "/b", "/c", "/d")

	t.Run("no bounds", func(t *testing.T) {
		assert.Len(t, window(backlog, 0, 0), 4)
	})

	t.Run("offset", func(t *testing.T) {
		got := window(backlog, 2, 0)
		assert.Equal(t, items("/c", "/d"), got)
	})

	t.Run("limit", func(t *testing.T) {
		got := window(backlog, 0, 2)
		assert.Equal(t, items("/a", "/b"), got)
	})

	t.Run("offset and limit", func(t *testing.T) {
		got := window(backlog, 1, 2)
		assert.Equal(t, items("/b", "/c"), got)
	})

	t.Run("offset past end", func(t *testing.T) {
		assert.Nil(t, window(backlog, 10, 0))
	})
}

func TestIsIndexed(t *testing.T) {
	indexed := map[string]struct{}{
		"id:plain":            {},
		"id:container:a.txt":  {},
		"id:container:b/c.md": {},
	}

	assert.True(t, isIndexed(indexed, "id:plain", false))
	assert.False(t, isIndexed(indexed, "id:other", false))

	// An archive is indexed when any member row exists.
	assert.True(t, isIndexed(indexed, "id:container", true))
	assert.False(t, isIndexed(indexed, "id:empty", true))
}
