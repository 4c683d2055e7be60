package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := New()
		require.NoError(t, err)
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.ChunkOverlap())
	})

	t.Run("custom values", func(t *testing.T) {
		s, err := New(WithChunkSize(100), WithChunkOverlap(10))
		require.NoError(t, err)
		assert.Equal(t, 100, s.ChunkSize())
		assert.Equal(t, 10, s.ChunkOverlap())
	})

	t.Run("overlap equal to size rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithChunkOverlap(100))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
	})

	t.Run("overlap above size rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(50), WithChunkOverlap(80))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
	})
}

func TestSplit_EmptyInput(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	assert.Empty(t, s.Split("", nil))
	assert.Empty(t, s.Split("   ", nil))
	assert.Empty(t, s.Split("\n\n\t ", nil))
}

func TestSplit_SmallText(t *testing.T) {
	s, err := New(WithChunkSize(100), WithChunkOverlap(20))
	require.NoError(t, err)

	chunks := s.Split("  a short paragraph  ", nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_ContiguousIndices(t *testing.T) {
	s, err := New(WithChunkSize(50), WithChunkOverlap(10))
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "word%02d ", i)
	}

	chunks := s.Split(b.String(), nil)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "chunk indices must be contiguous from 0")
	}
}

func TestSplit_ChunkBound(t *testing.T) {
	s, err := New(WithChunkSize(50), WithChunkOverlap(15))
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "token%03d ", i)
	}

	chunks := s.Split(b.String(), nil)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 50+15,
			"chunk %d exceeds the soft bound: %q", c.Index, c.Text)
	}
}

func TestSplit_OverlapPresence(t *testing.T) {
	s, err := New(WithChunkSize(50), WithChunkOverlap(15))
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "tok%02d ", i)
	}

	chunks := s.Split(b.String(), nil)
	require.Greater(t, len(chunks), 1)

	found := false
	for i := 0; i < len(chunks)-1 && !found; i++ {
		tailTokens := strings.Fields(chunks[i].Text)
		headTokens := strings.Fields(chunks[i+1].Text)
		if len(tailTokens) == 0 || len(headTokens) == 0 {
			continue
		}
		head := headTokens
		if len(head) > 4 {
			head = head[:4]
		}
		for _, tt := range tailTokens[max(0, len(tailTokens)-4):] {
			for _, ht := range head {
				if tt == ht {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected at least one tail token repeated at the head of the next chunk")
}

func TestSplit_SeparatorPriority(t *testing.T) {
	s, err := New(WithChunkSize(30), WithChunkOverlap(5))
	require.NoError(t, err)

	text := "first paragraph here\n\nsecond paragraph follows\n\nthird one"
	chunks := s.Split(text, nil)
	require.Greater(t, len(chunks), 1)
	// Paragraph breaks are preferred, so no chunk spans a paragraph
	// boundary.
	for _, c := range chunks {
		assert.NotContains(t, c.Text, "\n\n")
	}
}

func TestSplit_CharacterLevelFallback(t *testing.T) {
	s, err := New(WithChunkSize(20), WithChunkOverlap(4))
	require.NoError(t, err)

	// A single token with no separators at all forces character-level
	// splitting.
	text := strings.Repeat("x", 95)
	chunks := s.Split(text, nil)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 20+4)
	}
}

func TestSplit_UnsplittableTokenKeptWhole(t *testing.T) {
	// Without the character-level terminal separator, an oversized
	// token has no finer separator and is kept whole.
	s, err := New(WithChunkSize(10), WithChunkOverlap(2), WithSeparators([]string{" "}))
	require.NoError(t, err)

	long := strings.Repeat("y", 37)
	chunks := s.Split("a b "+long+" c", nil)

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, long) {
			found = true
		}
	}
	assert.True(t, found, "oversized unsplittable token must be kept whole")
}

func TestSplit_MetadataIsolation(t *testing.T) {
	s, err := New(WithChunkSize(30), WithChunkOverlap(5))
	require.NoError(t, err)

	meta := map[string]string{"source_id": "doc-1"}
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "meta%02d ", i)
	}

	chunks := s.Split(b.String(), meta)
	require.Greater(t, len(chunks), 1)

	chunks[0].Metadata["source_id"] = "mutated"
	assert.Equal(t, "doc-1", chunks[1].Metadata["source_id"],
		"chunk metadata must be independent copies")
	assert.Equal(t, "doc-1", meta["source_id"],
		"caller metadata must not be mutated")
}

func TestSplit_Unicode(t *testing.T) {
	s, err := New(WithChunkSize(20), WithChunkOverlap(4))
	require.NoError(t, err)

	text := strings.Repeat("가나다라마바사 ", 12)
	chunks := s.Split(text, nil)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 24)
	}
}
