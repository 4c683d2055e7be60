// Package chunker splits arbitrary-length text into bounded,
// overlapping segments using a priority-ordered separator search.
package chunker

import (
	"fmt"
	"strings"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive chunks.
const DefaultChunkOverlap = 200

// DefaultSeparators is the separator priority, coarsest first. The
// empty string triggers character-level splitting as the guaranteed
// terminal case.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter is a recursive character text splitter. It is purely
// deterministic, holds no shared state, and is safe for concurrent use.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks in
// characters.
func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithSeparators sets the separator priority, coarsest first.
func WithSeparators(seps []string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = append([]string(nil), seps...)
		}
	}
}

// New creates a Splitter. Returns domain.ErrInvalidConfig when the
// overlap is not strictly smaller than the chunk size.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   append([]string(nil), DefaultSeparators...),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be less than chunk size (%d)",
			domain.ErrInvalidConfig, s.chunkOverlap, s.chunkSize)
	}
	return s, nil
}

// ChunkSize returns the configured maximum chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the configured overlap.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split divides text into ordered chunks. Each chunk receives its own
// copy of metadata. Empty or whitespace-only input returns nil.
//
// Chunk text stays within chunkSize characters except when a single
// unsplittable token exceeds it, in which case the token is kept whole.
func (s *Splitter) Split(text string, metadata map[string]string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := s.recursiveSplit(text, s.separators)
	merged := s.applyOverlap(raw)

	chunks := make([]domain.Chunk, 0, len(merged))
	for _, segment := range merged {
		stripped := strings.TrimSpace(segment)
		if stripped == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text:     stripped,
			Index:    len(chunks),
			Metadata: copyMetadata(metadata),
		})
	}
	return chunks
}

// recursiveSplit splits text using the first separator that occurs in
// it, greedily re-merging pieces up to the chunk size and recursing
// with strictly finer separators on oversized pieces.
func (s *Splitter) recursiveSplit(text string, separators []string) []string {
	if runeLen(text) <= s.chunkSize {
		return []string{text}
	}

	chosen := ""
	chosenFound := false
	var remaining []string

	for i, sep := range separators {
		if sep == "" {
			// Character-level always applies.
			chosen = sep
			chosenFound = true
			remaining = nil
			break
		}
		if strings.Contains(text, sep) {
			chosen = sep
			chosenFound = true
			remaining = separators[i+1:]
			break
		}
	}

	if !chosenFound {
		// No separator occurs at all; keep the text whole.
		return []string{text}
	}

	var pieces []string
	if chosen == "" {
		pieces = splitRunes(text, s.chunkSize)
	} else {
		pieces = strings.Split(text, chosen)
	}

	var result []string
	var buffer string

	for _, piece := range pieces {
		candidate := piece
		if buffer != "" {
			candidate = buffer + chosen + piece
		}

		if runeLen(candidate) <= s.chunkSize {
			buffer = candidate
			continue
		}

		if buffer != "" {
			result = append(result, buffer)
			buffer = ""
		}

		switch {
		case runeLen(piece) <= s.chunkSize:
			buffer = piece
		case len(remaining) > 0:
			result = append(result, s.recursiveSplit(piece, remaining)...)
		default:
			// No finer separator remains: accepted overflow.
			result = append(result, piece)
		}
	}

	if buffer != "" {
		result = append(result, buffer)
	}
	return result
}

// applyOverlap prepends up to chunkOverlap characters from the tail of
// the previous pre-overlap segment onto each segment after the first.
// The prepended text is trimmed at its first space so overlap starts on
// a word boundary when possible. Overlap is skipped for a segment when
// the combined length would exceed the chunk size.
func (s *Splitter) applyOverlap(segments []string) []string {
	if len(segments) == 0 || s.chunkOverlap <= 0 {
		return segments
	}

	merged := make([]string, 0, len(segments))
	merged = append(merged, segments[0])

	for i := 1; i < len(segments); i++ {
		prev := segments[i-1]
		curr := segments[i]

		overlap := tailRunes(prev, s.chunkOverlap)
		if idx := strings.Index(overlap, " "); idx != -1 && idx < len(overlap)-1 {
			overlap = overlap[idx+1:]
		}

		combined := overlap + curr
		if runeLen(strings.TrimSpace(combined)) <= s.chunkSize {
			merged = append(merged, combined)
		} else {
			merged = append(merged, curr)
		}
	}
	return merged
}

// splitRunes cuts text into consecutive windows of at most size runes.
func splitRunes(text string, size int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// tailRunes returns the last n runes of text.
func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

func runeLen(text string) int {
	return len([]rune(text))
}

func copyMetadata(metadata map[string]string) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
