package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Default extraction ceilings for archives.
const (
	DefaultMaxArchiveMembers = 1000
	DefaultMaxExtractedBytes = 128 << 20 // 128 MiB decompressed
	maxArchiveDepth          = 2
)

// defaultTextExtensions are the extensions extracted as-is.
var defaultTextExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".csv":  {},
	".log":  {},
	".json": {},
}

// Extractor converts document bytes to plain text by file extension.
type Extractor struct {
	textExts   map[string]struct{}
	maxMembers int
	maxBytes   int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTextExtensions replaces the set of extensions treated as plain
// text. Extensions carry a leading dot, lower case.
func WithTextExtensions(exts []string) Option {
	return func(e *Extractor) {
		e.textExts = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			e.textExts[strings.ToLower(ext)] = struct{}{}
		}
	}
}

// WithMaxArchiveMembers sets the member count ceiling per archive.
func WithMaxArchiveMembers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxMembers = n
		}
	}
}

// WithMaxExtractedBytes sets the total decompressed byte ceiling per
// archive.
func WithMaxExtractedBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// New creates an Extractor with default ceilings.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		textExts:   defaultTextExtensions,
		maxMembers: DefaultMaxArchiveMembers,
		maxBytes:   DefaultMaxExtractedBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractText returns the plain text of a document, selected by file
// extension. Unhandled formats yield an empty string.
func (e *Extractor) ExtractText(data []byte, ext string) string {
	switch ext = strings.ToLower(ext); {
	case ext == ".html" || ext == ".htm":
		return HTMLToText(data)
	default:
		if _, ok := e.textExts[ext]; !ok {
			return ""
		}
		return normalizePlaintext(data)
	}
}

// normalizePlaintext decodes bytes as UTF-8 text, dropping a BOM and
// invalid sequences.
func normalizePlaintext(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return strings.ToValidUTF8(string(data), "")
}

// Tags whose text content is never document text.
var skippedTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"head":     {},
	"svg":      {},
	"title":    {},
}

// Tags that introduce a line break around their content.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "tr": {}, "blockquote": {},
	"pre": {}, "table": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

// HTMLToText extracts the readable text of an HTML document: script,
// style, and head content is dropped, block elements become line
// breaks, entities are decoded, and whitespace is collapsed.
func HTMLToText(data []byte) string {
	tok := html.NewTokenizer(bytes.NewReader(data))

	var sb strings.Builder
	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			// Includes io.EOF; a malformed document still yields the
			// text seen so far.
			return collapseWhitespace(sb.String())
		case html.StartTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if _, ok := skippedTags[tag]; ok {
				skipDepth++
			}
			if _, ok := blockTags[tag]; ok {
				sb.WriteByte('\n')
			}
			if tag == "br" || tag == "hr" {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if _, ok := skippedTags[tag]; ok && skipDepth > 0 {
				skipDepth--
			}
			if _, ok := blockTags[tag]; ok {
				sb.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if tag := string(name); tag == "br" || tag == "hr" {
				sb.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tok.Text())
			}
		}
	}
}

// collapseWhitespace squeezes runs of spaces and tabs, trims each line,
// and drops empty lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}
