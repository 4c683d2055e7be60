package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

// ExtractArchiveMembers extracts the text of the supported member files
// of a zip archive. Member count and total decompressed bytes are
// capped; exceeding either cap aborts with domain.ErrArchiveTooLarge so
// a crafted archive cannot exhaust memory. Encrypted members abort with
// domain.ErrEncryptedArchive.
func (e *Extractor) ExtractArchiveMembers(data []byte) ([]driven.ArchiveMember, error) {
	budget := e.maxBytes
	return e.extractArchive(data, "", 1, &budget)
}

func (e *Extractor) extractArchive(data []byte, prefix string, depth int, budget *int64) ([]driven.ArchiveMember, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)
	}

	if len(reader.File) > e.maxMembers {
		return nil, fmt.Errorf("%w: %d members (limit %d)", domain.ErrArchiveTooLarge, len(reader.File), e.maxMembers)
	}

	var members []driven.ArchiveMember
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || junkMember(f.Name) {
			continue
		}
		// Flag bit 0 marks traditional PKWARE encryption.
		if f.Flags&0x1 != 0 {
			return nil, fmt.Errorf("%w: member %s", domain.ErrEncryptedArchive, f.Name)
		}

		internalPath := f.Name
		if prefix != "" {
			internalPath = prefix + "/" + f.Name
		}

		ext := strings.ToLower(path.Ext(f.Name))
		nested := ext == ".zip"
		if _, ok := e.textExts[ext]; !ok && ext != ".html" && ext != ".htm" && !nested {
			continue
		}

		content, err := readMember(f, budget)
		if err != nil {
			return nil, err
		}

		if nested {
			if depth >= maxArchiveDepth {
				logger.Debug("skipping nested archive %s at depth %d", internalPath, depth)
				continue
			}
			inner, err := e.extractArchive(content, internalPath, depth+1, budget)
			if err != nil {
				return nil, err
			}
			members = append(members, inner...)
			continue
		}

		text := e.ExtractText(content, ext)
		if strings.TrimSpace(text) == "" {
			continue
		}
		members = append(members, driven.ArchiveMember{
			InternalPath: internalPath,
			Text:         text,
		})
	}
	return members, nil
}

// readMember decompresses one member, charging its size against the
// shared budget before and while reading.
func readMember(f *zip.File, budget *int64) ([]byte, error) {
	if int64(f.UncompressedSize64) > *budget {
		return nil, fmt.Errorf("%w: member %s exceeds extraction budget", domain.ErrArchiveTooLarge, f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open member %s: %v", domain.ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	// Read one byte past the budget so a lying size field is caught.
	content, err := io.ReadAll(io.LimitReader(rc, *budget+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read member %s: %v", domain.ErrCorruptArchive, f.Name, err)
	}
	if int64(len(content)) > *budget {
		return nil, fmt.Errorf("%w: member %s exceeds extraction budget", domain.ErrArchiveTooLarge, f.Name)
	}
	*budget -= int64(len(content))
	return content, nil
}

// junkMember reports archive entries that never carry document text.
func junkMember(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	base := path.Base(name)
	return base == ".DS_Store" || strings.HasPrefix(base, "._")
}
