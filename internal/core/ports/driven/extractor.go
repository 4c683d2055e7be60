package driven

// ArchiveMember is one extracted file from inside an archive.
type ArchiveMember struct {
	// InternalPath is the member's path within the archive.
	InternalPath string

	// Text is the extracted plain text. Empty when nothing usable
	// could be extracted.
	Text string
}

// TextExtractor converts raw document bytes into plain text.
//
// ExtractText never fails: formats it cannot handle yield an empty
// string, which callers count as skipped.
type TextExtractor interface {
	// ExtractText returns the plain text of a document, selected by
	// file extension (with leading dot, lower case).
	ExtractText(data []byte, ext string) string

	// ExtractArchiveMembers extracts the supported member files of an
	// archive. Extraction is bounded: encrypted archives return
	// domain.ErrEncryptedArchive, archives over the extraction ceiling
	// return domain.ErrArchiveTooLarge, and unreadable archives return
	// domain.ErrCorruptArchive.
	ExtractArchiveMembers(data []byte) ([]ArchiveMember, error)
}
