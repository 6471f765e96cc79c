package backup

import "errors"

var (
	// ErrInvalidArchiveName is returned when a file name does not follow
	// the <source>_<version>_<YYYYMMDDHHmm><ext> grammar.
	ErrInvalidArchiveName = errors.New("invalid archive name")
	// ErrInvalidArchiveFormat is returned when an uploaded stream is not an
	// archive container, or not the one its extension announces.
	ErrInvalidArchiveFormat = errors.New("invalid archive format")
	ErrArchiveExists        = errors.New("archive already exists")
	ErrArchiveNotFound      = errors.New("archive not found")
	// ErrCorruptArchive is returned by restore when the archive cannot be
	// opened or fully read. Nothing has been extracted at that point.
	ErrCorruptArchive     = errors.New("corrupt archive")
	ErrUnsafeArchiveEntry = errors.New("archive entry escapes the data root")
)
