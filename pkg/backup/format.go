package backup

import (
	"fmt"
	"strings"
)

// Format is the container used for an archive.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTar   Format = "tar"
	FormatGzTar Format = "gztar"
	FormatBzTar Format = "bztar"
)

var formatExtensions = []struct {
	format    Format
	extension string
}{
	{FormatZip, ".zip"},
	{FormatGzTar, ".tar.gz"},
	{FormatBzTar, ".tar.bz2"},
	{FormatTar, ".tar"},
}

// Formats lists every supported format.
func Formats() []Format {
	formats := make([]Format, 0, len(formatExtensions))
	for _, fe := range formatExtensions {
		formats = append(formats, fe.format)
	}
	return formats
}

// Extension returns the file suffix of the format, including the leading dot.
func (f Format) Extension() string {
	for _, fe := range formatExtensions {
		if fe.format == f {
			return fe.extension
		}
	}
	return ""
}

func (f Format) IsTar() bool {
	return f == FormatTar || f == FormatGzTar || f == FormatBzTar
}

func (f Format) String() string {
	return string(f)
}

// ParseFormat validates a configured format name.
func ParseFormat(value string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(value)))
	if format.Extension() == "" {
		return "", fmt.Errorf("unsupported archive format '%s'", value)
	}
	return format, nil
}

// FormatFromName guesses the format from the extension of name.
func FormatFromName(name string) (Format, bool) {
	for _, fe := range formatExtensions {
		if strings.HasSuffix(name, fe.extension) {
			return fe.format, true
		}
	}
	return "", false
}
