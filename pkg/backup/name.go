package backup

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateFormat is the minute resolution timestamp embedded in archive names.
const DateFormat = "200601021504"

const nameSeparator = "_"

var timestampPattern = regexp.MustCompile(`^[0-9]{12}$`)

// Identity is what an archive name encodes.
type Identity struct {
	SourceID  string
	Version   string
	CreatedAt time.Time
	Format    Format
}

// MakeName builds "<sourceID>_<version>_<YYYYMMDDHHmm><ext>" with now in
// the local time zone. Neither sourceID nor version may contain an
// underscore, otherwise the name will not parse back.
func MakeName(sourceID, version string, now time.Time, format Format) string {
	return strings.Join([]string{
		sourceID,
		version,
		now.Local().Format(DateFormat),
	}, nameSeparator) + format.Extension()
}

// ParseName decodes an archive name. Timestamps are read in the local
// time zone, the zone MakeName writes them in.
func ParseName(name string) (Identity, error) {
	format, ok := FormatFromName(name)
	if !ok {
		return Identity{}, fmt.Errorf("%w: '%s' must end with one of %s", ErrInvalidArchiveName, name, extensionList())
	}

	stem := strings.TrimSuffix(name, format.Extension())
	parts := strings.Split(stem, nameSeparator)
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("%w: '%s' must have 3 '%s' separated fields, got %d", ErrInvalidArchiveName, name, nameSeparator, len(parts))
	}

	if !timestampPattern.MatchString(parts[2]) {
		return Identity{}, fmt.Errorf("%w: '%s' has malformed timestamp '%s'", ErrInvalidArchiveName, name, parts[2])
	}

	createdAt, err := time.ParseInLocation(DateFormat, parts[2], time.Local)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: '%s' has invalid timestamp: %v", ErrInvalidArchiveName, name, err)
	}

	return Identity{
		SourceID:  parts[0],
		Version:   parts[1],
		CreatedAt: createdAt,
		Format:    format,
	}, nil
}

func extensionList() string {
	extensions := make([]string, 0, len(formatExtensions))
	for _, fe := range formatExtensions {
		extensions = append(extensions, fe.extension)
	}
	return strings.Join(extensions, ", ")
}
