package models

import "strings"

// Searchable is implemented by durable models that are mirrored into the
// transient search index.
type Searchable interface {
	// IndexID is the primary key stored as Search.ModelID.
	IndexID() uint
	IndexStrings() []string
	IndexKind() string
	IndexLang() string
	IndexTags() []string
	IndexPublic() bool
	IndexSource() string
	IsIndexable() bool
}

// SplitTags parses a comma separated tag list into lowercased slugs.
func SplitTags(value string) []string {
	tags := []string{}
	for _, tag := range strings.Split(value, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
