package models

import "strings"

// Search is a row of the rebuildable search index. It references a durable
// row by model name and id only.
type Search struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Model   string `gorm:"type:text;not null;uniqueIndex:idx_search_model" json:"model"`
	ModelID uint   `gorm:"not null;uniqueIndex:idx_search_model" json:"model_id"`
	Public  bool   `gorm:"not null" json:"public"`
	Text    string `gorm:"type:text" json:"text"`
	Lang    string `gorm:"type:text;index" json:"lang"`
	Kind    string `gorm:"type:text;index" json:"kind"`
	Tags    string `gorm:"type:text" json:"tags"` // "|tag1|tag2|"
	Source  string `gorm:"type:text;index" json:"source"`
}

func (Search) TableName() string {
	return "idx"
}

// NewSearch builds the index row of m, stored under the model name.
func NewSearch(model string, m Searchable) Search {
	var parts []string
	for _, s := range m.IndexStrings() {
		if s != "" {
			parts = append(parts, s)
		}
	}

	return Search{
		Model:   model,
		ModelID: m.IndexID(),
		Public:  m.IndexPublic(),
		Text:    strings.Join(parts, " "),
		Lang:    m.IndexLang(),
		Kind:    m.IndexKind(),
		Tags:    "|" + strings.Join(m.IndexTags(), "|") + "|",
		Source:  m.IndexSource(),
	}
}
