package models

import (
	"time"

	"gorm.io/gorm"
)

// Book represents a library catalog entry
type Book struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"type:text;not null"`
	Description string `gorm:"type:text"`
	Lang        string `gorm:"type:text;index"`
	ISBN        string `gorm:"type:text;index"`
	Authors     string `gorm:"type:text"`
	Serie       string `gorm:"type:text"`
	Subtitle    string `gorm:"type:text"`
	Publisher   string `gorm:"type:text"`
	Section     string `gorm:"type:text"`
	Tags        string `gorm:"type:text"` // Comma separated

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Relationships
	Specimens []BookSpecimen `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
}

// BookSpecimen represents a physical or digital copy of a Book
type BookSpecimen struct {
	ID       uint   `gorm:"primaryKey"`
	BookID   uint   `gorm:"not null;index"`
	Barcode  string `gorm:"type:text;uniqueIndex"`
	Location string `gorm:"type:text"`
	File     string `gorm:"type:text"` // Path below the media root for digital specimens
	Comments string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (b *Book) IndexID() uint { return b.ID }

func (b *Book) IndexStrings() []string {
	return []string{b.Name, b.ISBN, b.Authors, b.Subtitle, b.Description, b.Serie, b.Publisher}
}

func (b *Book) IndexKind() string   { return b.Section }
func (b *Book) IndexLang() string   { return b.Lang }
func (b *Book) IndexTags() []string { return SplitTags(b.Tags) }
func (b *Book) IndexPublic() bool   { return true }
func (b *Book) IndexSource() string { return "" }
func (b *Book) IsIndexable() bool   { return true }

// IsDigital reports whether the specimen is a file rather than a shelf copy.
func (s *BookSpecimen) IsDigital() bool {
	return s.File != ""
}
