package models

import (
	"time"

	"gorm.io/gorm"
)

// Document kinds
const (
	DocumentImage = "image"
	DocumentVideo = "video"
	DocumentPDF   = "pdf"
	DocumentText  = "text"
	DocumentAudio = "audio"
	DocumentApp   = "app"
	DocumentOther = "other"
)

// Document represents a media center entry
type Document struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"type:text;not null"`
	Summary   string `gorm:"type:text"`
	Lang      string `gorm:"type:text"`
	Original  string `gorm:"type:text;not null"` // Path below the media root
	Preview   string `gorm:"type:text"`
	Credits   string `gorm:"type:text"`
	Kind      string `gorm:"type:text;not null;default:other;index"`
	PackageID string `gorm:"type:text;index"` // Set when installed from a package
	Tags      string `gorm:"type:text"`       // Comma separated

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (d *Document) IndexID() uint { return d.ID }

func (d *Document) IndexStrings() []string {
	return []string{d.Title, d.Summary, d.Credits}
}

func (d *Document) IndexKind() string   { return d.Kind }
func (d *Document) IndexLang() string   { return d.Lang }
func (d *Document) IndexTags() []string { return SplitTags(d.Tags) }
func (d *Document) IndexPublic() bool   { return true }
func (d *Document) IndexSource() string { return d.PackageID }
func (d *Document) IsIndexable() bool   { return true }
