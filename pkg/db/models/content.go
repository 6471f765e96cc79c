package models

import (
	"time"

	"gorm.io/gorm"
)

// Content publication states
const (
	ContentPublished = 1
	ContentDraft     = 2
	ContentDeleted   = 3
)

// Content represents a blog post
type Content struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"type:text;not null"`
	Author      string `gorm:"type:text"`
	Summary     string `gorm:"type:text"`
	Text        string `gorm:"type:text;not null"`
	Status      int    `gorm:"not null;default:2;index"`
	Lang        string `gorm:"type:text"`
	Tags        string `gorm:"type:text"` // Comma separated
	PublishedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (c *Content) IndexID() uint { return c.ID }

func (c *Content) IndexStrings() []string {
	return []string{c.Title, c.Text, c.Author, c.Summary}
}

func (c *Content) IndexKind() string   { return "" }
func (c *Content) IndexLang() string   { return c.Lang }
func (c *Content) IndexTags() []string { return SplitTags(c.Tags) }
func (c *Content) IndexSource() string { return "" }
func (c *Content) IsIndexable() bool   { return true }

// IndexPublic hides drafts and deleted posts from public search.
func (c *Content) IndexPublic() bool {
	return c.Status == ContentPublished
}
