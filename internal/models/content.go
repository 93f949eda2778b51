package models

import (
	"strings"
	"time"
)

// ContentType represents the kind of content an item holds
type ContentType string

const (
	ContentTypePost  ContentType = "post"
	ContentTypeStory ContentType = "story"
	ContentTypeReel  ContentType = "reel"
)

// ContentStatus represents the lifecycle state of a content item
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusScheduled ContentStatus = "scheduled"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusFailed    ContentStatus = "failed"
)

// ContentItem represents one generated piece of content for a business.
// After creation only Status and PublishedAt change.
type ContentItem struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	BusinessID  uint          `gorm:"index;not null" json:"business_id"`
	Business    *Business     `gorm:"foreignKey:BusinessID" json:"business,omitempty"`
	Caption     string        `gorm:"type:text;not null" json:"caption"`
	Hashtags    StringSlice   `gorm:"type:json" json:"hashtags"`
	ImageRef    string        `json:"image_ref"`
	ContentType ContentType   `gorm:"column:type;default:'post'" json:"type"`
	Status      ContentStatus `gorm:"index;default:'draft'" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	PublishedAt *time.Time    `json:"published_at"`
}

func (ContentItem) TableName() string {
	return "content"
}

// FullCaption returns the caption with hashtags appended, the form the
// platform receives.
func (c *ContentItem) FullCaption() string {
	if len(c.Hashtags) == 0 {
		return c.Caption
	}
	return c.Caption + "\n\n" + strings.Join(c.Hashtags, " ")
}
