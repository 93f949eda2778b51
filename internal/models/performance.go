package models

import (
	"time"
)

// PerformanceRecord stores the engagement figures for one published post.
// Created exactly once when a schedule entry completes; metrics start at
// zero and are only ever updated by external collaborators.
type PerformanceRecord struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	BusinessID     uint        `gorm:"index;not null" json:"business_id"`
	PlatformPostID string      `gorm:"index;not null" json:"platform_post_id"`
	ContentType    ContentType `json:"content_type"`
	PostedAt       time.Time   `json:"posted_at"`
	Likes          int64       `gorm:"default:0" json:"likes"`
	Comments       int64       `gorm:"default:0" json:"comments"`
	Reach          int64       `gorm:"default:0" json:"reach"`
	Impressions    int64       `gorm:"default:0" json:"impressions"`
}

func (PerformanceRecord) TableName() string {
	return "performance"
}
