package models

import (
	"time"
)

// ScheduleStatus represents the state of a publish attempt
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// Terminal reports whether no further automatic transition happens from s.
func (s ScheduleStatus) Terminal() bool {
	switch s {
	case ScheduleStatusCompleted, ScheduleStatusFailed, ScheduleStatusCancelled:
		return true
	}
	return false
}

// ScheduleEntry tracks when and whether one content item gets published.
// Created by the automation engine, mutated only by the executor; at most one
// pending entry may exist per content item.
type ScheduleEntry struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	BusinessID     uint           `gorm:"index;not null" json:"business_id"`
	ContentID      uint           `gorm:"index;not null" json:"content_id"`
	Content        *ContentItem   `gorm:"foreignKey:ContentID" json:"content,omitempty"`
	TargetTime     time.Time      `gorm:"index;not null" json:"target_time"`
	Status         ScheduleStatus `gorm:"index;default:'pending'" json:"status"`
	PlatformPostID string         `gorm:"index" json:"platform_post_id"`
	ErrorMessage   string         `json:"error_message"`
	RetryCount     int            `gorm:"default:0" json:"retry_count"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at"`
}

func (ScheduleEntry) TableName() string {
	return "schedule"
}

// Due reports whether the entry is still pending and its target time has passed.
func (e *ScheduleEntry) Due(now time.Time) bool {
	return e.Status == ScheduleStatusPending && !e.TargetTime.After(now)
}
