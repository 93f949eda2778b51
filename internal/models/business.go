package models

import (
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// StringSlice is a custom type for storing string arrays in JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), s)
}

// MaxPostsPerDay caps how many content items automation may create for one
// business in a single calendar day.
const MaxPostsPerDay = 3

// timeOfDayPattern matches 24h clock values like "09:00" or "18:30".
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Business represents a tenant the automation generates and publishes content for
type Business struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Name           string      `gorm:"not null" json:"name"`
	Industry       string      `gorm:"index;not null" json:"industry"`
	TargetAudience string      `gorm:"type:text" json:"target_audience"`
	BrandVoice     string      `gorm:"type:text" json:"brand_voice"`
	AutoEnabled    bool        `gorm:"index;default:false" json:"auto_enabled"`
	PostsPerDay    int         `gorm:"default:1" json:"posts_per_day"`
	PreferredTimes StringSlice `gorm:"type:json" json:"preferred_times"`
	ContentThemes  StringSlice `gorm:"type:json" json:"content_themes"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Business) TableName() string {
	return "businesses"
}

// DefaultPreferredTimes returns the publish-time slots used when a business
// has not configured its own.
func DefaultPreferredTimes() StringSlice {
	return StringSlice{"09:00", "12:00", "18:00"}
}

// ApplyDefaults fills the automation settings a new business omits.
func (b *Business) ApplyDefaults() {
	if b.PostsPerDay == 0 {
		b.PostsPerDay = 1
	}
	if len(b.PreferredTimes) == 0 {
		b.PreferredTimes = DefaultPreferredTimes()
	}
}

// Validate checks the business fields and automation settings.
func (b *Business) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&b.Industry, validation.Required),
		validation.Field(&b.PostsPerDay, validation.Required, validation.Min(1), validation.Max(MaxPostsPerDay)),
		validation.Field(&b.PreferredTimes, validation.Each(validation.Match(timeOfDayPattern))),
		validation.Field(&b.ContentThemes, validation.Each(validation.Required, validation.Length(1, 80))),
	)
}

// DailyQuota returns how many content items automation may create for this
// business per calendar day.
func (b *Business) DailyQuota() int {
	if b.PostsPerDay < 1 {
		return 1
	}
	if b.PostsPerDay > MaxPostsPerDay {
		return MaxPostsPerDay
	}
	return b.PostsPerDay
}
