package storage

import (
	"context"
	"errors"
	"time"

	"github.com/instagram-agent/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicatePendingSchedule is returned when a schedule entry is created
	// for a content item that already has a pending entry. Hitting it means a
	// caller broke the enqueue protocol.
	ErrDuplicatePendingSchedule = errors.New("content item already has a pending schedule entry")
)

// Store defines the persistence boundary for businesses, content items,
// schedule entries, and performance records
type Store interface {
	// Business operations
	CreateBusiness(ctx context.Context, business *models.Business) error
	GetBusinessByID(ctx context.Context, id uint) (*models.Business, error)
	ListBusinesses(ctx context.Context, filter BusinessFilter) ([]*models.Business, error)
	UpdateBusiness(ctx context.Context, business *models.Business) error

	// Content operations
	CreateContentItem(ctx context.Context, item *models.ContentItem) error
	GetContentItemByID(ctx context.Context, id uint) (*models.ContentItem, error)
	ListContentItems(ctx context.Context, filter ContentFilter) ([]*models.ContentItem, error)
	UpdateContentStatus(ctx context.Context, id uint, status models.ContentStatus, publishedAt *time.Time) error
	CountContentCreatedBetween(ctx context.Context, businessID uint, from, to time.Time) (int64, error)

	// Schedule operations. CreateScheduleEntry rejects a second pending entry
	// for the same content item with ErrDuplicatePendingSchedule.
	CreateScheduleEntry(ctx context.Context, entry *models.ScheduleEntry) error
	GetScheduleEntryByID(ctx context.Context, id uint) (*models.ScheduleEntry, error)
	ListScheduleEntries(ctx context.Context, filter ScheduleFilter) ([]*models.ScheduleEntry, error)
	ListDueEntries(ctx context.Context, now time.Time) ([]*models.ScheduleEntry, error)
	UpdateScheduleEntry(ctx context.Context, entry *models.ScheduleEntry) error
	PurgeExpiredEntries(ctx context.Context, now time.Time, policy RetentionPolicy) (int64, error)

	// Performance operations
	CreatePerformanceRecord(ctx context.Context, record *models.PerformanceRecord) error
	ListPerformanceRecords(ctx context.Context, filter PerformanceFilter) ([]*models.PerformanceRecord, error)

	// Observability
	Counts(ctx context.Context, now time.Time) (*Counts, error)
	Ping(ctx context.Context) error

	// Transaction runs fn against a Store bound to one transaction; the
	// writes fn makes commit together or roll back together.
	Transaction(ctx context.Context, fn func(Store) error) error

	// Maintenance
	Close() error
	Migrate() error
}

// BusinessFilter defines filtering options for businesses
type BusinessFilter struct {
	AutoEnabled *bool
	Industry    *string
	Limit       int
	Offset      int
}

// ContentFilter defines filtering options for content items
type ContentFilter struct {
	BusinessID *uint
	Status     *models.ContentStatus
	Limit      int
	Offset     int
	OrderBy    string // "created_at", "published_at"
	OrderDesc  bool
}

// ScheduleFilter defines filtering options for schedule entries
type ScheduleFilter struct {
	BusinessID *uint
	ContentID  *uint
	Status     *models.ScheduleStatus
	Before     *time.Time // target_time upper bound
	Limit      int
	Offset     int
	OrderDesc  bool
}

// PerformanceFilter defines filtering options for performance records
type PerformanceFilter struct {
	BusinessID *uint
	Limit      int
	Offset     int
}

// RetentionPolicy controls which terminal schedule entries cleanup removes.
type RetentionPolicy struct {
	// TerminalMaxAge purges completed and cancelled entries whose completion
	// (or creation, when never completed) is older than this.
	TerminalMaxAge time.Duration
	// FailedMaxAge purges failed entries with RetryCount above
	// FailedRetryFloor that are older than this.
	FailedMaxAge     time.Duration
	FailedRetryFloor int
}

// DefaultRetentionPolicy returns the standard retention windows.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		TerminalMaxAge:   30 * 24 * time.Hour,
		FailedMaxAge:     7 * 24 * time.Hour,
		FailedRetryFloor: 3,
	}
}

// Counts is the health snapshot reported by the store.
type Counts struct {
	Businesses        int64 `json:"businesses"`
	EnabledBusinesses int64 `json:"enabled_businesses"`
	PendingEntries    int64 `json:"pending_entries"`
	DueEntries        int64 `json:"due_entries"`
	PublishedToday    int64 `json:"published_today"`
}

// DefaultBusinessFilter returns a filter with sensible defaults
func DefaultBusinessFilter() BusinessFilter {
	return BusinessFilter{Limit: 50}
}

// DefaultContentFilter returns a filter with sensible defaults
func DefaultContentFilter() ContentFilter {
	return ContentFilter{
		Limit:     50,
		OrderBy:   "created_at",
		OrderDesc: true,
	}
}

// DefaultScheduleFilter returns a filter with sensible defaults
func DefaultScheduleFilter() ScheduleFilter {
	return ScheduleFilter{Limit: 50}
}
