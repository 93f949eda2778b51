package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/internal/storage"
)

// Store implements storage.Store using SQLite
type Store struct {
	db *gorm.DB
}

// New creates a new SQLite store
func New(dsn string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate runs database migrations
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.Business{},
		&models.ContentItem{},
		&models.ScheduleEntry{},
		&models.PerformanceRecord{},
	)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Transaction runs fn against a Store bound to one transaction
func (s *Store) Transaction(ctx context.Context, fn func(storage.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Business operations

func (s *Store) CreateBusiness(ctx context.Context, business *models.Business) error {
	return s.db.WithContext(ctx).Create(business).Error
}

func (s *Store) GetBusinessByID(ctx context.Context, id uint) (*models.Business, error) {
	var business models.Business
	if err := s.db.WithContext(ctx).First(&business, id).Error; err != nil {
		return nil, translate(err)
	}
	return &business, nil
}

func (s *Store) ListBusinesses(ctx context.Context, filter storage.BusinessFilter) ([]*models.Business, error) {
	var businesses []*models.Business
	query := s.db.WithContext(ctx).Model(&models.Business{})

	if filter.AutoEnabled != nil {
		query = query.Where("auto_enabled = ?", *filter.AutoEnabled)
	}
	if filter.Industry != nil {
		query = query.Where("industry = ?", *filter.Industry)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Order("id ASC").Find(&businesses).Error; err != nil {
		return nil, err
	}
	return businesses, nil
}

func (s *Store) UpdateBusiness(ctx context.Context, business *models.Business) error {
	return s.db.WithContext(ctx).Save(business).Error
}

// Content operations

func (s *Store) CreateContentItem(ctx context.Context, item *models.ContentItem) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetContentItemByID(ctx context.Context, id uint) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.db.WithContext(ctx).Preload("Business").First(&item, id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *Store) ListContentItems(ctx context.Context, filter storage.ContentFilter) ([]*models.ContentItem, error) {
	var items []*models.ContentItem
	query := s.db.WithContext(ctx).Model(&models.ContentItem{})

	if filter.BusinessID != nil {
		query = query.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	orderCol := "created_at"
	if filter.OrderBy != "" {
		orderCol = filter.OrderBy
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC")
	} else {
		query = query.Order(orderCol + " ASC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateContentStatus(ctx context.Context, id uint, status models.ContentStatus, publishedAt *time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"published_at": publishedAt,
		}).Error
}

func (s *Store) CountContentCreatedBetween(ctx context.Context, businessID uint, from, to time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("business_id = ? AND created_at >= ? AND created_at < ?", businessID, from, to).
		Count(&count).Error
	return count, err
}

// Schedule operations

// CreateScheduleEntry inserts a pending entry after verifying the content item
// has no other pending entry. Check and insert share one transaction so the
// invariant holds for every caller.
func (s *Store) CreateScheduleEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.ScheduleEntry{}).
			Where("content_id = ? AND status = ?", entry.ContentID, models.ScheduleStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return storage.ErrDuplicatePendingSchedule
		}
		return tx.Create(entry).Error
	})
}

func (s *Store) GetScheduleEntryByID(ctx context.Context, id uint) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	if err := s.db.WithContext(ctx).Preload("Content").First(&entry, id).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (s *Store) ListScheduleEntries(ctx context.Context, filter storage.ScheduleFilter) ([]*models.ScheduleEntry, error) {
	var entries []*models.ScheduleEntry
	query := s.db.WithContext(ctx).Model(&models.ScheduleEntry{}).Preload("Content")

	if filter.BusinessID != nil {
		query = query.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.ContentID != nil {
		query = query.Where("content_id = ?", *filter.ContentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Before != nil {
		query = query.Where("target_time <= ?", *filter.Before)
	}

	if filter.OrderDesc {
		query = query.Order("target_time DESC")
	} else {
		query = query.Order("target_time ASC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDueEntries returns pending entries whose target time has passed,
// earliest first.
func (s *Store) ListDueEntries(ctx context.Context, now time.Time) ([]*models.ScheduleEntry, error) {
	var entries []*models.ScheduleEntry
	if err := s.db.WithContext(ctx).
		Where("status = ? AND target_time <= ?", models.ScheduleStatusPending, now).
		Order("target_time ASC").
		Preload("Content").
		Preload("Content.Business").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) UpdateScheduleEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	return s.db.WithContext(ctx).Save(entry).Error
}

// PurgeExpiredEntries removes terminal entries past their retention window and
// returns how many rows were deleted.
func (s *Store) PurgeExpiredEntries(ctx context.Context, now time.Time, policy storage.RetentionPolicy) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		terminalCutoff := now.Add(-policy.TerminalMaxAge)
		res := tx.Where(
			"status IN ? AND COALESCE(completed_at, created_at) < ?",
			[]models.ScheduleStatus{models.ScheduleStatusCompleted, models.ScheduleStatusCancelled},
			terminalCutoff,
		).Delete(&models.ScheduleEntry{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		failedCutoff := now.Add(-policy.FailedMaxAge)
		res = tx.Where(
			"status = ? AND retry_count > ? AND COALESCE(completed_at, created_at) < ?",
			models.ScheduleStatusFailed, policy.FailedRetryFloor, failedCutoff,
		).Delete(&models.ScheduleEntry{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Performance operations

func (s *Store) CreatePerformanceRecord(ctx context.Context, record *models.PerformanceRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *Store) ListPerformanceRecords(ctx context.Context, filter storage.PerformanceFilter) ([]*models.PerformanceRecord, error) {
	var records []*models.PerformanceRecord
	query := s.db.WithContext(ctx).Model(&models.PerformanceRecord{})

	if filter.BusinessID != nil {
		query = query.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Order("posted_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Counts reports the health snapshot used by the hourly check and /stats.
func (s *Store) Counts(ctx context.Context, now time.Time) (*storage.Counts, error) {
	db := s.db.WithContext(ctx)
	counts := &storage.Counts{}

	if err := db.Model(&models.Business{}).Count(&counts.Businesses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Business{}).Where("auto_enabled = ?", true).
		Count(&counts.EnabledBusinesses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ScheduleEntry{}).Where("status = ?", models.ScheduleStatusPending).
		Count(&counts.PendingEntries).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ScheduleEntry{}).
		Where("status = ? AND target_time <= ?", models.ScheduleStatusPending, now).
		Count(&counts.DueEntries).Error; err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&models.ContentItem{}).
		Where("status = ? AND published_at >= ?", models.ContentStatusPublished, dayStart).
		Count(&counts.PublishedToday).Error; err != nil {
		return nil, err
	}

	return counts, nil
}

// translate maps driver-level errors onto the storage sentinels.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}
