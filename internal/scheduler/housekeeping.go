package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/instagram-agent/internal/storage"
	"github.com/instagram-agent/pkg/logger"
)

// CleanupJob returns a job func that purges terminal schedule entries past
// their retention window.
func CleanupJob(store storage.Store, policy storage.RetentionPolicy, log *logger.Logger) func(ctx context.Context) error {
	jobLog := log.WithComponent("cleanup")
	return func(ctx context.Context) error {
		removed, err := store.PurgeExpiredEntries(ctx, time.Now(), policy)
		if err != nil {
			return fmt.Errorf("retention cleanup failed: %w", err)
		}

		jobLog.Info().
			Int64("removed", removed).
			Msg("Retention cleanup finished")
		return nil
	}
}

// HealthCheckJob returns a job func that pings the store and logs the queue
// snapshot.
func HealthCheckJob(store storage.Store, log *logger.Logger) func(ctx context.Context) error {
	jobLog := log.WithComponent("health")
	return func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("store unreachable: %w", err)
		}

		counts, err := store.Counts(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("failed to gather counts: %w", err)
		}

		jobLog.Info().
			Int64("businesses", counts.Businesses).
			Int64("enabled", counts.EnabledBusinesses).
			Int64("pending", counts.PendingEntries).
			Int64("due", counts.DueEntries).
			Int64("published_today", counts.PublishedToday).
			Msg("Health check")
		return nil
	}
}
