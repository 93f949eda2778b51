package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/instagram-agent/internal/gateway"
	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/internal/storage"
	"github.com/instagram-agent/internal/tracker"
	"github.com/instagram-agent/pkg/logger"
)

// Agent sweeps due schedule entries and drives each through the gateway's
// two-phase publish. Every entry is its own unit of work: its outcome is
// written in one transaction and a failure never stops the sweep.
type Agent struct {
	store   storage.Store
	gateway gateway.PostingGateway
	tracker tracker.Tracker // optional, nil disables mirroring
	delay   time.Duration   // wait between stage and commit
	log     *logger.Logger
}

// NewAgent creates a schedule executor
func NewAgent(store storage.Store, gw gateway.PostingGateway, tr tracker.Tracker, delay time.Duration, log *logger.Logger) *Agent {
	return &Agent{
		store:   store,
		gateway: gw,
		tracker: tr,
		delay:   delay,
		log:     log.WithComponent("executor"),
	}
}

// SweepResult summarizes one due-entry sweep
type SweepResult struct {
	EntriesProcessed int
	Published        int
	Failed           int
	Errors           []error
	Duration         time.Duration
}

// ProcessDue publishes every pending entry whose target time has passed,
// oldest first. Only a failure to load the due list aborts the sweep.
func (a *Agent) ProcessDue(ctx context.Context, now time.Time) (*SweepResult, error) {
	start := time.Now()
	result := &SweepResult{}

	entries, err := a.store.ListDueEntries(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due entries: %w", err)
	}

	if len(entries) == 0 {
		a.log.Debug().Msg("No due entries")
		result.Duration = time.Since(start)
		return result, nil
	}

	a.log.Info().
		Int("due", len(entries)).
		Msg("Processing due schedule entries")

	for _, entry := range entries {
		result.EntriesProcessed++

		if err := a.processEntry(ctx, entry); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("entry %d: %w", entry.ID, err))
			a.log.Error().
				Err(err).
				Uint("entry_id", entry.ID).
				Uint("content_id", entry.ContentID).
				Msg("Entry failed")
			continue
		}

		result.Published++
	}

	result.Duration = time.Since(start)

	a.log.Info().
		Int("processed", result.EntriesProcessed).
		Int("published", result.Published).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Sweep finished")

	return result, nil
}

// processEntry publishes one entry. Any failure is written to the entry
// before it is returned for counting.
func (a *Agent) processEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	content := entry.Content
	if content == nil {
		err := fmt.Errorf("content item %d not found", entry.ContentID)
		a.markFailed(ctx, entry, err)
		return err
	}

	a.log.WithEntryID(entry.ID).WithContentID(content.ID).Info().
		Time("target_time", entry.TargetTime).
		Msg("Publishing due entry")

	postID, err := a.publish(ctx, content)
	if err != nil {
		a.markFailed(ctx, entry, err)
		return err
	}

	return a.markPublished(ctx, entry, content, postID)
}

// publish drives the two-phase gateway flow: stage the media, wait out the
// platform's processing window, commit.
func (a *Agent) publish(ctx context.Context, content *models.ContentItem) (string, error) {
	handle, err := a.gateway.Stage(ctx, content.ImageRef, content.FullCaption())
	if err != nil {
		return "", fmt.Errorf("stage failed: %w", err)
	}

	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	postID, err := a.gateway.Commit(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("commit failed: %w", err)
	}

	return postID, nil
}

// markPublished writes the success triple in one transaction: entry
// completed, content published, performance record created with zeroed
// metrics. The tracker mirror runs after the commit and never fails the unit.
func (a *Agent) markPublished(ctx context.Context, entry *models.ScheduleEntry, content *models.ContentItem, postID string) error {
	now := time.Now()

	record := &models.PerformanceRecord{
		BusinessID:     entry.BusinessID,
		PlatformPostID: postID,
		ContentType:    content.ContentType,
		PostedAt:       now,
	}

	err := a.store.Transaction(ctx, func(tx storage.Store) error {
		entry.Status = models.ScheduleStatusCompleted
		entry.PlatformPostID = postID
		entry.CompletedAt = &now
		if err := tx.UpdateScheduleEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to complete entry: %w", err)
		}

		if err := tx.UpdateContentStatus(ctx, content.ID, models.ContentStatusPublished, &now); err != nil {
			return fmt.Errorf("failed to mark content published: %w", err)
		}

		if err := tx.CreatePerformanceRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to create performance record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.log.Info().
		Uint("entry_id", entry.ID).
		Uint("content_id", content.ID).
		Str("post_id", postID).
		Msg("Entry published")

	a.mirror(ctx, record, content)
	return nil
}

// markFailed records a publish failure on the entry. Failed is terminal;
// nothing re-enqueues it automatically and the content stays scheduled.
func (a *Agent) markFailed(ctx context.Context, entry *models.ScheduleEntry, cause error) {
	err := a.store.Transaction(ctx, func(tx storage.Store) error {
		entry.Status = models.ScheduleStatusFailed
		entry.RetryCount++
		entry.ErrorMessage = cause.Error()
		return tx.UpdateScheduleEntry(ctx, entry)
	})
	if err != nil {
		a.log.Error().
			Err(err).
			Uint("entry_id", entry.ID).
			Msg("Failed to record entry failure")
	}
}

// mirror forwards the record to the tracker when one is configured.
func (a *Agent) mirror(ctx context.Context, record *models.PerformanceRecord, content *models.ContentItem) {
	if a.tracker == nil {
		return
	}

	businessName := ""
	if content.Business != nil {
		businessName = content.Business.Name
	}

	if err := a.tracker.Append(ctx, record, businessName); err != nil {
		a.log.Warn().
			Err(err).
			Str("post_id", record.PlatformPostID).
			Msg("Tracker mirror failed")
	}
}
