package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/instagram-agent/internal/generator"
	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/internal/storage"
	"github.com/instagram-agent/pkg/logger"
)

// Agent runs the daily content cycle: for every automation-enabled business,
// decide whether today's quota leaves room, generate a post, and queue it for
// publication on the next day.
type Agent struct {
	store     storage.Store
	generator generator.Generator
	rng       *rand.Rand
	log       *logger.Logger
}

// NewAgent creates an automation agent. A nil rng gets a time-seeded source;
// tests inject a fixed seed.
func NewAgent(store storage.Store, gen generator.Generator, rng *rand.Rand, log *logger.Logger) *Agent {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Agent{
		store:     store,
		generator: gen,
		rng:       rng,
		log:       log.WithComponent("automation"),
	}
}

// CycleResult summarizes one daily cycle
type CycleResult struct {
	BusinessesProcessed int
	ItemsCreated        int
	ItemsSkipped        int
	Errors              []error
	Duration            time.Duration
}

// RunDailyCycle processes every automation-enabled business. Each business is
// one unit of work: a failure inside it is recorded and the cycle moves on.
func (a *Agent) RunDailyCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	result := &CycleResult{}

	enabled := true
	businesses, err := a.store.ListBusinesses(ctx, storage.BusinessFilter{AutoEnabled: &enabled})
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}

	a.log.Info().
		Int("businesses", len(businesses)).
		Msg("Starting daily content cycle")

	for _, business := range businesses {
		result.BusinessesProcessed++

		created, err := a.processBusiness(ctx, business)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Errorf("business %d (%s): %w", business.ID, business.Name, err))
			a.log.Error().
				Err(err).
				Uint("business_id", business.ID).
				Str("business", business.Name).
				Msg("Business cycle failed")
			continue
		}

		if created {
			result.ItemsCreated++
		} else {
			result.ItemsSkipped++
		}
	}

	result.Duration = time.Since(start)

	a.log.Info().
		Int("processed", result.BusinessesProcessed).
		Int("created", result.ItemsCreated).
		Int("skipped", result.ItemsSkipped).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Daily content cycle finished")

	return result, nil
}

// processBusiness runs one business's quota check, generation, and enqueue
// inside a single transaction. Reports whether a new item was created.
func (a *Agent) processBusiness(ctx context.Context, business *models.Business) (bool, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	blog := a.log.WithBusiness(business.ID, business.Name)

	created := false
	err := a.store.Transaction(ctx, func(tx storage.Store) error {
		count, err := tx.CountContentCreatedBetween(ctx, business.ID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("failed to count today's content: %w", err)
		}
		if count >= int64(business.DailyQuota()) {
			blog.Info().
				Int64("created_today", count).
				Int("quota", business.DailyQuota()).
				Msg("Daily quota reached, skipping")
			return nil
		}

		bundle, err := a.generator.Generate(ctx, business)
		if err != nil {
			return fmt.Errorf("content generation failed: %w", err)
		}

		content := &models.ContentItem{
			BusinessID:  business.ID,
			Caption:     bundle.Caption,
			Hashtags:    bundle.Hashtags,
			ImageRef:    bundle.ImageRef,
			ContentType: bundle.Type,
			Status:      models.ContentStatusDraft,
		}
		if err := tx.CreateContentItem(ctx, content); err != nil {
			return fmt.Errorf("failed to save draft: %w", err)
		}

		if err := a.enqueue(ctx, tx, content, business, now); err != nil {
			return err
		}

		created = true
		return nil
	})
	return created, err
}

// enqueue creates the pending schedule entry for a freshly created draft and
// flips the content to scheduled. Runs inside the business's transaction.
func (a *Agent) enqueue(ctx context.Context, tx storage.Store, content *models.ContentItem, business *models.Business, now time.Time) error {
	target := nextPublishTime(now, business.PreferredTimes, a.rng)

	entry := &models.ScheduleEntry{
		BusinessID: business.ID,
		ContentID:  content.ID,
		TargetTime: target,
		Status:     models.ScheduleStatusPending,
	}
	if err := tx.CreateScheduleEntry(ctx, entry); err != nil {
		if errors.Is(err, storage.ErrDuplicatePendingSchedule) {
			a.log.Error().
				Uint("content_id", content.ID).
				Msg("Content already queued, rejecting duplicate enqueue")
		}
		return fmt.Errorf("failed to queue entry: %w", err)
	}

	if err := tx.UpdateContentStatus(ctx, content.ID, models.ContentStatusScheduled, nil); err != nil {
		return fmt.Errorf("failed to mark content scheduled: %w", err)
	}

	a.log.Info().
		Uint("business_id", business.ID).
		Uint("content_id", content.ID).
		Uint("entry_id", entry.ID).
		Time("target_time", target).
		Msg("Content queued for publishing")

	return nil
}

// defaultPublishClock is the slot used when a business has no usable
// preferred times.
const defaultPublishClock = "09:00"

// nextPublishTime picks a publish slot on the next calendar day from the
// preferred times. Unparseable entries are skipped; an empty or fully invalid
// list falls back to 09:00.
func nextPublishTime(now time.Time, preferred []string, rng *rand.Rand) time.Time {
	valid := make([]string, 0, len(preferred))
	for _, clock := range preferred {
		if _, err := time.Parse("15:04", clock); err == nil {
			valid = append(valid, clock)
		}
	}

	clock := defaultPublishClock
	if len(valid) > 0 {
		clock = valid[rng.Intn(len(valid))]
	}

	parsed, _ := time.Parse("15:04", clock)
	day := now.AddDate(0, 0, 1)
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
}
