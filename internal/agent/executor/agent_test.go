package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instagram-agent/internal/gateway/stub"
	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/internal/storage"
	"github.com/instagram-agent/internal/storage/sqlite"
	"github.com/instagram-agent/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled", Format: "json"})
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	return store
}

func seedBusiness(t *testing.T, store storage.Store, name string) *models.Business {
	t.Helper()

	business := &models.Business{
		Name:        name,
		Industry:    "restaurant",
		AutoEnabled: true,
	}
	business.ApplyDefaults()
	require.NoError(t, store.CreateBusiness(context.Background(), business))

	return business
}

// seedQueued creates a scheduled content item with a pending entry at target.
func seedQueued(t *testing.T, store storage.Store, business *models.Business, caption string, target time.Time) *models.ScheduleEntry {
	t.Helper()
	ctx := context.Background()

	content := &models.ContentItem{
		BusinessID: business.ID,
		Caption:    caption,
		Hashtags:   models.StringSlice{"#tag"},
		ImageRef:   "https://example.com/photo.jpg",
		Status:     models.ContentStatusScheduled,
	}
	require.NoError(t, store.CreateContentItem(ctx, content))

	entry := &models.ScheduleEntry{
		BusinessID: business.ID,
		ContentID:  content.ID,
		TargetTime: target,
		Status:     models.ScheduleStatusPending,
	}
	require.NoError(t, store.CreateScheduleEntry(ctx, entry))

	return entry
}

// fakeGateway records stage order and can fail specific stage calls.
type fakeGateway struct {
	stagedCaptions []string
	stageTimes     []time.Time
	commitTimes    []time.Time
	failStageCall  int // 1-based call index that fails; 0 disables
	posts          int
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Stage(_ context.Context, _, caption string) (string, error) {
	if g.failStageCall > 0 && len(g.stagedCaptions)+1 == g.failStageCall {
		g.stagedCaptions = append(g.stagedCaptions, caption)
		return "", errors.New("platform rejected media")
	}
	g.stagedCaptions = append(g.stagedCaptions, caption)
	g.stageTimes = append(g.stageTimes, time.Now())
	return fmt.Sprintf("container-%d", len(g.stagedCaptions)), nil
}

func (g *fakeGateway) Commit(_ context.Context, _ string) (string, error) {
	g.posts++
	g.commitTimes = append(g.commitTimes, time.Now())
	return fmt.Sprintf("post-%d", g.posts), nil
}

func (g *fakeGateway) Verify(context.Context) error { return nil }

// recordingTracker captures mirrored records.
type recordingTracker struct {
	records []*models.PerformanceRecord
	names   []string
	err     error
}

func (t *recordingTracker) Append(_ context.Context, record *models.PerformanceRecord, businessName string) error {
	if t.err != nil {
		return t.err
	}
	t.records = append(t.records, record)
	t.names = append(t.names, businessName)
	return nil
}

// failingStore wraps a real store and fails the due-entry listing.
type failingStore struct {
	storage.Store
	dueErr error
}

func (s *failingStore) ListDueEntries(ctx context.Context, now time.Time) ([]*models.ScheduleEntry, error) {
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	return s.Store.ListDueEntries(ctx, now)
}

// perfWriteFailStore fails performance-record creation, also inside
// transactions opened through it.
type perfWriteFailStore struct {
	storage.Store
	perfErr error
}

func (s *perfWriteFailStore) Transaction(ctx context.Context, fn func(storage.Store) error) error {
	return s.Store.Transaction(ctx, func(tx storage.Store) error {
		return fn(&perfWriteFailStore{Store: tx, perfErr: s.perfErr})
	})
}

func (s *perfWriteFailStore) CreatePerformanceRecord(context.Context, *models.PerformanceRecord) error {
	return s.perfErr
}

func TestProcessDuePublishesDueEntry(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	entry := seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	agent := NewAgent(store, stub.New(testLogger()), nil, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, result.EntriesProcessed)
	assert.Equal(t, 1, result.Published)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	reloaded, err := store.GetScheduleEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCompleted, reloaded.Status)
	assert.Contains(t, reloaded.PlatformPostID, "test_post_")
	require.NotNil(t, reloaded.CompletedAt)

	content, err := store.GetContentItemByID(context.Background(), entry.ContentID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPublished, content.Status)
	require.NotNil(t, content.PublishedAt)

	records, err := store.ListPerformanceRecords(context.Background(), storage.PerformanceFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, reloaded.PlatformPostID, records[0].PlatformPostID)
	assert.Equal(t, business.ID, records[0].BusinessID)
	assert.Zero(t, records[0].Likes)
	assert.Zero(t, records[0].Comments)
	assert.Zero(t, records[0].Reach)
	assert.Zero(t, records[0].Impressions)
}

func TestProcessDueSkipsFutureEntries(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	entry := seedQueued(t, store, business, "tomorrow", time.Now().Add(24*time.Hour))

	agent := NewAgent(store, stub.New(testLogger()), nil, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.EntriesProcessed)

	reloaded, err := store.GetScheduleEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusPending, reloaded.Status)
}

func TestProcessDueStageFailure(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	entry := seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	gw := stub.New(testLogger())
	gw.StageErr = errors.New("platform rejected media")
	agent := NewAgent(store, gw, nil, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Published)
	require.Len(t, result.Errors, 1)

	reloaded, err := store.GetScheduleEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusFailed, reloaded.Status)
	assert.Equal(t, 1, reloaded.RetryCount)
	assert.Contains(t, reloaded.ErrorMessage, "stage failed")
	assert.Contains(t, reloaded.ErrorMessage, "platform rejected media")

	// Content stays scheduled and no performance record appears.
	content, err := store.GetContentItemByID(context.Background(), entry.ContentID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusScheduled, content.Status)
	assert.Nil(t, content.PublishedAt)

	records, err := store.ListPerformanceRecords(context.Background(), storage.PerformanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessDueCommitFailure(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	entry := seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	gw := stub.New(testLogger())
	gw.CommitErr = errors.New("publish quota exhausted")
	agent := NewAgent(store, gw, nil, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	reloaded, err := store.GetScheduleEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusFailed, reloaded.Status)
	assert.Equal(t, 1, reloaded.RetryCount)
	assert.Contains(t, reloaded.ErrorMessage, "commit failed")
}

func TestProcessDueFailedEntryIsNotRetried(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	entry := seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	gw := stub.New(testLogger())
	gw.StageErr = errors.New("boom")
	agent := NewAgent(store, gw, nil, 0, testLogger())

	_, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)

	// A second sweep with a healthy gateway must leave the entry alone.
	gw.StageErr = nil
	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.EntriesProcessed)

	reloaded, err := store.GetScheduleEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusFailed, reloaded.Status)
	assert.Equal(t, 1, reloaded.RetryCount)
}

func TestProcessDueOrdersByTargetTime(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")

	// Insert out of order; the sweep must still run oldest first.
	seedQueued(t, store, business, "second", time.Now().Add(-time.Hour))
	seedQueued(t, store, business, "first", time.Now().Add(-2*time.Hour))

	gw := &fakeGateway{}
	agent := NewAgent(store, gw, nil, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Published)

	require.Len(t, gw.stagedCaptions, 2)
	assert.Contains(t, gw.stagedCaptions[0], "first")
	assert.Contains(t, gw.stagedCaptions[1], "second")
}

func TestProcessDueContinuesPastFailingEntry(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")

	first := seedQueued(t, store, business, "first", time.Now().Add(-2*time.Hour))
	second := seedQueued(t, store, business, "second", time.Now().Add(-time.Hour))

	gw := &fakeGateway{failStageCall: 1}
	agent := NewAgent(store, gw, nil, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, result.EntriesProcessed)
	assert.Equal(t, 1, result.Published)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)

	failedEntry, err := store.GetScheduleEntryByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusFailed, failedEntry.Status)

	publishedEntry, err := store.GetScheduleEntryByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCompleted, publishedEntry.Status)
}

func TestProcessDueAbortsWhenListingFails(t *testing.T) {
	store := newTestStore(t)

	wrapped := &failingStore{Store: store, dueErr: errors.New("database locked")}
	agent := NewAgent(wrapped, stub.New(testLogger()), nil, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "database locked")
}

func TestProcessDueStoreFailureRollsBackUnit(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	entry := seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	wrapped := &perfWriteFailStore{Store: store, perfErr: errors.New("disk full")}
	tr := &recordingTracker{}
	agent := NewAgent(wrapped, stub.New(testLogger()), tr, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Published)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "disk full")

	// The unit rolls back whole: entry still pending, content still
	// scheduled, no performance record, nothing mirrored.
	reloaded, err := store.GetScheduleEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusPending, reloaded.Status)
	assert.Empty(t, reloaded.PlatformPostID)
	assert.Nil(t, reloaded.CompletedAt)
	assert.Equal(t, 0, reloaded.RetryCount)

	content, err := store.GetContentItemByID(context.Background(), entry.ContentID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusScheduled, content.Status)
	assert.Nil(t, content.PublishedAt)

	records, err := store.ListPerformanceRecords(context.Background(), storage.PerformanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, tr.records)
}

func TestProcessDueWaitsBetweenStageAndCommit(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	gw := &fakeGateway{}
	agent := NewAgent(store, gw, nil, 80*time.Millisecond, testLogger())

	_, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, gw.stageTimes, 1)
	require.Len(t, gw.commitTimes, 1)
	assert.GreaterOrEqual(t, gw.commitTimes[0].Sub(gw.stageTimes[0]), 80*time.Millisecond)
}

func TestProcessDueMirrorsToTracker(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	tr := &recordingTracker{}
	agent := NewAgent(store, stub.New(testLogger()), tr, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)

	require.Len(t, tr.records, 1)
	assert.Contains(t, tr.records[0].PlatformPostID, "test_post_")
	assert.Equal(t, []string{"Corner Cafe"}, tr.names)
}

func TestProcessDueTrackerFailureIsNotFatal(t *testing.T) {
	store := newTestStore(t)
	business := seedBusiness(t, store, "Corner Cafe")
	entry := seedQueued(t, store, business, "hello", time.Now().Add(-time.Hour))

	tr := &recordingTracker{err: errors.New("sheets unreachable")}
	agent := NewAgent(store, stub.New(testLogger()), tr, 0, testLogger())

	result, err := agent.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)
	assert.Empty(t, result.Errors)

	reloaded, err := store.GetScheduleEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCompleted, reloaded.Status)
}
