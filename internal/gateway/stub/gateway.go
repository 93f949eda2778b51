package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/instagram-agent/internal/gateway"
	"github.com/instagram-agent/pkg/logger"
)

// Gateway simulates publishing without touching any external API. Handles and
// post ids carry a shortened uuid so concurrent stages within the same second
// stay distinguishable.
type Gateway struct {
	log *logger.Logger

	mu     sync.Mutex
	staged map[string]stagedMedia

	// StageErr and CommitErr, when set, are returned by the corresponding
	// call. Used by tests to exercise failure paths.
	StageErr  error
	CommitErr error
}

type stagedMedia struct {
	imageRef string
	caption  string
	stagedAt time.Time
}

// New creates a stub gateway
func New(log *logger.Logger) *Gateway {
	return &Gateway{
		log:    log.WithComponent("gateway.stub"),
		staged: make(map[string]stagedMedia),
	}
}

// Name identifies the implementation
func (g *Gateway) Name() string {
	return "stub"
}

// Stage records the media in memory and returns a synthetic container handle.
func (g *Gateway) Stage(_ context.Context, imageRef, caption string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.StageErr != nil {
		return "", g.StageErr
	}

	handle := fmt.Sprintf("test_container_%d_%s", time.Now().Unix(), shortID())
	g.staged[handle] = stagedMedia{
		imageRef: imageRef,
		caption:  caption,
		stagedAt: time.Now(),
	}

	preview := caption
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	g.log.Info().
		Str("handle", handle).
		Str("image", imageRef).
		Str("caption_preview", preview).
		Msg("Staged media (simulation)")

	return handle, nil
}

// Commit resolves a previously staged handle into a synthetic post id.
func (g *Gateway) Commit(_ context.Context, handle string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CommitErr != nil {
		return "", g.CommitErr
	}

	if _, ok := g.staged[handle]; !ok {
		return "", fmt.Errorf("unknown staging handle: %s", handle)
	}
	delete(g.staged, handle)

	postID := fmt.Sprintf("test_post_%d_%s", time.Now().Unix(), shortID())
	g.log.Info().
		Str("handle", handle).
		Str("post_id", postID).
		Msg("Published media (simulation)")

	return postID, nil
}

// Verify always succeeds; there is nothing to reach.
func (g *Gateway) Verify(_ context.Context) error {
	g.log.Info().Msg("Stub gateway verified (no external account)")
	return nil
}

// StagedCount reports how many handles are staged but not yet committed.
func (g *Gateway) StagedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.staged)
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Ensure Gateway implements gateway.PostingGateway
var _ gateway.PostingGateway = (*Gateway)(nil)
