package tracker

import (
	"context"

	"github.com/instagram-agent/internal/models"
)

// Tracker mirrors published performance records to an external sink. A mirror
// failure never affects the publishing pipeline; callers log and move on.
type Tracker interface {
	Append(ctx context.Context, record *models.PerformanceRecord, businessName string) error
}
