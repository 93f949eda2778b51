package inspiration

import (
	"context"
	"time"
)

// Headline is one recent item pulled from an industry feed.
type Headline struct {
	Title     string
	FeedName  string
	Published time.Time
}

// Source provides recent industry headlines that generators may use as
// timeliness context. Implementations must treat an unknown industry as
// "no headlines", not as an error.
type Source interface {
	HeadlinesFor(ctx context.Context, industry string) ([]Headline, error)
}
