package rss

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/instagram-agent/internal/config"
	"github.com/instagram-agent/internal/inspiration"
	"github.com/instagram-agent/pkg/logger"
	"github.com/instagram-agent/pkg/ratelimit"
)

type feedRef struct {
	name string
	url  string
}

// Source implements inspiration.Source over per-industry RSS feeds. A feed
// configured with an empty industry applies to every business.
type Source struct {
	feeds        map[string][]feedRef
	parser       *gofeed.Parser
	fetchTimeout time.Duration
	maxAge       time.Duration
	maxHeadlines int
	rateLimiter  *ratelimit.MultiLimiter
	log          *logger.Logger
}

// New creates an RSS headline source from config
func New(cfg config.InspirationConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	feeds := make(map[string][]feedRef)
	for _, f := range cfg.Feeds {
		key := strings.ToLower(strings.TrimSpace(f.Industry))
		feeds[key] = append(feeds[key], feedRef{name: f.Name, url: f.URL})
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	maxHeadlines := cfg.MaxHeadlines
	if maxHeadlines <= 0 {
		maxHeadlines = 5
	}

	return &Source{
		feeds:        feeds,
		parser:       gofeed.NewParser(),
		fetchTimeout: fetchTimeout,
		maxAge:       maxAge,
		maxHeadlines: maxHeadlines,
		rateLimiter:  limiter,
		log:          log.WithComponent("inspiration"),
	}
}

// HeadlinesFor fetches the feeds registered for the industry (plus any
// catch-all feeds) concurrently and returns the freshest headlines. Partial
// feed failures are logged and swallowed; an error comes back only when no
// feed produced anything.
func (s *Source) HeadlinesFor(ctx context.Context, industry string) ([]inspiration.Headline, error) {
	refs := append([]feedRef{}, s.feeds[strings.ToLower(strings.TrimSpace(industry))]...)
	refs = append(refs, s.feeds[""]...)
	if len(refs) == 0 {
		return nil, nil
	}

	type result struct {
		headlines []inspiration.Headline
		err       error
	}
	results := make(chan result, len(refs))

	for _, ref := range refs {
		go func(ref feedRef) {
			headlines, err := s.fetchFeed(ctx, ref)
			results <- result{headlines: headlines, err: err}
		}(ref)
	}

	var all []inspiration.Headline
	var firstErr error
	for range refs {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		all = append(all, r.headlines...)
	}

	if len(all) == 0 {
		return nil, firstErr
	}

	// Freshest first, capped.
	sort.Slice(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})
	if len(all) > s.maxHeadlines {
		all = all[:s.maxHeadlines]
	}
	return all, nil
}

func (s *Source) fetchFeed(ctx context.Context, ref feedRef) ([]inspiration.Headline, error) {
	if err := s.rateLimiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	s.log.Debug().Str("feed", ref.name).Str("url", ref.url).Msg("Fetching RSS feed")

	feed, err := s.parser.ParseURLWithContext(ref.url, fetchCtx)
	if err != nil {
		s.log.Warn().Err(err).Str("feed", ref.name).Msg("RSS fetch failed")
		return nil, err
	}

	headlines := make([]inspiration.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := time.Now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
			if time.Since(published) > s.maxAge {
				continue
			}
		}

		title := cleanText(item.Title)
		if title == "" {
			continue
		}

		headlines = append(headlines, inspiration.Headline{
			Title:     title,
			FeedName:  ref.name,
			Published: published,
		})
	}

	s.log.Debug().
		Int("count", len(headlines)).
		Str("feed", ref.name).
		Msg("Fetched headlines")

	return headlines, nil
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "<br/>", " ")
	text = strings.ReplaceAll(text, "<br />", " ")

	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(strings.Join(strings.Fields(result.String()), " "))
}

// Ensure Source implements inspiration.Source
var _ inspiration.Source = (*Source)(nil)
