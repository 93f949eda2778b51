package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instagram-agent/internal/config"
	"github.com/instagram-agent/pkg/logger"
	"github.com/instagram-agent/pkg/ratelimit"
)

func testLimiter() *ratelimit.MultiLimiter {
	m := ratelimit.NewMultiLimiter()
	m.AddLimiter(ratelimit.LimiterRSS, 100, 100)
	return m
}

func rssServer(t *testing.T, items string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>test</title>%s</channel></rss>`, items)
	}))
	t.Cleanup(server.Close)
	return server
}

func item(title string, published time.Time) string {
	return fmt.Sprintf(`<item><title>%s</title><link>https://example.com</link><pubDate>%s</pubDate></item>`,
		title, published.Format(time.RFC1123Z))
}

func TestHeadlinesForFiltersAndSorts(t *testing.T) {
	now := time.Now()
	server := rssServer(t,
		item("Old news", now.Add(-10*24*time.Hour))+
			item("Yesterday &lt;b&gt;special&lt;/b&gt;", now.Add(-24*time.Hour))+
			item("This morning", now.Add(-2*time.Hour)))

	src := New(config.InspirationConfig{
		Feeds: []config.InspirationFeed{
			{Industry: "Restaurant", Name: "eats", URL: server.URL},
		},
	}, testLimiter(), logger.Default())

	headlines, err := src.HeadlinesFor(context.Background(), "restaurant")
	require.NoError(t, err)
	require.Len(t, headlines, 2)

	// Freshest first, older-than-a-week dropped, HTML stripped.
	assert.Equal(t, "This morning", headlines[0].Title)
	assert.Equal(t, "Yesterday special", headlines[1].Title)
	assert.Equal(t, "eats", headlines[0].FeedName)
}

func TestHeadlinesForUnknownIndustry(t *testing.T) {
	server := rssServer(t, item("anything", time.Now()))

	src := New(config.InspirationConfig{
		Feeds: []config.InspirationFeed{
			{Industry: "fitness", Name: "gym", URL: server.URL},
		},
	}, testLimiter(), logger.Default())

	headlines, err := src.HeadlinesFor(context.Background(), "florist")
	require.NoError(t, err)
	assert.Empty(t, headlines)
}

func TestHeadlinesForCatchAllFeed(t *testing.T) {
	server := rssServer(t, item("for everyone", time.Now().Add(-time.Hour)))

	src := New(config.InspirationConfig{
		Feeds: []config.InspirationFeed{
			{Industry: "", Name: "general", URL: server.URL},
		},
	}, testLimiter(), logger.Default())

	headlines, err := src.HeadlinesFor(context.Background(), "restaurant")
	require.NoError(t, err)
	require.Len(t, headlines, 1)
	assert.Equal(t, "for everyone", headlines[0].Title)
}

func TestHeadlinesForCapsResults(t *testing.T) {
	now := time.Now()
	var items string
	for i := 0; i < 10; i++ {
		items += item(fmt.Sprintf("headline %d", i), now.Add(-time.Duration(i)*time.Hour))
	}
	server := rssServer(t, items)

	src := New(config.InspirationConfig{
		MaxHeadlines: 3,
		Feeds: []config.InspirationFeed{
			{Industry: "retail", Name: "shop", URL: server.URL},
		},
	}, testLimiter(), logger.Default())

	headlines, err := src.HeadlinesFor(context.Background(), "retail")
	require.NoError(t, err)
	assert.Len(t, headlines, 3)
	assert.Equal(t, "headline 0", headlines[0].Title)
}

func TestHeadlinesForAllFeedsFailing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(server.Close)

	src := New(config.InspirationConfig{
		Feeds: []config.InspirationFeed{
			{Industry: "retail", Name: "broken", URL: server.URL},
		},
	}, testLimiter(), logger.Default())

	headlines, err := src.HeadlinesFor(context.Background(), "retail")
	assert.Error(t, err)
	assert.Empty(t, headlines)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b", cleanText("  a\n\n b "))
	assert.Equal(t, "bold move", cleanText("<b>bold</b> move"))
	assert.Equal(t, "line one line two", cleanText("line one<br/>line two"))
}
