package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/instagram-agent/internal/config"
	"github.com/instagram-agent/pkg/logger"
	"github.com/instagram-agent/pkg/ratelimit"
)

const (
	graphBaseURL      = "https://graph.facebook.com"
	defaultAPIVersion = "v18.0"
)

func graphURL(version string) string {
	if version == "" {
		version = defaultAPIVersion
	}
	return graphBaseURL + "/" + version
}

// Gateway publishes content through the Instagram Graph API. Publishing is a
// two-step flow: create a media container, then publish it once the platform
// has processed the upload.
type Gateway struct {
	httpClient  *http.Client
	tokens      *TokenManager
	rateLimiter *ratelimit.MultiLimiter
	accountID   string
	baseURL     string
	log         *logger.Logger
}

// New creates an Instagram gateway for the configured business account
func New(cfg config.InstagramConfig, tokens *TokenManager, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Gateway {
	return &Gateway{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens:      tokens,
		rateLimiter: limiter,
		accountID:   cfg.AccountID,
		baseURL:     graphURL(cfg.APIVersion),
		log:         log.WithComponent("gateway.instagram"),
	}
}

// Name identifies the implementation
func (g *Gateway) Name() string {
	return "instagram"
}

// graphError is the error envelope the Graph API returns on failures.
type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *graphError) Error() string {
	return fmt.Sprintf("graph api error %d (%s): %s", e.Code, e.Type, e.Message)
}

// call performs one Graph API request with rate limiting and token handling.
// Parameters travel in the query string, which is how the publishing
// endpoints expect them. The access token is appended here and never logged.
func (g *Gateway) call(ctx context.Context, limiterName, method, path string, params url.Values, out interface{}) error {
	if err := g.rateLimiter.Wait(ctx, limiterName); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	token, err := g.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("authentication error: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", token.AccessToken)

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	g.log.Debug().
		Str("method", method).
		Str("path", path).
		Msg("Making Graph API request")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	g.log.Debug().
		Int("status", resp.StatusCode).
		Str("path", path).
		Msg("Graph API response")

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error *graphError `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error != nil {
			return fmt.Errorf("%s %s: %w", method, path, envelope.Error)
		}
		return fmt.Errorf("%s %s: %s - %s", method, path, resp.Status, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
