package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/instagram-agent/internal/config"
	"github.com/instagram-agent/pkg/logger"
)

const (
	// Long-lived Graph API tokens last about 60 days.
	defaultTokenLifetime = 60 * 24 * time.Hour
	// Exchange the token while it is still valid; the exchange endpoint
	// rejects expired tokens.
	refreshWindow = 7 * 24 * time.Hour
)

// TokenManager holds the long-lived Graph API token and exchanges it for a
// fresh one when it nears expiry. Tokens are imported from configuration;
// there is no interactive flow in headless deployments.
type TokenManager struct {
	oauth      *oauth2.Config
	appID      string
	appSecret  string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger

	mu      sync.RWMutex
	current *oauth2.Token
}

// NewTokenManager creates a token manager, importing any token present in the
// configuration. A missing or unparseable expiry gets the 60-day default.
func NewTokenManager(cfg config.InstagramConfig, log *logger.Logger) *TokenManager {
	m := &TokenManager{
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes: []string{
				"instagram_basic",
				"instagram_content_publish",
				"pages_show_list",
			},
			Endpoint: facebook.Endpoint,
		},
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		baseURL:    graphURL(cfg.APIVersion),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.WithComponent("instagram.auth"),
	}

	if cfg.AccessToken != "" {
		expiry, err := time.Parse(time.RFC3339, cfg.TokenExpiresAt)
		if err != nil {
			expiry = time.Now().Add(defaultTokenLifetime)
		}

		m.current = &oauth2.Token{
			AccessToken: cfg.AccessToken,
			TokenType:   "Bearer",
			Expiry:      expiry,
		}
		m.log.Info().
			Time("expires_at", expiry).
			Msg("Access token loaded from configuration")
	}

	return m
}

// AuthURL returns the authorization URL a user visits to grant the app
// access. Printed by the verify command when no token is configured.
func (m *TokenManager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Token returns a valid access token, exchanging it for a fresh long-lived
// one when it is close to expiry.
func (m *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	m.mu.RLock()
	token := m.current
	m.mu.RUnlock()

	if token == nil {
		return nil, fmt.Errorf("no Instagram access token configured: set INSTAGRAM_INSTAGRAM_ACCESS_TOKEN")
	}

	if time.Until(token.Expiry) > refreshWindow {
		return token, nil
	}

	fresh, err := m.exchange(ctx, token)
	if err != nil {
		// The current token may still have days of life left; keep using it
		// and retry the exchange on the next call.
		if token.Valid() {
			m.log.Warn().
				Err(err).
				Time("expires_at", token.Expiry).
				Msg("Token exchange failed, keeping current token until expiry")
			return token, nil
		}
		return nil, err
	}
	return fresh, nil
}

// exchange trades the current token for a fresh long-lived one.
func (m *TokenManager) exchange(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if m.appID == "" || m.appSecret == "" {
		return nil, fmt.Errorf("token exchange requires instagram.app_id and instagram.app_secret")
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", m.appID)
	params.Set("client_secret", m.appSecret)
	params.Set("fb_exchange_token", token.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.baseURL+"/oauth/access_token?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed: %s - %s", resp.Status, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token exchange response carried no token")
	}

	lifetime := defaultTokenLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}

	fresh := &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(lifetime),
	}

	m.mu.Lock()
	m.current = fresh
	m.mu.Unlock()

	m.log.Info().
		Time("expires_at", fresh.Expiry).
		Msg("Access token exchanged for a fresh long-lived token")

	return fresh, nil
}

// Status reports whether a token is present and still valid, and its expiry.
func (m *TokenManager) Status() (bool, time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return false, time.Time{}, fmt.Errorf("no token configured")
	}
	return m.current.Valid(), m.current.Expiry, nil
}
