package instagram

import (
	"context"
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

const testAccountID = "17841400000000000"

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled", Format: "json"})
}

func newTestGateway(t *testing.T, serverURL string) *Gateway {
	t.Helper()

	cfg := config.InstagramConfig{
		AccountID:      testAccountID,
		AccessToken:    "page-token",
		TokenExpiresAt: time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
	}

	g := New(cfg, NewTokenManager(cfg, testLogger()), ratelimit.NewDefaultLimiter(), testLogger())
	g.baseURL = serverURL
	return g
}

func TestStageCreatesContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/"+testAccountID+"/media", r.URL.Path)
		assert.Equal(t, "https://example.com/photo.jpg", r.URL.Query().Get("image_url"))
		assert.Equal(t, "fresh out of the oven", r.URL.Query().Get("caption"))
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"17900001"}`))
	}))
	defer server.Close()

	g := newTestGateway(t, server.URL)

	handle, err := g.Stage(context.Background(), "https://example.com/photo.jpg", "fresh out of the oven")
	require.NoError(t, err)
	assert.Equal(t, "17900001", handle)
}

func TestCommitPublishesContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/"+testAccountID+"/media_publish", r.URL.Path)
		assert.Equal(t, "17900001", r.URL.Query().Get("creation_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"17950002"}`))
	}))
	defer server.Close()

	g := newTestGateway(t, server.URL)

	postID, err := g.Commit(context.Background(), "17900001")
	require.NoError(t, err)
	assert.Equal(t, "17950002", postID)
}

func TestGraphErrorIsSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`))
	}))
	defer server.Close()

	g := newTestGateway(t, server.URL)

	_, err := g.Stage(context.Background(), "https://example.com/p.jpg", "caption")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
	assert.Contains(t, err.Error(), "100")
}

func TestStageRejectsEmptyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	g := newTestGateway(t, server.URL)

	_, err := g.Stage(context.Background(), "https://example.com/p.jpg", "caption")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}

func TestVerifyFetchesAccountInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/"+testAccountID, r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "username")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"` + testAccountID + `","username":"corner_cafe","media_count":42,"followers_count":1200}`))
	}))
	defer server.Close()

	g := newTestGateway(t, server.URL)

	assert.NoError(t, g.Verify(context.Background()))
}

func TestResolveAccountID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"111","name":"Page Without IG"},
			{"id":"222","name":"Corner Cafe","instagram_business_account":{"id":"17841499"}}
		]}`))
	}))
	defer server.Close()

	g := newTestGateway(t, server.URL)

	id, err := g.ResolveAccountID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "17841499", id)
}

func TestVerifyWithoutAccountIDReportsResolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"222","name":"Corner Cafe","instagram_business_account":{"id":"17841499"}}]}`))
	}))
	defer server.Close()

	g := newTestGateway(t, server.URL)
	g.accountID = ""

	err := g.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "17841499")
}

func TestTokenDefaultExpiry(t *testing.T) {
	cfg := config.InstagramConfig{AccessToken: "tok", TokenExpiresAt: "not-a-timestamp"}

	m := NewTokenManager(cfg, testLogger())

	valid, expiry, err := m.Status()
	require.NoError(t, err)
	assert.True(t, valid)
	assert.WithinDuration(t, time.Now().Add(defaultTokenLifetime), expiry, time.Minute)
}

func TestTokenMissing(t *testing.T) {
	m := NewTokenManager(config.InstagramConfig{}, testLogger())

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Instagram access token")
}

func TestTokenExchangeNearExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "old-token", r.URL.Query().Get("fb_exchange_token"))
		assert.Equal(t, "app-id", r.URL.Query().Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"bearer","expires_in":5184000}`))
	}))
	defer server.Close()

	cfg := config.InstagramConfig{
		AppID:          "app-id",
		AppSecret:      "app-secret",
		AccessToken:    "old-token",
		TokenExpiresAt: time.Now().Add(time.Hour).Format(time.RFC3339),
	}
	m := NewTokenManager(cfg, testLogger())
	m.baseURL = server.URL

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token.AccessToken)
	assert.WithinDuration(t, time.Now().Add(5184000*time.Second), token.Expiry, time.Minute)
}

func TestTokenExchangeFailureKeepsValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad app secret"}}`))
	}))
	defer server.Close()

	cfg := config.InstagramConfig{
		AppID:          "app-id",
		AppSecret:      "app-secret",
		AccessToken:    "old-token",
		TokenExpiresAt: time.Now().Add(time.Hour).Format(time.RFC3339),
	}
	m := NewTokenManager(cfg, testLogger())
	m.baseURL = server.URL

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old-token", token.AccessToken)
}
