package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/instagram-agent/internal/gateway"
	"github.com/instagram-agent/pkg/ratelimit"
)

// idResponse is the body shape of the container and publish endpoints.
type idResponse struct {
	ID string `json:"id"`
}

// Stage creates a media container for the image and caption. The returned id
// is the handle Commit publishes after the platform finishes processing.
func (g *Gateway) Stage(ctx context.Context, imageRef, caption string) (string, error) {
	params := url.Values{}
	params.Set("image_url", imageRef)
	params.Set("caption", caption)

	var resp idResponse
	err := g.call(ctx, ratelimit.LimiterInstagram, http.MethodPost,
		"/"+g.accountID+"/media", params, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to create media container: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("media container response carried no id")
	}

	g.log.Info().
		Str("container_id", resp.ID).
		Msg("Media container created")

	return resp.ID, nil
}

// Commit publishes a staged container and returns the platform post id.
func (g *Gateway) Commit(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", handle)

	var resp idResponse
	err := g.call(ctx, ratelimit.LimiterInstagramPublish, http.MethodPost,
		"/"+g.accountID+"/media_publish", params, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to publish media: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("media publish response carried no id")
	}

	g.log.Info().
		Str("post_id", resp.ID).
		Msg("Media published")

	return resp.ID, nil
}

// AccountInfo is the subset of account fields the verify check reads.
type AccountInfo struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	MediaCount     int    `json:"media_count"`
	FollowersCount int    `json:"followers_count"`
}

// AccountInfo fetches the target account's profile as a credential check.
func (g *Gateway) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	params := url.Values{}
	params.Set("fields", "id,username,name,media_count,followers_count")

	var info AccountInfo
	err := g.call(ctx, ratelimit.LimiterInstagram, http.MethodGet,
		"/"+g.accountID, params, &info)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account info: %w", err)
	}
	return &info, nil
}

// pageList is the /me/accounts response shape.
type pageList struct {
	Data []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Instagram *struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	} `json:"data"`
}

// ResolveAccountID walks the pages the token can manage and returns the first
// linked Instagram business account id. Used when instagram.account_id is not
// configured but a page token is.
func (g *Gateway) ResolveAccountID(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("fields", "id,name,instagram_business_account")

	var pages pageList
	err := g.call(ctx, ratelimit.LimiterInstagram, http.MethodGet, "/me/accounts", params, &pages)
	if err != nil {
		return "", fmt.Errorf("failed to list pages: %w", err)
	}

	for _, page := range pages.Data {
		if page.Instagram != nil && page.Instagram.ID != "" {
			g.log.Info().
				Str("page", page.Name).
				Str("account_id", page.Instagram.ID).
				Msg("Resolved Instagram business account")
			return page.Instagram.ID, nil
		}
	}

	return "", fmt.Errorf("no Instagram business account linked to any accessible page")
}

// Verify checks token validity and account reachability without publishing.
// When no account id is configured it attempts resolution and reports the id
// to set.
func (g *Gateway) Verify(ctx context.Context) error {
	if g.accountID == "" {
		resolved, err := g.ResolveAccountID(ctx)
		if err != nil {
			return fmt.Errorf("no account id configured and resolution failed: %w", err)
		}
		return fmt.Errorf("no account id configured: set instagram.account_id=%s", resolved)
	}

	info, err := g.AccountInfo(ctx)
	if err != nil {
		return err
	}

	g.log.Info().
		Str("account_id", info.ID).
		Str("username", info.Username).
		Int("media_count", info.MediaCount).
		Int("followers", info.FollowersCount).
		Msg("Instagram account verified")

	return nil
}

// Ensure Gateway implements gateway.PostingGateway
var _ gateway.PostingGateway = (*Gateway)(nil)
