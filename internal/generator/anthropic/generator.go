package anthropic

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/instagram-agent/internal/ai"
	"github.com/instagram-agent/internal/generator"
	"github.com/instagram-agent/internal/inspiration"
	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/pkg/logger"
)

const defaultBrandVoice = "Warm, concrete, and lightly playful. Sounds like the owner talking to a regular, not an ad."

// ImageSource resolves a search phrase to a public image URL.
type ImageSource interface {
	PickPhotoURL(ctx context.Context, query string) (string, error)
}

// Generator produces captions and hashtags with Claude, paired with an image
// from the configured source. Images and headlines are both optional; their
// failures degrade the bundle instead of failing it.
type Generator struct {
	ai             *ai.Client
	images         ImageSource
	headlines      inspiration.Source
	placeholderURL string
	rng            *rand.Rand
	log            *logger.Logger
}

// Option configures optional generator collaborators.
type Option func(*Generator)

// WithImages attaches an image source used to resolve the model's photo query.
func WithImages(images ImageSource) Option {
	return func(g *Generator) { g.images = images }
}

// WithHeadlines attaches an industry headline source for generation context.
func WithHeadlines(headlines inspiration.Source) Option {
	return func(g *Generator) { g.headlines = headlines }
}

// WithRand overrides the random source used for theme rotation.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// New creates a Claude-backed generator
func New(client *ai.Client, placeholderURL string, log *logger.Logger, opts ...Option) *Generator {
	g := &Generator{
		ai:             client,
		placeholderURL: placeholderURL,
		log:            log.WithComponent("generator.anthropic"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name identifies the implementation
func (g *Generator) Name() string {
	return "anthropic"
}

// captionResponse is the JSON shape the prompt asks the model for.
type captionResponse struct {
	Caption    string   `json:"caption"`
	Hashtags   []string `json:"hashtags"`
	ImageQuery string   `json:"image_query"`
}

// Generate builds one post bundle for the business.
func (g *Generator) Generate(ctx context.Context, business *models.Business) (*generator.Bundle, error) {
	theme := g.pickTheme(business.ContentThemes)

	brandVoice := business.BrandVoice
	if brandVoice == "" {
		brandVoice = defaultBrandVoice
	}

	systemPrompt := fmt.Sprintf(ai.CaptionSystemPrompt, brandVoice)
	userPrompt := fmt.Sprintf(ai.CaptionUserPrompt,
		business.Name,
		business.Industry,
		business.TargetAudience,
		theme,
	)

	if g.headlines != nil {
		headlines, err := g.headlines.HeadlinesFor(ctx, business.Industry)
		if err != nil {
			g.log.Warn().Err(err).Str("industry", business.Industry).Msg("Headline fetch failed, generating without context")
		}
		if len(headlines) > 0 {
			var lines []string
			for _, h := range headlines {
				lines = append(lines, "- "+h.Title)
			}
			userPrompt += fmt.Sprintf(ai.CaptionInspirationPrompt, strings.Join(lines, "\n"))
		}
	}

	var resp captionResponse
	if err := g.ai.CompleteInto(ctx, systemPrompt, userPrompt, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Caption) == "" {
		return nil, fmt.Errorf("model returned an empty caption")
	}

	imageRef := g.resolveImage(ctx, resp.ImageQuery, business)

	g.log.Info().
		Str("business", business.Name).
		Str("theme", theme).
		Int("hashtags", len(resp.Hashtags)).
		Msg("Generated content bundle")

	return &generator.Bundle{
		Caption:  strings.TrimSpace(resp.Caption),
		Hashtags: NormalizeHashtags(resp.Hashtags),
		ImageRef: imageRef,
		Type:     models.ContentTypePost,
	}, nil
}

// pickTheme rotates through the configured themes; empty list falls back to a
// generic daily-update theme.
func (g *Generator) pickTheme(themes models.StringSlice) string {
	if len(themes) == 0 {
		return "a day in the life of the business"
	}
	if g.rng != nil {
		return themes[g.rng.Intn(len(themes))]
	}
	return themes[rand.Intn(len(themes))]
}

// resolveImage turns the model's photo query into a URL, falling back to the
// placeholder when no source is configured or the lookup fails.
func (g *Generator) resolveImage(ctx context.Context, query string, business *models.Business) string {
	if g.images == nil || strings.TrimSpace(query) == "" {
		return g.placeholderURL
	}

	url, err := g.images.PickPhotoURL(ctx, query)
	if err != nil {
		g.log.Warn().
			Err(err).
			Str("query", query).
			Str("business", business.Name).
			Msg("Image lookup failed, using placeholder")
		return g.placeholderURL
	}
	return url
}

// NormalizeHashtags trims, deduplicates, and prefixes tags so the caption
// builder downstream can trust the list. At most ten tags survive.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimPrefix(tag, "#")
		tag = strings.Join(strings.Fields(tag), "")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+tag)
		if len(out) == 10 {
			break
		}
	}
	return out
}

// Ensure Generator implements generator.Generator
var _ generator.Generator = (*Generator)(nil)
