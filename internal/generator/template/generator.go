package template

import (
	"context"
	"math/rand"
	"strings"

	"github.com/instagram-agent/internal/generator"
	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/pkg/logger"
)

// entry is one canned caption with its hashtag set. Captions may reference
// {business} and {theme}, filled in at generation time.
type entry struct {
	caption  string
	hashtags []string
}

var industryEntries = map[string][]entry{
	"restaurant": {
		{
			caption:  "Today's special at {business} is all about {theme}. Fresh ingredients, honest cooking, and a table waiting for you. Come hungry!",
			hashtags: []string{"#foodie", "#restaurant", "#freshfood", "#eatlocal", "#dailyspecial"},
		},
		{
			caption:  "There's a story behind every plate at {business}. This week we're celebrating {theme}, made the way we'd serve our own family.",
			hashtags: []string{"#behindthescenes", "#chefslife", "#madefromscratch", "#foodlovers", "#localeats"},
		},
		{
			caption:  "Pull up a chair at {business}. Good food, good company, and {theme} on the menu. What more does an evening need?",
			hashtags: []string{"#dinnertime", "#cozyvibes", "#foodstagram", "#treatyourself", "#supportlocal"},
		},
	},
	"fashion": {
		{
			caption:  "New arrivals at {business}! This season is all about {theme}. Come find the piece that feels like it was made for you.",
			hashtags: []string{"#fashion", "#newarrivals", "#ootd", "#style", "#trending"},
		},
		{
			caption:  "Style tip from {business}: build your look around {theme} and let the basics do the rest. Effortless never goes out of season.",
			hashtags: []string{"#styletips", "#fashiondaily", "#wardrobe", "#lookbook", "#styleinspo"},
		},
	},
	"beauty": {
		{
			caption:  "Glow-up time at {business}. Our take on {theme} keeps it gentle, natural, and kind to your skin. You deserve the good stuff.",
			hashtags: []string{"#beauty", "#skincare", "#selfcare", "#glow", "#naturalbeauty"},
		},
		{
			caption:  "Quick tip from the team at {business}: consistency beats complexity. A little {theme} every day goes a long way.",
			hashtags: []string{"#beautytips", "#skincareroutine", "#healthyskin", "#beautycare", "#dailyritual"},
		},
	},
	"fitness": {
		{
			caption:  "No better day to start than today. At {business} we're focusing on {theme} this week, and there's a spot with your name on it. Let's go!",
			hashtags: []string{"#fitness", "#workout", "#training", "#fitfam", "#noexcuses"},
		},
		{
			caption:  "Progress is built one session at a time. {business} is here for every rep, and this week's focus on {theme} will push you further.",
			hashtags: []string{"#fitnessmotivation", "#strongereveryday", "#gymlife", "#healthyhabits", "#results"},
		},
	},
}

var genericEntries = []entry{
	{
		caption:  "At {business}, {theme} is what we do best. Stop by and see the difference real care makes.",
		hashtags: []string{"#smallbusiness", "#quality", "#service", "#community", "#supportlocal"},
	},
	{
		caption:  "Behind every detail at {business} is a team that cares about {theme}. Thanks for letting us be part of your day.",
		hashtags: []string{"#behindthescenes", "#teamwork", "#dedication", "#localbusiness", "#thankyou"},
	},
}

// Generator produces content from canned per-industry captions. It needs no
// credentials and no network, so it is the default provider.
type Generator struct {
	placeholderURL string
	rng            *rand.Rand
	log            *logger.Logger
}

// New creates a template generator. A nil rng falls back to the global source.
func New(placeholderURL string, rng *rand.Rand, log *logger.Logger) *Generator {
	return &Generator{
		placeholderURL: placeholderURL,
		rng:            rng,
		log:            log.WithComponent("generator.template"),
	}
}

// Name identifies the implementation
func (g *Generator) Name() string {
	return "template"
}

// Generate picks a canned caption for the business's industry and fills in
// the business name and a rotating theme.
func (g *Generator) Generate(_ context.Context, business *models.Business) (*generator.Bundle, error) {
	entries, ok := industryEntries[normalizeIndustry(business.Industry)]
	if !ok {
		entries = genericEntries
	}

	picked := entries[g.intn(len(entries))]
	theme := g.pickTheme(business.ContentThemes)

	caption := strings.NewReplacer(
		"{business}", business.Name,
		"{theme}", theme,
	).Replace(picked.caption)

	g.log.Debug().
		Str("business", business.Name).
		Str("industry", business.Industry).
		Str("theme", theme).
		Msg("Generated content from template")

	hashtags := make([]string, len(picked.hashtags))
	copy(hashtags, picked.hashtags)

	return &generator.Bundle{
		Caption:  caption,
		Hashtags: hashtags,
		ImageRef: g.placeholderURL,
		Type:     models.ContentTypePost,
	}, nil
}

func (g *Generator) pickTheme(themes models.StringSlice) string {
	if len(themes) == 0 {
		return "what makes us who we are"
	}
	return themes[g.intn(len(themes))]
}

func (g *Generator) intn(n int) int {
	if n <= 1 {
		return 0
	}
	if g.rng != nil {
		return g.rng.Intn(n)
	}
	return rand.Intn(n)
}

func normalizeIndustry(industry string) string {
	return strings.ToLower(strings.TrimSpace(industry))
}

// Ensure Generator implements generator.Generator
var _ generator.Generator = (*Generator)(nil)
