package template

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled", Format: "json"})
}

func TestGenerateFillsPlaceholders(t *testing.T) {
	gen := New("https://example.com/placeholder.jpg", rand.New(rand.NewSource(1)), testLogger())

	business := &models.Business{
		Name:          "Bella Cucina",
		Industry:      "restaurant",
		ContentThemes: models.StringSlice{"seasonal pasta"},
	}

	bundle, err := gen.Generate(context.Background(), business)
	require.NoError(t, err)

	assert.Contains(t, bundle.Caption, "Bella Cucina")
	assert.Contains(t, bundle.Caption, "seasonal pasta")
	assert.NotContains(t, bundle.Caption, "{business}")
	assert.NotContains(t, bundle.Caption, "{theme}")
	assert.NotEmpty(t, bundle.Hashtags)
	assert.Equal(t, "https://example.com/placeholder.jpg", bundle.ImageRef)
	assert.Equal(t, models.ContentTypePost, bundle.Type)
}

func TestGenerateUnknownIndustryFallsBack(t *testing.T) {
	gen := New("https://example.com/placeholder.jpg", rand.New(rand.NewSource(1)), testLogger())

	business := &models.Business{
		Name:     "Quantum Widgets",
		Industry: "aerospace",
	}

	bundle, err := gen.Generate(context.Background(), business)
	require.NoError(t, err)

	assert.Contains(t, bundle.Caption, "Quantum Widgets")
	assert.NotEmpty(t, bundle.Hashtags)
}

func TestGenerateIndustryCaseInsensitive(t *testing.T) {
	gen := New("https://example.com/p.jpg", rand.New(rand.NewSource(7)), testLogger())

	business := &models.Business{
		Name:     "Iron Works Gym",
		Industry: "  Fitness ",
	}

	bundle, err := gen.Generate(context.Background(), business)
	require.NoError(t, err)
	assert.Contains(t, bundle.Caption, "Iron Works Gym")
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	business := &models.Business{
		Name:          "Glow Studio",
		Industry:      "beauty",
		ContentThemes: models.StringSlice{"morning routines", "ingredient spotlights", "client stories"},
	}

	first, err := New("https://example.com/p.jpg", rand.New(rand.NewSource(42)), testLogger()).
		Generate(context.Background(), business)
	require.NoError(t, err)

	second, err := New("https://example.com/p.jpg", rand.New(rand.NewSource(42)), testLogger()).
		Generate(context.Background(), business)
	require.NoError(t, err)

	assert.Equal(t, first.Caption, second.Caption)
	assert.Equal(t, first.Hashtags, second.Hashtags)
}

func TestGenerateHashtagsAreCopies(t *testing.T) {
	gen := New("https://example.com/p.jpg", rand.New(rand.NewSource(3)), testLogger())

	business := &models.Business{Name: "Corner Cafe", Industry: "restaurant"}

	bundle, err := gen.Generate(context.Background(), business)
	require.NoError(t, err)

	original := bundle.Hashtags[0]
	bundle.Hashtags[0] = "#mutated"

	again, err := New("https://example.com/p.jpg", rand.New(rand.NewSource(3)), testLogger()).
		Generate(context.Background(), business)
	require.NoError(t, err)
	assert.Equal(t, original, again.Hashtags[0])
}
