package generator

import (
	"context"

	"github.com/instagram-agent/internal/models"
)

// Bundle is the output of one content generation: everything the automation
// engine needs to persist a draft content item.
type Bundle struct {
	Caption  string
	Hashtags []string
	ImageRef string
	Type     models.ContentType
}

// Generator produces a content bundle from a business's attributes. A failure
// means the business is skipped for the cycle; implementations must not leave
// partial side effects behind.
type Generator interface {
	// Name identifies the implementation in logs and the verify command.
	Name() string
	Generate(ctx context.Context, business *models.Business) (*Bundle, error)
}
