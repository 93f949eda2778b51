package gateway

import "context"

// PostingGateway publishes content to a platform in two phases. Stage uploads
// the media and returns an opaque staging handle; Commit turns that handle
// into a live post and returns the platform's post id. The two calls are
// separated because the platform needs processing time between them.
type PostingGateway interface {
	// Name identifies the gateway in logs and CLI output.
	Name() string

	// Stage registers the image and caption with the platform and returns a
	// handle for the staged media.
	Stage(ctx context.Context, imageRef, caption string) (string, error)

	// Commit publishes previously staged media and returns the platform post id.
	Commit(ctx context.Context, handle string) (string, error)

	// Verify checks that the gateway's credentials and target account are
	// usable without publishing anything.
	Verify(ctx context.Context) error
}
