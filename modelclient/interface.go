package modelclient

import "context"

// Classifier is the boundary to the model runner. The runner owns model
// loading and tensor execution; this side ships raw image bytes and reads
// a probability back.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (float64, error)

	// Health reports whether the runner has a model loaded and is ready
	// to serve. Daemons treat an unhealthy runner at startup as fatal.
	Health(ctx context.Context) (bool, error)
}

// Ensure Client implements Classifier
var _ Classifier = (*Client)(nil)
