package brokerclient

import "context"

// Source says which tier produced a prediction.
type Source string

const (
	// SourceLocalCache: the process-local tier, broker never contacted.
	SourceLocalCache Source = "local_cache"
	// SourceBroker: the broker ran a fresh inference for this request.
	SourceBroker Source = "broker"
	// SourceBrokerCache: the broker answered from its own shared tier.
	SourceBrokerCache Source = "broker_cache"
)

type Result struct {
	Probability float64
	Source      Source
}

// Predictor resolves image bytes to a probability. A non-nil error means
// no real prediction exists; there is no magic probability standing in
// for failure.
type Predictor interface {
	Predict(ctx context.Context, image []byte) (Result, error)
}

// Ensure Client implements Predictor
var _ Predictor = (*Client)(nil)
