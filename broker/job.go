package broker

import (
	"errors"

	"detection-api/fingerprint"
)

var (
	// ErrInferenceTimeout means no result arrived within the configured
	// wait bound. The job itself keeps running and still writes the
	// cache when it finishes.
	ErrInferenceTimeout = errors.New("inference timeout")

	// ErrQueueFull means the bounded job queue rejected the submission.
	ErrQueueFull = errors.New("inference queue full")

	ErrShuttingDown = errors.New("broker is shutting down")
)

// InferenceResult is what a submitter gets back. FromCache is true only
// when the front-door cache lookup supplied the value; results that went
// through the queue always report false, even if the worker's re-check
// found a freshly written entry.
type InferenceResult struct {
	Probability float64
	FromCache   bool
}

// inferenceJob is owned by the broker for its whole lifetime. Submitters
// and joiners hold only the done channel; dropping a waiter never cancels
// the job.
type inferenceJob struct {
	id    string
	fp    fingerprint.Fingerprint
	image []byte

	// Result fields are written by the worker before done is closed and
	// read by waiters only after it is closed.
	done        chan struct{}
	probability float64
	err         error
}
