// Package predictioncache persists model probabilities keyed by image
// fingerprint. Entries are written once after a successful inference and
// never evicted; a write for an existing fingerprint carries the same
// value, so racing writers are harmless.
package predictioncache

import (
	"context"

	"detection-api/fingerprint"
)

type Store interface {
	// Get returns the cached probability and whether the fingerprint was
	// present. Values are returned as stored: callers must not assume
	// they are in [0, 1].
	Get(ctx context.Context, fp fingerprint.Fingerprint) (float64, bool, error)
	// Set writes the probability for the fingerprint. The write is a
	// single atomic key set with no expiry.
	Set(ctx context.Context, fp fingerprint.Fingerprint, probability float64) error
}
