// Package fingerprint derives the content-addressed identity of an image.
// The digest is computed over the raw encoded bytes, so byte-identical
// uploads always share a fingerprint while a re-encoded copy of the same
// picture never does.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is the hex-encoded SHA-256 digest of raw image bytes. It is
// used directly as the cache and dedup key on both sides of the broker
// boundary, so client and server must derive it the same way.
type Fingerprint string

func Sum(data []byte) Fingerprint {
	hash := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(hash[:]))
}

func (f Fingerprint) String() string {
	return string(f)
}

func (f Fingerprint) Empty() bool {
	return f == ""
}
