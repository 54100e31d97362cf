// Package hashx computes content fingerprints for uploaded payloads.
// The digest is the dedup key for the whole store, so it must be a
// cryptographic hash, not a fast checksum.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Hash streams r through SHA-256 and returns the lowercase hex digest.
// The source is consumed incrementally, so payloads of arbitrary size are
// hashed with bounded memory. A read error on r is the only failure mode.
func Hash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing payload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
