// Package sha256 provides SHA-256 hashing utilities.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher implements content hashing using SHA-256. Digests are used to
// deduplicate listings across repeated scrapes of the same search page.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprint derives a stable identity for one listing from its
// distinguishing parts. Parts are joined with an unlikely separator so the
// concatenation is unambiguous; empty parts still occupy a position.
func (h *Hasher) Fingerprint(parts ...string) (string, error) {
	return h.Hash([]byte(strings.Join(parts, "\x1f")))
}
