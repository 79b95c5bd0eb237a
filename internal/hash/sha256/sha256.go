// Package sha256 provides content fingerprinting backed by SHA-256.
package sha256

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Hasher implements output.Fingerprinter using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Fingerprint returns a stable base64 digest of the content, suitable for
// deriving file names.
func (h *Hasher) Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Hex returns the hex digest, mainly for logging and diagnostics.
func (h *Hasher) Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
