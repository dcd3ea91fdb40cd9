// Package checksum provides the SHA-256 digests used for event identity
// and for change detection on rendered calendar documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLen is the number of hex characters kept for event UIDs.
const shortLen = 32

// Document returns the full hex digest of a rendered calendar. Publish
// compares it against the previous run to skip pushing an unchanged feed.
func Document(doc string) string {
	sum := sha256.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:])
}

// Short returns the leading 128 bits of the digest of key, in hex. The
// truncated form keeps UIDs readable; collisions across a personal
// calendar are not a practical concern.
func Short(key string) string {
	return Document(key)[:shortLen]
}
