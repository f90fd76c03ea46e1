// Package digest fingerprints signed artifacts.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hex returns the lowercase hex SHA-256 of data.
func Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether data hashes to the given hex digest. Case is
// ignored.
func Matches(data []byte, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)
	return len(want) == len(sum) && string(want) == string(sum[:])
}
