// Package checksum derives stable identifiers from bytes without exposing them.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const fingerprintLen = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint is a short prefix of Sum, used to correlate uploads in logs.
func Fingerprint(data []byte) string {
	return Sum(data)[:fingerprintLen]
}

// Equal reports whether the digests of a and b match, in constant time.
func Equal(a, b string) bool {
	x, y := sha256.Sum256([]byte(a)), sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(x[:], y[:]) == 1
}
