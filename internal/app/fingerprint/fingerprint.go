// Package fingerprint derives a cookie-less visitor identity from request metadata.
//
// The identity is sha256(address + ":" + user agent). Visitors behind a shared NAT with the same
// browser collapse into one identity, and a visitor whose address changes becomes a new one.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex digest identifying a visitor.
func Fingerprint(address, userAgent string) string {
	sum := sha256.Sum256([]byte(address + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}
