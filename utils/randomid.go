package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomId returns n URL-safe random characters. Each character carries 6
// bits of entropy, so n=16 is well above 80 bits.
func RandomId(n int) string {
	b := make([]byte, n)
	rand.Read(b) // never fails, see crypto/rand docs
	return base64.RawURLEncoding.EncodeToString(b)[:n]
}
