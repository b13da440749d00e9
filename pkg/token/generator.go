package token

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	// Prefix marks bankline session tokens.
	Prefix = "blt_"

	// DefaultLength is the number of random bytes in a token body.
	DefaultLength = 24
)

// Generate returns a new prefixed random token.
func Generate() (string, error) {
	body, err := GenerateWithLength(DefaultLength)
	if err != nil {
		return "", err
	}
	return Prefix + body, nil
}

// GenerateWithLength returns length random bytes, Base64 RawURL encoded,
// without the prefix.
func GenerateWithLength(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

