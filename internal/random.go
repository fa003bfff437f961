package internal

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

// TokenSize is the number of random bytes behind every opaque token.
const TokenSize = 32

// NewToken returns a base64url (unpadded) encoding of TokenSize random bytes.
func NewToken() (string, error) {
	var raw [TokenSize]byte
	if _, err := io.ReadFull(rand.Reader, raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// WellFormedToken reports whether value could have been produced by
// NewToken. It lets callers reject garbage without a storage round trip.
func WellFormedToken(value string) bool {
	if len(value) != base64.RawURLEncoding.EncodedLen(TokenSize) {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	return err == nil && len(raw) == TokenSize
}
