package tool

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateSessionToken returns a fresh opaque token. Tokens are only ever
// compared for equality.
func GenerateSessionToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return GenerateRandomUUID() // fallback
	}
	return hex.EncodeToString(b)
}
