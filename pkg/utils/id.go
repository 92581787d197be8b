package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateID returns a random hex string of 2*n characters.
func GenerateID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
