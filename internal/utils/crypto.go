// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// DemoUserIDPrefix marks accounts created by the demo login.
const DemoUserIDPrefix = "demo_"

// GenerateDemoUserID returns an id in the same shape as provider subjects.
func GenerateDemoUserID() (string, error) {
	randomPart, err := GenerateRandomString(24)
	if err != nil {
		return "", err
	}
	return DemoUserIDPrefix + randomPart, nil
}

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// Fingerprint is a short, non-reversible marker for a secret value, used
// where logs need to correlate a token without storing it.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return "sha256:" + HashString(secret)[:12]
}
