package apikey

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateKey creates a new operator API key with the given prefix.
// Format: {prefix}_{24_random_hex_chars}
func GenerateKey(prefix, secret string) (key string, hash string, err error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	fullKey := fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(bytes))
	return fullKey, HashKey(fullKey, secret), nil
}

// HashKey hashes the full API key for storage using HMAC-SHA256.
func HashKey(key, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the presented key matches the stored hash.
func Verify(key, secret, storedHash string) bool {
	return hmac.Equal([]byte(HashKey(key, secret)), []byte(storedHash))
}

// ValidateKeyFormat checks if the key matches the expected format prefix.
func ValidateKeyFormat(key, expectedPrefix string) bool {
	return strings.HasPrefix(key, expectedPrefix)
}
