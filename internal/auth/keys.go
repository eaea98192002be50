package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "pl"

// Key format: pl_{env}_{id}_{secret}
// - id: 12 hex chars
// - secret: 32 hex chars
//
// Only the bcrypt hash of the secret is stored, as "{id}:{hash}" in
// MODERATOR_KEY_HASHES.
func GenerateModeratorKey(env string) (id string, rawKey string, entry string, err error) {
	if env == "" || strings.Contains(env, "_") {
		return "", "", "", fmt.Errorf("invalid key environment %q", env)
	}
	id, secret := randomToken(12), randomToken(32)
	if id == "" || secret == "" {
		return "", "", "", fmt.Errorf("failed to generate token")
	}
	rawKey = fmt.Sprintf("%s_%s_%s_%s", keyPrefix, env, id, secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", err
	}
	return id, rawKey, id + ":" + string(hash), nil
}

// ParseModeratorKey splits into env, id, secret
func ParseModeratorKey(raw string) (env string, id string, secret string, ok bool) {
	parts := strings.Split(raw, "_")
	if len(parts) != 4 || parts[0] != keyPrefix {
		return "", "", "", false
	}
	if parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}

func randomToken(n int) string {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)[:n]
}
