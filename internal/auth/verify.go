package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
)

// Verifier checks moderator keys against configured bcrypt hashes
type Verifier struct {
	hashes map[string][]byte
}

// NewVerifier parses "{id}:{bcrypt hash}" entries
func NewVerifier(entries []string) (*Verifier, error) {
	v := &Verifier{hashes: make(map[string][]byte, len(entries))}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		id, hash, ok := strings.Cut(e, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("moderator key entry %q: expected id:hash", e)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("moderator key %s: %w", id, err)
		}
		v.hashes[id] = []byte(hash)
	}
	return v, nil
}

// Enabled reports whether any moderator key is configured
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.hashes) > 0
}

// Verify returns the principal for a raw moderator key
func (v *Verifier) Verify(raw string) (*Principal, error) {
	if !v.Enabled() {
		return nil, fmt.Errorf("moderation disabled: %w", apperrors.ErrUnauthorized)
	}
	env, id, secret, ok := ParseModeratorKey(strings.TrimSpace(raw))
	if !ok {
		return nil, fmt.Errorf("malformed key: %w", apperrors.ErrUnauthorized)
	}
	hash, known := v.hashes[id]
	if !known {
		return nil, fmt.Errorf("unknown key: %w", apperrors.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		return nil, fmt.Errorf("key mismatch: %w", apperrors.ErrUnauthorized)
	}
	return &Principal{ModeratorID: id, Env: env}, nil
}
