package utils

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashString returns the hex SHA1 of s. It keeps client identifiers such as
// IP addresses out of Redis keys.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
