package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ImageIdentityKey hashes the identity because client URIs can be long.
func ImageIdentityKey(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return fmt.Sprintf("analysis:identity:%s", hex.EncodeToString(sum[:]))
}

// NameKey is case-insensitive, matching the database name lookup.
func NameKey(name string) string {
	return fmt.Sprintf("analysis:name:%s", strings.ToLower(strings.TrimSpace(name)))
}

func TaskStatusKey(taskID string) string {
	return fmt.Sprintf("music:task:%s", taskID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
