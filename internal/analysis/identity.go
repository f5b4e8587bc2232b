package analysis

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// contentPrefix marks identities derived from uploaded bytes.
const contentPrefix = "sha256:"

// ImageIdentity returns the exact-match key for an image. A client URI is
// used as-is (trimmed); inline data and bare uploads hash their bytes, so a
// re-upload of the same file hits the identity cache.
func ImageIdentity(uri string, data []byte) string {
	uri = strings.TrimSpace(uri)
	if uri != "" && !strings.HasPrefix(uri, "data:") {
		return uri
	}
	return ContentIdentity(data)
}

// ContentIdentity computes a stable SHA-256 identity for image bytes.
func ContentIdentity(data []byte) string {
	return fmt.Sprintf("%s%x", contentPrefix, sha256.Sum256(data))
}

// IsContentIdentity reports whether identity was derived from bytes.
func IsContentIdentity(identity string) bool {
	return strings.HasPrefix(identity, contentPrefix)
}
