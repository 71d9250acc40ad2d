package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 32 hex character identifier, optionally prefixed
// like "doc_<hex>". Prefixes keep IDs recognizable in logs and file paths.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
