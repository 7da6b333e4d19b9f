package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random identifier like "rep_3f9c…". The prefix keeps IDs
// self-describing in logs and URLs.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
