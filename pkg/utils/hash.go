package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashString fingerprints content, e.g. a dataset file, for change
// tracking on pipeline run records.
func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)
}
