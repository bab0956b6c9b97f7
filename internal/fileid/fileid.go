// Package fileid provides a deterministic record ID from a file path for watched images.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "img:"

// ImageID returns a stable catalog record ID for the given absolute path.
// Same path always yields the same ID, so re-indexing replaces the same record.
func ImageID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
