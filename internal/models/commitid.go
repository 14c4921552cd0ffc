package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// GenerateCommitID generates a content-addressable commit ID.
// The ID includes a hash of the file manifest so that two commits with
// identical metadata but different trees produce different IDs.
func GenerateCommitID(message string, timestamp time.Time, parentID string, files map[string]string) string {
	manifestHash := ComputeManifestHash(files)
	data := fmt.Sprintf("%s|%s|%s|%s", message, timestamp.Format(time.RFC3339Nano), parentID, manifestHash)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeManifestHash computes a deterministic digest over a file manifest.
// Each path/blob pair is hashed individually, the hashes are sorted, and
// then hashed together so that map iteration order cannot leak into the ID.
func ComputeManifestHash(files map[string]string) string {
	if len(files) == 0 {
		return ""
	}

	hashes := make([]string, 0, len(files))
	for path, blobHash := range files {
		h := sha256.Sum256([]byte(path + "|" + blobHash))
		hashes = append(hashes, hex.EncodeToString(h[:]))
	}

	// Sort for deterministic ordering
	sort.Strings(hashes)

	combined := strings.Join(hashes, "")
	final := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(final[:])
}
