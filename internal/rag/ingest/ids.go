package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocumentID is the filesystem-safe key of a document: hex of the first 16 bytes of SHA-256(filename).
func DocumentID(filename string) string {
	sum := sha256.Sum256([]byte(filename))
	return hex.EncodeToString(sum[:16])
}
