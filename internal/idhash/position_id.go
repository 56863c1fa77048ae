package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position identifier.
// Formula: SHA256(ticker|created_at_ms), truncated to 32 hex characters.
// Re-screening the same ticker at a different instant yields a new ID;
// retrying the same creation yields the same ID.
func ComputePositionID(ticker string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%d", ticker, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
