package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRecordID computes a deterministic record_id using SHA256.
// Formula: SHA256(market|tx_hash|ledger_index)
// Returns hex-encoded hash (64 characters).
//
// The id doubles as the storage dedupe key: the scanner delivers
// at-least-once up to a failure point, and re-runs over an unchanged
// history must map to the same ids.
func ComputeRecordID(market, txHash string, ledgerIndex int64) string {
	data := fmt.Sprintf("%s|%s|%d", market, txHash, ledgerIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
