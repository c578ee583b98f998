package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// sampleIDBytes is the hash prefix length encoded into a sample_id.
const sampleIDBytes = 16

// ComputeSampleID computes a short deterministic sample_id for an ATR sample.
// Formula: base58(SHA256(symbol|timeframe|timestamp_ms)[:16])
func ComputeSampleID(symbol, timeframe string, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", symbol, timeframe, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:sampleIDBytes])
}
