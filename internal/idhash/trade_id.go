package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(account|symbol|timeframe|exit_timestamp|entry_price)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	account string,
	symbol string,
	timeframe string,
	exitTimestamp int64,
	entryPrice float64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%s",
		account,
		symbol,
		timeframe,
		exitTimestamp,
		strconv.FormatFloat(entryPrice, 'f', -1, 64),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
