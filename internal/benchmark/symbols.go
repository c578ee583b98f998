package benchmark

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSymbol is returned for aliases or tickers that cannot be resolved.
var ErrInvalidSymbol = errors.New("invalid benchmark symbol")

// MaxTickerLength is the longest accepted ticker.
const MaxTickerLength = 10

// DefaultSymbol is used when no benchmark is requested.
const DefaultSymbol = "^GSPC"

// IndexAliases maps friendly index names to exchange tickers.
var IndexAliases = map[string]string{
	"SP500":    "^GSPC",
	"NASDAQ":   "^IXIC",
	"DOW":      "^DJI",
	"FTSE":     "^FTSE",
	"DAX":      "^GDAXI",
	"NIKKEI":   "^N225",
	"HANGSENG": "^HSI",
	"CAC40":    "^FCHI",
	"SENSEX":   "^BSESN",
	"ASX200":   "^AXJO",
}

// ResolveSymbol maps an index alias or raw ticker to a canonical ticker.
// Empty input resolves to DefaultSymbol.
func ResolveSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultSymbol, nil
	}
	if ticker, ok := IndexAliases[s]; ok {
		return ticker, nil
	}
	if !ValidateTicker(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return s, nil
}

// ValidateTicker reports whether s is a plausible ticker:
// 1 to MaxTickerLength characters from A-Z, 0-9, '-', '.', '_' and '^'.
func ValidateTicker(s string) bool {
	if s == "" || len(s) > MaxTickerLength {
		return false
	}
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.' || r == '_' || r == '^':
		default:
			return false
		}
	}
	return true
}

// Aliases returns the known index aliases sorted by name.
func Aliases() []string {
	out := make([]string, 0, len(IndexAliases))
	for k := range IndexAliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
