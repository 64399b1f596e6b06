// Package sequence formats and parses human-readable order codes of the
// form PREFIX + zero-padded ordinal (HD001, HD002, ...). The durable
// counter that makes the series gapless lives in the store layer; this
// package owns only the code format.
package sequence

import (
	"strconv"
	"strings"
)

// DefaultPrefix and DefaultPadWidth match the series POS terminals
// display (HD001 and up).
const (
	DefaultPrefix   = "HD"
	DefaultPadWidth = 3
)

// Format renders an ordinal as an order code. Ordinals wider than the pad
// width render without truncation, so the series keeps increasing past
// HD999 (HD1000, HD1001, ...).
func Format(prefix string, ordinal int64, padWidth int) string {
	s := strconv.FormatInt(ordinal, 10)
	if pad := padWidth - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return prefix + s
}

// Ordinal extracts the numeric ordinal from an order code. It returns
// false for codes with the wrong prefix or a non-numeric suffix; callers
// computing the series maximum ignore those.
func Ordinal(prefix, code string) (int64, bool) {
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	suffix := code[len(prefix):]
	if suffix == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
