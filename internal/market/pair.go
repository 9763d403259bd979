package market

import "strings"

// SplitPair splits a pair id such as "BTC/USD" into its base and quote
// symbols. ok is false for anything that is not exactly two non-empty
// symbols joined by a slash.
func SplitPair(pair string) (base, quote string, ok bool) {
	base, quote, found := strings.Cut(pair, "/")
	if !found || base == "" || quote == "" {
		return "", "", false
	}
	return base, quote, true
}
