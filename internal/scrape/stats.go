package scrape

import (
	"math"
	"strconv"
	"strings"
)

// ParseStat normalizes the platform's abbreviated counter notation into a
// non-negative integer: "12.3K" -> 12300, "1.5M" -> 1500000, "842" -> 842.
// Fractions are truncated; anything unparsable collapses to 0.
func ParseStat(text string) int {
	t := strings.ToUpper(strings.TrimSpace(text))
	if t == "" {
		return 0
	}

	mult := 0.0
	switch {
	case strings.HasSuffix(t, "K"):
		mult = 1_000
	case strings.HasSuffix(t, "M"):
		mult = 1_000_000
	default:
		return parseLeadingInt(t)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(t[:len(t)-1]), 64)
	if err != nil {
		return 0
	}
	return int(math.Floor(f * mult))
}

// parseLeadingInt reads the leading digit run, mirroring the lenient integer
// parse the counters get in the page ("1,234" -> 1, "abc" -> 0).
func parseLeadingInt(t string) int {
	i := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}
	n, err := strconv.Atoi(t[:i])
	if err != nil {
		return 0
	}
	return n
}
