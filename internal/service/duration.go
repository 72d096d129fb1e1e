package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var durationToken = regexp.MustCompile(`(\d+)([smhd])`)

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDuration sums every <integer><unit> token in expr. Units are s, m, h
// and d. An expression without valid tokens yields zero. Sums that overflow
// saturate at the largest representable duration.
func ParseDuration(expr string) time.Duration {
	var total time.Duration
	for _, m := range durationToken.FindAllStringSubmatch(expr, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		unit := durationUnits[m[2]]
		if err != nil || n > int64(math.MaxInt64/unit) {
			return time.Duration(math.MaxInt64)
		}
		step := time.Duration(n) * unit
		if total > time.Duration(math.MaxInt64)-step {
			return time.Duration(math.MaxInt64)
		}
		total += step
	}
	return total
}

// FormatDuration renders d in its largest whole unit.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "Permanent"
	}
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%d day(s)", days)
	case hours > 0:
		return fmt.Sprintf("%d hour(s)", hours)
	case minutes > 0:
		return fmt.Sprintf("%d minute(s)", minutes)
	default:
		return fmt.Sprintf("%d second(s)", seconds)
	}
}
