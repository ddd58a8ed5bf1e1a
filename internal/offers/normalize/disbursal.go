// internal/offers/normalize/disbursal.go
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultDisbursalDays is used whenever the partner's free-text disbursal
// time cannot be parsed.
const defaultDisbursalDays = 2.0

var (
	dayRangePattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*days?`)
	hoursPattern    = regexp.MustCompile(`(\d+)\s*hours?`)
	daysPattern     = regexp.MustCompile(`(\d+)\s*days?`)
)

// ParseDisbursalSpeed converts a partner's human-readable disbursal promise
// into days. The parser never fails; unrecognized input resolves to the
// default of 2 days.
func ParseDisbursalSpeed(s string) float64 {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return defaultDisbursalDays
	}

	if strings.Contains(lower, "same day") {
		return 0.5
	}

	if m := dayRangePattern.FindStringSubmatch(lower); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return float64(lo+hi) / 2
	}

	if m := hoursPattern.FindStringSubmatch(lower); m != nil {
		hours, _ := strconv.Atoi(m[1])
		return float64(hours) / 24
	}

	if m := daysPattern.FindStringSubmatch(lower); m != nil {
		days, _ := strconv.Atoi(m[1])
		return float64(days)
	}

	return defaultDisbursalDays
}
