package timespan

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeSpan is returned for input that is not a recognised span.
var ErrInvalidTimeSpan = errors.New("invalid time span")

const maxSpanLength = 100

var spanPattern = regexp.MustCompile(`(?i)^(-?(?:\d+)?\.?\d+) *([a-z]+)?$`)

const (
	second = 1.0
	minute = 60 * second
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
	year   = 365.25 * day
)

var unitSeconds = map[string]float64{
	"years": year, "year": year, "yrs": year, "yr": year, "y": year,
	"weeks": week, "week": week, "w": week,
	"days": day, "day": day, "d": day,
	"hours": hour, "hour": hour, "hrs": hour, "hr": hour, "h": hour,
	"minutes": minute, "minute": minute, "mins": minute, "min": minute, "m": minute,
	"seconds": second, "second": second, "secs": second, "sec": second, "s": second,
	"milliseconds": 0.001, "millisecond": 0.001, "msecs": 0.001, "msec": 0.001, "ms": 0.001,
}

// Parse converts a span such as "60", "10h", "1.5h", "2 days" or "1h30m"
// into whole seconds. A bare number is read as seconds. Fractional results
// are floored.
func Parse(span string) (int64, error) {
	d, err := parseSeconds(span)
	if err != nil {
		return 0, err
	}
	return int64(math.Floor(d)), nil
}

// ParseDuration is Parse with the result expressed as a time.Duration.
func ParseDuration(span string) (time.Duration, error) {
	d, err := parseSeconds(span)
	if err != nil {
		return 0, err
	}
	ns := math.Round(d * float64(time.Second))
	if ns >= math.MaxInt64 || ns < math.MinInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidTimeSpan, span)
	}
	return time.Duration(ns), nil
}

func parseSeconds(span string) (float64, error) {
	s := strings.TrimSpace(span)
	if s == "" || len(s) > maxSpanLength {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSpan, span)
	}

	if m := spanPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSpan, span)
		}
		unit := second
		if m[2] != "" {
			u, ok := unitSeconds[strings.ToLower(m[2])]
			if !ok {
				return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidTimeSpan, m[2])
			}
			unit = u
		}
		return checked(n*unit, span)
	}

	// compound forms such as "1h30m" or "-90s500ms"
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSpan, span)
	}
	return d.Seconds(), nil
}

// checked rejects values outside int64. float64(math.MaxInt64) rounds up to
// 2^63, so the upper bound is exclusive.
func checked(v float64, span string) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidTimeSpan, span)
	}
	return v, nil
}
