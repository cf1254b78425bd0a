package goJWT

import (
	"fmt"
	"math"
	"time"

	"github.com/MrEthical07/goJWT/timespan"
)

type spanKind uint8

const (
	spanUnset spanKind = iota
	spanRelative
	spanText
	spanAbsolute
)

// TimeSpan is the value of ExpiresIn and NotBefore: a span relative to the
// signing time or an absolute instant. The zero value means unset.
type TimeSpan struct {
	kind spanKind
	rel  time.Duration
	text string
	abs  int64
}

// In is a span relative to the signing time.
func In(d time.Duration) TimeSpan {
	return TimeSpan{kind: spanRelative, rel: d}
}

// Span is a human span such as "2 days", "10h" or "60" (seconds), parsed
// when the token is signed.
func Span(s string) TimeSpan {
	return TimeSpan{kind: spanText, text: s}
}

// At is an absolute instant, truncated to whole seconds.
func At(t time.Time) TimeSpan {
	return TimeSpan{kind: spanAbsolute, abs: t.Unix()}
}

// AtUnix is an absolute instant in epoch seconds, written unchanged.
func AtUnix(secs int64) TimeSpan {
	return TimeSpan{kind: spanAbsolute, abs: secs}
}

// IsZero reports whether the span is unset.
func (s TimeSpan) IsZero() bool {
	return s.kind == spanUnset
}

// Resolve returns epoch seconds for the span against now.
func (s TimeSpan) Resolve(now time.Time) (int64, error) {
	switch s.kind {
	case spanRelative:
		return addSeconds(now.Unix(), int64(s.rel/time.Second), s)
	case spanText:
		secs, err := timespan.Parse(s.text)
		if err != nil {
			return 0, err
		}
		return addSeconds(now.Unix(), secs, s)
	case spanAbsolute:
		return s.abs, nil
	default:
		return 0, fmt.Errorf("%w: unset", ErrInvalidTimeSpan)
	}
}

func addSeconds(base, secs int64, s TimeSpan) (int64, error) {
	if (secs > 0 && base > math.MaxInt64-secs) || (secs < 0 && base < math.MinInt64-secs) {
		return 0, fmt.Errorf("%w: %q overflows the signing time", ErrInvalidTimeSpan, s.String())
	}
	return base + secs, nil
}

func (s TimeSpan) String() string {
	switch s.kind {
	case spanRelative:
		return s.rel.String()
	case spanText:
		return s.text
	case spanAbsolute:
		return time.Unix(s.abs, 0).UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// UnmarshalText reads a human span, so TimeSpan can be loaded from
// environment variables and flags. Empty text leaves the span unset.
func (s *TimeSpan) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = TimeSpan{}
		return nil
	}
	if _, err := timespan.Parse(string(text)); err != nil {
		return err
	}
	*s = Span(string(text))
	return nil
}
