package auth

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidExpiry is returned for lifetime expressions outside the <integer><unit> grammar.
var ErrInvalidExpiry = errors.New("invalid token expiry format")

var expiryPattern = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseExpiry parses lifetimes such as "15m" or "7d". Units: d (days), h, m, s.
func ParseExpiry(expr string) (time.Duration, error) {
	m := expiryPattern.FindStringSubmatch(expr)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, expr)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, expr)
	}

	var unit time.Duration
	switch m[2] {
	case "d":
		unit = 24 * time.Hour
	case "h":
		unit = time.Hour
	case "m":
		unit = time.Minute
	case "s":
		unit = time.Second
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q overflows a duration", ErrInvalidExpiry, expr)
	}
	return time.Duration(n) * unit, nil
}

// ExpiryFrom returns now plus the lifetime described by expr.
func ExpiryFrom(now time.Time, expr string) (time.Time, error) {
	d, err := ParseExpiry(expr)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}
