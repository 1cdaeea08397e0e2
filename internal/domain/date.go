package domain

import (
	"strings"
	"time"
)

// ParseDate validates an ISO calendar date (YYYY-MM-DD) and returns it normalized
func ParseDate(s string) (string, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(time.DateOnly), nil
}

// Today returns the current calendar date of now in ISO format
func Today(now time.Time) string {
	return now.UTC().Format(time.DateOnly)
}

// DateOrToday returns the parsed date, or today when s is empty
func DateOrToday(s string, now time.Time) (string, error) {
	if strings.TrimSpace(s) == "" {
		return Today(now), nil
	}
	return ParseDate(s)
}
