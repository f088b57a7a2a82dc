package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the date-only layout used for registration dates.
const DateLayout = "2006-01-02"

var NowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStringPtr is CleanString for optional values. Blank values become nil.
func CleanStringPtr(s *string, lower ...bool) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanString(*s, lower...)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// CopyStringPtr returns a pointer to a copy of *s.
func CopyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Truncate cuts s to max runes and appends marker when it was longer.
func Truncate(s string, max int, marker string) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + marker
}

// Today returns the current UTC date formatted with DateLayout.
func Today() string {
	return NowFunc().UTC().Format(DateLayout)
}
