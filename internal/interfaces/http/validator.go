package http

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxSlugLength       = 64
	MaxNameLength       = 256
	MaxMessageLength    = 10000
	MaxSettingKeyLength = 64
	MaxSettingValLength = 50000 // Prompt templates can be long
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// ValidSlug checks if a slug is safe (alphanumeric + underscore + hyphen)
func ValidSlug(s string) bool {
	if s == "" || len(s) > MaxSlugLength {
		return false
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, s)
	return matched
}

// ValidSettingKey checks if a settings key is safe
func ValidSettingKey(s string) bool {
	if s == "" || len(s) > MaxSettingKeyLength {
		return false
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_.]+$`, s)
	return matched
}

// ValidPhone checks an E.164-ish phone number after normalization.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ParseDate parses a YYYY-MM-DD query parameter.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// SanitizeString removes null bytes and control characters
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Keep only valid UTF-8
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// ValidateLength checks if string is within bounds
func ValidateLength(s string, min, max int) bool {
	l := len(s)
	return l >= min && l <= max
}
