package http

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSlug(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"simple word", "welcome_back", true},
		{"with hyphen and digits", "follow-up-2", true},
		{"empty", "", false},
		{"spaces", "welcome back", false},
		{"sql-ish", "x'; DROP TABLE clients;--", false},
		{"path traversal", "../etc/passwd", false},
		{"too long", strings.Repeat("a", MaxSlugLength+1), false},
		{"at the limit", strings.Repeat("a", MaxSlugLength), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidSlug(tc.in))
		})
	}
}

func TestValidSettingKey(t *testing.T) {
	assert.True(t, ValidSettingKey("firm.fallback_reply"))
	assert.True(t, ValidSettingKey("checkin_enabled"))
	assert.False(t, ValidSettingKey(""))
	assert.False(t, ValidSettingKey("firm fallback"))
	assert.False(t, ValidSettingKey("firm/fallback"))
	assert.False(t, ValidSettingKey(strings.Repeat("k", MaxSettingKeyLength+1)))
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"+15550100101", true},
		{"15550100101", true},
		{"+4915123456789", true},
		{"1234567", true},
		{"123456", false},
		{"+1234567890123456", false},
		{"555-010-0101", false},
		{"", false},
		{"+1555abc0101", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidPhone(tc.in), "phone %q", tc.in)
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2025-04-16")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseDate("16/04/2025")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("hel\x00lo"))
	assert.Equal(t, "café", SanitizeString("café"), "valid multibyte text survives")

	mangled := SanitizeString("ok\xff\xfe")
	assert.Equal(t, "ok", mangled, "invalid bytes are stripped")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10))
	assert.Equal(t, "abc", TruncateString("abcdef", 3))
	assert.Equal(t, "", TruncateString("", 3))
}

func TestValidateLength(t *testing.T) {
	assert.True(t, ValidateLength("abc", 1, 5))
	assert.True(t, ValidateLength("abc", 3, 3))
	assert.False(t, ValidateLength("", 1, 5))
	assert.False(t, ValidateLength("abcdef", 1, 5))
}
