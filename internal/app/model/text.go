package model

import (
	"strings"
	"unicode/utf8"
)

// Clip replaces invalid UTF-8 in s and cuts it to at most n bytes without splitting a rune.
func Clip(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
