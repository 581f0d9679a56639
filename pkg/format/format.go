// Package format renders counts, timestamps and titles the way the post list
// and detail views show them.
package format

import (
	"strconv"
	"time"
	"unicode/utf8"
	"unicode/utf16"
)

// TitleLimit is the longest title shown in the post list, in UTF-16 units.
const TitleLimit = 26

// Count abbreviates n: 1000 and above become whole thousands with a "k"
// suffix (1234 -> "1k", 10500 -> "10k").
func Count(n int64) string {
	if n >= 1000 {
		return strconv.FormatInt(n/1000, 10) + "k"
	}
	return strconv.FormatInt(n, 10)
}

// Date renders t in the local zone as "YYYY. MM. DD. HH:mm:ss", 24-hour.
// The zero time renders as "".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006. 01. 02. 15:04:05")
}

// DateString parses an RFC 3339 timestamp and renders it with Date.
// Empty or unparsable input renders as "".
func DateString(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return ""
	}
	return Date(t)
}

// Title cuts s to TitleLimit UTF-16 units without splitting a character.
func Title(s string) string {
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > TitleLimit {
			return s[:i]
		}
		units += n
	}
	return s
}

// Initial is the first character of name, used as an avatar placeholder.
func Initial(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || r == utf8.RuneError {
		return "?"
	}
	return string(r)
}
