package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateTitle(t *testing.T) {
	short := "fix the login bug"
	if got := truncateTitle(short, 60); got != short {
		t.Errorf("short request should pass through, got %q", got)
	}

	long := strings.Repeat("résumé ", 20)
	got := truncateTitle(long, 60)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a multi-byte character: %q", got)
	}
	if utf8.RuneCountInString(got) != 60 {
		t.Errorf("expected 60 runes, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasPrefix(long, got) {
		t.Errorf("truncated title should be a prefix of the request")
	}
}
