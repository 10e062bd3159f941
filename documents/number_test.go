package documents

import (
	"testing"
	"time"
)

func TestDatePrefix(t *testing.T) {
	d := time.Date(2024, 3, 5, 15, 4, 5, 0, time.UTC)
	if got := DatePrefix("Q", d); got != "Q20240305-" {
		t.Fatalf("DatePrefix(Q) = %q", got)
	}
	if got := DatePrefix("SO", d); got != "SO20240305-" {
		t.Fatalf("DatePrefix(SO) = %q", got)
	}
}

func TestParseDocDate(t *testing.T) {
	got := parseDocDate("2024-03-05")
	if got.Format("20060102") != "20240305" {
		t.Fatalf("parseDocDate(2024-03-05) = %s", got)
	}
	got = parseDocDate("2024-03-05T10:30:00Z")
	if got.Format("20060102") != "20240305" {
		t.Fatalf("parseDocDate(rfc3339) = %s", got)
	}
	// Blank and garbage both fall back to today.
	for _, s := range []string{"", "  ", "not-a-date"} {
		got = parseDocDate(s)
		if got.Format("20060102") != time.Now().Format("20060102") {
			t.Fatalf("parseDocDate(%q) = %s; expected today", s, got)
		}
	}
}
