package gateway

import (
	"errors"
	"testing"
)

func TestSanitizeIdentifier_AcceptsWordCharacters(t *testing.T) {
	for _, name := range []string{"hr_attendance", "qNo", "CreateDate", "a", "table_2", "_private"} {
		got, err := SanitizeIdentifier(name)
		if err != nil {
			t.Fatalf("SanitizeIdentifier(%q) error: %v", name, err)
		}
		if got != name {
			t.Fatalf("SanitizeIdentifier(%q) = %q; expected input unchanged", name, got)
		}
	}
}

func TestSanitizeIdentifier_RejectsEverythingElse(t *testing.T) {
	cases := []string{
		"",
		"users; DROP TABLE users",
		"users--",
		"name`",
		"first name",
		"qNo=1 OR 1=1",
		"café",
		"a.b",
		"a-b",
	}
	for _, name := range cases {
		_, err := SanitizeIdentifier(name)
		if err == nil {
			t.Fatalf("SanitizeIdentifier(%q) expected error, got nil", name)
		}
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Fatalf("SanitizeIdentifier(%q) error = %v; expected ErrInvalidIdentifier", name, err)
		}
	}
}
