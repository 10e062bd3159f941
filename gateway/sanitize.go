package gateway

import (
	"fmt"
	"regexp"
)

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SanitizeIdentifier fails closed on anything outside ASCII letters, digits
// and underscore. It is the sole injection defense for identifiers; values
// are always parameter-bound separately.
func SanitizeIdentifier(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return name, nil
}
