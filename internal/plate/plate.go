// Package plate normalizes license plates into the identifier form used by
// the vehicle registry and the stolen-vehicle register.
package plate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxLength is the longest identifier accepted after normalization.
const MaxLength = 12

// ErrInvalid is returned when a license plate cannot be turned into an identifier.
var ErrInvalid = errors.New("invalid license plate")

// Identifier is a normalized license plate. The zero value is not valid.
type Identifier string

// String returns the identifier as a plain string.
func (i Identifier) String() string {
	return string(i)
}

// Normalize uppercases raw and strips separators and surrounding whitespace.
// Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if isSeparator(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Parse normalizes raw and validates the result.
func Parse(raw string) (Identifier, error) {
	n := Normalize(raw)
	if n == "" {
		return "", fmt.Errorf("%w: %q is empty after normalization", ErrInvalid, raw)
	}
	if len(n) > MaxLength {
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrInvalid, raw, MaxLength)
	}
	for _, r := range n {
		if !isASCIIAlnum(r) {
			return "", fmt.Errorf("%w: %q contains unsupported character %q", ErrInvalid, raw, r)
		}
	}
	return Identifier(n), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) Identifier {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '.', '_':
		return true
	}
	return unicode.IsSpace(r)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
