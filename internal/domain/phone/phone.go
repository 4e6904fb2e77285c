// Package phone implements the canonical account key: a Russian-style
// phone number normalized to 7XXXXXXXXXX.
package phone

import (
	"regexp"
	"strings"

	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

const (
	minDigits        = 10
	normalizedLength = 11
)

var (
	ErrEmptyPhone  = pkgerrors.NewValidationError("phone number can't be empty")
	ErrTooShort    = pkgerrors.NewValidationError("phone number is too short")
	ErrWrongFormat = pkgerrors.NewValidationError("wrong phone number format")
)

var (
	nonDigits       = regexp.MustCompile(`\D`)
	normalizedRegex = regexp.MustCompile(`^7\d{10}$`)
)

// Number is an immutable normalized phone number. The zero value is unset.
type Number struct {
	value string
}

// New validates raw and returns its normalized form
func New(raw string) (Number, error) {
	if err := Validate(raw); err != nil {
		return Number{}, err
	}
	return Number{value: Normalize(raw)}, nil
}

// MustNew is New for compile-time constants and tests
func MustNew(raw string) Number {
	n, err := New(raw)
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize strips every non-digit and rewrites the national prefix.
// Input that cannot be normalized is returned as its bare digits.
func Normalize(raw string) string {
	cleaned := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case len(cleaned) == normalizedLength && cleaned[0] == '8':
		return "7" + cleaned[1:]
	case len(cleaned) == normalizedLength && cleaned[0] == '7':
		return cleaned
	case len(cleaned) == minDigits:
		return "7" + cleaned
	}
	return cleaned
}

// Validate reports why raw is not an acceptable phone number
func Validate(raw string) error {
	cleaned := Normalize(raw)

	if strings.TrimSpace(raw) == "" || cleaned == "" {
		return ErrEmptyPhone
	}
	if len(cleaned) < minDigits {
		return ErrTooShort
	}
	if !normalizedRegex.MatchString(cleaned) {
		return ErrWrongFormat
	}
	return nil
}

// String returns the normalized digits, or "" when unset
func (n Number) String() string {
	return n.value
}

// IsZero reports whether the number is unset
func (n Number) IsZero() bool {
	return n.value == ""
}

// MarshalText encodes the normalized digits
func (n Number) MarshalText() ([]byte, error) {
	return []byte(n.value), nil
}

// UnmarshalText validates and normalizes text. Empty text yields the
// unset number.
func (n *Number) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*n = Number{}
		return nil
	}
	parsed, err := New(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
