// Package alias validates caller-chosen short codes.
package alias

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/vadimbarashkov/link-shortener/pkg/base62"
)

const (
	MinLength = 3
	MaxLength = 20
)

// Reasons reported by Error.
const (
	ReasonTooShort         = "too short"
	ReasonTooLong          = "too long"
	ReasonInvalidCharacter = "invalid character"
)

// ErrInvalidAlias matches every *Error via errors.Is.
var ErrInvalidAlias = errors.New("invalid alias")

// Error describes why an alias was rejected.
type Error struct {
	Alias  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid alias %q: %s", e.Alias, e.Reason)
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalidAlias
}

// Message returns a user-facing description of the violated rule.
func (e *Error) Message() string {
	switch e.Reason {
	case ReasonTooShort:
		return fmt.Sprintf("alias must be at least %d characters long", MinLength)
	case ReasonTooLong:
		return fmt.Sprintf("alias must be at most %d characters long", MaxLength)
	default:
		return "alias can only contain alphanumeric characters (0-9, a-z, A-Z)"
	}
}

// Validate checks the length and charset rules. It does not check uniqueness.
func Validate(alias string) error {
	n := utf8.RuneCountInString(alias)

	switch {
	case n < MinLength:
		return &Error{Alias: alias, Reason: ReasonTooShort}
	case n > MaxLength:
		return &Error{Alias: alias, Reason: ReasonTooLong}
	}

	if !base62.IsValid(alias) {
		return &Error{Alias: alias, Reason: ReasonInvalidCharacter}
	}

	return nil
}
