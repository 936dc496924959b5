package interactions

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// CustomIDDelimiter separates the primary id from positional arguments.
	CustomIDDelimiter = "\n"

	// MaxCustomIDLength is the platform limit for component custom ids.
	MaxCustomIDLength = 100
)

var ErrInvalidCustomID = errors.New("invalid custom id")

// EncodeCustomID joins a primary id and its arguments into a component
// custom id. Arguments are formatted with fmt.Sprint and must not contain the
// delimiter.
func EncodeCustomID(primary string, args ...any) (string, error) {
	if primary == "" {
		return "", fmt.Errorf("%w: empty primary id", ErrInvalidCustomID)
	}
	if strings.Contains(primary, CustomIDDelimiter) {
		return "", fmt.Errorf("%w: primary id %q contains the delimiter", ErrInvalidCustomID, primary)
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, primary)
	for i, arg := range args {
		s := fmt.Sprint(arg)
		if strings.Contains(s, CustomIDDelimiter) {
			return "", fmt.Errorf("%w: argument %d contains the delimiter", ErrInvalidCustomID, i)
		}
		parts = append(parts, s)
	}

	id := strings.Join(parts, CustomIDDelimiter)
	if utf8.RuneCountInString(id) > MaxCustomIDLength {
		return "", fmt.Errorf("%w: %d characters exceeds %d", ErrInvalidCustomID, utf8.RuneCountInString(id), MaxCustomIDLength)
	}
	return id, nil
}

// DecodeCustomID splits a custom id into its primary id and arguments.
func DecodeCustomID(id string) (primary string, args []string) {
	parts := strings.Split(id, CustomIDDelimiter)
	return parts[0], parts[1:]
}
