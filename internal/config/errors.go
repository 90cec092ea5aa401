package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is the sentinel every configuration failure wraps.
var ErrInvalidConfig = errors.New("invalid configuration")

// Error describes a configuration rejection: either missing keys at Path or
// a malformed value explained by Reason. Err, if set, is the underlying
// failure found while running the configuration.
type Error struct {
	Path    string
	Missing []string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing keys [%s]", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidConfig, e.Err}
	}
	return []error{ErrInvalidConfig}
}

// Wrap reports err as a configuration error at path. errors.Is matches both
// ErrInvalidConfig and err.
func Wrap(path string, err error) *Error {
	return &Error{Path: path, Reason: err.Error(), Err: err}
}

func missingKeys(path string, keys []string) *Error {
	return &Error{Path: path, Missing: keys}
}

func invalid(path, format string, args ...any) *Error {
	return &Error{Path: path, Reason: fmt.Sprintf(format, args...)}
}
