package settings

import "errors"

var (
	// ErrInvalidValue indicates a setting outside its allowed range.
	ErrInvalidValue = errors.New("invalid setting value")

	// ErrNoFile is returned when watching an in-memory store.
	ErrNoFile = errors.New("settings store has no backing file")
)

// ParseError describes a malformed settings file.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return "parse settings " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
