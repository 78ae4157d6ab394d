package printing

import "errors"

var (
	// ErrPageRange is returned when drawing a page that does not exist.
	ErrPageRange = errors.New("page out of range")

	// ErrPreviewClosed is returned when rendering from a closed preview.
	ErrPreviewClosed = errors.New("preview closed")

	// ErrUnsupportedPrinter is returned for printers other than "file".
	ErrUnsupportedPrinter = errors.New("unsupported printer")
)
