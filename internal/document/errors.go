package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/samber/oops"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/vfs"
)

// Code classifies a document I/O failure. The tab uses it to pick a recovery
// path, so every error produced by a Loader or Saver carries one.
type Code string

// Document error codes.
const (
	CodeNotFound           Code = "document.not_found"
	CodeNotSupported       Code = "document.not_supported"
	CodeNotRegularFile     Code = "document.not_regular_file"
	CodePermissionDenied   Code = "document.permission_denied"
	CodeTooBig             Code = "document.too_big"
	CodeCancelled          Code = "document.cancelled"
	CodeExternallyModified Code = "document.externally_modified"
	CodeCantCreateBackup   Code = "document.cant_create_backup"
	CodeConversion         Code = "document.conversion"
	CodeConversionFallback Code = "document.conversion_fallback"
	CodeInvalidData        Code = "document.invalid_data"
	CodePartialInput       Code = "document.partial_input"
	CodeIO                 Code = "document.io"
)

func newError(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func wrapError(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf returns the document error code carried by err, or "" if none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsCancelled reports whether err represents a user cancellation.
func IsCancelled(err error) bool {
	return HasCode(err, CodeCancelled) || errors.Is(err, context.Canceled)
}

// IsConversionError reports whether err is a charset conversion failure,
// i.e. one the user can fix by choosing another encoding.
func IsConversionError(err error) bool {
	switch CodeOf(err) {
	case CodeConversion, CodeInvalidData, CodePartialInput:
		return true
	}
	return errors.Is(err, encoding.ErrInvalidSequence) || errors.Is(err, encoding.ErrUnrepresentable)
}

// classify maps a file system error to an error code.
func classify(err error) Code {
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, fs.ErrNotExist):
		return CodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return CodePermissionDenied
	case errors.Is(err, vfs.ErrUnsupportedScheme):
		return CodeNotSupported
	default:
		return CodeIO
	}
}

func ioError(err error, op, uri string) error {
	return wrapError(err, classify(err), "%s %s", op, uri)
}
