package vfs

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedScheme is returned for locations quire cannot open.
var ErrUnsupportedScheme = errors.New("unsupported location scheme")

// URIFromPath converts a file system path into a file:// URI.
func URIFromPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// PathFromURI returns the local path of a file:// URI. Bare paths are
// accepted as-is.
func PathFromURI(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return filepath.Clean(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse location %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

// IsLocal reports whether uri refers to the local file system.
func IsLocal(uri string) bool {
	if uri == "" {
		return false
	}
	if !strings.Contains(uri, "://") {
		return true
	}
	return strings.HasPrefix(uri, "file://")
}

// ShortName returns the display basename of a location.
func ShortName(uri string) string {
	p, err := PathFromURI(uri)
	if err != nil {
		if u, perr := url.Parse(uri); perr == nil {
			return filepath.Base(u.Path)
		}
		return uri
	}
	return filepath.Base(p)
}

// TruncateMiddle shortens s to at most max runes by replacing its middle with
// an ellipsis.
func TruncateMiddle(s string, max int) string {
	const ellipsis = "…"
	n := utf8.RuneCountInString(s)
	if n <= max || max < 2 {
		return s
	}
	runes := []rune(s)
	keep := max - 1
	head := keep / 2
	tail := keep - head
	return string(runes[:head]) + ellipsis + string(runes[n-tail:])
}
