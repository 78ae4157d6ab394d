package plugin

import (
	"errors"
	"fmt"
)

// Manifest errors.
var (
	// ErrUnsupportedIAge is returned for a manifest whose IAge is missing or
	// differs from SupportedIAge.
	ErrUnsupportedIAge = errors.New("manifest: unsupported IAge")

	// ErrMissingModule is returned when the Module key is absent or empty.
	ErrMissingModule = errors.New("manifest: Module is required")

	// ErrMissingName is returned when the Name key is absent.
	ErrMissingName = errors.New("manifest: Name is required")

	// ErrMissingSection is returned when the [Plugin] table is absent.
	ErrMissingSection = errors.New("manifest: [Plugin] table is required")
)

// Engine errors.
var (
	// ErrPluginNotFound is returned when no plugin has the requested module name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrUnavailable is returned when activating a plugin that failed to load.
	ErrUnavailable = errors.New("plugin is unavailable")

	// ErrLoaderNotFound is returned when no loader serves a plugin's loader id.
	ErrLoaderNotFound = errors.New("plugin loader not found")

	// ErrNotActive is returned when configuring an inactive plugin.
	ErrNotActive = errors.New("plugin is not active")

	// ErrNotConfigurable is returned by Configure on plugins without options.
	ErrNotConfigurable = errors.New("plugin is not configurable")

	// ErrInvalidRegistration is returned when a loader module exports a
	// registration symbol of the wrong type.
	ErrInvalidRegistration = errors.New("invalid loader registration symbol")
)

// LoadError records why a plugin could not be instantiated.
type LoadError struct {
	Module string
	Loader string
	Err    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load plugin %s (loader %s): %v", e.Module, e.Loader, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
