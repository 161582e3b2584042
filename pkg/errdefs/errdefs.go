// Package errdefs defines the error types shared across pagewatch packages.
//
// A ConfigError is fatal: it aborts a run before any page is fetched and the
// snapshot is left untouched. Per-target failures are defined by the packages
// that produce them (see fetcher.FetchError and redact.RuleError).
package errdefs

import (
	"errors"
	"fmt"
)

// ErrConfig matches any *ConfigError via errors.Is.
var ErrConfig = errors.New("configuration error")

// ConfigError reports an unreadable or malformed run resource such as the
// watch-list, the snapshot, or the resolved command configuration.
type ConfigError struct {
	Resource string // "watch-list", "snapshot", "config"
	Path     string
	Err      error
}

// NewConfigError wraps err as a ConfigError for the given resource.
func NewConfigError(resource, path string, err error) *ConfigError {
	return &ConfigError{Resource: resource, Path: path, Err: err}
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Resource, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// IsConfig reports whether err is, or wraps, a ConfigError.
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}
