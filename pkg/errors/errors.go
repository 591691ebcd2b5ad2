// Package errors defines the sentinel errors shared across the mapsync
// engine and small helpers for wrapping them with context.
package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrInvalidSourceURL  = fmt.Errorf("invalid source URL")

	// Enumeration errors.
	ErrSourceUnreachable = fmt.Errorf("source unreachable")
	ErrNotAListing       = fmt.Errorf("response is not a directory listing")
	ErrProbeFailed       = fmt.Errorf("size probe failed")
	ErrNoUsableSources   = fmt.Errorf("no usable sources")

	// Download errors.
	ErrInvalidPath    = fmt.Errorf("invalid path")
	ErrDownloadFailed = fmt.Errorf("download failed")
	ErrSizeMismatch   = fmt.Errorf("transferred size does not match declared size")
	ErrStalled        = fmt.Errorf("transfer stalled")

	// Decompression errors.
	ErrExtractFailed = fmt.Errorf("decompression failed")
	ErrNotCompressed = fmt.Errorf("file does not carry the compression suffix")

	// Gating errors.
	ErrInsufficientSpace = fmt.Errorf("insufficient disk space")
	ErrGateDeclined      = fmt.Errorf("confirmation declined")

	// Hook errors.
	ErrHookPhaseEmpty = fmt.Errorf("hook phase cannot be empty")
	ErrHookExecution  = fmt.Errorf("error executing hook")
	ErrHookScript     = fmt.Errorf("hook script error")
	ErrHookLoad       = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
