package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/wtas/internal/script"
)

// ErrClosed is returned by Submit after the player has been closed.
var ErrClosed = errors.New("player closed")

// PlaybackError represents a run that could not be started.
//
// Playback errors include:
//   - I/O: the script file could not be read
//   - Parse: the script has grammar errors
//   - Validation: bad version or non-increasing ticks
//   - Start: the game refused the script's start action
//
// None of these are fatal; the player stays stopped.
type PlaybackError struct {
	// Code identifies the error category.
	Code PlaybackErrorCode

	// Script is the name the run was started with.
	Script string

	// Message is a human-readable description.
	Message string

	// Errors holds the line-tagged load errors, if any.
	Errors script.ErrorList

	// Err is the underlying cause for start failures.
	Err error
}

// PlaybackErrorCode categorizes playback errors.
type PlaybackErrorCode string

const (
	// ErrCodeIO indicates the script could not be read.
	ErrCodeIO PlaybackErrorCode = "IO_ERROR"

	// ErrCodeParse indicates grammar errors in the script.
	ErrCodeParse PlaybackErrorCode = "PARSE_ERROR"

	// ErrCodeValidation indicates a script that parsed but failed validation.
	ErrCodeValidation PlaybackErrorCode = "VALIDATION_ERROR"

	// ErrCodeStartFailed indicates the game could not apply the start action.
	ErrCodeStartFailed PlaybackErrorCode = "START_FAILED"
)

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("%s: %s (script=%s)", e.Code, e.Message, e.Script)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PlaybackError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if len(e.Errors) > 0 {
		return e.Errors
	}
	return nil
}

// Messages returns what a controller should be shown for this error.
func (e *PlaybackError) Messages() []string {
	if len(e.Errors) > 0 {
		return e.Errors.Strings()
	}
	return []string{e.Message}
}

// IsLoadError reports whether err is a failure to read, parse or validate
// a script. Uses errors.As to handle wrapped errors.
func IsLoadError(err error) bool {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeIO || pe.Code == ErrCodeParse || pe.Code == ErrCodeValidation
	}
	return false
}

// IsStartError reports whether err is a start action failure.
func IsStartError(err error) bool {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeStartFailed
	}
	return false
}

// NewLoadError classifies the errors from a failed script load.
func NewLoadError(name string, errs script.ErrorList) *PlaybackError {
	code := ErrCodeParse
	switch {
	case errs.Has(script.KindIO):
		code = ErrCodeIO
	case errs.Has(script.KindValidation):
		code = ErrCodeValidation
	}
	return &PlaybackError{
		Code:    code,
		Script:  name,
		Message: errs.Error(),
		Errors:  errs,
	}
}

// NewStartError creates a PlaybackError for a failed start action.
func NewStartError(name string, err error) *PlaybackError {
	return &PlaybackError{
		Code:    ErrCodeStartFailed,
		Script:  name,
		Message: err.Error(),
		Err:     err,
	}
}
