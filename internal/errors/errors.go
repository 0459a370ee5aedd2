// Package errors provides standardized error handling for sortmedia.
// It defines the error kinds a sort run can end with, typed errors that carry
// the relevant detail, and helper predicates for consistent handling across
// the front-ends.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// Common error constants for frequently occurring errors
var (
	ErrRunInProgress = New("a sort run is already in progress")
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Run validation
	ValidationFailed
	// Worker launch kinds
	WorkerNotFound
	WorkerStartFailed
	WorkerStartTimeout
	// Handshake kinds
	HandshakeWriteFailed
	OutputReadFailed
)

// String returns a short name for the kind, used in log fields.
func (k ErrorKind) String() string {
	switch k {
	case InvalidConfig:
		return "invalid_config"
	case ConfigNotFound:
		return "config_not_found"
	case ValidationFailed:
		return "validation_failed"
	case WorkerNotFound:
		return "worker_not_found"
	case WorkerStartFailed:
		return "worker_start_failed"
	case WorkerStartTimeout:
		return "worker_start_timeout"
	case HandshakeWriteFailed:
		return "handshake_write_failed"
	case OutputReadFailed:
		return "output_read_failed"
	default:
		return "unknown"
	}
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// ValidationError is returned when a run is requested without all of its
// directories selected. No worker is started for it.
type ValidationError struct {
	ApplicationError
	fields []string
}

// NewValidationError creates a validation error for the given missing fields
func NewValidationError(msg string, fields ...string) *ValidationError {
	return &ValidationError{
		ApplicationError: ApplicationError{
			msg:  msg,
			kind: ValidationFailed,
		},
		fields: fields,
	}
}

// Error returns the validation error message
func (e *ValidationError) Error() string {
	if len(e.fields) > 0 {
		return fmt.Sprintf("%s: %s", e.msg, strings.Join(e.fields, ", "))
	}
	return e.msg
}

// Fields returns the names of the fields that failed validation
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// LaunchError represents a worker that could not be started
type LaunchError struct {
	ApplicationError
	executable string
}

// NewLaunchError creates a new launch error
func NewLaunchError(msg string, executable string, kind ErrorKind, err error) *LaunchError {
	return &LaunchError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		executable: executable,
	}
}

// Error returns the launch error message
func (e *LaunchError) Error() string {
	if e.executable != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.executable, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.executable)
	}
	return e.ApplicationError.Error()
}

// Executable returns the worker executable the launch was attempted with
func (e *LaunchError) Executable() string {
	return e.executable
}

// HandshakeError represents a failure in the stdin/stdout exchange with the worker
type HandshakeError struct {
	ApplicationError
	acks int
}

// NewHandshakeError creates a new handshake error. acks is the number of
// acknowledgements that were written before the failure.
func NewHandshakeError(msg string, acks int, kind ErrorKind, err error) *HandshakeError {
	return &HandshakeError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		acks: acks,
	}
}

// Acks returns the number of acknowledgements delivered before the failure
func (e *HandshakeError) Acks() int {
	return e.acks
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the kind of the first application error in err's chain
func KindOf(err error) ErrorKind {
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return Unknown
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

// IsConfigNotFound checks if the error reports a missing config file
func IsConfigNotFound(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == ConfigNotFound
	}
	return false
}

// IsValidation checks if the error is a run validation error
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsLaunch checks if the error is a worker launch error
func IsLaunch(err error) bool {
	var launchErr *LaunchError
	return errors.As(err, &launchErr)
}

// IsWorkerNotFound checks if the error is a launch error caused by a missing executable
func IsWorkerNotFound(err error) bool {
	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return launchErr.Kind() == WorkerNotFound
	}
	return false
}

// IsHandshake checks if the error is a handshake error
func IsHandshake(err error) bool {
	var handshakeErr *HandshakeError
	return errors.As(err, &handshakeErr)
}
