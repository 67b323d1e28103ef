// Package errors provides structured error types for the Dockhand application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across all provisioning steps
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_FAILED: A provisioning step that ran and did not succeed
//   - *_NOT_FOUND: Resource not found
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidURL, "unrecognized repository URL: %s", raw)
//	if errors.Is(err, errors.ErrCodeInvalidURL) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCloneFailed, origErr, "failed to clone %s", url)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidURL   Code = "INVALID_URL"
	ErrCodeInvalidUser  Code = "INVALID_USER"
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeConfig       Code = "CONFIG_INVALID"

	// Platform preconditions
	ErrCodeUnsupportedPlatform Code = "UNSUPPORTED_PLATFORM"

	// Provisioning step failures
	ErrCodePackageInstall  Code = "PACKAGE_INSTALL_FAILED"
	ErrCodeFirewall        Code = "FIREWALL_FAILED"
	ErrCodeCloneFailed     Code = "CLONE_FAILED"
	ErrCodeKeygenFailed    Code = "KEYGEN_FAILED"
	ErrCodeSSHAuthFailed   Code = "SSH_AUTH_FAILED"
	ErrCodeSSHSetupAborted Code = "SSH_SETUP_ABORTED"
	ErrCodeBranchNotFound  Code = "BRANCH_NOT_FOUND"
	ErrCodeVerifyFailed    Code = "VERIFY_FAILED"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeFileNotFound   Code = "FILE_NOT_FOUND"
	ErrCodeReportNotFound Code = "REPORT_NOT_FOUND"

	// Internal errors
	ErrCodeCommandFailed Code = "COMMAND_FAILED"
	ErrCodeInternal      Code = "INTERNAL_ERROR"
	ErrCodeUnsupported   Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// CommandError provides additional information for failed shell commands.
type CommandError struct {
	Command  string // Command line that failed
	ExitCode int    // Process exit status
	Stderr   string // Captured standard error, possibly empty
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return fmt.Sprintf("command %q exited %d: %s", e.Command, e.ExitCode, s)
	}
	return fmt.Sprintf("command %q exited %d", e.Command, e.ExitCode)
}

// Code returns the error code for this error type.
func (e *CommandError) Code() Code {
	return ErrCodeCommandFailed
}
