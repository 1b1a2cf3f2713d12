package common

import (
	"errors"
	"fmt"
)

var (
	ErrNoFilesProvided  = errors.New("no input files provided")
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrToolUnavailable is soft: the compression engine falls back to a
	// structural resave instead of failing the request.
	ErrToolUnavailable = errors.New("quality reduction tool not available")
)

// RequestError marks user-correctable input problems. The dispatcher maps it
// to a request-level response before any component runs.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return e.Reason
}

// NewRequestError creates a new request error
func NewRequestError(format string, args ...any) *RequestError {
	return &RequestError{Reason: fmt.Sprintf(format, args...)}
}

// DocumentLoadError wraps failures to parse an input document.
type DocumentLoadError struct {
	Err error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("document load failed: %v", e.Err)
}

func (e *DocumentLoadError) Unwrap() error {
	return e.Err
}

// NewDocumentLoadError creates a new document load error
func NewDocumentLoadError(err error) *DocumentLoadError {
	return &DocumentLoadError{Err: err}
}

// CompressionFailure signals that no compression candidate was ever produced.
type CompressionFailure struct {
	Err error
}

func (e *CompressionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compression produced no candidate: %v", e.Err)
	}
	return "compression produced no candidate"
}

func (e *CompressionFailure) Unwrap() error {
	return e.Err
}

// ToolError wraps a failed external tool invocation. Timeout distinguishes a
// deadline hit from a nonzero exit.
type ToolError struct {
	Tool    string
	Timeout bool
	Output  string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s timed out: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// OperationError represents a generic internal failure during an operation.
type OperationError struct {
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error
func NewOperationError(operation string, err error) *OperationError {
	return &OperationError{Operation: operation, Err: err}
}

// IsRequestError reports whether err should surface as a request-level
// response rather than a server failure. Corrupt input counts: the user can
// correct it by uploading a well-formed document.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	var loadErr *DocumentLoadError
	return errors.As(err, &reqErr) || errors.As(err, &loadErr) || errors.Is(err, ErrNoFilesProvided)
}
