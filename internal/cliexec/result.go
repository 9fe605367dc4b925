package cliexec

import "time"

// Status is the coarse outcome of a command execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorKind discriminates expected failure modes. Expected failures are
// returned structured, never panicked.
type ErrorKind string

const (
	ErrKindNone              ErrorKind = ""
	ErrKindTimeout           ErrorKind = "timeout"
	ErrKindAuthError         ErrorKind = "auth_error"
	ErrKindValidationError   ErrorKind = "validation_error"
	ErrKindExecutionError    ErrorKind = "execution_error"
	ErrKindResourceExhausted ErrorKind = "resource_exhausted"
)

// Result carries everything a caller needs to act on one command run.
// Output is capped at the executor's MaxOutputBytes; Structured is set
// only when the output parsed as JSON.
type Result struct {
	Status     Status        `json:"status"`
	Output     string        `json:"output"`
	Structured any           `json:"structured,omitempty"`
	ExitCode   int           `json:"exit_code"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Truncated  bool          `json:"truncated,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// ValidationFailure builds an error result without touching a child
// process.
func ValidationFailure(msg string) Result {
	return Result{Status: StatusError, ErrorKind: ErrKindValidationError, Output: msg, ExitCode: -1}
}
