// File: errs.go
// Title: Structured Error Codes
// Description: Error codes, severities and a wrapping error type used to
//              classify the failure outcomes of polling, speech synthesis
//              and settings validation.
// Author: msto63
// Version: v0.1.0
// Created: 2025-12-07
// Modified: 2025-12-07
//
// Change History:
// - 2025-12-07 v0.1.0: Initial implementation

package errs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code represents a structured error code for categorizing errors
type Code string

const (
	CodeUnknown                Code = "UNKNOWN"
	CodeTimeout                Code = "TIMEOUT"
	CodeTransport              Code = "TRANSPORT_ERROR"
	CodeSpeechSynthesisFailure Code = "SPEECH_SYNTHESIS_FAILURE"
	CodeInvalidSettings        Code = "INVALID_SETTINGS"
	CodeStorage                Code = "STORAGE_ERROR"
	CodeCancelled              Code = "CANCELLED"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// Severity represents how badly an error degrades the session
type Severity int

const (
	// SeverityLow is recovered on the next poll tick
	SeverityLow Severity = iota
	// SeverityMedium degrades a feature, e.g. falls back to local speech
	SeverityMedium
	// SeverityHigh prevents the engine from running
	SeverityHigh
)

// String returns the severity name
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// defaultSeverity maps codes to their usual severity
func defaultSeverity(code Code) Severity {
	switch code {
	case CodeTimeout, CodeTransport, CodeCancelled:
		return SeverityLow
	case CodeSpeechSynthesisFailure, CodeInvalidSettings:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Error is a classified error with an optional cause
type Error struct {
	code     Code
	severity Severity
	op       string
	message  string
	cause    error
}

// New creates an error with the given code and message
func New(code Code, message string) *Error {
	return &Error{
		code:     code,
		severity: defaultSeverity(code),
		message:  message,
	}
}

// Newf creates an error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap classifies err under code. A nil err yields nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.cause = err
	return e
}

// WithOp records the operation that failed
func (e *Error) WithOp(op string) *Error {
	e.op = op
	return e
}

// WithSeverity overrides the default severity
func (e *Error) WithSeverity(s Severity) *Error {
	e.severity = s
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.message
	if e.op != "" {
		msg = e.op + ": " + msg
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error by code
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.code == e.code
	}
	return false
}

// Code returns the error code
func (e *Error) Code() Code {
	return e.code
}

// Severity returns the error severity
func (e *Error) Severity() Severity {
	return e.severity
}

// Op returns the failed operation, if recorded
func (e *Error) Op() string {
	return e.op
}

// MarshalJSON renders the error for API responses
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code     Code   `json:"code"`
		Message  string `json:"message"`
		Severity string `json:"severity"`
	}{
		Code:     e.code,
		Message:  e.Error(),
		Severity: e.severity.String(),
	})
}

// HasCode reports whether any error in the chain carries code
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the first *Error in the chain
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodeUnknown
}
