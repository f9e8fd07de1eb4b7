// Package fault defines the failure taxonomy shared by the orchestrator,
// the retry ledger, and the dead-letter path.
//
// Every failure that crosses the capability boundary is normalised into an
// *Error carrying a Type (VALIDATION, IO, MODEL, SYSTEM), a catalog Code,
// and a user-safe Message. Only Message is ever written into status records;
// raw error text is kept in Detail after credential scrubbing.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the coarse failure class recorded as error_type.
type Type string

const (
	// Validation means the job itself is malformed or unsupported. Never retried.
	Validation Type = "VALIDATION"
	// IO means input could not be read or output could not be stored.
	IO Type = "IO"
	// Model means the execution engine or its provider failed.
	Model Type = "MODEL"
	// System means an unexpected internal fault.
	System Type = "SYSTEM"
)

// ParseType normalises s into a Type. Unknown or empty input returns ""
// and false.
func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case Validation, IO, Model, System:
		return t, true
	default:
		return "", false
	}
}

// Error is a classified failure.
type Error struct {
	Type    Type
	Code    string
	Message string
	// Detail is the scrubbed underlying error text.
	Detail string
	// Permanent marks a failure that must go to the dead-letter queue
	// regardless of the remaining retry budget.
	Permanent bool
	// JobID is set when the failure is known to belong to a job, even if
	// the payload could not be fully parsed.
	JobID string

	Err error
}

// Error implements error. It returns the user-safe message.
func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Terminal reports whether the failure must skip the retry path.
func (e *Error) Terminal() bool {
	return e.Permanent || e.Type == Validation
}

// New builds a classified failure with an explicit type and code.
func New(t Type, code, message string) *Error {
	return &Error{Type: t, Code: code, Message: message}
}

// Wrap classifies err under an explicit type and code, keeping err as the
// cause. Message falls back to the catalog message for code.
func Wrap(err error, t Type, code string) *Error {
	msg := MessageFor(code)
	e := &Error{Type: t, Code: code, Message: msg, Err: err}
	if err != nil {
		e.Detail = Scrub(err.Error())
	}
	return e
}

// Invalid builds a VALIDATION failure.
func Invalid(code, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Type: Validation, Code: code, Message: msg, Detail: msg, Permanent: true}
}

// From normalises any error into an *Error. Errors that already carry a
// classification are returned as-is (first *Error in the chain); anything
// else is classified by the message catalog.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Type == "" {
			fe.Type = TypeForCode(fe.Code)
		}
		if fe.Message == "" {
			fe.Message = MessageFor(fe.Code)
		}
		return fe
	}
	code, msg := Classify(err)
	return &Error{
		Type:    TypeForCode(code),
		Code:    code,
		Message: msg,
		Detail:  Scrub(err.Error()),
		Err:     err,
	}
}

// Panic converts a recovered panic value into a SYSTEM failure.
func Panic(v any) *Error {
	return &Error{
		Type:    System,
		Code:    CodeProcessingFailed,
		Message: MessageFor(CodeProcessingFailed),
		Detail:  Scrub(fmt.Sprintf("panic: %v", v)),
	}
}
