package bridgeerr

import (
	"fmt"
	"sync"
)

// Code identifies a failure class of the wallet bridge.
type Code string

// Severity describes how serious a failure is for reporting purposes.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Attributes provide default behaviour for an error code.
type Attributes struct {
	Message  string
	Severity Severity
}

const (
	// CodeNoHost means no provider object is currently injected.
	CodeNoHost Code = "NO_HOST"
	// CodeUserRejected means the user declined a prompt inside the host
	// wallet. Detection is heuristic, see host.ClassifyRejection.
	CodeUserRejected Code = "USER_REJECTED"
	// CodeHostRejected means the host returned a JSON-RPC error.
	CodeHostRejected Code = "HOST_REJECTED"
	// CodeHostError covers any other host-side failure.
	CodeHostError Code = "HOST_ERROR"
	// CodeMalformedParams means caller supplied parameters do not decode.
	CodeMalformedParams Code = "MALFORMED_PARAMS"
	// CodeNoAccounts means the account handshake returned an empty list.
	CodeNoAccounts Code = "NO_ACCOUNTS"
	// CodeInvalidAddress means a host-returned account does not parse.
	CodeInvalidAddress Code = "INVALID_ADDRESS"
	// CodeInvalidSignature means a host-returned signature does not parse.
	CodeInvalidSignature Code = "INVALID_SIGNATURE"
	// CodeSerialization means an internal JSON conversion failed.
	CodeSerialization Code = "SERIALIZATION_ERROR"
)

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeNoHost: {
			Message:  "no wallet provider injected",
			Severity: SeverityWarning,
		},
		CodeUserRejected: {
			Message:  "user rejected the request",
			Severity: SeverityInfo,
		},
		CodeHostRejected: {
			Message:  "host rejected the request",
			Severity: SeverityWarning,
		},
		CodeHostError: {
			Message:  "host request failed",
			Severity: SeverityWarning,
		},
		CodeMalformedParams: {
			Message:  "malformed request parameters",
			Severity: SeverityInfo,
		},
		CodeNoAccounts: {
			Message:  "no accounts available",
			Severity: SeverityInfo,
		},
		CodeInvalidAddress: {
			Message:  "invalid address",
			Severity: SeverityWarning,
		},
		CodeInvalidSignature: {
			Message:  "invalid signature",
			Severity: SeverityWarning,
		},
		CodeSerialization: {
			Message:  "serialization failed",
			Severity: SeverityWarning,
		},
	}
)

// Register lets embedding hosts add error codes of their own.
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf returns the attributes registered for a code. Unknown codes
// fall back to a generic host error description.
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeHostError]
}

// Error is the unified error type of the bridge. Every failure crossing a
// package boundary is one of these; nothing is retried or swallowed.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates an error with the given code. An empty message falls back to
// the registered default.
func New(code Code, message string) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	return &Error{code: code, message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause to a new error.
func Wrap(code Code, cause error, message string) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap implements errors.Unwrap.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches errors by code so errors.Is works with code sentinels.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeHostError
	}
	return e.code
}

// Message returns the human readable message without code or cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Sentinels for errors.Is comparisons.
var (
	ErrNoHost           = New(CodeNoHost, "")
	ErrUserRejected     = New(CodeUserRejected, "")
	ErrHostRejected     = New(CodeHostRejected, "")
	ErrHostError        = New(CodeHostError, "")
	ErrMalformedParams  = New(CodeMalformedParams, "")
	ErrNoAccounts       = New(CodeNoAccounts, "")
	ErrInvalidAddress   = New(CodeInvalidAddress, "")
	ErrInvalidSignature = New(CodeInvalidSignature, "")
	ErrSerialization    = New(CodeSerialization, "")
)

// CodeOf extracts the bridge error code from err, walking the cause chain.
// Errors that are not bridge errors report CodeHostError.
func CodeOf(err error) Code {
	for err != nil {
		if be, ok := err.(*Error); ok {
			return be.Code()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeHostError
}
