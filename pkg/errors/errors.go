package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeConflict           Code = "CONFLICT"
	CodeInventoryExhausted Code = "INVENTORY_EXHAUSTED"
	CodeTransport          Code = "TRANSPORT_FAILURE"
	CodeInvariant          Code = "INVARIANT_VIOLATION"
	CodeInternal           Code = "INTERNAL_ERROR"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

type Metadata struct {
	Retryable     bool
	PublicMessage string
	Severity      Severity
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:     false,
		PublicMessage: "validation failed",
		Severity:      SeverityInfo,
	},
	CodeUnauthorized: {
		Retryable:     false,
		PublicMessage: "access denied",
		Severity:      SeverityWarn,
	},
	CodeNotFound: {
		Retryable:     false,
		PublicMessage: "resource not found",
		Severity:      SeverityInfo,
	},
	CodeAlreadyExists: {
		Retryable:     false,
		PublicMessage: "resource already exists",
		Severity:      SeverityInfo,
	},
	CodeConflict: {
		Retryable:     false,
		PublicMessage: "conflict detected",
		Severity:      SeverityInfo,
	},
	CodeInventoryExhausted: {
		Retryable:     false,
		PublicMessage: "inventory exhausted",
		Severity:      SeverityWarn,
	},
	CodeTransport: {
		Retryable:     false,
		PublicMessage: "transport unavailable",
		Severity:      SeverityError,
	},
	CodeInvariant: {
		Retryable:     false,
		PublicMessage: "internal error",
		Severity:      SeverityCritical,
	},
	CodeInternal: {
		Retryable:     false,
		PublicMessage: "internal error",
		Severity:      SeverityError,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the supplied code anywhere in its chain.
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}
