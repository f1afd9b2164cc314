package devtools

import "errors"

// Code classifies a client failure. Codes are stable and surfaced to the
// driver layer; a nil error means Ok.
type Code int

const (
	CodeUnknownError Code = iota
	CodeDisconnected
	CodeTimeout
	CodeUnknownCommand
	CodeInvalidArgument
	CodeNoSuchFrame
	CodeUnexpectedAlertOpen
)

// String returns the stable tag for a status code.
func (c Code) String() string {
	switch c {
	case CodeDisconnected:
		return "disconnected"
	case CodeTimeout:
		return "timeout"
	case CodeUnknownCommand:
		return "unknown command"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeNoSuchFrame:
		return "no such frame"
	case CodeUnexpectedAlertOpen:
		return "unexpected alert open"
	default:
		return "unknown error"
	}
}

// Error is a typed client status. The rendered form is "<tag>: <message>",
// or just the tag when there is no message.
type Error struct {
	Code    Code
	Message string
}

// NewError creates a typed status error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

// CodeOf returns the status code carried by err. Errors produced outside
// this package map to CodeUnknownError.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknownError
}

// IsCode reports whether err carries the given status code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
