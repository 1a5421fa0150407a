// Package errors carries typed application errors from services to the HTTP
// layer and to logs.
package errors

import stderrors "errors"

// Error is an application error with a Code, a message that may be shown to
// clients, optional details and the underlying cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err yields New(code, message).
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Field builds a validation error naming the offending request field.
func Field(field, message string) *Error {
	return New(CodeValidation, message).WithDetails(map[string]any{"field": field})
}

// WithDetails sets details in place and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
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

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// PublicMessage is the message clients see for e.
func (e *Error) PublicMessage() string {
	m := MetadataFor(e.Code())
	if msg := e.Message(); m.ExposeMessage && msg != "" {
		return msg
	}
	return m.PublicMessage
}

// PublicDetails returns details only for codes that may carry them.
func (e *Error) PublicDetails() any {
	if MetadataFor(e.Code()).DetailsAllowed {
		return e.Details()
	}
	return nil
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
