package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryEval      Category = "eval"
	CategoryDirective Category = "directive"
	CategoryFetch     Category = "fetch"
	CategoryStore     Category = "store"
	CategoryComponent Category = "component"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Directive identifies the directive a fault was raised for.
type Directive struct {
	// Node describes the element, e.g. "<button id=save>".
	Node string
	// Attr is the attribute name as written.
	Attr string
	// Source is the attribute value.
	Source string
}

// String returns the directive in markup form.
func (d *Directive) String() string {
	if d == nil {
		return ""
	}
	s := d.Attr
	if d.Source != "" {
		s += fmt.Sprintf("=%q", d.Source)
	}
	if d.Node != "" {
		s = d.Node + " " + s
	}
	return s
}

// TendrilError is a structured error with directive context and suggestions.
type TendrilError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (eval, directive, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Directive is the directive being processed, if any.
	Directive *Directive

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *TendrilError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *TendrilError) Unwrap() error {
	return e.Wrapped
}

// WithDirective records the directive the error was raised for.
func (e *TendrilError) WithDirective(node, attr, source string) *TendrilError {
	e.Directive = &Directive{Node: node, Attr: attr, Source: source}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *TendrilError) WithSuggestion(s string) *TendrilError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *TendrilError) WithDetail(d string) *TendrilError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *TendrilError) WithDetailf(format string, args ...any) *TendrilError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *TendrilError) Wrap(err error) *TendrilError {
	e.Wrapped = err
	return e
}

// New creates a TendrilError from a registered error code.
func New(code string) *TendrilError {
	template, ok := registry[code]
	if !ok {
		return &TendrilError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &TendrilError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new TendrilError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *TendrilError {
	return &TendrilError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a TendrilError. An error that
// already carries a TendrilError anywhere in its chain is returned as that
// TendrilError.
func FromError(err error, code string) *TendrilError {
	if err == nil {
		return nil
	}
	var te *TendrilError
	if stderrors.As(err, &te) {
		return te
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first TendrilError in err's chain, or "".
func CodeOf(err error) string {
	var te *TendrilError
	if stderrors.As(err, &te) {
		return te.Code
	}
	return ""
}
