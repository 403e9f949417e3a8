package apperrors

import (
	"errors"
	"strings"
)

type appError struct {
	msg        string
	base       error
	causes     []error
	statuscode int
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll appends the text of every cause that is not already part of the chain of
// application errors.
func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.causes {
		if _, ok := err.(*appError); ok {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.causes
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append([]error{e}, e.causes...),
		statuscode: e.statuscode,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append([]error{e}, nonNil(errs)...),
		statuscode: e.statuscode,
	}
}

func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:        e.msg,
		base:       e,
		causes:     append([]error{e}, nonNil(errs)...),
		statuscode: e.statuscode,
	}
}

// SetStatusCode returns a copy carrying code. The copy keeps the receiver as its base, so it
// still matches it through errors.Is.
func (e *appError) SetStatusCode(code int) Error {
	return &appError{
		msg:        e.msg,
		base:       e,
		causes:     e.causes,
		statuscode: code,
	}
}

// StatusCode returns the attached status code. When none is set on the error itself the
// first cause that carries one wins.
func (e *appError) StatusCode() int {
	if e.statuscode != 0 {
		return e.statuscode
	}
	for _, err := range e.causes {
		var sc interface{ StatusCode() int }
		if errors.As(err, &sc) && sc.StatusCode() != 0 {
			return sc.StatusCode()
		}
	}
	return 0
}

// Is matches the base error and every wrapped cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As lets errors.As reach causes that are not on the Unwrap chain.
func (e *appError) As(target any) bool {
	for _, err := range e.causes {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// New creates a root error.
func New(msg string) Error {
	return &appError{msg: msg}
}

func nonNil(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
