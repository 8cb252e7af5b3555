package errs

import (
	"FlashChat/tools/errs/stack"
	"fmt"
	"strings"
)

type Error interface {
	Is(err error) bool
	Wrap() error
	WrapMsg(msg string, kv ...any) error
	error
}

type ErrWrapper interface {
	Is(err error) bool
	Wrap() error
	Unwrap() error
	WrapMsg(msg string, kv ...any) error
	error
}

func New(s string, kv ...any) Error {
	return &errorString{s: toString(s, kv)}
}

type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

func (e *errorString) Is(err error) bool {
	t, ok := err.(*errorString)
	return ok && t.s == e.s
}

func (e *errorString) Wrap() error {
	return stack.New(e, stackSkip)
}

func (e *errorString) WrapMsg(msg string, kv ...any) error {
	if msg == "" && len(kv) == 0 {
		return stack.New(e, stackSkip)
	}
	return stack.New(NewErrorWrapper(e, toString(msg, kv)), stackSkip)
}

func NewErrorWrapper(err error, s string) ErrWrapper {
	return &errorWrapper{error: err, s: s}
}

type errorWrapper struct {
	error
	s string
}

func (e *errorWrapper) Is(err error) bool {
	if err == nil {
		return false
	}
	t, ok := err.(*errorWrapper)
	return ok && t.s == e.s && t.error == e.error
}

func (e *errorWrapper) Error() string {
	if e.s == "" {
		return e.error.Error()
	}
	return e.s + ": " + e.error.Error()
}

func (e *errorWrapper) Unwrap() error {
	return e.error
}

func (e *errorWrapper) Wrap() error {
	return stack.New(e, stackSkip)
}

func (e *errorWrapper) WrapMsg(msg string, kv ...any) error {
	return stack.New(NewErrorWrapper(e, toString(msg, kv)), stackSkip)
}

// toString 拼接 "msg, k1=v1, k2=v2"
func toString(s string, kv []any) string {
	if len(kv) == 0 {
		return s
	}
	var sb strings.Builder
	sb.WriteString(s)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
