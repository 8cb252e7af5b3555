package stack

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
)

const maxDepth = 32

type stackError struct {
	err error
	pcs []uintptr
}

// New 给 err 附加调用栈；skip 与 runtime.Callers 含义一致
func New(err error, skip int) error {
	if err == nil {
		return nil
	}
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip, pcs)
	return &stackError{err: err, pcs: pcs[:n]}
}

func (e *stackError) Error() string { return e.err.Error() }

func (e *stackError) Unwrap() error { return e.err }

// StackTrace 返回 "func file:line" 形式的多行栈
func (e *stackError) StackTrace() string {
	if len(e.pcs) == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		frame, more := frames.Next()
		sb.WriteString("\n\t")
		sb.WriteString(frame.Function)
		sb.WriteString(" ")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		if !more {
			break
		}
	}
	return sb.String()
}

func (e *stackError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, e.err.Error())
			_, _ = io.WriteString(s, e.StackTrace())
			return
		}
		_, _ = io.WriteString(s, e.Error())
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}
