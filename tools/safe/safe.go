package safe

import (
	"FlashChat/logger"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// MustNotNil panics if the given value is nil.
// Useful for enforcing required fields during struct initialization.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// Go starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover is meant to be deferred; it logs a recovered panic with the given name.
func Recover(name string) {
	if r := recover(); r != nil {
		LogPanic(name, r)
	}
}

// LogPanic logs an already recovered value.
func LogPanic(name string, r any) {
	logger.Error("panic recovered", zap.String("where", name), zap.Any("panic", r), zap.Stack("stack"))
}
