package ecs

import (
	"fmt"

	"go.uber.org/zap"
)

// FatalError is the panic value raised when a caller breaks a contract the
// ECS cannot continue past: a bad component index, an operation that tree
// mode does not support, id space exhaustion or a failed consistency check.
// It is not meant to be recovered outside of tests.
type FatalError struct {
	Op  string
	Msg string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("ecs: %s: %s", e.Op, e.Msg)
}

func fatalf(op, format string, args ...any) {
	panic(&FatalError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// fatalf logs the violation with the registry's logger before panicking.
func (r *Registry) fatalf(op, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Error("ecs contract violation",
		zap.String("op", op),
		zap.String("msg", msg))
	panic(&FatalError{Op: op, Msg: msg})
}
