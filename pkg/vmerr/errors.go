// Package vmerr provides the VM's runtime error type and stack-trace
// rendering (§7 "Runtime errors"), grounded on the teacher's own
// vm-package error handling.
package vmerr

import (
	"fmt"
	"strings"
)

// StackFrame captures one call-stack entry at the time a RuntimeError was
// raised: the name of the function running and the instruction pointer it
// had reached.
type StackFrame struct {
	Name string
	IP   int
}

// RuntimeError is a fatal VM failure: an unknown identifier, a
// type-mismatched Op, calling a non-function, indexing a non-array, or
// popping an empty stack. The core has no try/catch; a RuntimeError always
// halts Run.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.StackTrace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			frame := e.StackTrace[i]
			b.WriteString(fmt.Sprintf("\n  at %s [IP: %d]", frame.Name, frame.IP))
		}
	}

	return b.String()
}

// New constructs a RuntimeError carrying the current call stack.
func New(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
