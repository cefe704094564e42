package parser

import (
	"fmt"

	"github.com/kristofer/tonic/pkg/lexer"
)

// ErrorKind enumerates the distinct parse failure kinds the grammar can
// produce (§4.2).
type ErrorKind int

const (
	ErrUnexpectedToken ErrorKind = iota
	ErrExpectedIdentifier
	ErrInvalidBreakableScope
	ErrInvalidContinuableScope
	ErrNestedFunctionDefinition
)

// ParseError carries the failing line, the offending span, and the error
// kind, matching §4.2's `{ line, span, err }` error shape. Parsing halts on
// the first ParseError returned.
type ParseError struct {
	Line     int
	Span     lexer.Span
	Kind     ErrorKind
	Found    lexer.Kind
	Expected string // human-readable description; "" when not applicable
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrUnexpectedToken:
		if e.Expected != "" {
			return fmt.Sprintf("line %d: unexpected token %s, expected %s", e.Line, e.Found, e.Expected)
		}
		return fmt.Sprintf("line %d: unexpected token %s", e.Line, e.Found)
	case ErrExpectedIdentifier:
		return fmt.Sprintf("line %d: expected identifier, found %s", e.Line, e.Found)
	case ErrInvalidBreakableScope:
		return fmt.Sprintf("line %d: `break` can only be used inside a `while` loop", e.Line)
	case ErrInvalidContinuableScope:
		return fmt.Sprintf("line %d: `continue` can only be used inside a `while` loop", e.Line)
	case ErrNestedFunctionDefinition:
		return fmt.Sprintf("line %d: functions can only be declared at the top level", e.Line)
	default:
		return fmt.Sprintf("line %d: parse error", e.Line)
	}
}

// Code returns a stable per-kind numeric identifier, in the spirit of the
// original Rust implementation's ariadne-rendered error codes
// (original_source/src/main.rs), for callers that want a machine-readable
// identifier independent of the message text.
func (e *ParseError) Code() int {
	switch e.Kind {
	case ErrUnexpectedToken:
		return 1
	case ErrExpectedIdentifier:
		return 2
	case ErrInvalidBreakableScope:
		return 32
	case ErrInvalidContinuableScope:
		return 33
	case ErrNestedFunctionDefinition:
		return 34
	default:
		return 0
	}
}
