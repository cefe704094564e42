// Package value defines tonic's runtime value universe: the tagged union
// the stack VM pushes, pops, and stores (§3 "Runtime Value").
//
// Arrays carry reference semantics: a Value wrapping an *Array can be
// copied freely (assignment, argument passing, `Array` construction from
// elements already on the stack) while every copy continues to observe
// mutations made through any other copy, because they all point at the
// same underlying *Array. There is no deep-copy path anywhere in this
// package or in the VM.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags which alternative of the Value union is populated.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNull
	KindArray
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Array is the shared mutable backing store for Value arrays. Every Value
// of KindArray wrapping the same *Array observes the others' mutations.
type Array struct {
	Items []Value
}

// FnKind distinguishes a user-defined function (identified by its compiled
// scope) from a host-registered internal callback.
type FnKind int

const (
	FnUser FnKind = iota
	FnInternal
)

// InternalFunc is the host callback ABI (§6): it receives the running VM
// (typed as `any` here to avoid an import cycle between this package and
// pkg/vm — callers type-assert to *vm.VM) and the call's arguments in
// caller-pop order, and returns the call's result.
type InternalFunc func(vm any, args []Value) Value

// Function is the runtime representation of a callable value.
type Function struct {
	Kind       FnKind
	Name       string
	ScopeIndex int          // valid when Kind == FnUser
	Internal   InternalFunc // valid when Kind == FnInternal
}

// Value is tonic's tagged runtime value union (§3).
type Value struct {
	Kind Kind
	str  string
	num  float64
	b    bool
	arr  *Array
	fn   *Function
}

// Null is the singleton null value.
func Null() Value { return Value{Kind: KindNull} }

// String constructs a string value.
func String(s string) Value { return Value{Kind: KindString, str: s} }

// Number constructs a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, num: n} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, b: b} }

// NewArray wraps items in a freshly allocated, shared Array.
func NewArray(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindArray, arr: &Array{Items: items}}
}

// UserFunction constructs a Value::Function(User) referencing a compiled
// scope index (§3 "Fn = User{ name, scope_index }").
func UserFunction(name string, scopeIndex int) Value {
	return Value{Kind: KindFunction, fn: &Function{Kind: FnUser, Name: name, ScopeIndex: scopeIndex}}
}

// InternalFunction constructs a Value::Function(Internal) wrapping a
// host-provided callback.
func InternalFunction(name string, cb InternalFunc) Value {
	return Value{Kind: KindFunction, fn: &Function{Kind: FnInternal, Name: name, Internal: cb}}
}

// AsString returns the wrapped string; only valid when Kind == KindString.
func (v Value) AsString() string { return v.str }

// AsNumber returns the wrapped number; only valid when Kind == KindNumber.
func (v Value) AsNumber() float64 { return v.num }

// AsBool returns the wrapped bool; only valid when Kind == KindBool.
func (v Value) AsBool() bool { return v.b }

// AsArray returns the shared backing array; only valid when Kind ==
// KindArray. The returned pointer aliases every other Value copied from
// this one.
func (v Value) AsArray() *Array { return v.arr }

// AsFunction returns the wrapped function; only valid when Kind ==
// KindFunction.
func (v Value) AsFunction() *Function { return v.fn }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Render produces the textual rendering used for string concatenation
// (§4.5 "Add: (String,Number)/(Number,String) -> string concat via textual
// rendering") and for host println.
func (v Value) Render() string {
	switch v.Kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return "null"
	case KindArray:
		parts := make([]string, len(v.arr.Items))
		for i, item := range v.arr.Items {
			parts[i] = item.Render()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.fn.Name)
	default:
		return ""
	}
}

// formatNumber renders a float64 the way the original Rust implementation's
// Display impl would (integral values without a trailing ".0").
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
