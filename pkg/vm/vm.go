// Package vm implements tonic's stack-based virtual machine (§4.5).
//
// The VM is a fetch-decode-execute loop over the flat instruction stream the
// compiler produces: a value stack for intermediate results, a stack of
// Frames for call activation records, and a name table shared by user
// functions and host-registered internals.
//
//	Source -> Lexer -> Parser -> passes -> Compiler -> Code -> VM -> stdout
//
// Execution is single-threaded and synchronous (§5): Run blocks until ip
// runs past the last instruction or a RuntimeError halts the machine.
package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/tonic/pkg/ast"
	"github.com/kristofer/tonic/pkg/code"
	"github.com/kristofer/tonic/pkg/value"
	"github.com/kristofer/tonic/pkg/vmerr"
)

// Frame is a per-call activation record: the instruction pointer to resume
// at on Return, and a name-to-value environment local to the call.
type Frame struct {
	ReturnIP    int
	Environment map[string]value.Value
	Name        string
}

// VM executes a compiled Code against a value stack and a stack of Frames.
type VM struct {
	code      *code.Code
	ip        int
	stack     []value.Value
	frames    []*Frame
	internals map[string]value.Value
}

// New returns a VM ready to Run the given Code, with an empty top-level
// frame installed as frames[0].
func New(c *code.Code) *VM {
	return &VM{
		code:      c,
		frames:    []*Frame{{Name: "<top-level>", Environment: map[string]value.Value{}}},
		internals: map[string]value.Value{},
	}
}

// AddFunction registers a host callback under name, addressable from tonic
// source the same way a user-defined function is (§6 "Internal function
// ABI"). Call before Run; internals are not safe to register concurrently
// with execution.
func (vm *VM) AddFunction(name string, cb value.InternalFunc) {
	vm.internals[name] = value.InternalFunction(name, cb)
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, vm.fatal("pop on empty stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) frame() *Frame { return vm.frames[len(vm.frames)-1] }

func (vm *VM) fatal(message string) *vmerr.RuntimeError {
	if vm.ip < len(vm.code.Instructions) {
		message = fmt.Sprintf("%s (at %d: %s)", message, vm.ip, vm.code.Instructions[vm.ip])
	}
	trace := make([]vmerr.StackFrame, len(vm.frames))
	for i, f := range vm.frames {
		ip := vm.ip
		if i+1 < len(vm.frames) {
			// a caller frame is paused at the Call that entered the next frame
			ip = vm.frames[i+1].ReturnIP - 1
		}
		trace[i] = vmerr.StackFrame{Name: f.Name, IP: ip}
	}
	return vmerr.New(message, trace)
}

// Run executes from instruction 0 until ip runs past the last instruction
// or a RuntimeError is raised.
func (vm *VM) Run() error {
	for vm.ip < len(vm.code.Instructions) {
		instr := vm.code.Instructions[vm.ip]

		switch instr.Op {
		case code.Constant:
			vm.push(vm.code.Constants[instr.Operand])
			vm.ip++

		case code.Array:
			n := instr.Operand
			items := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				v, err := vm.pop()
				if err != nil {
					return err
				}
				items[i] = v
			}
			vm.push(value.NewArray(items))
			vm.ip++

		case code.Get:
			if err := vm.execGet(instr.Operand); err != nil {
				return err
			}

		case code.Set:
			if err := vm.execSet(instr.Operand); err != nil {
				return err
			}

		case code.GetProperty:
			if err := vm.execGetProperty(); err != nil {
				return err
			}

		case code.SetProperty:
			if err := vm.execSetProperty(); err != nil {
				return err
			}

		case code.Append:
			if err := vm.execAppend(); err != nil {
				return err
			}

		case code.BinaryOp:
			if err := vm.execBinaryOp(code.BinOp(instr.Operand)); err != nil {
				return err
			}

		case code.Call:
			if err := vm.execCall(instr.Operand); err != nil {
				return err
			}

		case code.Jump:
			vm.ip = instr.Operand

		case code.JumpFalse:
			cond, err := vm.pop()
			if err != nil {
				return err
			}
			ok, err := truthy(cond)
			if err != nil {
				return vm.fatal(err.Error())
			}
			if !ok {
				vm.ip = instr.Operand
			} else {
				vm.ip++
			}

		case code.JumpIfElse:
			cond, err := vm.pop()
			if err != nil {
				return err
			}
			ok, err := truthy(cond)
			if err != nil {
				return vm.fatal(err.Error())
			}
			ipTrue, ipFalse := code.Unpack(instr.Operand)
			if ok {
				vm.ip = ipTrue
			} else {
				vm.ip = ipFalse
			}

		case code.Label:
			_, skip := code.Unpack(instr.Operand)
			vm.ip = skip

		case code.Closure:
			vm.push(value.UserFunction("<closure>", instr.Operand))
			vm.ip++

		case code.Pop:
			if _, err := vm.pop(); err != nil {
				return err
			}
			vm.ip++

		case code.Return:
			if len(vm.frames) <= 1 {
				return vm.fatal("return outside of a function")
			}
			result, err := vm.pop()
			if err != nil {
				return err
			}
			returnIP := vm.frame().ReturnIP
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.push(result)
			// ip is set exactly once to return_ip; it is not advanced
			// again afterward (§9 open question, resolved).
			vm.ip = returnIP

		default:
			return vm.fatal(fmt.Sprintf("unhandled opcode %s", instr.Op))
		}
	}
	return nil
}

func (vm *VM) execGet(nameIndex int) error {
	name := vm.code.Names[nameIndex]
	if fn, ok := vm.internals[name]; ok {
		vm.push(fn)
		vm.ip++
		return nil
	}
	if v, ok := vm.frame().Environment[name]; ok {
		vm.push(v)
		vm.ip++
		return nil
	}
	return vm.fatal(fmt.Sprintf("undefined name %q", name))
}

func (vm *VM) execSet(nameIndex int) error {
	name := vm.code.Names[nameIndex]
	v, err := vm.pop()
	if err != nil {
		return err
	}
	if v.Kind == value.KindFunction {
		// Named functions are globally visible regardless of which frame
		// declared them (§9 "Function-vs-variable name space").
		vm.internals[name] = v
	} else {
		vm.frame().Environment[name] = v
	}
	vm.ip++
	return nil
}

// execGetProperty implements both numeric indexing, a[i], and the one
// named property tonic arrays expose, a.length, desugared by the compiler
// into GetProperty with a string key.
func (vm *VM) execGetProperty() error {
	idx, err := vm.pop()
	if err != nil {
		return err
	}
	arr, err := vm.pop()
	if err != nil {
		return err
	}
	if arr.Kind != value.KindArray {
		return vm.fatal(fmt.Sprintf("cannot index into a %s", arr.Kind))
	}
	items := arr.AsArray().Items

	if idx.Kind == value.KindString && idx.AsString() == "length" {
		vm.push(value.Number(float64(len(items))))
		vm.ip++
		return nil
	}

	i, err := arrayIndex(idx, len(items))
	if err != nil {
		return vm.fatal(err.Error())
	}
	vm.push(items[i])
	vm.ip++
	return nil
}

// execSetProperty stores into an array in place. The assigned value was
// compiled before the array and index, so it is already the new stack top
// once both are popped: the assignment expression's own value.
func (vm *VM) execSetProperty() error {
	idx, err := vm.pop()
	if err != nil {
		return err
	}
	arr, err := vm.pop()
	if err != nil {
		return err
	}
	if arr.Kind != value.KindArray {
		return vm.fatal(fmt.Sprintf("cannot index into a %s", arr.Kind))
	}
	items := arr.AsArray().Items
	i, err := arrayIndex(idx, len(items))
	if err != nil {
		return vm.fatal(err.Error())
	}
	if len(vm.stack) == 0 {
		return vm.fatal("pop on empty stack")
	}
	items[i] = vm.stack[len(vm.stack)-1]
	vm.ip++
	return nil
}

func (vm *VM) execAppend() error {
	arr, err := vm.pop()
	if err != nil {
		return err
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	if arr.Kind != value.KindArray {
		return vm.fatal(fmt.Sprintf("cannot append to a %s", arr.Kind))
	}
	a := arr.AsArray()
	a.Items = append(a.Items, v)
	vm.ip++
	return nil
}

func (vm *VM) execCall(n int) error {
	// popped[0] is the first value popped (the last source-order
	// argument, on top of the stack); popped[n-1] is the first.
	popped := make([]value.Value, n)
	for i := 0; i < n; i++ {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		popped[i] = v
	}
	callee, err := vm.pop()
	if err != nil {
		return err
	}
	if callee.Kind != value.KindFunction {
		return vm.fatal(fmt.Sprintf("cannot call a %s", callee.Kind))
	}
	fn := callee.AsFunction()

	switch fn.Kind {
	case value.FnInternal:
		// Host callbacks receive arguments in caller-pop order (reverse
		// of source order), per the internal function ABI.
		vm.push(fn.Internal(vm, popped))
		vm.ip++
		return nil

	case value.FnUser:
		scope := vm.code.Scopes[fn.ScopeIndex]
		vm.frames = append(vm.frames, &Frame{
			ReturnIP:    vm.ip + 1,
			Environment: map[string]value.Value{},
			Name:        fn.Name,
		})
		// Pushing in reverse-of-pop order restores source order; the
		// callee's reversed Set sequence binds them to the right names.
		for i := len(popped) - 1; i >= 0; i-- {
			vm.push(popped[i])
		}
		vm.ip = scope.Start
		return nil

	default:
		return vm.fatal("call on an unrecognized function kind")
	}
}

func (vm *VM) execBinaryOp(op ast.Op) error {
	right, err := vm.pop()
	if err != nil {
		return err
	}
	left, err := vm.pop()
	if err != nil {
		return err
	}
	result, err := applyOp(op, left, right)
	if err != nil {
		return vm.fatal(err.Error())
	}
	vm.push(result)
	vm.ip++
	return nil
}

// truthy requires conditions to be actual booleans: the grammar only ever
// produces Bool from comparisons and literals for condition position, and
// silently coercing other kinds would invent behavior the source never
// exercises.
func truthy(v value.Value) (bool, error) {
	if v.Kind != value.KindBool {
		return false, fmt.Errorf("condition must be a bool, got %s", v.Kind)
	}
	return v.AsBool(), nil
}

func arrayIndex(idx value.Value, length int) (int, error) {
	if idx.Kind != value.KindNumber {
		return 0, fmt.Errorf("array index must be a number, got %s", idx.Kind)
	}
	i := int(idx.AsNumber())
	if i < 0 || i >= length {
		return 0, fmt.Errorf("array index %d out of range for length %d", i, length)
	}
	return i, nil
}

// applyOp implements the Op value semantics table (§4.5).
func applyOp(op ast.Op, left, right value.Value) (value.Value, error) {
	switch op {
	case ast.OpAdd:
		if left.Kind == value.KindNumber && right.Kind == value.KindNumber {
			return value.Number(left.AsNumber() + right.AsNumber()), nil
		}
		if left.Kind == value.KindString || right.Kind == value.KindString {
			return value.String(left.Render() + right.Render()), nil
		}
		return value.Value{}, fmt.Errorf("Add: unsupported operand types %s and %s", left.Kind, right.Kind)

	case ast.OpSubtract:
		if left.Kind != value.KindNumber || right.Kind != value.KindNumber {
			return value.Value{}, fmt.Errorf("Sub requires two numbers, got %s and %s", left.Kind, right.Kind)
		}
		return value.Number(left.AsNumber() - right.AsNumber()), nil

	case ast.OpDivide:
		if left.Kind != value.KindNumber || right.Kind != value.KindNumber {
			return value.Value{}, fmt.Errorf("Div requires two numbers, got %s and %s", left.Kind, right.Kind)
		}
		return value.Number(left.AsNumber() / right.AsNumber()), nil

	case ast.OpMultiply:
		if left.Kind == value.KindNumber && right.Kind == value.KindNumber {
			return value.Number(left.AsNumber() * right.AsNumber()), nil
		}
		if left.Kind == value.KindString && right.Kind == value.KindNumber {
			return value.String(repeatString(left.AsString(), right.AsNumber())), nil
		}
		if left.Kind == value.KindNumber && right.Kind == value.KindString {
			return value.String(repeatString(right.AsString(), left.AsNumber())), nil
		}
		return value.Value{}, fmt.Errorf("Mul: unsupported operand types %s and %s", left.Kind, right.Kind)

	case ast.OpGreaterThan, ast.OpLessThan, ast.OpGreaterThanEquals, ast.OpLessThanEquals:
		return compareOrdering(op, left, right)

	case ast.OpEquals:
		eq, err := valuesEqual(left, right)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(eq), nil

	case ast.OpNotEquals:
		eq, err := valuesEqual(left, right)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(!eq), nil

	default:
		return value.Value{}, fmt.Errorf("unsupported operator %s", op)
	}
}

func repeatString(s string, n float64) string {
	count := int(n)
	if count < 0 {
		count = 0
	}
	return strings.Repeat(s, count)
}

func compareOrdering(op ast.Op, left, right value.Value) (value.Value, error) {
	var cmp int
	switch {
	case left.Kind == value.KindNumber && right.Kind == value.KindNumber:
		cmp = compareFloats(left.AsNumber(), right.AsNumber())
	case left.Kind == value.KindString && right.Kind == value.KindString:
		cmp = strings.Compare(left.AsString(), right.AsString())
	case (left.Kind == value.KindNumber || left.Kind == value.KindString) &&
		(right.Kind == value.KindNumber || right.Kind == value.KindString):
		// Mixed numeric/string comparisons fall back to textual
		// rendering: a deliberately surprising rule kept for fidelity
		// (§9 open question).
		cmp = strings.Compare(left.Render(), right.Render())
	default:
		return value.Value{}, fmt.Errorf("comparison: unsupported operand types %s and %s", left.Kind, right.Kind)
	}

	switch op {
	case ast.OpGreaterThan:
		return value.Bool(cmp > 0), nil
	case ast.OpLessThan:
		return value.Bool(cmp < 0), nil
	case ast.OpGreaterThanEquals:
		return value.Bool(cmp >= 0), nil
	case ast.OpLessThanEquals:
		return value.Bool(cmp <= 0), nil
	default:
		return value.Value{}, fmt.Errorf("not an ordering operator: %s", op)
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func valuesEqual(left, right value.Value) (bool, error) {
	switch {
	case left.Kind == value.KindNull && right.Kind == value.KindNull:
		return true, nil
	case left.Kind == value.KindBool && right.Kind == value.KindBool:
		return left.AsBool() == right.AsBool(), nil
	case left.Kind == value.KindNumber && right.Kind == value.KindNumber:
		return left.AsNumber() == right.AsNumber(), nil
	case left.Kind == value.KindString && right.Kind == value.KindString:
		return left.AsString() == right.AsString(), nil
	case (left.Kind == value.KindNumber || left.Kind == value.KindString) &&
		(right.Kind == value.KindNumber || right.Kind == value.KindString):
		return left.Render() == right.Render(), nil
	default:
		return false, fmt.Errorf("Eq: unsupported operand types %s and %s", left.Kind, right.Kind)
	}
}
