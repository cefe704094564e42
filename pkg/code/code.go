// Package code defines the bytecode format the compiler emits and the VM
// executes: a flat sequence of instructions plus the constant and name
// pools they index into (§4.4 "Bytecode compiler").
//
// Instruction format:
//
// Each instruction consists of an opcode and a single integer operand.
// The operand's meaning depends on the opcode:
//   - Constant: index into the constant pool
//   - Get/Set: index into the name pool
//   - Array/Call: item/argument count
//   - Jump/JumpFalse: target instruction index
//   - BinaryOp: an ast.Op value
//   - Closure: target scope index
//   - JumpIfElse/Label: two values packed into one operand (see Pack/Unpack)
//
// Packing two operands into one field, rather than widening Instruction to
// carry a second int, keeps every instruction the same size and mirrors how
// a send operand packs a selector index and an argument count.
package code

import (
	"fmt"
	"strings"

	"github.com/kristofer/tonic/pkg/ast"
	"github.com/kristofer/tonic/pkg/value"
)

// Opcode identifies a bytecode operation.
type Opcode int

const (
	// Constant pushes Constants[operand].
	Constant Opcode = iota

	// Array pops operand values and pushes an Array built from them in
	// source order: items are compiled in source order, so the VM reverses
	// them back into place as it pops.
	Array

	// Get pushes the value bound to Names[operand]: the internals table
	// is consulted first, then the current frame's environment.
	Get

	// Set pops a value and binds it to Names[operand]: a Function value
	// is installed in the global internals/function table, anything else
	// is stored in the current frame's environment.
	Set

	// GetProperty pops an index, pops an array, and pushes the element.
	GetProperty

	// SetProperty pops an index, pops an array, and stores the value beneath
	// them at that index in place; the value stays on the stack as the
	// assignment's result.
	SetProperty

	// Append pops an array, pops a value, and appends the value in place.
	Append

	// BinaryOp pops right then left, applies ast.Op(operand), and pushes
	// the result. This is the spec's `Op` opcode, renamed so it doesn't
	// collide with ast.Op in Go source.
	BinaryOp

	// Call pops operand arguments (reverse order) then the callee, and
	// dispatches: an internal function runs synchronously and pushes its
	// result; a user function pushes a new frame and jumps to its scope.
	Call

	// Jump sets ip to operand unconditionally.
	Jump

	// JumpFalse pops a condition and sets ip to operand if it is falsy;
	// otherwise execution falls through to the next instruction.
	JumpFalse

	// JumpIfElse pops a condition and sets ip to the true or false target
	// packed into operand (see Pack/Unpack).
	JumpIfElse

	// Label is a no-op that unconditionally jumps to the skip target
	// packed into operand, stepping over an inlined function body during
	// straight-line execution. The skip target is the low half of the
	// pack; the compiler leaves the high half 0 and nothing reads it.
	Label

	// Closure pushes a Value::Function(User) referencing the scope index
	// in operand.
	Closure

	// Pop discards the top of the value stack.
	Pop

	// Return pops the result, discards the current frame, pushes the
	// result back, and resumes at the frame's return_ip.
	Return
)

func (op Opcode) String() string {
	switch op {
	case Constant:
		return "CONSTANT"
	case Array:
		return "ARRAY"
	case Get:
		return "GET"
	case Set:
		return "SET"
	case GetProperty:
		return "GET_PROPERTY"
	case SetProperty:
		return "SET_PROPERTY"
	case Append:
		return "APPEND"
	case BinaryOp:
		return "OP"
	case Call:
		return "CALL"
	case Jump:
		return "JUMP"
	case JumpFalse:
		return "JUMP_FALSE"
	case JumpIfElse:
		return "JUMP_IF_ELSE"
	case Label:
		return "LABEL"
	case Closure:
		return "CLOSURE"
	case Pop:
		return "POP"
	case Return:
		return "RETURN"
	default:
		return "UNKNOWN"
	}
}

// Instruction is one decoded bytecode instruction.
type Instruction struct {
	Op      Opcode
	Operand int
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s %d", i.Op, i.Operand)
}

// Scope delimits one user function's (or the top-level program's, at index
// 0) contiguous range within the flat instruction buffer.
type Scope struct {
	Start int
	End   int
}

// Code is the compiler's complete output: the flat instruction stream, the
// pools it indexes into, and the per-function scope table.
type Code struct {
	Instructions []Instruction
	Constants    []value.Value
	Names        []string
	Scopes       []Scope
}

// packShift and packMask split a single int operand into two halves, the
// same way a two-piece operand is packed elsewhere in this instruction set.
const (
	packShift = 32
	packMask  = 0xFFFFFFFF
)

// Pack combines two values into one instruction operand.
func Pack(hi, lo int) int {
	return (hi << packShift) | (lo & packMask)
}

// Unpack splits an operand built by Pack back into its two halves.
func Unpack(operand int) (hi, lo int) {
	return operand >> packShift, operand & packMask
}

// BinOp decodes a BinaryOp instruction's operand back into an ast.Op.
func BinOp(operand int) ast.Op {
	return ast.Op(operand)
}

// Disassemble renders c as a human-readable instruction listing, grounded
// on the teacher's own cmd/smog disassembler: one line per scope boundary,
// then one line per instruction with its operand decoded according to the
// opcode (packed operands shown as their two halves, constant operands
// shown alongside the rendered value they index).
func (c *Code) Disassemble() string {
	var b strings.Builder
	scopeAt := make(map[int]int, len(c.Scopes))
	for i, s := range c.Scopes {
		scopeAt[s.Start] = i
	}

	for ip, instr := range c.Instructions {
		if idx, ok := scopeAt[ip]; ok {
			if idx == 0 {
				fmt.Fprintf(&b, "scope 0 (top level):\n")
			} else {
				fmt.Fprintf(&b, "scope %d [%d, %d):\n", idx, c.Scopes[idx].Start, c.Scopes[idx].End)
			}
		}
		fmt.Fprintf(&b, "  %4d  %s\n", ip, c.disassembleInstruction(instr))
	}
	return b.String()
}

func (c *Code) disassembleInstruction(instr Instruction) string {
	switch instr.Op {
	case Constant:
		return fmt.Sprintf("%-12s %d (%s)", instr.Op, instr.Operand, c.Constants[instr.Operand].Render())
	case Get, Set:
		return fmt.Sprintf("%-12s %d (%s)", instr.Op, instr.Operand, c.Names[instr.Operand])
	case BinaryOp:
		return fmt.Sprintf("%-12s %s", instr.Op, ast.Op(instr.Operand))
	case JumpIfElse:
		ipTrue, ipFalse := Unpack(instr.Operand)
		return fmt.Sprintf("%-12s true->%d false->%d", instr.Op, ipTrue, ipFalse)
	case Label:
		_, skip := Unpack(instr.Operand)
		return fmt.Sprintf("%-12s skip->%d", instr.Op, skip)
	default:
		return instr.String()
	}
}
