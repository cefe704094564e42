package code

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tonic/pkg/value"
)

func TestPackUnpack_RoundTrips(t *testing.T) {
	cases := [][2]int{
		{0, 0},
		{5, 12},
		{1 << 20, 1 << 20},
		{7, 0},
		{0, 7},
	}

	for _, c := range cases {
		packed := Pack(c[0], c[1])
		hi, lo := Unpack(packed)
		require.Equal(t, c[0], hi)
		require.Equal(t, c[1], lo)
	}
}

func TestOpcode_StringCoversEveryOpcode(t *testing.T) {
	ops := []Opcode{
		Constant, Array, Get, Set, GetProperty, SetProperty, Append,
		BinaryOp, Call, Jump, JumpFalse, JumpIfElse, Label, Closure, Pop, Return,
	}

	seen := map[string]bool{}
	for _, op := range ops {
		s := op.String()
		require.NotEqual(t, "UNKNOWN", s)
		require.False(t, seen[s], "duplicate opcode name %q", s)
		seen[s] = true
	}
}

func TestDisassemble_LabelsScopeBoundariesAndDecodesOperands(t *testing.T) {
	c := &Code{
		Instructions: []Instruction{
			{Op: Constant, Operand: 0},
			{Op: Set, Operand: 0},
			{Op: Label, Operand: Pack(0, 3)},
			{Op: Get, Operand: 0},
			{Op: Return, Operand: 0},
		},
		Constants: []value.Value{value.Number(7)},
		Names:     []string{"x"},
		Scopes:    []Scope{{Start: 0, End: 3}, {Start: 3, End: 5}},
	}

	out := c.Disassemble()
	require.Contains(t, out, "scope 0 (top level)")
	require.Contains(t, out, "scope 1 [3, 5)")
	require.Contains(t, out, "CONSTANT")
	require.Contains(t, out, "(7)")
	require.Contains(t, out, "(x)")
	require.Contains(t, out, "skip->3")
}
