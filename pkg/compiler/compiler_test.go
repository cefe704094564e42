package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tonic/pkg/ast"
	"github.com/kristofer/tonic/pkg/code"
	"github.com/kristofer/tonic/pkg/parser"
)

func TestBuild_IsDeterministic(t *testing.T) {
	source := `fn fib(n) { if n < 2 { return n; } return fib(n-1) + fib(n-2); } println(fib(10));`

	program1, err := parser.Parse(source)
	require.NoError(t, err)
	c1, err := Build(program1)
	require.NoError(t, err)

	program2, err := parser.Parse(source)
	require.NoError(t, err)
	c2, err := Build(program2)
	require.NoError(t, err)

	require.Equal(t, c1.Instructions, c2.Instructions)
	require.Equal(t, c1.Constants, c2.Constants)
	require.Equal(t, c1.Names, c2.Names)
	require.Equal(t, c1.Scopes, c2.Scopes)
}

func TestBuild_JumpTargetsAreWellFormed(t *testing.T) {
	source := `
		let i = 0;
		while i < 3 {
			if i == 1 { break; } else { continue; }
			i = i + 1;
		}
	`
	program, err := parser.Parse(source)
	require.NoError(t, err)
	c, err := Build(program)
	require.NoError(t, err)

	n := len(c.Instructions)
	for _, instr := range c.Instructions {
		switch instr.Op {
		case code.Jump, code.JumpFalse:
			require.GreaterOrEqual(t, instr.Operand, 0)
			require.LessOrEqual(t, instr.Operand, n)
		case code.JumpIfElse, code.Label:
			hi, lo := code.Unpack(instr.Operand)
			require.GreaterOrEqual(t, hi, 0)
			require.LessOrEqual(t, hi, n)
			require.GreaterOrEqual(t, lo, 0)
			require.LessOrEqual(t, lo, n)
		}
	}
}

func TestBuild_ScopeBoundariesAreOrdered(t *testing.T) {
	source := `fn square(n) { return n * n; } fn cube(n) { return n * n * n; }`
	program, err := parser.Parse(source)
	require.NoError(t, err)
	c, err := Build(program)
	require.NoError(t, err)

	require.Len(t, c.Scopes, 3) // top-level + two functions
	for _, s := range c.Scopes {
		require.Less(t, s.Start, s.End)
		last := c.Instructions[s.End-1]
		require.Equal(t, code.Return, last.Op)
	}
}

func TestCompileStatement_BreakOutsideLoopIsRejected(t *testing.T) {
	c := New()
	err := c.compileStatement(&ast.BreakStatement{})
	require.Error(t, err)
}

func TestCompileStatement_ContinueOutsideLoopIsRejected(t *testing.T) {
	c := New()
	err := c.compileStatement(&ast.ContinueStatement{})
	require.Error(t, err)
}

func TestCompileFunctionLike_TrailingReturnIsInserted(t *testing.T) {
	source := `fn noop() { let x = 1; }`
	program, err := parser.Parse(source)
	require.NoError(t, err)
	c, err := Build(program)
	require.NoError(t, err)

	scope := c.Scopes[1]
	last := c.Instructions[scope.End-1]
	require.Equal(t, code.Return, last.Op)
	secondToLast := c.Instructions[scope.End-2]
	require.Equal(t, code.Constant, secondToLast.Op)
}
