package vm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tonic/pkg/compiler"
	"github.com/kristofer/tonic/pkg/parser"
	"github.com/kristofer/tonic/pkg/pass"
	"github.com/kristofer/tonic/pkg/value"
	"github.com/kristofer/tonic/pkg/vm"
)

// run compiles and executes source with a println internal wired to an
// in-memory buffer, mirroring the end-to-end scenarios in §8.
func run(t *testing.T, source string) string {
	t.Helper()

	program, err := parser.Parse(source)
	require.NoError(t, err)

	pass.Hoist(program)

	c, err := compiler.Build(program)
	require.NoError(t, err)

	var out strings.Builder
	m := vm.New(c)
	m.AddFunction("println", func(_ any, args []value.Value) value.Value {
		for _, a := range args {
			out.WriteString(a.Render())
			out.WriteString("\n")
		}
		return value.Null()
	})

	require.NoError(t, m.Run())
	return out.String()
}

func TestScenario_ArithmeticPrecedence(t *testing.T) {
	require.Equal(t, "7\n", run(t, `let x = 1 + 2 * 3; println(x);`))
}

func TestScenario_FunctionCall(t *testing.T) {
	require.Equal(t, "16\n", run(t, `fn square(n) { return n * n; } println(square(4));`))
}

func TestScenario_WhileLoop(t *testing.T) {
	require.Equal(t, "0\n1\n2\n", run(t, `let i = 0; while i < 3 { println(i); i = i + 1; }`))
}

func TestScenario_IfElse(t *testing.T) {
	require.Equal(t, "a\n", run(t, `if 2 > 1 { println("a"); } else { println("b"); }`))
}

func TestScenario_ArrayAppendAndIndex(t *testing.T) {
	require.Equal(t, "40\n", run(t, `let a = [10, 20]; a[] = 30; println(a[0] + a[2]);`))
}

func TestScenario_RecursiveFibonacci(t *testing.T) {
	require.Equal(t, "55\n", run(t, `fn fib(n) { if n < 2 { return n; } return fib(n-1) + fib(n-2); } println(fib(10));`))
}

func TestArrayAliasing(t *testing.T) {
	require.Equal(t, "1\n", run(t, `let a = [0]; let b = a; b[0] = 1; println(a[0]);`))
}

func TestFunctionCallableFromAnyFrame(t *testing.T) {
	out := run(t, `
		fn helper() { return 9; }
		fn wrapper() { return helper() + 1; }
		println(wrapper());
	`)
	require.Equal(t, "10\n", out)
}

func TestStringNumberAddRendersConcatenation(t *testing.T) {
	require.Equal(t, "x = 5\n", run(t, `println("x = " + 5);`))
}

func TestStringRepeatViaMultiply(t *testing.T) {
	require.Equal(t, "haha\n", run(t, `println("ha" * 2);`))
}

func TestBreakExitsLoopEarly(t *testing.T) {
	require.Equal(t, "0\n1\n", run(t, `
		let i = 0;
		while i < 5 {
			if i == 2 { break; }
			println(i);
			i = i + 1;
		}
	`))
}

func TestContinueSkipsRemainderOfBody(t *testing.T) {
	require.Equal(t, "0\n1\n3\n4\n", run(t, `
		let i = 0;
		while i < 5 {
			i = i + 1;
			if i == 3 { continue; }
			println(i - 1);
		}
	`))
}

func TestClosureExpressionIsCallable(t *testing.T) {
	require.Equal(t, "12\n", run(t, `let double = fn(n) => n * 2; println(double(6));`))
}

func TestArrayLengthProperty(t *testing.T) {
	require.Equal(t, "3\n", run(t, `let a = [1, 2, 3]; println(a.length);`))
}
