package jsemit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tonic/pkg/parser"
)

func emitSource(t *testing.T, source string) (string, []string) {
	t.Helper()
	program, err := parser.Parse(source)
	require.NoError(t, err)
	return Emit(program)
}

func TestEmit_Let(t *testing.T) {
	js, _ := emitSource(t, `let x = 1 + 2;`)
	require.Equal(t, "let x = 1 + 2;", js)
}

func TestEmit_Function(t *testing.T) {
	js, _ := emitSource(t, `fn square(n) { return n * n; }`)
	require.Equal(t, "function square(n) {return n * n;}", js)
}

func TestEmit_IfElseUsesStrictEquality(t *testing.T) {
	js, _ := emitSource(t, `if a == b { } else { }`)
	require.Equal(t, "if (a === b) {} else {}", js)
}

func TestEmit_AppendFormLowersToLengthIndex(t *testing.T) {
	js, _ := emitSource(t, `a[] = 30;`)
	require.Equal(t, "a[a.length] = 30;", js)
}

func TestEmit_ClosureAsArrowFunction(t *testing.T) {
	js, _ := emitSource(t, `let double = fn(n) => n * 2;`)
	require.Equal(t, "let double = (n) => {return n * 2;};", js)
}

func TestEmit_UseCollectsImportsInSourceOrder(t *testing.T) {
	_, imports := emitSource(t, `use "@std/io"; use "./util";`)
	require.Equal(t, []string{"@std/io", "./util"}, imports)
}

func TestEmit_WhileBreakContinue(t *testing.T) {
	js, _ := emitSource(t, `while true { break; continue; }`)
	require.Equal(t, "while (true) {break;continue;}", js)
}
