package pass

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tonic/pkg/ast"
)

func TestHoist_FunctionsPrecedeOthersPreservingOrder(t *testing.T) {
	let1 := &ast.LetStatement{Name: "a"}
	fn1 := &ast.FunctionStatement{Name: "f"}
	let2 := &ast.LetStatement{Name: "b"}
	fn2 := &ast.FunctionStatement{Name: "g"}

	program := &ast.Program{Statements: []ast.Statement{let1, fn1, let2, fn2}}
	Hoist(program)

	require.Equal(t, []ast.Statement{fn1, fn2, let1, let2}, program.Statements)
}

func TestHoist_PubUsePrecedeOthersPreservingOrder(t *testing.T) {
	use1 := &ast.UseStatement{Module: "a"}
	let1 := &ast.LetStatement{Name: "x"}
	pub1 := &ast.PubStatement{Inner: &ast.LetStatement{Name: "y"}}
	let2 := &ast.LetStatement{Name: "z"}

	program := &ast.Program{Statements: []ast.Statement{let1, use1, let2, pub1}}
	Hoist(program)

	require.Equal(t, []ast.Statement{use1, pub1, let1, let2}, program.Statements)
}

func TestHoist_IsIdempotent(t *testing.T) {
	fn := &ast.FunctionStatement{Name: "f"}
	let := &ast.LetStatement{Name: "a"}
	use := &ast.UseStatement{Module: "m"}

	program := &ast.Program{Statements: []ast.Statement{let, fn, use}}
	Hoist(program)
	first := append([]ast.Statement{}, program.Statements...)

	Hoist(program)
	require.Equal(t, first, program.Statements)
}
