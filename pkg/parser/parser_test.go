package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tonic/pkg/ast"
)

func TestParse_LetStatement(t *testing.T) {
	program, err := Parse(`let x = 1 + 2 * 3;`)
	require.NoError(t, err)
	require.Len(t, program.Statements, 1)

	let, ok := program.Statements[0].(*ast.LetStatement)
	require.True(t, ok)
	require.Equal(t, "x", let.Name)

	infix, ok := let.Initial.(*ast.InfixExpression)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, infix.Op)
}

func TestParse_AssignIsRightAssociative(t *testing.T) {
	program, err := Parse(`a = b = 1;`)
	require.NoError(t, err)
	require.Len(t, program.Statements, 1)

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	outer := stmt.Expression.(*ast.AssignExpression)
	require.Equal(t, "a", outer.Target.(*ast.Identifier).Name)

	inner, ok := outer.Value.(*ast.AssignExpression)
	require.True(t, ok, "a = b = 1 should nest as a = (b = 1)")
	require.Equal(t, "b", inner.Target.(*ast.Identifier).Name)
}

func TestParse_AppendFormIndex(t *testing.T) {
	program, err := Parse(`a[] = 30;`)
	require.NoError(t, err)

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	assign := stmt.Expression.(*ast.AssignExpression)
	idx := assign.Target.(*ast.IndexExpression)
	require.Nil(t, idx.Index)
}

func TestParse_FunctionAtTopLevel(t *testing.T) {
	program, err := Parse(`fn square(n) { return n * n; }`)
	require.NoError(t, err)

	fn, ok := program.Statements[0].(*ast.FunctionStatement)
	require.True(t, ok)
	require.Equal(t, "square", fn.Name)
	require.Len(t, fn.Parameters, 1)
}

func TestParse_NestedFunctionDefinitionIsRejected(t *testing.T) {
	_, err := Parse(`if true { fn inner() { return 1; } }`)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrNestedFunctionDefinition, pe.Kind)
}

func TestParse_BreakOutsideLoopIsRejected(t *testing.T) {
	_, err := Parse(`break;`)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrInvalidBreakableScope, pe.Kind)
}

func TestParse_ContinueOutsideLoopIsRejected(t *testing.T) {
	_, err := Parse(`continue;`)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrInvalidContinuableScope, pe.Kind)
}

func TestParse_BreakContinueValidInsideWhile(t *testing.T) {
	_, err := Parse(`while true { break; continue; }`)
	require.NoError(t, err)
}

func TestParse_ElseIfChainsAsNestedIf(t *testing.T) {
	program, err := Parse(`if a { } else if b { } else { }`)
	require.NoError(t, err)

	top := program.Statements[0].(*ast.IfStatement)
	require.Len(t, top.Otherwise, 1)

	chained, ok := top.Otherwise[0].(*ast.IfStatement)
	require.True(t, ok)
	require.NotNil(t, chained.Otherwise)
}

func TestParse_ClosureArrowForm(t *testing.T) {
	program, err := Parse(`let double = fn(n) => n * 2;`)
	require.NoError(t, err)

	let := program.Statements[0].(*ast.LetStatement)
	closure, ok := let.Initial.(*ast.ClosureExpression)
	require.True(t, ok)
	require.Len(t, closure.Body, 1)
	_, ok = closure.Body[0].(*ast.ReturnStatement)
	require.True(t, ok)
}

func TestParse_ReturnDefaultsToNull(t *testing.T) {
	program, err := Parse(`fn f() { return; }`)
	require.NoError(t, err)

	fn := program.Statements[0].(*ast.FunctionStatement)
	ret := fn.Body[0].(*ast.ReturnStatement)
	_, ok := ret.Value.(*ast.NullLiteral)
	require.True(t, ok)
}

func TestParse_DotDesugarsToPropertyName(t *testing.T) {
	program, err := Parse(`a.length;`)
	require.NoError(t, err)

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	dot := stmt.Expression.(*ast.DotExpression)
	require.Equal(t, "length", dot.Property)
}

func TestParse_ExpectedIdentifierReportsSpanWithinSource(t *testing.T) {
	source := `let = 1;`
	_, err := Parse(source)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrExpectedIdentifier, pe.Kind)
	require.GreaterOrEqual(t, pe.Span.Start, 0)
	require.LessOrEqual(t, pe.Span.End, len(source))
}
