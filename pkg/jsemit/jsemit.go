// Package jsemit renders a tonic AST as textual JavaScript (§4.6). It is a
// surface contract only: the emitted string is handed to an external JS
// engine, never executed by this module.
//
// The original implementation built output through a fluent Builder type
// (one method call per statement or sub-expression); Go has no equivalent
// idiom for that, so Emit walks the tree directly into a strings.Builder,
// producing the same surface syntax without the intermediate object graph.
package jsemit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kristofer/tonic/pkg/ast"
)

// Emit renders program as a JavaScript source string, and separately lists
// every Use module named in the program in source order (§6 "compile").
func Emit(program *ast.Program) (js string, imports []string) {
	var b strings.Builder
	var e emitter
	for _, stmt := range program.Statements {
		e.statement(&b, stmt)
	}
	return b.String(), e.imports
}

type emitter struct {
	imports []string
}

func (e *emitter) statement(b *strings.Builder, stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		b.WriteString("let ")
		b.WriteString(s.Name)
		b.WriteString(" = ")
		e.expression(b, s.Initial)
		b.WriteString(";")

	case *ast.FunctionStatement:
		b.WriteString("function ")
		b.WriteString(s.Name)
		b.WriteString("(")
		writeParams(b, s.Parameters)
		b.WriteString(") {")
		e.block(b, s.Body)
		b.WriteString("}")

	case *ast.IfStatement:
		b.WriteString("if (")
		e.expression(b, s.Condition)
		b.WriteString(") {")
		e.block(b, s.Then)
		b.WriteString("}")
		if s.Otherwise != nil {
			b.WriteString(" else {")
			e.block(b, s.Otherwise)
			b.WriteString("}")
		}

	case *ast.WhileStatement:
		b.WriteString("while (")
		e.expression(b, s.Condition)
		b.WriteString(") {")
		e.block(b, s.Body)
		b.WriteString("}")

	case *ast.ReturnStatement:
		b.WriteString("return ")
		e.expression(b, s.Value)
		b.WriteString(";")

	case *ast.BreakStatement:
		b.WriteString("break;")

	case *ast.ContinueStatement:
		b.WriteString("continue;")

	case *ast.ExpressionStatement:
		e.expression(b, s.Expression)
		b.WriteString(";")

	case *ast.UseStatement:
		e.imports = append(e.imports, s.Module)

	case *ast.PubStatement:
		e.statement(b, s.Inner)

	default:
		panic(fmt.Sprintf("jsemit: unhandled statement %T", stmt))
	}
}

func (e *emitter) block(b *strings.Builder, stmts []ast.Statement) {
	for _, s := range stmts {
		e.statement(b, s)
	}
}

func (e *emitter) expression(b *strings.Builder, expr ast.Expression) {
	switch v := expr.(type) {
	case *ast.StringLiteral:
		b.WriteString(strconv.Quote(v.Value))

	case *ast.NumberLiteral:
		b.WriteString(formatNumber(v.Value))

	case *ast.BoolLiteral:
		b.WriteString(strconv.FormatBool(v.Value))

	case *ast.NullLiteral:
		b.WriteString("null")

	case *ast.ArrayLiteral:
		b.WriteString("[")
		for i, item := range v.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			e.expression(b, item)
		}
		b.WriteString("]")

	case *ast.Identifier:
		b.WriteString(v.Name)

	case *ast.PrefixExpression:
		b.WriteString(v.Op.String())
		e.expression(b, v.Right)

	case *ast.InfixExpression:
		e.expression(b, v.Left)
		b.WriteString(" ")
		b.WriteString(jsOperator(v.Op))
		b.WriteString(" ")
		e.expression(b, v.Right)

	case *ast.CallExpression:
		e.expression(b, v.Callee)
		b.WriteString("(")
		for i, arg := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			e.expression(b, arg)
		}
		b.WriteString(")")

	case *ast.AssignExpression:
		e.assign(b, v)

	case *ast.IndexExpression:
		e.expression(b, v.Array)
		b.WriteString("[")
		if v.Index != nil {
			e.expression(b, v.Index)
		}
		b.WriteString("]")

	case *ast.DotExpression:
		e.expression(b, v.Object)
		b.WriteString(".")
		b.WriteString(v.Property)

	case *ast.ClosureExpression:
		b.WriteString("(")
		writeParams(b, v.Parameters)
		b.WriteString(") => {")
		e.block(b, v.Body)
		b.WriteString("}")

	default:
		panic(fmt.Sprintf("jsemit: unhandled expression %T", expr))
	}
}

// assign handles the append form specially: `a[] = v` has no direct JS
// equivalent, so it lowers to `a[a.length] = v`.
func (e *emitter) assign(b *strings.Builder, a *ast.AssignExpression) {
	if idx, ok := a.Target.(*ast.IndexExpression); ok && idx.Index == nil {
		e.expression(b, idx.Array)
		b.WriteString("[")
		e.expression(b, idx.Array)
		b.WriteString(".length] = ")
		e.expression(b, a.Value)
		return
	}

	e.expression(b, a.Target)
	b.WriteString(" = ")
	e.expression(b, a.Value)
}

func writeParams(b *strings.Builder, params []ast.Parameter) {
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
	}
}

func jsOperator(op ast.Op) string {
	switch op {
	case ast.OpEquals:
		return "==="
	case ast.OpNotEquals:
		return "!=="
	default:
		return op.String()
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
