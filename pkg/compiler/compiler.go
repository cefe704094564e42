// Package compiler lowers a tonic AST into bytecode (§4.4): a flat
// instruction stream threaded through multiple Scopes, with every jump
// target back-patched before Compile returns.
//
// Function bodies compile inline into the same instruction stream a
// Label instruction steps over during straight-line execution, so a call
// only ever has to jump to a fixed scope start rather than thread through a
// side table of function bodies.
package compiler

import (
	"fmt"

	"github.com/kristofer/tonic/pkg/ast"
	"github.com/kristofer/tonic/pkg/code"
	"github.com/kristofer/tonic/pkg/value"
)

// Error is returned for a compile-time failure (an unmatched break/continue,
// or an unsupported assignment target). Unlike parse errors, these are
// structural and have no source span to report.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Compiler accumulates instructions, pools, and scopes for one program.
type Compiler struct {
	instructions []code.Instruction
	constants    []value.Value
	names        []string
	scopes       []code.Scope

	// breakTargets and continueTargets each hold one slice per enclosing
	// While, collecting the instruction indices of pending Jump
	// placeholders emitted by Break/Continue until the loop closes and
	// the real targets are known.
	breakTargets    [][]int
	continueTargets [][]int
}

// New returns a Compiler with scope 0 reserved for the top-level program.
func New() *Compiler {
	return &Compiler{scopes: []code.Scope{{Start: 0}}}
}

// Build compiles program in one call, the common entry point for callers
// that don't need to reuse a Compiler.
func Build(program *ast.Program) (*code.Code, error) {
	return New().Compile(program)
}

// Compile lowers program's statements into scope 0 and returns the finished
// Code. Compile is pure: the same program always yields byte-identical
// output (§8 "Compilation determinism").
func (c *Compiler) Compile(program *ast.Program) (*code.Code, error) {
	for _, stmt := range program.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	c.scopes[0].End = len(c.instructions)

	return &code.Code{
		Instructions: c.instructions,
		Constants:    c.constants,
		Names:        c.names,
		Scopes:       c.scopes,
	}, nil
}

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		if err := c.compileExpression(s.Initial); err != nil {
			return err
		}
		c.emit(code.Set, c.addName(s.Name))
		return nil

	case *ast.FunctionStatement:
		scopeIndex, err := c.compileFunctionLike(s.Parameters, s.Body)
		if err != nil {
			return err
		}
		c.emit(code.Closure, scopeIndex)
		c.emit(code.Set, c.addName(s.Name))
		return nil

	case *ast.IfStatement:
		return c.compileIf(s)

	case *ast.WhileStatement:
		return c.compileWhile(s)

	case *ast.ReturnStatement:
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.emit(code.Return, 0)
		return nil

	case *ast.BreakStatement:
		if len(c.breakTargets) == 0 {
			return &Error{Message: "break outside of a while loop"}
		}
		ip := c.emit(code.Jump, 0)
		top := len(c.breakTargets) - 1
		c.breakTargets[top] = append(c.breakTargets[top], ip)
		return nil

	case *ast.ContinueStatement:
		if len(c.continueTargets) == 0 {
			return &Error{Message: "continue outside of a while loop"}
		}
		ip := c.emit(code.Jump, 0)
		top := len(c.continueTargets) - 1
		c.continueTargets[top] = append(c.continueTargets[top], ip)
		return nil

	case *ast.ExpressionStatement:
		// The resulting value is left on the stack; a bare expression
		// statement never emits Pop (§4.4).
		return c.compileExpression(s.Expression)

	case *ast.UseStatement:
		// Use only matters to the JS emitter's import list; the VM path
		// has nothing to execute for it.
		return nil

	case *ast.PubStatement:
		return c.compileStatement(s.Inner)

	default:
		return &Error{Message: fmt.Sprintf("compiler: unhandled statement %T", stmt)}
	}
}

// compileFunctionLike emits the shared machinery behind a FunctionStatement
// and a ClosureExpression: a Label that steps over the inlined body during
// straight-line execution, a fresh Scope, reversed parameter binding, and a
// guaranteed trailing Return. It returns the new scope's index; the caller
// decides whether to bind it to a name.
func (c *Compiler) compileFunctionLike(params []ast.Parameter, body []ast.Statement) (int, error) {
	labelIP := c.emit(code.Label, 0)

	scopeIndex := len(c.scopes)
	start := len(c.instructions)
	c.scopes = append(c.scopes, code.Scope{Start: start})

	// Parameters are reversed before binding: the caller pushed them in
	// source order, the VM pops them in reverse, so binding them in
	// reverse order restores the correct name-to-value mapping (§9
	// "Parameter reversal").
	for i := len(params) - 1; i >= 0; i-- {
		c.emit(code.Set, c.addName(params[i].Name))
	}

	for _, stmt := range body {
		if err := c.compileStatement(stmt); err != nil {
			return 0, err
		}
	}

	if len(c.instructions) == start || c.instructions[len(c.instructions)-1].Op != code.Return {
		c.emit(code.Constant, c.addConstant(value.Null()))
		c.emit(code.Return, 0)
	}

	end := len(c.instructions)
	c.scopes[scopeIndex].End = end
	c.instructions[labelIP].Operand = code.Pack(0, end)

	return scopeIndex, nil
}

func (c *Compiler) compileIf(s *ast.IfStatement) error {
	if err := c.compileExpression(s.Condition); err != nil {
		return err
	}

	branchIP := c.emit(code.JumpIfElse, 0)
	thenStart := len(c.instructions)

	for _, stmt := range s.Then {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}

	toEndFromThen := c.emit(code.Jump, 0)
	elseStart := len(c.instructions)
	c.instructions[branchIP].Operand = code.Pack(thenStart, elseStart)

	for _, stmt := range s.Otherwise {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}

	toEndFromElse := c.emit(code.Jump, 0)
	end := len(c.instructions)
	c.instructions[toEndFromThen].Operand = end
	c.instructions[toEndFromElse].Operand = end

	return nil
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) error {
	pre := len(c.instructions)

	if err := c.compileExpression(s.Condition); err != nil {
		return err
	}
	exitIP := c.emit(code.JumpFalse, 0)

	c.breakTargets = append(c.breakTargets, nil)
	c.continueTargets = append(c.continueTargets, nil)

	for _, stmt := range s.Body {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}

	c.emit(code.Jump, pre)
	after := len(c.instructions)
	c.instructions[exitIP].Operand = after

	breaks := c.breakTargets[len(c.breakTargets)-1]
	c.breakTargets = c.breakTargets[:len(c.breakTargets)-1]
	for _, ip := range breaks {
		c.instructions[ip].Operand = after
	}

	continues := c.continueTargets[len(c.continueTargets)-1]
	c.continueTargets = c.continueTargets[:len(c.continueTargets)-1]
	for _, ip := range continues {
		c.instructions[ip].Operand = pre
	}

	return nil
}

func (c *Compiler) compileExpression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.StringLiteral:
		c.emit(code.Constant, c.addConstant(value.String(e.Value)))
		return nil

	case *ast.NumberLiteral:
		c.emit(code.Constant, c.addConstant(value.Number(e.Value)))
		return nil

	case *ast.BoolLiteral:
		c.emit(code.Constant, c.addConstant(value.Bool(e.Value)))
		return nil

	case *ast.NullLiteral:
		c.emit(code.Constant, c.addConstant(value.Null()))
		return nil

	case *ast.Identifier:
		c.emit(code.Get, c.addName(e.Name))
		return nil

	case *ast.ArrayLiteral:
		for _, item := range e.Items {
			if err := c.compileExpression(item); err != nil {
				return err
			}
		}
		c.emit(code.Array, len(e.Items))
		return nil

	case *ast.PrefixExpression:
		// The grammar only produces unary `-`; lower it as `0 - right` so
		// the VM needs no dedicated unary opcode.
		c.emit(code.Constant, c.addConstant(value.Number(0)))
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.emit(code.BinaryOp, int(ast.OpSubtract))
		return nil

	case *ast.InfixExpression:
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.emit(code.BinaryOp, int(e.Op))
		return nil

	case *ast.CallExpression:
		if err := c.compileExpression(e.Callee); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := c.compileExpression(arg); err != nil {
				return err
			}
		}
		c.emit(code.Call, len(e.Args))
		return nil

	case *ast.IndexExpression:
		if e.Index == nil {
			return &Error{Message: "array[] is only valid as an assignment target"}
		}
		if err := c.compileExpression(e.Array); err != nil {
			return err
		}
		if err := c.compileExpression(e.Index); err != nil {
			return err
		}
		c.emit(code.GetProperty, 0)
		return nil

	case *ast.DotExpression:
		if err := c.compileExpression(e.Object); err != nil {
			return err
		}
		c.emit(code.Constant, c.addConstant(value.String(e.Property)))
		c.emit(code.GetProperty, 0)
		return nil

	case *ast.ClosureExpression:
		scopeIndex, err := c.compileFunctionLike(e.Parameters, e.Body)
		if err != nil {
			return err
		}
		c.emit(code.Closure, scopeIndex)
		return nil

	case *ast.AssignExpression:
		return c.compileAssign(e)

	default:
		return &Error{Message: fmt.Sprintf("compiler: unhandled expression %T", expr)}
	}
}

func (c *Compiler) compileAssign(e *ast.AssignExpression) error {
	if err := c.compileExpression(e.Value); err != nil {
		return err
	}

	switch target := e.Target.(type) {
	case *ast.Identifier:
		c.emit(code.Set, c.addName(target.Name))
		return nil

	case *ast.IndexExpression:
		if err := c.compileExpression(target.Array); err != nil {
			return err
		}
		if target.Index == nil {
			c.emit(code.Append, 0)
			return nil
		}
		if err := c.compileExpression(target.Index); err != nil {
			return err
		}
		c.emit(code.SetProperty, 0)
		return nil

	default:
		return &Error{Message: fmt.Sprintf("compiler: invalid assignment target %T", e.Target)}
	}
}

// emit appends an instruction and returns its index.
func (c *Compiler) emit(op code.Opcode, operand int) int {
	c.instructions = append(c.instructions, code.Instruction{Op: op, Operand: operand})
	return len(c.instructions) - 1
}

// addConstant interns v in the constant pool and returns its index.
func (c *Compiler) addConstant(v value.Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// addName interns name in the name pool and returns its index.
func (c *Compiler) addName(name string) int {
	c.names = append(c.names, name)
	return len(c.names) - 1
}
