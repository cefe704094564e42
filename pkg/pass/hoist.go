// Package pass implements tonic's semantic AST rewrites: the single
// hoisting pass applied to a parsed program before compilation (§4.3).
//
// Both steps are stable partitions — grounded on the original
// implementation's `sort_unstable_by` comparator
// (original_source/crates/tonic-parser/src/passes/mod.rs), which never
// returns "greater", only "less" or "equal". That is exactly a stable
// partition, not a general sort, so Hoist implements it directly as one
// rather than reaching for sort.SliceStable with a lopsided comparator.
package pass

import "github.com/kristofer/tonic/pkg/ast"

// Hoist reorders program so that all Function declarations precede all
// other statements (preserving relative order within each group), then
// reorders so that all Pub/Use statements precede the rest (again
// preserving relative order within each group). Both steps are idempotent
// and never rename or restructure individual statements (§8 "Hoisting
// stability").
func Hoist(program *ast.Program) {
	program.Statements = hoistFunctions(program.Statements)
	program.Statements = hoistPubUse(program.Statements)
}

func hoistFunctions(stmts []ast.Statement) []ast.Statement {
	return stablePartition(stmts, func(s ast.Statement) bool {
		_, ok := s.(*ast.FunctionStatement)
		return ok
	})
}

func hoistPubUse(stmts []ast.Statement) []ast.Statement {
	return stablePartition(stmts, func(s ast.Statement) bool {
		switch s.(type) {
		case *ast.PubStatement, *ast.UseStatement:
			return true
		default:
			return false
		}
	})
}

// stablePartition returns a new slice with every element for which keep
// returns true moved before every element for which it returns false,
// preserving the relative order within each group.
func stablePartition(stmts []ast.Statement, keep func(ast.Statement) bool) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		if keep(s) {
			out = append(out, s)
		}
	}
	for _, s := range stmts {
		if !keep(s) {
			out = append(out, s)
		}
	}
	return out
}
