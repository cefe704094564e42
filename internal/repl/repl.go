// Package repl implements tonic's interactive Read-Eval-Print Loop (§6
// "absent [source file] -> REPL mode reading lines and eval-ing them"),
// built on chzyer/readline for history and line editing the way the
// retrieval pack's go-mix REPL is.
//
// Each accepted line is appended to a growing source buffer and the whole
// buffer is re-lexed, re-parsed, re-hoisted, re-compiled, and re-run from
// scratch against a fresh VM on every Enter. Tonic's core has no
// incremental-compilation story, and re-running the accumulated buffer is
// the simplest reading of "eval-ing them" that doesn't invent one.
package repl

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/kristofer/tonic/internal/diagnostic"
	"github.com/kristofer/tonic/pkg/compiler"
	"github.com/kristofer/tonic/pkg/parser"
	"github.com/kristofer/tonic/pkg/pass"
	"github.com/kristofer/tonic/pkg/stdlib"
	"github.com/kristofer/tonic/pkg/vm"
)

var (
	promptColor = color.New(color.FgGreen, color.Bold)
	byeColor    = color.New(color.FgCyan)
)

// REPL holds the accumulated source buffer across lines of one session.
type REPL struct {
	Prompt         string
	ContinuePrompt string
	buffer         strings.Builder
	stdlibOpts     stdlib.Options
}

// New returns a REPL ready to Run, writing host-runtime output (println,
// etc.) to out.
func New(out io.Writer) *REPL {
	return &REPL{
		Prompt:         "tonic> ",
		ContinuePrompt: "   ...> ",
		stdlibOpts:     stdlib.Options{File: "<repl>", Dir: ".", Stdout: out},
	}
}

// Run drives the loop until EOF (Ctrl+D) or a ".exit" line, reading from
// the terminal and writing prompts/results/diagnostics to w.
func (r *REPL) Run(w io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          r.Prompt,
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	promptColor.Fprintln(w, "tonic REPL — Ctrl+D or .exit to quit")

	for {
		line, err := rl.Readline()
		if err != nil {
			byeColor.Fprintln(w, "\nbye")
			return nil
		}

		if strings.TrimSpace(line) == ".exit" {
			byeColor.Fprintln(w, "bye")
			return nil
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		r.buffer.WriteString(line)
		r.buffer.WriteString("\n")

		if unbalanced(r.buffer.String()) {
			rl.SetPrompt(r.ContinuePrompt)
			continue
		}
		rl.SetPrompt(r.Prompt)

		r.eval(w)
	}
}

// eval compiles and runs the accumulated buffer, printing a diagnostic and
// rolling the buffer back to empty on any pipeline failure so one bad
// statement doesn't poison every later line.
func (r *REPL) eval(w io.Writer) {
	source := r.buffer.String()

	program, err := parser.Parse(source)
	if err != nil {
		diagnostic.Render(w, source, err)
		r.buffer.Reset()
		return
	}
	pass.Hoist(program)

	code, err := compiler.Build(program)
	if err != nil {
		diagnostic.Render(w, source, err)
		r.buffer.Reset()
		return
	}

	m := vm.New(code)
	stdlib.Register(m, r.stdlibOpts)
	if err := m.Run(); err != nil {
		diagnostic.Render(w, source, err)
		r.buffer.Reset()
	}
}

// unbalanced reports whether source has more opening braces than closing
// ones, i.e. a block is still open and the REPL should keep reading lines
// rather than attempt to compile a truncated program.
func unbalanced(source string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '"':
			if i == 0 || source[i-1] != '\\' {
				inString = !inString
			}
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}
	return depth > 0
}
