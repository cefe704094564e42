// Command tonic is the CLI driver for the tonic language (§6 "CLI
// surface"): the external collaborator that turns a source file (or
// stdin, via the REPL) into VM execution, wiring the core pipeline to
// pkg/stdlib's host runtime and internal/diagnostic's error rendering.
//
// Flags and dispatch follow §6 literally: -d/--debug prints the
// AST-derived JavaScript and instruction-count stats alongside normal
// execution; -r/--raw executes the file as JavaScript, bypassing the
// compiler entirely; -v/--version prints the version and exits; a missing
// positional file argument drops into the REPL. Subcommands (run, repl,
// compile, disasm) offer the same operations more explicitly, the way the
// teacher's own cmd/smog/main.go exposes "run"/"repl"/"compile"/
// "disassemble" verbs alongside its bare-file shorthand.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kristofer/tonic/internal/diagnostic"
	"github.com/kristofer/tonic/internal/repl"
	"github.com/kristofer/tonic/pkg/code"
	"github.com/kristofer/tonic/pkg/compiler"
	"github.com/kristofer/tonic/pkg/jsemit"
	"github.com/kristofer/tonic/pkg/parser"
	"github.com/kristofer/tonic/pkg/pass"
	"github.com/kristofer/tonic/pkg/stdlib"
	"github.com/kristofer/tonic/pkg/vm"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug, raw, showVersion bool

	root := &cobra.Command{
		Use:           "tonic [file]",
		Short:         "tonic - a small dynamically-typed scripting language",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "tonic version %s\n", version)
				return nil
			}
			if len(args) == 0 {
				return runREPL(cmd)
			}
			return runFile(cmd, args[0], debug, raw)
		},
	}

	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "print intermediate JS and instruction stats")
	root.PersistentFlags().BoolVarP(&raw, "raw", "r", false, "execute the file as JavaScript, bypassing the compiler")
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "print the version and exit")

	root.AddCommand(
		newRunCmd(&debug, &raw),
		newReplCmd(),
		newCompileCmd(),
		newDisasmCmd(),
	)
	return root
}

func newRunCmd(debug, raw *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "run a tonic source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, args[0], *debug, *raw)
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "start the interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd)
		},
	}
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <file>",
		Short: "emit the JavaScript translation of a tonic source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			js, imports, err := compileToJS(string(source))
			if err != nil {
				diagnostic.Render(cmd.ErrOrStderr(), string(source), err)
				return err
			}
			for _, mod := range imports {
				fmt.Fprintf(cmd.ErrOrStderr(), "// use %q\n", mod)
			}
			fmt.Fprintln(cmd.OutOrStdout(), js)
			return nil
		},
	}
}

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file>",
		Short: "print the compiled bytecode for a tonic source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, err := buildCode(string(source))
			if err != nil {
				diagnostic.Render(cmd.ErrOrStderr(), string(source), err)
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), c.Disassemble())
			return nil
		},
	}
}

// runFile executes a tonic source file, optionally bypassing the compiler
// (-r/--raw) or printing the generated JS and instruction stats alongside
// execution (-d/--debug), per §6.
func runFile(cmd *cobra.Command, path string, debug, raw bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if raw {
		return runRawJS(cmd, path)
	}

	program, err := parser.Parse(string(source))
	if err != nil {
		diagnostic.Render(cmd.ErrOrStderr(), string(source), err)
		return err
	}
	pass.Hoist(program)

	if debug {
		js, imports := jsemit.Emit(program)
		fmt.Fprintln(cmd.ErrOrStderr(), "--- debug: generated JavaScript ---")
		fmt.Fprintln(cmd.ErrOrStderr(), js)
		fmt.Fprintf(cmd.ErrOrStderr(), "--- debug: %d use import(s) ---\n", len(imports))
	}

	c, err := compiler.Build(program)
	if err != nil {
		diagnostic.Render(cmd.ErrOrStderr(), string(source), err)
		return err
	}

	if debug {
		fmt.Fprintf(cmd.ErrOrStderr(), "--- debug: %d instructions, %d scopes, %d constants ---\n",
			len(c.Instructions), len(c.Scopes), len(c.Constants))
	}

	m := vm.New(c)
	abs, _ := filepath.Abs(path)
	stdlib.Register(m, stdlib.Options{
		File:   abs,
		Dir:    filepath.Dir(abs),
		Stdout: cmd.OutOrStdout(),
	})

	if err := m.Run(); err != nil {
		diagnostic.Render(cmd.ErrOrStderr(), string(source), err)
		return err
	}
	return nil
}

// runRawJS executes path directly as JavaScript via an external `node`
// binary, bypassing tonic's own compiler entirely (§6 "-r/--raw"). The JS
// engine itself is explicitly an external collaborator (§1), so the driver
// shells out rather than embedding one.
func runRawJS(cmd *cobra.Command, path string) error {
	nodeExec, err := exec.LookPath("node")
	if err != nil {
		return fmt.Errorf("--raw requires a `node` binary on PATH: %w", err)
	}
	c := exec.Command(nodeExec, path)
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	return c.Run()
}

func runREPL(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	r := repl.New(out)
	return r.Run(out)
}

// compileToJS runs the public-API sequence named by §6's `compile`
// operation: parse, hoist, emit JS.
func compileToJS(source string) (js string, imports []string, err error) {
	program, err := parser.Parse(source)
	if err != nil {
		return "", nil, err
	}
	pass.Hoist(program)
	js, imports = jsemit.Emit(program)
	return js, imports, nil
}

func buildCode(source string) (*code.Code, error) {
	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	pass.Hoist(program)
	return compiler.Build(program)
}
