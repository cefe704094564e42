// Package diagnostic renders lex/parse/compile/runtime errors for a
// terminal, the driver's one piece of presentation logic (§6 "external
// collaborator: diagnostics renderer"). It colorizes error kinds with
// fatih/color and, where the error carries a byte span, prints the source
// line with a caret under the offending text — the excerpt-and-caret idea
// the original Rust driver got from the `ariadne` crate, hand-rendered here
// since no Go crate in the retrieval pack plays that role.
package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/kristofer/tonic/pkg/compiler"
	"github.com/kristofer/tonic/pkg/lexer"
	"github.com/kristofer/tonic/pkg/parser"
	"github.com/kristofer/tonic/pkg/vmerr"
)

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	location   = color.New(color.FgCyan)
	caretColor = color.New(color.FgYellow, color.Bold)
	traceColor = color.New(color.FgHiBlack)
)

// Writer wraps f (typically os.Stderr) so color sequences render correctly
// on Windows consoles and are stripped automatically when f isn't a
// terminal (e.g. output piped to a file).
func Writer(f *os.File) io.Writer {
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		color.NoColor = true
	}
	return colorable.NewColorable(f)
}

// Render prints a single diagnostic for err against source to w. It
// recognizes the four pipeline error types this module produces; any other
// error is printed as a plain message with no excerpt.
func Render(w io.Writer, source string, err error) {
	switch e := err.(type) {
	case *lexer.LexError:
		renderHeader(w, "lex error", fmt.Sprintf("unexpected character %q", e.Char))
		renderExcerpt(w, source, e.Line, e.Span)
	case *parser.ParseError:
		renderHeader(w, fmt.Sprintf("parse error [E%02d]", e.Code()), e.Error())
		renderExcerpt(w, source, e.Line, e.Span)
	case *compiler.Error:
		renderHeader(w, "compile error", e.Message)
	case *vmerr.RuntimeError:
		renderHeader(w, "runtime error", e.Message)
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			frame := e.StackTrace[i]
			traceColor.Fprintf(w, "  at %s [IP: %d]\n", frame.Name, frame.IP)
		}
	default:
		renderHeader(w, "error", err.Error())
	}
}

func renderHeader(w io.Writer, kind, message string) {
	errorLabel.Fprintf(w, "%s: ", kind)
	fmt.Fprintln(w, message)
}

// renderExcerpt prints the offending source line followed by a caret line
// underlining span's byte range, translated to a column on that line.
func renderExcerpt(w io.Writer, source string, line int, span lexer.Span) {
	text := lineAt(source, line)
	if text == "" {
		return
	}
	location.Fprintf(w, "  %d | ", line)
	fmt.Fprintln(w, text)

	col, width := columnOf(source, line, span)
	pad := strings.Repeat(" ", len(fmt.Sprintf("  %d | ", line))+col)
	caretColor.Fprintf(w, "%s%s\n", pad, strings.Repeat("^", width))
}

// lineAt returns the 1-indexed line's text without its terminator.
func lineAt(source string, line int) string {
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// columnOf translates span's absolute byte offset into a 0-indexed column
// on the given line, plus the span's width (at least 1).
func columnOf(source string, line int, span lexer.Span) (col, width int) {
	lineStart := 0
	seen := 0
	for i := 0; i < len(source); i++ {
		if seen == line-1 {
			lineStart = i
			break
		}
		if source[i] == '\n' {
			seen++
		}
	}
	col = span.Start - lineStart
	if col < 0 {
		col = 0
	}
	width = span.End - span.Start
	if width < 1 {
		width = 1
	}
	return col, width
}
