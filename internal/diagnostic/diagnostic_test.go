package diagnostic

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/tonic/pkg/lexer"
	"github.com/kristofer/tonic/pkg/parser"
	"github.com/kristofer/tonic/pkg/vmerr"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestRender_ParseErrorShowsExcerptAndCaret(t *testing.T) {
	withoutColor(t)
	source := "let 1 = 2;"
	_, err := parser.Parse(source)
	require.Error(t, err)

	var b strings.Builder
	Render(&b, source, err)

	out := b.String()
	require.Contains(t, out, "parse error [E02]")
	require.Contains(t, out, "let 1 = 2;")
	require.Contains(t, out, "^")
}

func TestRender_LexErrorShowsOffendingCharacter(t *testing.T) {
	withoutColor(t)
	source := "let x = 1 $ 2;"
	l := lexer.New(source)
	var lexErr error
	for {
		_, err := l.Next()
		if err != nil {
			lexErr = err
			break
		}
	}
	require.Error(t, lexErr)

	var b strings.Builder
	Render(&b, source, lexErr)
	require.Contains(t, b.String(), "lex error")
}

func TestRender_RuntimeErrorPrintsStackTrace(t *testing.T) {
	withoutColor(t)
	err := vmerr.New("division by zero", []vmerr.StackFrame{
		{Name: "<top-level>", IP: 4},
		{Name: "divide", IP: 12},
	})

	var b strings.Builder
	Render(&b, "", err)

	out := b.String()
	require.Contains(t, out, "runtime error")
	require.Contains(t, out, "division by zero")
	require.Contains(t, out, "at divide [IP: 12]")
	require.Contains(t, out, "at <top-level> [IP: 4]")
}

func TestRender_PlainErrorHasNoExcerpt(t *testing.T) {
	withoutColor(t)
	var b strings.Builder
	Render(&b, "", errPlain("boom"))
	require.Equal(t, "error: boom\n", b.String())
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
