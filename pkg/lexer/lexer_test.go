package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNext_Punctuation(t *testing.T) {
	input := `( ) [ ] { } , . ; :`

	expected := []struct {
		kind    Kind
		literal string
	}{
		{LParen, "("},
		{RParen, ")"},
		{LBracket, "["},
		{RBracket, "]"},
		{LBrace, "{"},
		{RBrace, "}"},
		{Comma, ","},
		{Dot, "."},
		{Semicolon, ";"},
		{Colon, ":"},
		{EOF, ""},
	}

	l := New(input)
	for i, tt := range expected {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equalf(t, tt.kind, tok.Kind, "token %d", i)
		require.Equalf(t, tt.literal, tok.Literal, "token %d", i)
	}
}

func TestNext_OperatorsGreedy(t *testing.T) {
	input := `+ - * / == != < > <= >= =`

	expected := []struct {
		kind    Kind
		literal string
	}{
		{Plus, "+"},
		{Minus, "-"},
		{Star, "*"},
		{Slash, "/"},
		{EqEq, "=="},
		{NotEq, "!="},
		{Lt, "<"},
		{Gt, ">"},
		{LtEq, "<="},
		{GtEq, ">="},
		{Assign, "="},
		{EOF, ""},
	}

	l := New(input)
	for i, tt := range expected {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equalf(t, tt.kind, tok.Kind, "token %d", i)
		require.Equalf(t, tt.literal, tok.Literal, "token %d", i)
	}
}

func TestNext_Keywords(t *testing.T) {
	input := `fn let const if else while for return break continue use pub true false null`

	expected := []Kind{Fn, Let, Const, If, Else, While, For, Return, Break, Continue, Use, Pub, True, False, Null}

	l := New(input)
	for i, kind := range expected {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equalf(t, kind, tok.Kind, "token %d", i)
	}
}

func TestNext_IdentifierVsKeyword(t *testing.T) {
	l := New("fname function")

	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Identifier, tok.Kind)
	require.Equal(t, "fname", tok.Literal)

	tok, err = l.Next()
	require.NoError(t, err)
	require.Equal(t, Identifier, tok.Kind)
	require.Equal(t, "function", tok.Literal)
}

func TestNext_Numbers(t *testing.T) {
	l := New("42 3.14 0")

	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Number, tok.Kind)
	require.Equal(t, "42", tok.Literal)

	tok, err = l.Next()
	require.NoError(t, err)
	require.Equal(t, Number, tok.Kind)
	require.Equal(t, "3.14", tok.Literal)

	tok, err = l.Next()
	require.NoError(t, err)
	require.Equal(t, Number, tok.Kind)
	require.Equal(t, "0", tok.Literal)
}

func TestNext_LeadingMinusIsNotPartOfLiteral(t *testing.T) {
	l := New("-5")

	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Minus, tok.Kind)

	tok, err = l.Next()
	require.NoError(t, err)
	require.Equal(t, Number, tok.Kind)
	require.Equal(t, "5", tok.Literal)
}

func TestNext_String(t *testing.T) {
	l := New(`"hello world"`)

	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, String, tok.Kind)
	require.Equal(t, "hello world", tok.Literal)
}

func TestNext_BareBangIsIllegal(t *testing.T) {
	l := New("!")

	_, err := l.Next()
	require.Error(t, err)
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, byte('!'), lexErr.Char)
}

func TestNext_IllegalCharacterSpan(t *testing.T) {
	l := New("x @ y")

	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Identifier, tok.Kind)

	_, err = l.Next()
	require.Error(t, err)
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, Span{Start: 2, End: 3}, lexErr.Span)
}

func TestNext_LinesAreNonDecreasing(t *testing.T) {
	l := New("let x = 1;\nlet y = 2;\n")

	tokens, err := l.Tokenize()
	require.NoError(t, err)

	last := 0
	for _, tok := range tokens {
		require.GreaterOrEqual(t, tok.Line, last)
		last = tok.Line
	}
	require.Equal(t, 3, last)
}

func TestTokenize_StopsAtEOF(t *testing.T) {
	l := New("let x = 1;")

	tokens, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, EOF, tokens[len(tokens)-1].Kind)
}
