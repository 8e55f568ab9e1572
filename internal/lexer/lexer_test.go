package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New([]byte(src), "test.vega")
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return toks
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "fn agent spawn foo")
	require.Len(t, toks, 5)
	assert.Equal(t, FN, toks[0].Kind)
	assert.Equal(t, AGENT, toks[1].Kind)
	assert.Equal(t, SPAWN, toks[2].Kind)
	assert.Equal(t, IDENT, toks[3].Kind)
	assert.Equal(t, "foo", toks[3].Text)
	assert.Equal(t, EOF, toks[4].Kind)
}

func TestOperators(t *testing.T) {
	toks := scanAll(t, "-> => == != <= >= && || <- <~ ::")
	kinds := make([]Kind, 0, len(toks)-1)
	for _, tok := range toks[:len(toks)-1] {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{ARROW, FAT_ARROW, EQ_EQ, NOT_EQ, LE, GE, AND_AND, OR_OR, SEND_SYNC, SEND_ASYNC, COLON_COLON}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("operator kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmatchedAmpersandAndPipeAreErrorTokens(t *testing.T) {
	l := New([]byte("a & b"), "test.vega")
	l.NextToken() // a
	errTok := l.NextToken()
	assert.Equal(t, ERROR, errTok.Kind)
	assert.True(t, l.HadError())
	assert.Contains(t, l.ErrorMessage(), "&&")

	l2 := New([]byte("a | b"), "test.vega")
	l2.NextToken()
	errTok2 := l2.NextToken()
	assert.Equal(t, ERROR, errTok2.Kind)
	assert.Contains(t, l2.ErrorMessage(), "||")
}

func TestNumbers(t *testing.T) {
	toks := scanAll(t, "5 100000 3.14")
	require.Len(t, toks, 4)
	assert.Equal(t, INT, toks[0].Kind)
	assert.EqualValues(t, 5, toks[0].IntValue)
	assert.Equal(t, INT, toks[1].Kind)
	assert.EqualValues(t, 100000, toks[1].IntValue)
	assert.Equal(t, FLOAT, toks[2].Kind)
	assert.InDelta(t, 3.14, toks[2].FloatValue, 1e-9)
}

func TestStringLiteralSpanExcludesQuotes(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	require.Len(t, toks, 2)
	assert.Equal(t, STRING, toks[0].Kind)
	assert.Equal(t, "hello world", toks[0].Text)
}

func TestStringLiteralForbidsRawNewline(t *testing.T) {
	l := New([]byte("\"line1\nline2\""), "test.vega")
	tok := l.NextToken()
	assert.Equal(t, ERROR, tok.Kind)
	assert.True(t, l.HadError())
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "let x = 1; // comment\n/* block\ncomment */let y = 2;")
	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Contains(t, kinds, LET)
	count := 0
	for _, k := range kinds {
		if k == LET {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestLineColumnTracking(t *testing.T) {
	l := New([]byte("let\nx"), "test.vega")
	first := l.NextToken()
	assert.Equal(t, 1, first.Location.Line)
	assert.Equal(t, 1, first.Location.Column)
	second := l.NextToken()
	assert.Equal(t, 2, second.Location.Line)
	assert.Equal(t, 1, second.Location.Column)
}

func TestPeekThenNextAreEqual(t *testing.T) {
	l := New([]byte("let x = 5;"), "test.vega")
	peeked := l.PeekToken()
	next := l.NextToken()
	assert.Equal(t, peeked, next)

	// Peek is idempotent until consumed.
	p1 := l.PeekToken()
	p2 := l.PeekToken()
	assert.Equal(t, p1, p2)
}

func TestTokenSpanMatchesPrintedForm(t *testing.T) {
	src := "agent Greeter"
	toks := scanAll(t, src)
	// AGENT keyword: its printed form (Kind.String()) equals the source text at its span.
	loc := toks[0].Location
	assert.Equal(t, "agent", src[loc.Offset:loc.Offset+len("agent")])
}
