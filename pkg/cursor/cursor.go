// Package cursor provides a random-access, rewindable view over a token
// stream with typed convenience extractors, following the teacher's
// index-into-an-immutable-slice style of stream consumption.
package cursor

import (
	"fmt"

	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/source"
	"github.com/dthusian/k2se/pkg/token"
)

// Cursor wraps a token slice with a mutable position index. The underlying
// slice is never mutated; only the index moves, so rewinding is just
// decrementing the index.
type Cursor struct {
	tokens []token.Token
	pos    int
	eofPos source.Pos
}

// New constructs a cursor over a token slice. eofPos is used to synthesize a
// span for diagnostics raised past the end of the stream.
func New(tokens []token.Token, eofPos source.Pos) *Cursor {
	return &Cursor{tokens: tokens, eofPos: eofPos}
}

func (c *Cursor) eofSpan() source.Span {
	return source.FromPos(c.eofPos)
}

// Next returns the token at the cursor and advances, or nil at EOF.
func (c *Cursor) Next() *token.Token {
	if c.pos >= len(c.tokens) {
		return nil
	}

	t := c.tokens[c.pos]
	c.pos++

	return &t
}

// NextOrEOF returns the next token, or an UnexpectedEOF diagnostic.
func (c *Cursor) NextOrEOF() (token.Token, *diag.Diagnostic) {
	t := c.Next()
	if t == nil {
		d := diag.New(c.eofSpan(), diag.UnexpectedEOF, "unexpected end of file")
		return token.Token{}, &d
	}

	return *t, nil
}

// Peek returns the token at the cursor without advancing, or nil at EOF.
func (c *Cursor) Peek() *token.Token {
	if c.pos >= len(c.tokens) {
		return nil
	}

	t := c.tokens[c.pos]
	return &t
}

// PeekOrEOF returns the token at the cursor without advancing, or an
// UnexpectedEOF diagnostic.
func (c *Cursor) PeekOrEOF() (token.Token, *diag.Diagnostic) {
	t := c.Peek()
	if t == nil {
		d := diag.New(c.eofSpan(), diag.UnexpectedEOF, "unexpected end of file")
		return token.Token{}, &d
	}

	return *t, nil
}

// NextAssert consumes the next token, requiring it to be punctuation or an
// operator matching `expected`; otherwise raises UnexpectedToken.
func (c *Cursor) NextAssert(expected token.Token) (token.Token, *diag.Diagnostic) {
	t, err := c.NextOrEOF()
	if err != nil {
		return t, err
	}

	if !tokenEquals(t, expected) {
		d := diag.New(t.Span, diag.UnexpectedToken,
			fmt.Sprintf("unexpected token, expected %s", describeToken(expected)))
		return t, &d
	}

	return t, nil
}

// PeekAssert checks that the next token (without consuming) matches
// `expected`.
func (c *Cursor) PeekAssert(expected token.Token) (token.Token, *diag.Diagnostic) {
	t, err := c.PeekOrEOF()
	if err != nil {
		return t, err
	}

	if !tokenEquals(t, expected) {
		d := diag.New(t.Span, diag.UnexpectedToken,
			fmt.Sprintf("unexpected token, expected %s", describeToken(expected)))
		return t, &d
	}

	return t, nil
}

// NextIdentifier consumes the next token, requiring it to be an identifier.
func (c *Cursor) NextIdentifier() (string, source.Span, *diag.Diagnostic) {
	t, err := c.NextOrEOF()
	if err != nil {
		return "", source.Span{}, err
	}

	if t.Kind != token.Ident {
		d := diag.New(t.Span, diag.UnexpectedTokenType, "unexpected token type, expected an identifier")
		return "", t.Span, &d
	}

	return t.Ident, t.Span, nil
}

// Classifier maps a token to a value, or reports that the token was not of
// the expected shape.
type Classifier[T any] func(token.Token) (T, bool)

// NextMap consumes the next token and applies a fallible classifier,
// returning the classified value and its span.
func NextMap[T any](c *Cursor, classify Classifier[T], expectedDesc string) (T, source.Span, *diag.Diagnostic) {
	var zero T

	t, err := c.NextOrEOF()
	if err != nil {
		return zero, source.Span{}, err
	}

	v, ok := classify(t)
	if !ok {
		d := diag.New(t.Span, diag.UnexpectedTokenType, fmt.Sprintf("unexpected token type, expected %s", expectedDesc))
		return zero, t.Span, &d
	}

	return v, t.Span, nil
}

// Rewind moves the cursor back n tokens. The cursor never speculates past a
// token it has not already consumed; rewind is only used to undo consumed
// lookahead within a single parse function.
func (c *Cursor) Rewind(n int) {
	c.pos -= n
	if c.pos < 0 {
		c.pos = 0
	}
}

// Skip advances the cursor by n tokens without inspecting them.
func (c *Cursor) Skip(n int) {
	c.pos += n
	if c.pos > len(c.tokens) {
		c.pos = len(c.tokens)
	}
}

// Pos returns the current index into the token stream, for save/rewind
// patterns that need an exact marker rather than a relative skip count.
func (c *Cursor) Pos() int {
	return c.pos
}

func tokenEquals(a, b token.Token) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case token.Punct:
		return a.Punct == b.Punct
	case token.Op:
		return a.Op == b.Op
	default:
		return true
	}
}

func describeToken(t token.Token) string {
	switch t.Kind {
	case token.Punct:
		return fmt.Sprintf("%q", string(t.Punct))
	case token.Op:
		return fmt.Sprintf("%q", t.Op.String())
	case token.Ident:
		return "an identifier"
	case token.Int:
		return "an integer literal"
	case token.Str:
		return "a string literal"
	default:
		return "a token"
	}
}
