package cursor

import (
	"testing"

	"github.com/dthusian/k2se/pkg/source"
	"github.com/dthusian/k2se/pkg/token"
)

func identTok(name string) token.Token {
	return token.Token{Kind: token.Ident, Ident: name}
}

func TestNextAndPeekDoNotInterfere(t *testing.T) {
	c := New([]token.Token{identTok("a"), identTok("b")}, source.Pos{Line: 1, Col: 0})

	if p := c.Peek(); p == nil || p.Ident != "a" {
		t.Fatalf("Peek: got %+v, want \"a\"", p)
	}

	n := c.Next()
	if n == nil || n.Ident != "a" {
		t.Fatalf("Next: got %+v, want \"a\"", n)
	}

	n = c.Next()
	if n == nil || n.Ident != "b" {
		t.Fatalf("Next: got %+v, want \"b\"", n)
	}

	if n := c.Next(); n != nil {
		t.Fatalf("Next at EOF: got %+v, want nil", n)
	}
}

func TestNextOrEOFReportsEOF(t *testing.T) {
	c := New(nil, source.Pos{Line: 3, Col: 0})

	_, err := c.NextOrEOF()
	if err == nil {
		t.Fatal("expected an UnexpectedEOF diagnostic")
	}
}

func TestNextAssertMatchesPunctuation(t *testing.T) {
	c := New([]token.Token{{Kind: token.Punct, Punct: '('}}, source.Pos{})

	if _, err := c.NextAssert(token.Token{Kind: token.Punct, Punct: '('}); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
}

func TestNextAssertRejectsMismatch(t *testing.T) {
	c := New([]token.Token{{Kind: token.Punct, Punct: '('}}, source.Pos{})

	if _, err := c.NextAssert(token.Token{Kind: token.Punct, Punct: ')'}); err == nil {
		t.Fatal("expected a mismatch error")
	}
}

func TestNextIdentifierRejectsNonIdent(t *testing.T) {
	c := New([]token.Token{{Kind: token.Int, Int: 5}}, source.Pos{})

	if _, _, err := c.NextIdentifier(); err == nil {
		t.Fatal("expected an UnexpectedTokenType diagnostic")
	}
}

func TestRewindUndoesConsumedLookahead(t *testing.T) {
	c := New([]token.Token{identTok("a"), identTok("b")}, source.Pos{})

	c.Next()
	c.Next()
	c.Rewind(1)

	n := c.Next()
	if n == nil || n.Ident != "b" {
		t.Fatalf("after rewind: got %+v, want \"b\"", n)
	}
}

func TestSkipAdvancesWithoutInspecting(t *testing.T) {
	c := New([]token.Token{identTok("a"), identTok("b"), identTok("c")}, source.Pos{})

	c.Skip(2)

	n := c.Next()
	if n == nil || n.Ident != "c" {
		t.Fatalf("after skip: got %+v, want \"c\"", n)
	}
}

func TestPosTracksCurrentIndex(t *testing.T) {
	c := New([]token.Token{identTok("a"), identTok("b")}, source.Pos{})

	if c.Pos() != 0 {
		t.Fatalf("initial Pos: got %d, want 0", c.Pos())
	}

	c.Next()

	if c.Pos() != 1 {
		t.Fatalf("after one Next: got %d, want 1", c.Pos())
	}
}
