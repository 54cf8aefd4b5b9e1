package lexer

import (
	"testing"

	"github.com/dthusian/k2se/pkg/source"
	"github.com/dthusian/k2se/pkg/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()

	toks, err := Tokenize(source.NewFile("test.fhdl", []byte(src)))
	if err != nil {
		t.Fatalf("unexpected lex error: %s", err.Error())
	}

	return toks
}

func TestTokenizeIdentifiersAndKeywords(t *testing.T) {
	toks := tokenize(t, "module main single in_port")

	want := []string{"module", "main", "single", "in_port"}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}

	for i, w := range want {
		if toks[i].Kind != token.Ident || toks[i].Ident != w {
			t.Errorf("token %d: got %+v, want ident %q", i, toks[i], w)
		}
	}
}

func TestTokenizeIntegerBases(t *testing.T) {
	cases := []struct {
		src  string
		want int32
	}{
		{"42", 42},
		{"0x2A", 42},
		{"0b101010", 42},
		{"1_000", 1000},
	}

	for _, c := range cases {
		toks := tokenize(t, c.src)
		if len(toks) != 1 || toks[0].Kind != token.Int {
			t.Fatalf("%q: got %+v, want a single int token", c.src, toks)
		}

		if toks[0].Int != c.want {
			t.Errorf("%q: got %d, want %d", c.src, toks[0].Int, c.want)
		}
	}
}

func TestTokenizeIntegerOverflowWraps(t *testing.T) {
	toks := tokenize(t, "4294967296") // 2^32, should wrap to 0 as i32

	if len(toks) != 1 || toks[0].Kind != token.Int {
		t.Fatalf("got %+v, want a single int token", toks)
	}

	if toks[0].Int != 0 {
		t.Errorf("got %d, want 0 (wrapped)", toks[0].Int)
	}
}

func TestTokenizeStringLiteral(t *testing.T) {
	toks := tokenize(t, `"hello world"`)

	if len(toks) != 1 || toks[0].Kind != token.Str {
		t.Fatalf("got %+v, want a single string token", toks)
	}

	if toks[0].Str != "hello world" {
		t.Errorf("got %q, want %q", toks[0].Str, "hello world")
	}
}

func TestTokenizeUnterminatedStringFails(t *testing.T) {
	_, err := Tokenize(source.NewFile("test.fhdl", []byte(`"unterminated`)))
	if err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
}

func TestTokenizeOperatorsLongestMatchFirst(t *testing.T) {
	toks := tokenize(t, "+= ** != <= >>")

	want := []token.BinaryOp{token.AddAssign, token.Pow, token.Ne, token.Le, token.Shr}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}

	for i, w := range want {
		if toks[i].Kind != token.Op || toks[i].Op != w {
			t.Errorf("token %d: got %+v, want op %s", i, toks[i], w)
		}
	}
}

func TestTokenizeSkipsLineComments(t *testing.T) {
	toks := tokenize(t, "a // comment with + and **\nb")

	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2", len(toks))
	}

	if toks[0].Ident != "a" || toks[1].Ident != "b" {
		t.Errorf("got %+v", toks)
	}
}

func TestTokenizeInvalidCharacter(t *testing.T) {
	_, err := Tokenize(source.NewFile("test.fhdl", []byte("a $ b")))
	if err == nil {
		t.Fatal("expected an error for an invalid character")
	}
}

func TestTokenizePunctuation(t *testing.T) {
	toks := tokenize(t, "(){},;")

	want := "(){},;"
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}

	for i, r := range want {
		if toks[i].Kind != token.Punct || toks[i].Punct != r {
			t.Errorf("token %d: got %+v, want punct %q", i, toks[i], r)
		}
	}
}

func TestTokenizeTracksLineNumbers(t *testing.T) {
	toks := tokenize(t, "a\nb\nc")

	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}

	for i, want := range []int{1, 2, 3} {
		if toks[i].Span.Start.Line != want {
			t.Errorf("token %d: got line %d, want %d", i, toks[i].Span.Start.Line, want)
		}
	}
}
