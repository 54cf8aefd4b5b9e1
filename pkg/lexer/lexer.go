// Package lexer converts FHDL source text into a tagged token stream.
//
// The scan loop follows the teacher's generic Lexer[T] (one buffered token
// at a time, advance-by-span) but is specialized to runes in and
// token.Token out, since FHDL's token set is closed and not worth
// parameterizing over.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/source"
	"github.com/dthusian/k2se/pkg/token"
)

const operatorChars = "+-*/%&|^=!<>"

// Tokenize scans an entire source file into a token stream, or returns the
// first lexical error encountered.
func Tokenize(file *source.File) ([]token.Token, *diag.Diagnostic) {
	l := &lexState{contents: file.Contents()}

	var tokens []token.Token

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		if tok == nil {
			return tokens, nil
		}

		tokens = append(tokens, *tok)
	}
}

type lexState struct {
	contents []rune
	idx      int
	line     int
	col      int
}

func (l *lexState) pos() source.Pos {
	if l.line == 0 {
		l.line = 1
	}

	return source.Pos{Line: l.line, Col: l.col}
}

func (l *lexState) init() {
	if l.line == 0 {
		l.line = 1
	}
}

func (l *lexState) peekRune() (rune, bool) {
	if l.idx >= len(l.contents) {
		return 0, false
	}

	return l.contents[l.idx], true
}

func (l *lexState) advance() {
	if l.idx >= len(l.contents) {
		return
	}

	if l.contents[l.idx] == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}

	l.idx++
}

// next scans and returns the next token, skipping whitespace and line
// comments, or nil at EOF.
func (l *lexState) next() (*token.Token, *diag.Diagnostic) {
	l.init()

	for {
		if !l.skipWhitespaceAndComments() {
			break
		}
	}

	start := l.pos()

	r, ok := l.peekRune()
	if !ok {
		return nil, nil
	}

	switch {
	case r == '_' || unicode.IsLetter(r):
		return l.scanIdent(start)
	case unicode.IsDigit(r):
		return l.scanNumber(start)
	case r == '"':
		return l.scanString(start)
	case strings.ContainsRune("(){},;", r):
		l.advance()
		return &token.Token{Kind: token.Punct, Span: source.NewSpan(start, l.pos()), Punct: r}, nil
	case strings.ContainsRune(operatorChars, r):
		return l.scanOperator(start)
	default:
		d := diag.New(source.NewSpan(start, start), diag.InvalidChar, fmt.Sprintf("invalid character %q", r))
		return nil, &d
	}
}

// skipWhitespaceAndComments consumes one run of whitespace or a `//` line
// comment, reporting whether anything was consumed (so the caller can loop).
func (l *lexState) skipWhitespaceAndComments() bool {
	progressed := false

	for {
		r, ok := l.peekRune()
		if !ok || !unicode.IsSpace(r) {
			break
		}

		l.advance()
		progressed = true
	}

	if r, ok := l.peekRune(); ok && r == '/' {
		if n, ok2 := l.peekAt(1); ok2 && n == '/' {
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}

				l.advance()
			}

			progressed = true
		}
	}

	return progressed
}

func (l *lexState) peekAt(offset int) (rune, bool) {
	if l.idx+offset >= len(l.contents) {
		return 0, false
	}

	return l.contents[l.idx+offset], true
}

func (l *lexState) scanIdent(start source.Pos) (*token.Token, *diag.Diagnostic) {
	var b strings.Builder

	for {
		r, ok := l.peekRune()
		if !ok || !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			break
		}

		b.WriteRune(r)
		l.advance()
	}

	return &token.Token{Kind: token.Ident, Span: source.NewSpan(start, l.pos()), Ident: b.String()}, nil
}

// scanNumber handles decimal, 0x hex and 0b binary integer literals, with
// underscores allowed between digits and discarded. Parsed as signed 64-bit
// then truncated to 32 bits.
func (l *lexState) scanNumber(start source.Pos) (*token.Token, *diag.Diagnostic) {
	var b strings.Builder

	base := 10

	if r, ok := l.peekRune(); ok && r == '0' {
		if n, ok2 := l.peekAt(1); ok2 && (n == 'x' || n == 'X') {
			l.advance()
			l.advance()

			base = 16
		} else if ok2 && (n == 'b' || n == 'B') {
			l.advance()
			l.advance()

			base = 2
		}
	}

	for {
		r, ok := l.peekRune()
		if !ok {
			break
		}

		if r == '_' {
			l.advance()
			continue
		}

		if !isDigitInBase(r, base) {
			break
		}

		b.WriteRune(r)
		l.advance()
	}

	span := source.NewSpan(start, l.pos())

	v, err := strconv.ParseInt(b.String(), base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			// i64 -> i32 truncation semantics: re-parse as unsigned and wrap,
			// matching the Rust `as i32` cast on an oversized literal (e.g. 2^32 -> 0).
			if uv, uerr := strconv.ParseUint(b.String(), base, 64); uerr == nil {
				return &token.Token{Kind: token.Int, Span: span, Int: int32(uv)}, nil
			}
		}

		d := diag.New(span, diag.InvalidInteger, fmt.Sprintf("invalid integer literal: %s", err))
		return nil, &d
	}

	return &token.Token{Kind: token.Int, Span: span, Int: int32(v)}, nil
}

func isDigitInBase(r rune, base int) bool {
	switch base {
	case 2:
		return r == '0' || r == '1'
	case 16:
		return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	default:
		return unicode.IsDigit(r)
	}
}

// scanString scans a double-quoted string literal with no escape sequence
// support; an unterminated string fails with UnexpectedEOF.
func (l *lexState) scanString(start source.Pos) (*token.Token, *diag.Diagnostic) {
	l.advance() // opening quote

	var b strings.Builder

	for {
		r, ok := l.peekRune()
		if !ok {
			d := diag.New(source.NewSpan(start, l.pos()), diag.UnexpectedEOF, "unterminated string literal")
			return nil, &d
		}

		if r == '"' {
			l.advance()
			break
		}

		b.WriteRune(r)
		l.advance()
	}

	return &token.Token{Kind: token.Str, Span: source.NewSpan(start, l.pos()), Str: b.String()}, nil
}

// scanOperator extracts the longest maximal run of operator characters
// (without consuming it) and matches the longest prefix of that run against
// the operator table, consuming only the matched runes.
func (l *lexState) scanOperator(start source.Pos) (*token.Token, *diag.Diagnostic) {
	var run []rune

	for i := 0; ; i++ {
		r, ok := l.peekAt(i)
		if !ok || !strings.ContainsRune(operatorChars, r) {
			break
		}

		// `//` inside an operator run begins a comment instead.
		if r == '/' {
			if n, ok2 := l.peekAt(i + 1); ok2 && n == '/' {
				break
			}
		}

		run = append(run, r)
	}

	for n := len(run); n > 0; n-- {
		text := string(run[:n])

		op, ok := token.LookupOperator(text)
		if !ok {
			continue
		}

		for i := 0; i < n; i++ {
			l.advance()
		}

		return &token.Token{Kind: token.Op, Span: source.NewSpan(start, l.pos()), Op: op}, nil
	}

	d := diag.New(source.NewSpan(start, start), diag.InvalidOperator, fmt.Sprintf("invalid operator %q", string(run)))

	return nil, &d
}
