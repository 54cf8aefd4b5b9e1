// Package diag implements the shared diagnostic type and source-excerpt
// formatter used by every compiler stage.
package diag

import (
	"fmt"
	"strings"

	"github.com/dthusian/k2se/pkg/source"
)

// Kind is a closed enumeration of every diagnosable condition in the
// compiler, matching the original implementation's Cerr enum.
type Kind int

const (
	InvalidChar Kind = iota
	InvalidInteger
	InvalidOperator

	UnexpectedToken
	UnexpectedTokenType
	UnexpectedEOF
	InvalidExpr

	NotDeclared
	MultipleDeclarations
	WriteToInput
	MultipleExclusiveWrites
	MemAssignOutsideOfTrigger
	WrongNumberOfModuleArgs
	NestedTriggerBlocks
	ExprForOutInoutPort
	TypeErrorGeneric
	TypeErrArgMismatch
	ExpectedString
	UnexpectedString
	UnknownFunction
	WrongNumberOfFunctionArgs
	InvalidOpOnMixedNets

	MainNotFound
	CyclicModuleInstantiation
	SignalPoolExhausted

	LayoutShaperInvalidArg
)

// Diagnostic is a single compiler error, optionally anchored to a span.
type Diagnostic struct {
	Span    *source.Span
	Kind    Kind
	Message string
}

// New constructs a Diagnostic anchored to a span.
func New(span source.Span, kind Kind, message string) Diagnostic {
	return Diagnostic{&span, kind, message}
}

// WithoutSpan constructs a Diagnostic with no span (used when none is
// available, e.g. "main module not found").
func WithoutSpan(kind Kind, message string) Diagnostic {
	return Diagnostic{nil, kind, message}
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Span == nil {
		return fmt.Sprintf("at unknown: %s", d.Message)
	}

	return fmt.Sprintf("at %d:%d - %d:%d: %s",
		d.Span.Start.Line, d.Span.Start.Col, d.Span.End.Line, d.Span.End.Col, d.Message)
}

// Format renders the diagnostic against its source file: a header line,
// the enclosing source line(s), and a caret range underneath. When color is
// true, the header and carets are wrapped in ANSI red.
func Format(file *source.File, d Diagnostic, color bool) string {
	var b strings.Builder

	span := source.Span{}
	if d.Span != nil {
		span = *d.Span
	} else {
		eof := file.EOFPos()
		span = source.FromPos(eof)
	}

	header := fmt.Sprintf("at %s:%d:%d: %s", file.Filename(), span.Start.Line, span.Start.Col, d.Message)
	if color {
		header = "\x1b[31m" + header + "\x1b[0m"
	}

	b.WriteString(header)
	b.WriteByte('\n')

	for lineNo := span.Start.Line; lineNo <= span.End.Line; lineNo++ {
		line := file.FindLine(lineNo - 1)
		text := line.String()

		cstart := 0
		if lineNo == span.Start.Line {
			cstart = span.Start.Col
		}

		cend := len(text)
		if lineNo == span.End.Line {
			cend = span.End.Col
		}

		if cend < cstart {
			cend = cstart
		}

		if cend > len(text) {
			cend = len(text)
		}

		carets := strings.Repeat(" ", cstart) + strings.Repeat("^", max(cend-cstart, 1))
		if color {
			carets = "\x1b[31m" + carets + "\x1b[0m"
		}

		fmt.Fprintf(&b, "  %s\n  %s\n", text, carets)
	}

	return b.String()
}
