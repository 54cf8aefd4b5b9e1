// Package parser implements FHDL's recursive-descent parser: token cursor
// in, AST out. Every parse function is fatal on the first error it
// encounters — there is no error-recovery attempt within a single parse
// rule, matching the teacher's pkg/corset/parser.go propagation style.
package parser

import (
	"fmt"

	"github.com/dthusian/k2se/pkg/ast"
	"github.com/dthusian/k2se/pkg/cursor"
	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/source"
	"github.com/dthusian/k2se/pkg/token"
)

// Parse parses a full token stream into a Program.
func Parse(tokens []token.Token, eofPos source.Pos) (ast.Program, *diag.Diagnostic) {
	c := cursor.New(tokens, eofPos)
	return parseProgram(c)
}

func punct(r rune) token.Token {
	return token.Token{Kind: token.Punct, Punct: r}
}

// expectKeyword consumes an identifier token whose text must equal `kw`.
func expectKeyword(c *cursor.Cursor, kw string) (source.Span, *diag.Diagnostic) {
	t, err := c.NextOrEOF()
	if err != nil {
		return source.Span{}, err
	}

	if t.Kind != token.Ident || t.Ident != kw {
		d := diag.New(t.Span, diag.UnexpectedToken, fmt.Sprintf("unexpected token, expected %q", kw))
		return t.Span, &d
	}

	return t.Span, nil
}

func parseProgram(c *cursor.Cursor) (ast.Program, *diag.Diagnostic) {
	start, err := expectKeyword(c, "version")
	if err != nil {
		return ast.Program{}, err
	}

	verTok, err := c.NextOrEOF()
	if err != nil {
		return ast.Program{}, err
	}

	if verTok.Kind != token.Int {
		d := diag.New(verTok.Span, diag.UnexpectedTokenType, "unexpected token type, expected an integer literal")
		return ast.Program{}, &d
	}

	if verTok.Int != 2 {
		d := diag.New(verTok.Span, diag.InvalidExpr, fmt.Sprintf("unsupported version %d, expected 2", verTok.Int))
		return ast.Program{}, &d
	}

	if _, err := c.NextAssert(punct(';')); err != nil {
		return ast.Program{}, err
	}

	var modules []ast.Module

	end := start

	for {
		if c.Peek() == nil {
			break
		}

		m, err := parseModule(c)
		if err != nil {
			return ast.Program{}, err
		}

		end = m.Span
		modules = append(modules, m)
	}

	return ast.Program{Version: 2, Modules: modules, Span: start.Union(end)}, nil
}

func parseModule(c *cursor.Cursor) (ast.Module, *diag.Diagnostic) {
	start, err := expectKeyword(c, "module")
	if err != nil {
		return ast.Module{}, err
	}

	name, _, err := c.NextIdentifier()
	if err != nil {
		return ast.Module{}, err
	}

	if _, err := c.NextAssert(punct('(')); err != nil {
		return ast.Module{}, err
	}

	ports, err := parsePortList(c)
	if err != nil {
		return ast.Module{}, err
	}

	if _, err := c.NextAssert(punct(')')); err != nil {
		return ast.Module{}, err
	}

	if _, err := c.NextAssert(punct('{')); err != nil {
		return ast.Module{}, err
	}

	stmts, err := parseStmtList(c)
	if err != nil {
		return ast.Module{}, err
	}

	end, err := c.NextAssert(punct('}'))
	if err != nil {
		return ast.Module{}, err
	}

	return ast.Module{Name: name, Ports: ports, Stmts: stmts, Span: start.Union(end.Span)}, nil
}

// parsePortList parses a comma-separated, trailing-comma-tolerant list of
// port declarations up to (but not consuming) the closing `)`.
func parsePortList(c *cursor.Cursor) ([]ast.PortDecl, *diag.Diagnostic) {
	var ports []ast.PortDecl

	for {
		next := c.Peek()
		if next == nil {
			d := diag.New(source.Span{}, diag.UnexpectedEOF, "unexpected end of file in port list")
			return nil, &d
		}

		if next.Kind == token.Punct && next.Punct == ')' {
			return ports, nil
		}

		p, err := parsePortDecl(c)
		if err != nil {
			return nil, err
		}

		ports = append(ports, p)

		sep := c.Peek()
		if sep != nil && sep.Kind == token.Punct && sep.Punct == ',' {
			c.Next()
			continue
		}

		return ports, nil
	}
}

func parsePortDecl(c *cursor.Cursor) (ast.PortDecl, *diag.Diagnostic) {
	classTok, err := c.NextOrEOF()
	if err != nil {
		return ast.PortDecl{}, err
	}

	var class ast.PortClass

	switch {
	case classTok.Kind == token.Ident && classTok.Ident == "in":
		class = ast.In
	case classTok.Kind == token.Ident && classTok.Ident == "out":
		class = ast.Out
	case classTok.Kind == token.Ident && classTok.Ident == "inout":
		class = ast.InOut
	default:
		d := diag.New(classTok.Span, diag.UnexpectedToken, "unexpected token, expected one of \"in\", \"out\", \"inout\"")
		return ast.PortDecl{}, &d
	}

	netType, err := parseNetType(c)
	if err != nil {
		return ast.PortDecl{}, err
	}

	name, nameSpan, err := c.NextIdentifier()
	if err != nil {
		return ast.PortDecl{}, err
	}

	return ast.PortDecl{Class: class, NetType: netType, Name: name, Span: classTok.Span.Union(nameSpan)}, nil
}

func parseNetType(c *cursor.Cursor) (ast.NetType, *diag.Diagnostic) {
	t, err := c.NextOrEOF()
	if err != nil {
		return 0, err
	}

	switch {
	case t.Kind == token.Ident && t.Ident == "single":
		return ast.Single, nil
	case t.Kind == token.Ident && t.Ident == "mixed":
		return ast.Mixed, nil
	default:
		d := diag.New(t.Span, diag.UnexpectedToken, "unexpected token, expected one of \"single\", \"mixed\"")
		return 0, &d
	}
}

// parseStmtList parses semicolon-terminated statements up to (but not
// consuming) the closing `}`.
func parseStmtList(c *cursor.Cursor) ([]ast.StmtNode, *diag.Diagnostic) {
	var stmts []ast.StmtNode

	for {
		next := c.Peek()
		if next == nil {
			d := diag.New(source.Span{}, diag.UnexpectedEOF, "unexpected end of file in statement list")
			return nil, &d
		}

		if next.Kind == token.Punct && next.Punct == '}' {
			return stmts, nil
		}

		s, err := parseStmt(c)
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, s)
	}
}

func parseStmt(c *cursor.Cursor) (ast.StmtNode, *diag.Diagnostic) {
	kw, err := c.PeekOrEOF()
	if err != nil {
		return ast.StmtNode{}, err
	}

	if kw.Kind != token.Ident {
		d := diag.New(kw.Span, diag.UnexpectedToken,
			"unexpected token, expected one of \"mem\", \"set\", \"wire\", \"inst\", \"trigger\"")
		return ast.StmtNode{}, &d
	}

	switch kw.Ident {
	case "mem":
		return parseMemDecl(c)
	case "set":
		return parseSet(c)
	case "wire":
		return parseWireDecl(c)
	case "inst":
		return parseModuleInst(c)
	case "trigger":
		return parseTrigger(c)
	default:
		d := diag.New(kw.Span, diag.UnexpectedToken,
			"unexpected token, expected one of \"mem\", \"set\", \"wire\", \"inst\", \"trigger\"")
		return ast.StmtNode{}, &d
	}
}

func parseMemDecl(c *cursor.Cursor) (ast.StmtNode, *diag.Diagnostic) {
	start, err := expectKeyword(c, "mem")
	if err != nil {
		return ast.StmtNode{}, err
	}

	netType, err := parseNetType(c)
	if err != nil {
		return ast.StmtNode{}, err
	}

	name, _, err := c.NextIdentifier()
	if err != nil {
		return ast.StmtNode{}, err
	}

	end, err := c.NextAssert(punct(';'))
	if err != nil {
		return ast.StmtNode{}, err
	}

	return ast.StmtNode{Stmt: ast.MemDecl{Name: name, NetType: netType}, Span: start.Union(end.Span)}, nil
}

func parseSet(c *cursor.Cursor) (ast.StmtNode, *diag.Diagnostic) {
	start, err := expectKeyword(c, "set")
	if err != nil {
		return ast.StmtNode{}, err
	}

	name, _, err := c.NextIdentifier()
	if err != nil {
		return ast.StmtNode{}, err
	}

	assignTok, err := c.NextOrEOF()
	if err != nil {
		return ast.StmtNode{}, err
	}

	var assignOp ast.AssignOp

	switch {
	case assignTok.Kind == token.Op && assignTok.Op == token.Assign:
		assignOp = ast.AssignEq
	case assignTok.Kind == token.Op && assignTok.Op == token.AddAssign:
		assignOp = ast.AssignAdd
	default:
		d := diag.New(assignTok.Span, diag.UnexpectedToken, "unexpected token, expected \"=\" or \"+=\"")
		return ast.StmtNode{}, &d
	}

	expr, err := parseExpr(c)
	if err != nil {
		return ast.StmtNode{}, err
	}

	end, err := c.NextAssert(punct(';'))
	if err != nil {
		return ast.StmtNode{}, err
	}

	return ast.StmtNode{Stmt: ast.Set{Name: name, AssignOp: assignOp, Expr: expr}, Span: start.Union(end.Span)}, nil
}

func parseWireDecl(c *cursor.Cursor) (ast.StmtNode, *diag.Diagnostic) {
	start, err := expectKeyword(c, "wire")
	if err != nil {
		return ast.StmtNode{}, err
	}

	netType, err := parseNetType(c)
	if err != nil {
		return ast.StmtNode{}, err
	}

	name, _, err := c.NextIdentifier()
	if err != nil {
		return ast.StmtNode{}, err
	}

	var expr ast.Expr

	next, err := c.PeekOrEOF()
	if err != nil {
		return ast.StmtNode{}, err
	}

	if next.Kind == token.Op && next.Op == token.Assign {
		c.Next()

		e, err := parseExpr(c)
		if err != nil {
			return ast.StmtNode{}, err
		}

		expr = e
	}

	end, err := c.NextAssert(punct(';'))
	if err != nil {
		return ast.StmtNode{}, err
	}

	return ast.StmtNode{Stmt: ast.WireDecl{Name: name, NetType: netType, Expr: expr}, Span: start.Union(end.Span)}, nil
}

func parseModuleInst(c *cursor.Cursor) (ast.StmtNode, *diag.Diagnostic) {
	start, err := expectKeyword(c, "inst")
	if err != nil {
		return ast.StmtNode{}, err
	}

	name, _, err := c.NextIdentifier()
	if err != nil {
		return ast.StmtNode{}, err
	}

	if _, err := c.NextAssert(punct('(')); err != nil {
		return ast.StmtNode{}, err
	}

	args, err := parseExprList(c)
	if err != nil {
		return ast.StmtNode{}, err
	}

	if _, err := c.NextAssert(punct(')')); err != nil {
		return ast.StmtNode{}, err
	}

	end, err := c.NextAssert(punct(';'))
	if err != nil {
		return ast.StmtNode{}, err
	}

	return ast.StmtNode{Stmt: ast.ModuleInst{ModuleName: name, Args: args}, Span: start.Union(end.Span)}, nil
}

func parseTrigger(c *cursor.Cursor) (ast.StmtNode, *diag.Diagnostic) {
	start, err := expectKeyword(c, "trigger")
	if err != nil {
		return ast.StmtNode{}, err
	}

	watching, _, err := c.NextIdentifier()
	if err != nil {
		return ast.StmtNode{}, err
	}

	kindTok, err := c.NextOrEOF()
	if err != nil {
		return ast.StmtNode{}, err
	}

	var kind ast.TriggerKind

	switch {
	case kindTok.Kind == token.Ident && kindTok.Ident == "increasing":
		kind = ast.Increasing
	case kindTok.Kind == token.Ident && kindTok.Ident == "decreasing":
		kind = ast.Decreasing
	case kindTok.Kind == token.Ident && kindTok.Ident == "changed":
		kind = ast.Changed
	case kindTok.Kind == token.Ident && kindTok.Ident == "raw":
		kind = ast.Raw
	default:
		d := diag.New(kindTok.Span, diag.UnexpectedToken,
			"unexpected token, expected one of \"increasing\", \"decreasing\", \"changed\", \"raw\"")
		return ast.StmtNode{}, &d
	}

	if _, err := c.NextAssert(punct('{')); err != nil {
		return ast.StmtNode{}, err
	}

	stmts, err := parseStmtList(c)
	if err != nil {
		return ast.StmtNode{}, err
	}

	if _, err := c.NextAssert(punct('}')); err != nil {
		return ast.StmtNode{}, err
	}

	end, err := c.NextAssert(punct(';'))
	if err != nil {
		return ast.StmtNode{}, err
	}

	return ast.StmtNode{
		Stmt: ast.Trigger{WatchingName: watching, Kind: kind, Stmts: stmts},
		Span: start.Union(end.Span),
	}, nil
}

// parseExprList parses a comma-separated, trailing-comma-tolerant list of
// expressions up to (but not consuming) the closing `)`.
func parseExprList(c *cursor.Cursor) ([]ast.Expr, *diag.Diagnostic) {
	var exprs []ast.Expr

	for {
		next := c.Peek()
		if next == nil {
			d := diag.New(source.Span{}, diag.UnexpectedEOF, "unexpected end of file in argument list")
			return nil, &d
		}

		if next.Kind == token.Punct && next.Punct == ')' {
			return exprs, nil
		}

		e, err := parseExpr(c)
		if err != nil {
			return nil, err
		}

		exprs = append(exprs, e)

		sep := c.Peek()
		if sep != nil && sep.Kind == token.Punct && sep.Punct == ',' {
			c.Next()
			continue
		}

		return exprs, nil
	}
}

// maxPrecedence is the lowest-binding (outermost) precedence level parsed by
// the climbing loop; comparisons at level 6 are parsed first (outermost),
// down to `**` at level 1 (innermost, parsed last / bound tightest).
const maxPrecedence = 6

func parseExpr(c *cursor.Cursor) (ast.Expr, *diag.Diagnostic) {
	return parseLevel(c, maxPrecedence)
}

// parseLevel implements precedence climbing: a level-p expression is a
// level-(p-1) operand, followed by zero or more (operator, level-(p-1)
// operand) pairs where the operator's precedence equals p. Level 0 is the
// primary expression.
func parseLevel(c *cursor.Cursor, level int) (ast.Expr, *diag.Diagnostic) {
	if level == 0 {
		return parsePrimary(c)
	}

	head, err := parseLevel(c, level-1)
	if err != nil {
		return nil, err
	}

	var tail []ast.BinOpTail

	end := ast.ExprSpan(head)

	for {
		next := c.Peek()
		if next == nil || next.Kind != token.Op || next.Op.Precedence() != level {
			break
		}

		opTok := *next
		c.Next()

		operand, err := parseLevel(c, level-1)
		if err != nil {
			return nil, err
		}

		end = ast.ExprSpan(operand)
		tail = append(tail, ast.BinOpTail{Op: opTok.Op, Operand: operand})
	}

	if len(tail) == 0 {
		return head, nil
	}

	return ast.BinaryOps{Head: head, Tail: tail, Span: ast.ExprSpan(head).Union(end)}, nil
}

func parsePrimary(c *cursor.Cursor) (ast.Expr, *diag.Diagnostic) {
	t, err := c.NextOrEOF()
	if err != nil {
		return nil, err
	}

	switch t.Kind {
	case token.Ident:
		if next := c.Peek(); next != nil && next.Kind == token.Punct && next.Punct == '(' {
			c.Next()

			args, err := parseExprList(c)
			if err != nil {
				return nil, err
			}

			end, err := c.NextAssert(punct(')'))
			if err != nil {
				return nil, err
			}

			return ast.Call{Name: t.Ident, Args: args, Span: t.Span.Union(end.Span)}, nil
		}

		return ast.Identifier{Name: t.Ident, Span: t.Span}, nil
	case token.Int:
		return ast.IntLiteral{Value: t.Int, Span: t.Span}, nil
	case token.Str:
		return ast.StrLiteral{Value: t.Str, Span: t.Span}, nil
	case token.Punct:
		if t.Punct == '(' {
			e, err := parseExpr(c)
			if err != nil {
				return nil, err
			}

			if _, err := c.NextAssert(punct(')')); err != nil {
				return nil, err
			}

			return e, nil
		}

		fallthrough
	default:
		d := diag.New(t.Span, diag.InvalidExpr, "invalid expression")
		return nil, &d
	}
}
