// Package ast defines the abstract syntax tree produced by pkg/parser and
// consumed by pkg/ir's transform pass.
package ast

import (
	"github.com/dthusian/k2se/pkg/source"
	"github.com/dthusian/k2se/pkg/token"
)

// NetType distinguishes single-signal nets from multi-signal (mixed) nets.
type NetType int

const (
	Single NetType = iota
	Mixed
)

// PortClass distinguishes the three kinds of module port.
type PortClass int

const (
	In PortClass = iota
	Out
	InOut
)

// TriggerKind selects which edge a trigger block watches for.
type TriggerKind int

const (
	Increasing TriggerKind = iota
	Decreasing
	Changed
	Raw
)

// AssignOp is the assignment symbol used by a Set statement.
type AssignOp int

const (
	AssignEq AssignOp = iota
	AssignAdd
)

// Program is the root AST node: a version header followed by zero or more
// modules.
type Program struct {
	Version int
	Modules []Module
	Span    source.Span
}

// Module is a named collection of ports and statements.
type Module struct {
	Name  string
	Ports []PortDecl
	Stmts []StmtNode
	Span  source.Span
}

// PortDecl declares one port of a module.
type PortDecl struct {
	Class   PortClass
	NetType NetType
	Name    string
	Span    source.Span
}

// StmtNode pairs a Stmt with its source span, since Stmt itself is a bare
// tagged union.
type StmtNode struct {
	Stmt Stmt
	Span source.Span
}

// Stmt is the closed set of statement variants. Implementations are exhaustively
// switched over rather than dispatched virtually.
type Stmt interface {
	isStmt()
}

// MemDecl declares a persistent (stateful) net.
type MemDecl struct {
	Name    string
	NetType NetType
}

// WireDecl declares a combinational net, optionally with an initializer
// expression.
type WireDecl struct {
	Name    string
	NetType NetType
	Expr    Expr // nil if no initializer
}

// Set assigns an expression's value to a previously-declared net.
type Set struct {
	Name     string
	AssignOp AssignOp
	Expr     Expr
}

// ModuleInst instantiates a submodule, binding each argument expression to
// the corresponding port in declaration order.
type ModuleInst struct {
	ModuleName string
	Args       []Expr
}

// Trigger gates a statement block on an edge of a watched net.
type Trigger struct {
	WatchingName string
	Kind         TriggerKind
	Stmts        []StmtNode
}

func (MemDecl) isStmt()    {}
func (WireDecl) isStmt()   {}
func (Set) isStmt()        {}
func (ModuleInst) isStmt() {}
func (Trigger) isStmt()    {}

// Expr is the closed set of expression variants.
type Expr interface {
	isExpr()
}

// Identifier references a declared net by name.
type Identifier struct {
	Name string
	Span source.Span
}

// IntLiteral is a 32-bit signed integer constant.
type IntLiteral struct {
	Value int32
	Span  source.Span
}

// StrLiteral is a string constant.
type StrLiteral struct {
	Value string
	Span  source.Span
}

// Call invokes a built-in function by name.
type Call struct {
	Name string
	Args []Expr
	Span source.Span
}

// BinOpTail is one (operator, right-operand) pair within a BinaryOps node.
type BinOpTail struct {
	Op      token.BinaryOp
	Operand Expr
}

// BinaryOps holds a left-associative run of same-precedence binary
// operators: head is the first operand, tail is every subsequent
// (operator, operand) pair evaluated left-to-right.
type BinaryOps struct {
	Head Expr
	Tail []BinOpTail
	Span source.Span
}

func (Identifier) isExpr() {}
func (IntLiteral) isExpr() {}
func (StrLiteral) isExpr() {}
func (Call) isExpr()       {}
func (BinaryOps) isExpr()  {}

// ExprSpan returns the source span covering an expression node.
func ExprSpan(e Expr) source.Span {
	switch v := e.(type) {
	case Identifier:
		return v.Span
	case IntLiteral:
		return v.Span
	case StrLiteral:
		return v.Span
	case Call:
		return v.Span
	case BinaryOps:
		return v.Span
	default:
		return source.Span{}
	}
}
