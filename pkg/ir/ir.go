// Package ir defines FHDL's typed intermediate representation and the
// transform pass that lowers an AST Program into one IRModule per module,
// resolving names, flattening expressions, desugaring triggers, and
// type-checking along the way.
package ir

import "github.com/dthusian/k2se/pkg/ast"

// IRWireMemDecl describes one declared object (wire, mem, or port) within a
// module.
type IRWireMemDecl struct {
	NetType ast.NetType
	IsMem   bool
	// PortIndex is set when this object is a port, giving its index within
	// the module's port list.
	PortIndex *int
	// PortClass is set alongside PortIndex, recording whether writes to this
	// object are forbidden (an In port is driven by the caller, never by
	// this module's own body).
	PortClass *ast.PortClass
}

// IRValue is a tagged union of the three kinds of value an IR statement
// argument can hold.
type IRValue interface {
	isIRValue()
}

// Net references a declared or anonymous net by name.
type Net struct {
	Name string
}

// Lit is an inline integer constant.
type Lit struct {
	Value int32
}

// Str is an inline string constant (used only for built-in arguments typed
// String).
type Str struct {
	Value string
}

func (Net) isIRValue() {}
func (Lit) isIRValue() {}
func (Str) isIRValue() {}

// IRStmt writes the result of invoking a built-in (`OpName`, which may be a
// synthetic `$op_*`/`$passthrough` name) on Args into Dest.
type IRStmt struct {
	Dest   string
	OpName string
	Args   []IRValue
}

// IRTriggerStmt gates a copy from Src into Dest on the trigger net On being
// asserted.
type IRTriggerStmt struct {
	Dest string
	Src  string
	On   string
}

// IRModuleInst instantiates a submodule, binding each net name positionally
// to the submodule's ports.
type IRModuleInst struct {
	Name string
	Args []string
}

// IRModule is the lowered form of a single ast.Module.
type IRModule struct {
	Name         string
	Ports        []ast.PortDecl
	Objects      map[string]IRWireMemDecl
	Stmts        []IRStmt
	TriggerStmts []IRTriggerStmt
	ModuleInsts  []IRModuleInst
}
