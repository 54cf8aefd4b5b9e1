// Package builtins is the registry of synthesizable functions: the 17
// binary `$op_*` operators desugared from BinaryOps expressions, the
// `$passthrough` identity used for bare copies, and the `trig_inc` /
// `trig_dec` / `trig_chg` trigger-gate generators. A `raw` trigger needs
// no generator of its own: its gate net IS the watched net (pkg/ir wires
// this directly, without a call through this registry).
//
// The registry is consulted twice: pkg/ir uses ArgSpecs/ReturnType to
// type-check calls while lowering the AST, and pkg/synth invokes Synthesize
// to emit combinators. Synthesize is expressed against the SynthState
// interface declared here rather than against pkg/synth's concrete state,
// so this package never imports pkg/synth.
package builtins

import (
	"github.com/dthusian/k2se/pkg/ast"
	"github.com/dthusian/k2se/pkg/netlist"
	"github.com/dthusian/k2se/pkg/token"
)

// ArgKind classifies what shape of value a function argument accepts.
type ArgKind int

const (
	// ArgAny accepts any net (single or mixed) or a literal.
	ArgAny ArgKind = iota
	// ArgNet accepts only a net of the given NetType, never a bare literal.
	ArgNet
	// ArgSingleOrLit accepts a single-width net or an integer literal, but
	// never a mixed net.
	ArgSingleOrLit
	// ArgString accepts only a string literal.
	ArgString
)

// ArgSpec describes one formal parameter.
type ArgSpec struct {
	Kind    ArgKind
	NetType ast.NetType // meaningful only when Kind == ArgNet
}

// Ref is the tagged union of actual argument values Synthesize receives:
// either a reference to an already-allocated net, or an inline constant.
type Ref interface{ isRef() }

// NetRef names one already-allocated net, addressed by the synth package's
// own incomplete-net ids (opaque to this package).
type NetRef struct {
	ID      int
	NetType ast.NetType
}

// LitRef is an inline integer constant argument.
type LitRef struct{ Value int32 }

// StrRef is an inline string constant argument.
type StrRef struct{ Value string }

func (NetRef) isRef() {}
func (LitRef) isRef() {}
func (StrRef) isRef() {}

// SynthState is the capability surface pkg/synth's module synthesis state
// exposes to a builtin's Synthesize callback: enough to allocate a fresh
// net, wire up a combinator reading/writing incomplete nets, and record a
// signal-exclusion constraint between two nets that must never share a
// resolved signal.
type SynthState interface {
	// NewNet allocates a fresh anonymous net of the given type and returns
	// its id.
	NewNet(netType ast.NetType) int

	// AddVanilla appends a Vanilla combinator. inR/inG/outR/outG are
	// incomplete net ids, or -1 if that slot is unconnected.
	AddVanilla(v netlist.Vanilla, inR, inG, outR, outG int)

	// AddConstant appends a Constant combinator.
	AddConstant(c netlist.Constant, outR, outG int)

	// Exclude records that the nets named by ids a and b must never resolve
	// to the same signal, because they co-appear as the two inputs to one
	// combinator.
	Exclude(a, b int)

	// RedGreen returns the (red, green) incomplete net id pair backing a
	// logical net id, so a callback can read/write an individual color.
	RedGreen(id int) (red, green int)
}

// Descriptor is one registered builtin.
type Descriptor struct {
	Name string
	Args []ArgSpec

	// ReturnType computes the destination net type from the actual
	// argument net types (literals contribute ast.Single).
	ReturnType func(argTypes []ast.NetType) ast.NetType

	// Synthesize emits the combinator(s) implementing this call. dest is
	// the logical net id of the destination (both colors already
	// allocated by the caller).
	Synthesize func(st SynthState, args []Ref, dest int) error

	// ConstantFold is set for every `$op_*` operator and computes the
	// result of the op over two literal arguments without emitting any
	// combinator. Neither pkg/ir nor pkg/synth calls it; a literal+literal
	// operation is still synthesized as a combinator.
	ConstantFold func(args []int32) (int32, bool)
}

// Registry looks up descriptors by name.
type Registry struct {
	byName map[string]*Descriptor
}

// NewRegistry builds the standard registry: 17 `$op_*` operators,
// `$passthrough`, and the three `trig_*` gate generators.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Descriptor)}

	for _, op := range vanillaOps {
		r.register(makeOpDescriptor(op))
	}

	r.register(passthroughDescriptor())
	r.register(triggerDescriptor("trig_inc", netlist.OpGt))
	r.register(triggerDescriptor("trig_dec", netlist.OpLt))
	r.register(triggerDescriptor("trig_chg", netlist.OpNe))

	return r
}

func (r *Registry) register(d *Descriptor) {
	r.byName[d.Name] = d
}

// Lookup returns the descriptor for a function name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

type opSpec struct {
	binOp      token.BinaryOp
	vanillaOp  netlist.VanillaOp
	funcName   string
	arithmetic bool // eligible for Mixed-net operands (+ and - only)
}

var vanillaOps = []opSpec{
	{token.Add, netlist.OpAdd, "$op_add", true},
	{token.Sub, netlist.OpSub, "$op_sub", true},
	{token.Mul, netlist.OpMul, "$op_mul", false},
	{token.Div, netlist.OpDiv, "$op_div", false},
	{token.Mod, netlist.OpMod, "$op_mod", false},
	{token.Pow, netlist.OpPow, "$op_pow", false},
	{token.And, netlist.OpAnd, "$op_and", false},
	{token.Or, netlist.OpOr, "$op_or", false},
	{token.Xor, netlist.OpXor, "$op_xor", false},
	{token.Shl, netlist.OpShl, "$op_shl", false},
	{token.Shr, netlist.OpShr, "$op_shr", false},
	{token.Eq, netlist.OpEq, "$op_eq", false},
	{token.Ne, netlist.OpNe, "$op_ne", false},
	{token.Gt, netlist.OpGt, "$op_gt", false},
	{token.Lt, netlist.OpLt, "$op_lt", false},
	{token.Le, netlist.OpLe, "$op_le", false},
	{token.Ge, netlist.OpGe, "$op_ge", false},
}

// FuncNameForOp maps a parsed binary operator to its registered builtin
// name, used by pkg/ir when flattening a BinaryOps chain.
func FuncNameForOp(op token.BinaryOp) (string, bool) {
	for _, s := range vanillaOps {
		if s.binOp == op {
			return s.funcName, true
		}
	}

	return "", false
}

// IsArithmetic reports whether a registered `$op_*` name is `$op_add` or
// `$op_sub`, the only two operators a Mixed-typed operand may participate
// in.
func IsArithmetic(funcName string) bool {
	for _, s := range vanillaOps {
		if s.funcName == funcName && s.arithmetic {
			return true
		}
	}

	return false
}

func makeOpDescriptor(spec opSpec) *Descriptor {
	return &Descriptor{
		Name: spec.funcName,
		Args: []ArgSpec{
			{Kind: ArgAny},
			{Kind: ArgAny},
		},
		ReturnType: func(argTypes []ast.NetType) ast.NetType {
			for _, t := range argTypes {
				if t == ast.Mixed {
					return ast.Mixed
				}
			}

			return ast.Single
		},
		ConstantFold: func(args []int32) (int32, bool) {
			return foldVanillaOp(spec.vanillaOp, args[0], args[1])
		},
		Synthesize: func(st SynthState, args []Ref, dest int) error {
			return synthesizeVanillaOp(st, spec.vanillaOp, args, dest)
		},
	}
}

func passthroughDescriptor() *Descriptor {
	return &Descriptor{
		Name: "$passthrough",
		Args: []ArgSpec{{Kind: ArgAny}},
		ReturnType: func(argTypes []ast.NetType) ast.NetType {
			return argTypes[0]
		},
		Synthesize: func(st SynthState, args []Ref, dest int) error {
			return synthesizePassthrough(st, args[0], dest)
		},
	}
}

// triggerDescriptor builds trig_inc/trig_dec/trig_chg, which all share the
// shape "compare the watched net's current sample against its previous
// sample with `compareOp`, output 1 when true, else 0" — differing only in
// which comparison they run.
func triggerDescriptor(name string, compareOp netlist.VanillaOp) *Descriptor {
	return &Descriptor{
		Name: name,
		Args: []ArgSpec{{Kind: ArgNet, NetType: ast.Single}},
		ReturnType: func(argTypes []ast.NetType) ast.NetType {
			return ast.Single
		},
		Synthesize: func(st SynthState, args []Ref, dest int) error {
			return synthesizeEdgeTrigger(st, compareOp, args[0], dest)
		},
	}
}
