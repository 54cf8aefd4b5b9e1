package builtins

import (
	"fmt"

	"github.com/dthusian/k2se/pkg/ast"
	"github.com/dthusian/k2se/pkg/netlist"
)

// synthesizeVanillaOp wires a single Vanilla combinator computing `op` over
// up to two operands. By convention operand 0 is read off the destination
// combinator's red input slot and operand 1 off its green slot; a literal
// operand occupies no net slot at all. Two net operands sharing one
// combinator's two slots are marked mutually signal-exclusive, since the
// combinator can only tell them apart if they resolve to distinct signals.
func synthesizeVanillaOp(st SynthState, op netlist.VanillaOp, args []Ref, dest int) error {
	if op == netlist.OpSub {
		if a, ok := isMixedSub(args); ok {
			return synthesizeMixedSub(st, a[0], a[1], dest)
		}
	}

	var inSig [2]netlist.SignalRef

	inR, inG := -1, -1

	for i, a := range args {
		switch v := a.(type) {
		case LitRef:
			inSig[i] = netlist.Const(v.Value)
		case NetRef:
			red, green := st.RedGreen(v.ID)

			if i == 0 {
				inR = red
			} else {
				inG = green
			}

			inSig[i] = netlist.IncompleteSignal(v.ID)
		default:
			return fmt.Errorf("builtins: unsupported arg kind %T", a)
		}
	}

	if a0, ok0 := args[0].(NetRef); ok0 {
		if a1, ok1 := args[1].(NetRef); ok1 {
			st.Exclude(a0.ID, a1.ID)
		}
	}

	destRed, destGreen := st.RedGreen(dest)

	v := netlist.Vanilla{
		Op:           int(op),
		InputSignals: inSig,
		OutputSignal: netlist.IncompleteSignal(dest),
		OutputCount:  false,
	}

	st.AddVanilla(v, inR, inG, destRed, destGreen)

	return nil
}

// isMixedSub reports whether both subtraction operands are Mixed nets,
// the case that needs the negate-then-add treatment below rather than a
// direct Sub combinator.
func isMixedSub(args []Ref) ([2]NetRef, bool) {
	a0, ok0 := args[0].(NetRef)
	a1, ok1 := args[1].(NetRef)

	if ok0 && ok1 && a0.NetType == ast.Mixed && a1.NetType == ast.Mixed {
		return [2]NetRef{a0, a1}, true
	}

	return [2]NetRef{}, false
}

// synthesizeMixedSub implements `a - b` for two Mixed operands. A single
// Sub combinator with `Each` on both inputs does not subtract signal-wise
// the way Add does, so the second operand is first negated through an
// intermediate anonymous Mixed net (`Mul` by the literal -1, `Each`
// resolved at materialize time) and the result is added to the first.
func synthesizeMixedSub(st SynthState, a, b NetRef, dest int) error {
	neg := st.NewNet(ast.Mixed)

	if err := synthesizeVanillaOp(st, netlist.OpMul, []Ref{b, LitRef{Value: -1}}, neg); err != nil {
		return err
	}

	return synthesizeVanillaOp(st, netlist.OpAdd, []Ref{a, NetRef{ID: neg, NetType: ast.Mixed}}, dest)
}

// synthesizePassthrough copies a value into dest via `dest = arg + 0`, the
// standard trick for renaming a signal onto a new net without an actual
// arithmetic effect.
func synthesizePassthrough(st SynthState, arg Ref, dest int) error {
	return synthesizeVanillaOp(st, netlist.OpAdd, []Ref{arg, LitRef{Value: 0}}, dest)
}

// synthesizeEdgeTrigger wires `trig_inc`/`trig_dec`/`trig_chg`: a hidden net
// holding the watched net's value delayed by one tick (a combinator's
// output always lags its input by one tick, so a bare passthrough IS a
// one-tick delay), compared against the watched net's current value with
// compareOp.
func synthesizeEdgeTrigger(st SynthState, compareOp netlist.VanillaOp, arg Ref, dest int) error {
	watched, ok := arg.(NetRef)
	if !ok {
		return fmt.Errorf("builtins: trigger argument must be a net")
	}

	prev := st.NewNet(ast.Single)

	if err := synthesizePassthrough(st, watched, prev); err != nil {
		return err
	}

	prevRef := NetRef{ID: prev, NetType: ast.Single}

	return synthesizeVanillaOp(st, compareOp, []Ref{watched, prevRef}, dest)
}

func foldVanillaOp(op netlist.VanillaOp, a, b int32) (int32, bool) {
	switch op {
	case netlist.OpAdd:
		return a + b, true
	case netlist.OpSub:
		return a - b, true
	case netlist.OpMul:
		return a * b, true
	case netlist.OpDiv:
		if b == 0 {
			return 0, true
		}

		return a / b, true
	case netlist.OpMod:
		if b == 0 {
			return 0, true
		}

		return a % b, true
	case netlist.OpPow:
		result := int32(1)

		for i := int32(0); i < b; i++ {
			result *= a
		}

		return result, true
	case netlist.OpAnd:
		return a & b, true
	case netlist.OpOr:
		return a | b, true
	case netlist.OpXor:
		return a ^ b, true
	case netlist.OpShl:
		return a << uint32(b&31), true
	case netlist.OpShr:
		return a >> uint32(b&31), true
	case netlist.OpEq:
		return boolToI32(a == b), true
	case netlist.OpNe:
		return boolToI32(a != b), true
	case netlist.OpGt:
		return boolToI32(a > b), true
	case netlist.OpLt:
		return boolToI32(a < b), true
	case netlist.OpLe:
		return boolToI32(a <= b), true
	case netlist.OpGe:
		return boolToI32(a >= b), true
	default:
		return 0, false
	}
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}

	return 0
}
