package ir

import (
	"testing"

	"github.com/dthusian/k2se/pkg/builtins"
	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/lexer"
	"github.com/dthusian/k2se/pkg/parser"
	"github.com/dthusian/k2se/pkg/source"
)

func transformSrc(t *testing.T, src string) (map[string]*IRModule, []diag.Diagnostic) {
	t.Helper()

	file := source.NewFile("test.fhdl", []byte(src))

	toks, lexErr := lexer.Tokenize(file)
	if lexErr != nil {
		t.Fatalf("unexpected lex error: %s", lexErr.Error())
	}

	prog, parseErr := parser.Parse(toks, file.EOFPos())
	if parseErr != nil {
		t.Fatalf("unexpected parse error: %s", parseErr.Error())
	}

	return Transform(prog, builtins.NewRegistry())
}

func hasKind(diags []diag.Diagnostic, k diag.Kind) bool {
	for _, d := range diags {
		if d.Kind == k {
			return true
		}
	}

	return false
}

func TestTransformMinimalModule(t *testing.T) {
	modules, diags := transformSrc(t, `version 2;
module main(in single a, out single b) {
	set b = a;
}`)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	main, ok := modules["main"]
	if !ok {
		t.Fatal("expected a \"main\" module")
	}

	if len(main.Stmts) != 1 {
		t.Fatalf("got %d stmts, want 1 (the passthrough copy of a into b)", len(main.Stmts))
	}

	if main.Stmts[0].Dest != "b" || main.Stmts[0].OpName != "$passthrough" {
		t.Errorf("got %+v", main.Stmts[0])
	}
}

func TestTransformBinaryOpFlattening(t *testing.T) {
	modules, diags := transformSrc(t, `version 2;
module main(in single a, in single b, in single c, out single d) {
	set d = a + b * c;
}`)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	main := modules["main"]

	// b * c lowers to one anonymous statement, then a + (that result) is
	// bound directly onto d via the anonymous-rename peephole, so two
	// statements remain: the "$op_mul" for b*c still writes an anonymous
	// net, and the final "$op_add" writes d.
	var sawMul bool

	for _, s := range main.Stmts {
		if s.OpName == "$op_mul" {
			sawMul = true
		}
	}

	if !sawMul {
		t.Fatal("expected a $op_mul statement for b * c")
	}

	last := main.Stmts[len(main.Stmts)-1]
	if last.Dest != "d" || last.OpName != "$op_add" {
		t.Errorf("final statement: got %+v, want $op_add writing d", last)
	}
}

func TestTransformMainNotFound(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module helper(in single a, out single b) {
	set b = a;
}`)

	if !hasKind(diags, diag.MainNotFound) {
		t.Fatalf("expected MainNotFound, got %v", diags)
	}
}

func TestTransformWriteToInputPort(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(in single a) {
	set a = 1;
}`)

	if !hasKind(diags, diag.WriteToInput) {
		t.Fatalf("expected WriteToInput, got %v", diags)
	}
}

func TestTransformMultipleExclusiveWrites(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main() {
	wire single a;
	set a = 1;
	set a = 2;
}`)

	if !hasKind(diags, diag.MultipleExclusiveWrites) {
		t.Fatalf("expected MultipleExclusiveWrites, got %v", diags)
	}
}

func TestTransformMemAssignOutsideTrigger(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(out single a) {
	mem single m;
	set m = 1;
}`)

	if !hasKind(diags, diag.MemAssignOutsideOfTrigger) {
		t.Fatalf("expected MemAssignOutsideOfTrigger, got %v", diags)
	}
}

func TestTransformUnknownFunction(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(in single a, out single b) {
	set b = nonexistent(a);
}`)

	if !hasKind(diags, diag.UnknownFunction) {
		t.Fatalf("expected UnknownFunction, got %v", diags)
	}
}

func TestTransformInvalidOpOnMixedNets(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(in mixed a, in single b, out mixed c) {
	set c = a * b;
}`)

	if !hasKind(diags, diag.InvalidOpOnMixedNets) {
		t.Fatalf("expected InvalidOpOnMixedNets, got %v", diags)
	}
}

func TestTransformMixedArithmeticIsAllowed(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(in mixed a, in single b, out mixed c) {
	set c = a + b;
}`)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics for mixed + single: %v", diags)
	}
}

// TestTransformCounterWithTrigger checks the mem/trigger desugaring: a
// `trigger clk increasing { set acc += 1; }` block should produce one gate
// statement (trig_inc) and one IRTriggerStmt recording the gated delta, with
// no direct write to acc outside the trigger machinery.
func TestTransformCounterWithTrigger(t *testing.T) {
	modules, diags := transformSrc(t, `version 2;
module main(in single clk, out single count) {
	mem single acc;
	trigger clk increasing {
		set acc += 1;
	};
	set count = acc;
}`)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	main := modules["main"]

	var sawGate bool

	for _, s := range main.Stmts {
		if s.OpName == "trig_inc" {
			sawGate = true
		}
	}

	if !sawGate {
		t.Fatal("expected a trig_inc gate statement")
	}

	if len(main.TriggerStmts) != 1 {
		t.Fatalf("got %d trigger stmts, want 1", len(main.TriggerStmts))
	}

	if main.TriggerStmts[0].Dest != "acc" {
		t.Errorf("got %+v, want Dest == \"acc\"", main.TriggerStmts[0])
	}
}

func TestTransformRawTriggerUsesWatchedNetAsGate(t *testing.T) {
	modules, diags := transformSrc(t, `version 2;
module main(in single en, out single count) {
	mem single acc;
	trigger en raw {
		set acc += 1;
	};
	set count = acc;
}`)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	main := modules["main"]

	for _, s := range main.Stmts {
		if s.OpName == "trig_raw" || s.OpName == "trig_inc" || s.OpName == "trig_dec" || s.OpName == "trig_chg" {
			t.Errorf("a raw trigger must not emit a gate statement, got %+v", s)
		}
	}

	if len(main.TriggerStmts) != 1 {
		t.Fatalf("got %d trigger stmts, want 1", len(main.TriggerStmts))
	}

	if main.TriggerStmts[0].On != "en" {
		t.Errorf("got On == %q, want the watched net name %q directly", main.TriggerStmts[0].On, "en")
	}
}

func TestTransformNestedTriggerBlocksRejected(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(in single clk, out single count) {
	mem single acc;
	trigger clk increasing {
		trigger clk decreasing {
			set acc += 1;
		};
	};
	set count = acc;
}`)

	if !hasKind(diags, diag.NestedTriggerBlocks) {
		t.Fatalf("expected NestedTriggerBlocks, got %v", diags)
	}
}

func TestTransformWrongNumberOfModuleArgs(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module helper(in single a, out single b) {
	set b = a;
}
module main(in single x, out single y) {
	inst helper(x);
}`)

	if !hasKind(diags, diag.WrongNumberOfModuleArgs) {
		t.Fatalf("expected WrongNumberOfModuleArgs, got %v", diags)
	}
}

func TestTransformExprForOutPortMustBeIdentifier(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module helper(in single a, out single b) {
	set b = a;
}
module main(in single x, out single y) {
	inst helper(y, x + 1);
}`)

	if !hasKind(diags, diag.ExprForOutInoutPort) {
		t.Fatalf("expected ExprForOutInoutPort, got %v", diags)
	}
}

func TestTransformDuplicateModuleDeclaration(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(out single a) {
	set a = 1;
}
module main(out single a) {
	set a = 2;
}`)

	if !hasKind(diags, diag.MultipleDeclarations) {
		t.Fatalf("expected MultipleDeclarations, got %v", diags)
	}
}

// TestTransformForwardReference checks collectDecls' pre-pass: a wire may
// reference another wire declared later in program order.
func TestTransformForwardReference(t *testing.T) {
	_, diags := transformSrc(t, `version 2;
module main(out single result) {
	wire single a = b;
	wire single b = 1;
	set result = a;
}`)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}
