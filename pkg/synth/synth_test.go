package synth

import (
	"testing"

	"github.com/dthusian/k2se/pkg/ast"
	"github.com/dthusian/k2se/pkg/builtins"
	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/ir"
	"github.com/dthusian/k2se/pkg/lexer"
	"github.com/dthusian/k2se/pkg/netlist"
	"github.com/dthusian/k2se/pkg/parser"
	"github.com/dthusian/k2se/pkg/source"
)

func hasKind(diags []diag.Diagnostic, k diag.Kind) bool {
	for _, d := range diags {
		if d.Kind == k {
			return true
		}
	}

	return false
}

func compileModules(t *testing.T, src string) map[string]*ir.IRModule {
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

	modules, diags := ir.Transform(prog, builtins.NewRegistry())
	if len(diags) != 0 {
		t.Fatalf("unexpected transform diagnostics: %v", diags)
	}

	return modules
}

func TestSynthesizeMinimalModule(t *testing.T) {
	modules := compileModules(t, `version 2;
module main(in single a, out single b) {
	set b = a + 1;
}`)

	nl, diags := Synthesize(modules, builtins.NewRegistry(), Settings{MainModule: "main"})
	if len(diags) != 0 {
		t.Fatalf("unexpected synth diagnostics: %v", diags)
	}

	if len(nl.ExternalConns) != 2 {
		t.Fatalf("got %d external conns, want 2 (one per port)", len(nl.ExternalConns))
	}

	if len(nl.Combinators) == 0 {
		t.Fatal("expected at least one combinator for the add")
	}
}

func TestSynthesizeMissingMainModule(t *testing.T) {
	modules := compileModules(t, `version 2;
module helper(in single a, out single b) {
	set b = a;
}`)

	_, diags := Synthesize(modules, builtins.NewRegistry(), Settings{MainModule: "nonexistent"})
	if !hasKind(diags, diag.MainNotFound) {
		t.Fatalf("expected MainNotFound, got %v", diags)
	}
}

func TestSynthesizeCyclicModuleInstantiation(t *testing.T) {
	modules := compileModules(t, `version 2;
module main(in single a, out single b) {
	inst main(a, b);
}`)

	_, diags := Synthesize(modules, builtins.NewRegistry(), Settings{MainModule: "main"})
	if !hasKind(diags, diag.CyclicModuleInstantiation) {
		t.Fatalf("expected CyclicModuleInstantiation, got %v", diags)
	}
}

func TestSynthesizeSubmodulePortsShareCallerArena(t *testing.T) {
	modules := compileModules(t, `version 2;
module adder(in single x, in single y, out single sum) {
	set sum = x + y;
}
module main(in single p, in single q, out single r) {
	inst adder(p, q, r);
}`)

	nl, diags := Synthesize(modules, builtins.NewRegistry(), Settings{MainModule: "main"})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	// main has no statements of its own; the single $op_add combinator must
	// come from the submodule instantiation, wired directly to main's own
	// external ports (no id-translation copy in between).
	if len(nl.Combinators) != 1 {
		t.Fatalf("got %d combinators, want 1", len(nl.Combinators))
	}

	pConn, qConn, rConn := nl.ExternalConns[0], nl.ExternalConns[1], nl.ExternalConns[2]

	v := nl.Combinators[0].Vanilla
	if v == nil {
		t.Fatal("expected a Vanilla combinator")
	}

	if *v.InputNets[0] != pConn.RedNetID || *v.InputNets[1] != qConn.GreenNetID {
		t.Errorf("submodule combinator does not read directly from caller's port nets: %+v", v)
	}

	if *v.OutputNets[0] != rConn.RedNetID {
		t.Errorf("submodule combinator does not write directly to caller's output port net: %+v", v)
	}
}

func TestResolveSignalsAssignsDistinctSignalsWhenExcluded(t *testing.T) {
	s := &state{}

	a := s.NewNet(ast.Single)
	b := s.NewNet(ast.Single)
	s.Exclude(a, b)

	s.resolveSignals()

	if len(s.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", s.diags)
	}

	if s.nets[a].resolvedSignal == nil || s.nets[b].resolvedSignal == nil {
		t.Fatal("expected both pairs to resolve a signal")
	}

	if *s.nets[a].resolvedSignal == *s.nets[b].resolvedSignal {
		t.Error("excluded pairs must not share a resolved signal")
	}
}

// TestResolveSignalsExhaustsPoolAt37MutualExclusions exercises the 36-entry
// virtual signal pool boundary: 36 pairwise-exclusive Single nets all fit,
// but a 37th mutually exclusive with every other one cannot.
func TestResolveSignalsExhaustsPoolAt37MutualExclusions(t *testing.T) {
	for _, n := range []int{36, 37} {
		s := &state{}

		ids := make([]int, n)
		for i := range ids {
			ids[i] = s.NewNet(ast.Single)
		}

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				s.Exclude(ids[i], ids[j])
			}
		}

		s.resolveSignals()

		exhausted := hasKind(s.diags, diag.SignalPoolExhausted)

		if n == 36 && exhausted {
			t.Errorf("n=36: unexpected SignalPoolExhausted")
		}

		if n == 37 && !exhausted {
			t.Errorf("n=37: expected SignalPoolExhausted")
		}
	}
}

func TestLowerMemFeedbackTriggerUsesDeciderGate(t *testing.T) {
	modules := compileModules(t, `version 2;
module counter(in single clk, out single cnt) {
	mem single reg;
	trigger clk increasing { set reg = reg + 1; };
	set cnt = reg;
}`)

	nl, diags := Synthesize(modules, builtins.NewRegistry(), Settings{MainModule: "counter"})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	var deciders int

	for _, c := range nl.Combinators {
		if c.Vanilla != nil && c.Vanilla.VanillaOpOf() == netlist.OpNe {
			deciders++

			if c.Vanilla.OutputSignal != netlist.Everything() {
				t.Errorf("gate decider output signal: got %+v, want Everything", c.Vanilla.OutputSignal)
			}

			if !c.Vanilla.OutputCount {
				t.Error("gate decider should set OutputCount")
			}
		}

		if c.Vanilla != nil && c.Vanilla.VanillaOpOf() == netlist.OpMul {
			t.Error("mem trigger gating must not use a Mul combinator")
		}
	}

	// One decider gates `reg`'s trig_inc writer; trig_inc's own internal
	// edge comparison is a separate Gt combinator, not counted here.
	if deciders != 1 {
		t.Errorf("got %d Ne deciders, want 1", deciders)
	}
}

func TestLowerMemFeedbackHoldsValueWithNoTriggerWriters(t *testing.T) {
	modules := compileModules(t, `version 2;
module main(in single clk, out single v) {
	mem single m;
	set v = m;
}`)

	nl, diags := Synthesize(modules, builtins.NewRegistry(), Settings{MainModule: "main"})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	// The mem's unconditional self-loop plus the v = m copy should produce
	// at least two combinators.
	if len(nl.Combinators) < 2 {
		t.Fatalf("got %d combinators, want at least 2", len(nl.Combinators))
	}
}
