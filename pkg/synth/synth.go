// Package synth lowers a set of IR modules into a single flat Netlist,
// following a two-phase incomplete-net-then-materialize design: every
// module instantiation (including the implicit one for "main") shares one
// arena of per-color incomplete nets, so a submodule's ports are simply the
// caller's net ids passed through rather than a fresh, separately-addressed
// space that would need stitching back together.
package synth

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/dthusian/k2se/pkg/ast"
	"github.com/dthusian/k2se/pkg/builtins"
	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/ir"
	"github.com/dthusian/k2se/pkg/netlist"
)

// incompleteEntry is one per-color slot in the shared arena. Entries are
// allocated in (red, green) pairs; a pair's canonical id is its red index.
type incompleteEntry struct {
	netType        ast.NetType
	resolvedSignal *netlist.Signal
}

// incompleteCombinator mirrors a netlist.Combinator but its net slots are
// still incomplete-net ids (-1 meaning unconnected) rather than netlist
// NetIDs, and its SignalRef fields may still be IncompleteSignal
// placeholders.
type incompleteCombinator struct {
	payload            netlist.Combinator
	inR, inG, outR, outG int
	modpath            []string
}

type state struct {
	registry *builtins.Registry

	nets        []incompleteEntry
	combinators []incompleteCombinator
	exclude     map[int]*bitset.BitSet

	modpath []string

	diags []diag.Diagnostic
}

var _ builtins.SynthState = (*state)(nil)

func (s *state) NewNet(netType ast.NetType) int {
	red := len(s.nets)
	s.nets = append(s.nets, incompleteEntry{netType: netType}, incompleteEntry{netType: netType})

	return red
}

func (s *state) RedGreen(id int) (int, int) {
	return id, id + 1
}

func (s *state) AddVanilla(v netlist.Vanilla, inR, inG, outR, outG int) {
	s.combinators = append(s.combinators, incompleteCombinator{
		payload: netlist.Combinator{Vanilla: &v},
		inR:     inR, inG: inG, outR: outR, outG: outG,
		modpath: append([]string(nil), s.modpath...),
	})
}

func (s *state) AddConstant(c netlist.Constant, outR, outG int) {
	s.combinators = append(s.combinators, incompleteCombinator{
		payload: netlist.Combinator{Constant: &c},
		inR:     -1, inG: -1, outR: outR, outG: outG,
		modpath: append([]string(nil), s.modpath...),
	})
}

func (s *state) Exclude(a, b int) {
	s.ensureExclude(a)
	s.ensureExclude(b)
	s.exclude[a].Set(uint(b))
	s.exclude[b].Set(uint(a))
}

func (s *state) ensureExclude(id int) {
	if s.exclude == nil {
		s.exclude = make(map[int]*bitset.BitSet)
	}

	if _, ok := s.exclude[id]; !ok {
		s.exclude[id] = bitset.New(64)
	}
}

// Settings configures a synthesis run.
type Settings struct {
	MainModule string
}

// Synthesize lowers modules into a Netlist rooted at settings.MainModule.
// Diagnostics are accumulated non-fatally where the IR already guarantees
// structural validity; a missing main module or an instantiation cycle is
// fatal to the corresponding branch but other branches still synthesize.
func Synthesize(modules map[string]*ir.IRModule, registry *builtins.Registry, settings Settings) (*netlist.Netlist, []diag.Diagnostic) {
	main, ok := modules[settings.MainModule]
	if !ok {
		return nil, []diag.Diagnostic{diag.WithoutSpan(diag.MainNotFound, fmt.Sprintf("no module named %q", settings.MainModule))}
	}

	s := &state{registry: registry}

	portIDs := make([]int, len(main.Ports))
	for i, p := range main.Ports {
		portIDs[i] = s.NewNet(p.NetType)
	}

	s.synthesizeModule(modules, settings.MainModule, portIDs, nil)

	nl := s.materialize(main, portIDs)

	return nl, s.diags
}

// synthesizeModule expands one module instance into the shared arena:
// binding its ports to portIDs (supplied by the caller, or freshly
// allocated for the root), allocating internal objects, lowering
// statements via builtin Synthesize callbacks, resolving mem feedback from
// trigger statements, and recursing into submodule instantiations.
func (s *state) synthesizeModule(modules map[string]*ir.IRModule, name string, portIDs []int, activePath []string) {
	for _, p := range activePath {
		if p == name {
			s.diags = append(s.diags, diag.WithoutSpan(diag.CyclicModuleInstantiation,
				fmt.Sprintf("module %q is instantiated from within itself", name)))

			return
		}
	}

	m, ok := modules[name]
	if !ok {
		return
	}

	s.modpath = append(activePath, name)
	defer func() { s.modpath = activePath }()

	nameToID := make(map[string]int, len(m.Objects))

	for i, p := range m.Ports {
		nameToID[p.Name] = portIDs[i]
	}

	objNames := make([]string, 0, len(m.Objects))
	for n := range m.Objects {
		objNames = append(objNames, n)
	}

	sort.Strings(objNames)

	for _, n := range objNames {
		if _, isPort := nameToID[n]; isPort {
			continue
		}

		nameToID[n] = s.NewNet(m.Objects[n].NetType)
	}

	for _, stmt := range m.Stmts {
		s.lowerStmt(m, stmt, nameToID)
	}

	s.lowerMemFeedback(m, nameToID)

	for _, inst := range m.ModuleInsts {
		argIDs := make([]int, len(inst.Args))

		for i, a := range inst.Args {
			argIDs[i] = nameToID[a]
		}

		s.synthesizeModule(modules, inst.Name, argIDs, append([]string(nil), s.modpath...))
	}
}

func (s *state) lowerStmt(m *ir.IRModule, stmt ir.IRStmt, nameToID map[string]int) {
	desc, ok := s.registry.Lookup(stmt.OpName)
	if !ok {
		s.diags = append(s.diags, diag.WithoutSpan(diag.UnknownFunction, fmt.Sprintf("unknown builtin %q", stmt.OpName)))
		return
	}

	args := make([]builtins.Ref, len(stmt.Args))

	for i, a := range stmt.Args {
		args[i] = s.toRef(m, a, nameToID)
	}

	dest, ok := nameToID[stmt.Dest]
	if !ok {
		return
	}

	if err := desc.Synthesize(s, args, dest); err != nil {
		s.diags = append(s.diags, diag.WithoutSpan(diag.TypeErrorGeneric, err.Error()))
	}
}

func (s *state) toRef(m *ir.IRModule, v ir.IRValue, nameToID map[string]int) builtins.Ref {
	switch t := v.(type) {
	case ir.Net:
		id, ok := nameToID[t.Name]
		if !ok {
			return builtins.LitRef{Value: 0}
		}

		netType := ast.Single
		if obj, ok := m.Objects[t.Name]; ok {
			netType = obj.NetType
		}

		return builtins.NetRef{ID: id, NetType: netType}
	case ir.Lit:
		return builtins.LitRef{Value: t.Value}
	case ir.Str:
		return builtins.StrRef{Value: t.Value}
	default:
		return builtins.LitRef{Value: 0}
	}
}

// lowerMemFeedback wires every mem object's self-loop. Every mem always
// gets an unconditional persisting writer (`self = self + 0`); each
// trigger writer additionally wires a decider straight onto the same net,
// passing its source through only when its gate is asserted. No
// intermediate sum nets are allocated — the net's normal multi-writer
// summation combines the persisted value with whichever gated deltas
// fired this tick, the same mechanism the self-loop combinator itself
// relies on.
func (s *state) lowerMemFeedback(m *ir.IRModule, nameToID map[string]int) {
	byDest := make(map[string][]ir.IRTriggerStmt)
	for _, ts := range m.TriggerStmts {
		byDest[ts.Dest] = append(byDest[ts.Dest], ts)
	}

	passDesc, _ := s.registry.Lookup("$passthrough")

	names := make([]string, 0, len(m.Objects))
	for n, o := range m.Objects {
		if o.IsMem {
			names = append(names, n)
		}
	}

	sort.Strings(names)

	for _, name := range names {
		obj := m.Objects[name]
		selfID := nameToID[name]

		_ = passDesc.Synthesize(s, []builtins.Ref{builtins.NetRef{ID: selfID, NetType: obj.NetType}}, selfID)

		for _, ts := range byDest[name] {
			onID, ok := nameToID[ts.On]
			if !ok {
				continue
			}

			srcID, ok := nameToID[ts.Src]
			if !ok {
				continue
			}

			s.synthesizeTriggerGate(onID, srcID, selfID)
		}
	}
}

// synthesizeTriggerGate wires one IRTriggerStmt directly: a decider
// comparing the gate net against the constant 0, forwarding src to dest
// unchanged when the gate is nonzero and contributing nothing otherwise.
// Allocates no new net; dest is written in place, relying on its other
// writers to sum with this one on the wire.
func (s *state) synthesizeTriggerGate(onID, srcID, destID int) {
	s.Exclude(srcID, onID)

	srcRed, _ := s.RedGreen(srcID)
	_, onGreen := s.RedGreen(onID)
	destRed, destGreen := s.RedGreen(destID)

	v := netlist.Vanilla{
		Op: int(netlist.OpNe),
		InputSignals: [2]netlist.SignalRef{
			netlist.IncompleteSignal(onID),
			netlist.Const(0),
		},
		OutputSignal: netlist.Everything(),
		OutputCount:  true,
	}

	s.AddVanilla(v, srcRed, onGreen, destRed, destGreen)
}
