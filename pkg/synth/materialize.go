package synth

import (
	"fmt"

	"github.com/dthusian/k2se/pkg/ast"
	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/ir"
	"github.com/dthusian/k2se/pkg/netlist"
)

// materialize resolves every Single pair's signal from the virtual pool,
// substitutes concrete NetIDs and Signals into every incomplete combinator,
// and emits the root module's ports as external connections.
func (s *state) materialize(main *ir.IRModule, portIDs []int) *netlist.Netlist {
	s.resolveSignals()

	nl := &netlist.Netlist{}

	for range s.nets {
		nl.AddNet(netlist.Net{})
	}

	for i, e := range s.nets {
		color := netlist.Red
		if i%2 == 1 {
			color = netlist.Green
		}

		nl.Nets[i] = netlist.Net{NetType: e.netType, Color: color, Signal: e.resolvedSignal}
	}

	for _, ic := range s.combinators {
		s.materializeCombinator(nl, ic)
	}

	for i, p := range main.Ports {
		red := portIDs[i]
		nl.ExternalConns = append(nl.ExternalConns, netlist.ExternalConn{
			RedNetID:    netlist.NetID(red),
			GreenNetID:  netlist.NetID(red + 1),
			DisplayName: padName(p.Name),
			Signal:      s.nets[red].resolvedSignal,
		})
	}

	return nl
}

func (s *state) materializeCombinator(nl *netlist.Netlist, ic incompleteCombinator) {
	switch {
	case ic.payload.Vanilla != nil:
		v := *ic.payload.Vanilla
		v.InputNets = [2]*netlist.NetID{optNetID(ic.inR), optNetID(ic.inG)}
		v.OutputNets = [2]*netlist.NetID{optNetID(ic.outR), optNetID(ic.outG)}
		v.InputSignals[0] = s.resolveSignalRef(v.InputSignals[0])
		v.InputSignals[1] = s.resolveSignalRef(v.InputSignals[1])
		v.OutputSignal = s.resolveSignalRef(v.OutputSignal)

		cid := nl.AddCombinator(netlist.Combinator{Vanilla: &v}, ic.modpath)
		s.connectCombinator(nl, cid, ic)

	case ic.payload.Constant != nil:
		c := *ic.payload.Constant
		c.OutputNets = [2]*netlist.NetID{optNetID(ic.outR), optNetID(ic.outG)}

		cid := nl.AddCombinator(netlist.Combinator{Constant: &c}, ic.modpath)
		s.connectCombinator(nl, cid, ic)
	}
}

func (s *state) connectCombinator(nl *netlist.Netlist, cid netlist.CombinatorID, ic incompleteCombinator) {
	if ic.inR >= 0 {
		nl.ConnectIn(netlist.NetID(ic.inR), cid, 0)
	}

	if ic.inG >= 0 {
		nl.ConnectIn(netlist.NetID(ic.inG), cid, 1)
	}

	if ic.outR >= 0 {
		nl.ConnectOut(netlist.NetID(ic.outR), cid, 0)
	}

	if ic.outG >= 0 {
		nl.ConnectOut(netlist.NetID(ic.outG), cid, 1)
	}
}

func optNetID(id int) *netlist.NetID {
	if id < 0 {
		return nil
	}

	nid := netlist.NetID(id)

	return &nid
}

// resolveSignalRef replaces an IncompleteSignal placeholder with a concrete
// Signal for a Single pair, or with Each() for a Mixed pair, whose multiple
// simultaneous signals are addressed collectively rather than by name.
func (s *state) resolveSignalRef(ref netlist.SignalRef) netlist.SignalRef {
	if !ref.IsIncomplete() {
		return ref
	}

	id := ref.IncompleteRef()
	if s.nets[id].netType == ast.Mixed {
		return netlist.Each()
	}

	if s.nets[id].resolvedSignal == nil {
		return netlist.Const(0)
	}

	return ref.Resolved(*s.nets[id].resolvedSignal)
}

// resolveSignals greedily assigns every Single pair a virtual signal
// distinct from every pair it has been marked exclusive with. Pairs are
// visited in allocation order, which is deterministic given a fixed
// program, so repeated synthesis of the same source yields the same
// assignment.
func (s *state) resolveSignals() {
	pool := virtualSignalPool()
	assigned := make(map[int]int) // pair id -> index into pool

	for red := 0; red < len(s.nets); red += 2 {
		if s.nets[red].netType != ast.Single {
			continue
		}

		excl := s.exclude[red]

		choice := -1

		for i := range pool {
			conflict := false

			if excl != nil {
				for other, idx := range assigned {
					if idx == i && excl.Test(uint(other)) {
						conflict = true
						break
					}
				}
			}

			if !conflict {
				choice = i
				break
			}
		}

		if choice < 0 {
			s.diags = append(s.diags, diag.WithoutSpan(diag.SignalPoolExhausted,
				fmt.Sprintf("no virtual signal remains for net pair %d (37th mutually-exclusive single net)", red)))

			continue
		}

		assigned[red] = choice
		sig := pool[choice]
		s.nets[red].resolvedSignal = &sig
		s.nets[red+1].resolvedSignal = &sig
	}
}

func padName(name string) [4]byte {
	var out [4]byte

	for i := range out {
		if i < len(name) {
			out[i] = name[i]
		} else {
			out[i] = ' '
		}
	}

	return out
}
