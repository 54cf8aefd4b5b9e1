package blueprint

import (
	"encoding/json"
	"testing"

	"github.com/dthusian/k2se/pkg/layout"
	"github.com/dthusian/k2se/pkg/netlist"
)

func netID(n int) *netlist.NetID {
	id := netlist.NetID(n)
	return &id
}

func TestEmitRejectsPositionCountMismatch(t *testing.T) {
	nl := &netlist.Netlist{Combinators: []netlist.Combinator{{}}}

	if _, err := Emit(nl, nil, "test"); err == nil {
		t.Fatal("expected an error for mismatched position count")
	}
}

func TestEmitArithmeticCombinator(t *testing.T) {
	nl := &netlist.Netlist{
		Combinators: []netlist.Combinator{
			{Vanilla: &netlist.Vanilla{
				Op:           int(netlist.OpAdd),
				InputNets:    [2]*netlist.NetID{netID(0), netID(2)},
				OutputNets:   [2]*netlist.NetID{netID(4), nil},
				InputSignals: [2]netlist.SignalRef{netlist.SignalOf(netlist.Signal{Kind: netlist.Virtual, Name: "signal-A"}), netlist.Const(1)},
				OutputSignal: netlist.SignalOf(netlist.Signal{Kind: netlist.Virtual, Name: "signal-B"}),
			}},
		},
	}

	out, err := Emit(nl, []layout.Position{{Coord: layout.Coord{X: 3, Y: 4}}}, "my blueprint")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var doc map[string]any

	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %s", err)
	}

	bp, ok := doc["blueprint"].(map[string]any)
	if !ok {
		t.Fatalf("missing \"blueprint\" key in %v", doc)
	}

	if bp["label"] != "my blueprint" {
		t.Errorf("got label %v, want \"my blueprint\"", bp["label"])
	}

	entities, ok := bp["entities"].([]any)
	if !ok || len(entities) != 1 {
		t.Fatalf("got entities %v, want exactly 1", bp["entities"])
	}

	e := entities[0].(map[string]any)
	if e["name"] != "arithmetic-combinator" {
		t.Errorf("got name %v, want \"arithmetic-combinator\"", e["name"])
	}

	pos := e["position"].(map[string]any)
	if pos["x"] != float64(3) || pos["y"] != float64(4) {
		t.Errorf("got position %v, want (3, 4)", pos)
	}
}

func TestEmitDeciderCombinatorForComparisonOps(t *testing.T) {
	nl := &netlist.Netlist{
		Combinators: []netlist.Combinator{
			{Vanilla: &netlist.Vanilla{
				Op:           int(netlist.OpGt),
				OutputSignal: netlist.SignalOf(netlist.Signal{Kind: netlist.Virtual, Name: "signal-A"}),
				OutputCount:  true,
			}},
		},
	}

	out, err := Emit(nl, []layout.Position{{}}, "test")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var doc map[string]any
	json.Unmarshal(out, &doc)

	e := doc["blueprint"].(map[string]any)["entities"].([]any)[0].(map[string]any)
	if e["name"] != "decider-combinator" {
		t.Errorf("got name %v, want \"decider-combinator\"", e["name"])
	}

	cb := e["control_behavior"].(map[string]any)
	dc, ok := cb["decider_conditions"].(map[string]any)
	if !ok {
		t.Fatalf("missing decider_conditions in %v", cb)
	}

	if dc["comparator"] != ">" {
		t.Errorf("got comparator %v, want \">\"", dc["comparator"])
	}

	if dc["copy_count_from_input"] != true {
		t.Errorf("got copy_count_from_input %v, want true", dc["copy_count_from_input"])
	}
}

func TestEmitConstantCombinator(t *testing.T) {
	var slots [20]*netlist.SignalWithCount
	slots[0] = &netlist.SignalWithCount{Signal: netlist.Signal{Kind: netlist.Item, Name: "iron-plate"}, Count: 100}

	nl := &netlist.Netlist{
		Combinators: []netlist.Combinator{
			{Constant: &netlist.Constant{Enabled: true, OutputSlots: slots}},
		},
	}

	out, err := Emit(nl, []layout.Position{{}}, "test")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var doc map[string]any
	json.Unmarshal(out, &doc)

	e := doc["blueprint"].(map[string]any)["entities"].([]any)[0].(map[string]any)
	if e["name"] != "constant-combinator" {
		t.Errorf("got name %v, want \"constant-combinator\"", e["name"])
	}

	cb := e["control_behavior"].(map[string]any)
	filters := cb["filters"].([]any)

	if len(filters) != 1 {
		t.Fatalf("got %d filters, want 1", len(filters))
	}

	f := filters[0].(map[string]any)
	if f["count"] != float64(100) {
		t.Errorf("got count %v, want 100", f["count"])
	}

	sig := f["signal"].(map[string]any)
	if sig["name"] != "iron-plate" || sig["type"] != "item" {
		t.Errorf("got signal %v, want iron-plate/item", sig)
	}
}

func TestAttachConnectionsWiresTwoEndpoints(t *testing.T) {
	nl := &netlist.Netlist{
		Combinators: []netlist.Combinator{
			{Vanilla: &netlist.Vanilla{OutputSignal: netlist.Const(0)}},
			{Vanilla: &netlist.Vanilla{OutputSignal: netlist.Const(0)}},
		},
	}

	nid := nl.AddNet(netlist.Net{Color: netlist.Red})
	nl.ConnectOut(nid, 0, 0)
	nl.ConnectIn(nid, 1, 0)

	out, err := Emit(nl, []layout.Position{{}, {}}, "test")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var doc map[string]any
	json.Unmarshal(out, &doc)

	entities := doc["blueprint"].(map[string]any)["entities"].([]any)

	e0 := entities[0].(map[string]any)
	conns, ok := e0["connections"].(map[string]any)
	if !ok {
		t.Fatalf("entity 0 missing connections: %v", e0)
	}

	one := conns["1"].(map[string]any)
	red := one["red"].([]any)

	if len(red) != 1 {
		t.Fatalf("got %d red links, want 1", len(red))
	}

	if red[0].(map[string]any)["entity_id"] != float64(2) {
		t.Errorf("got entity_id %v, want 2 (1-based)", red[0].(map[string]any)["entity_id"])
	}
}
