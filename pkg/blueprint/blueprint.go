// Package blueprint renders a synthesized Netlist into the external JSON
// blueprint format: one entity per combinator, positioned per
// pkg/layout's placement, wired together with circuit connections.
package blueprint

import (
	"fmt"

	json "github.com/segmentio/encoding/json"

	"github.com/dthusian/k2se/pkg/layout"
	"github.com/dthusian/k2se/pkg/netlist"
)

// document is the outermost `{"blueprint": {...}}` wrapper Factorio's
// import/export format expects.
type document struct {
	Blueprint blueprintBody `json:"blueprint"`
}

type blueprintBody struct {
	Item     string   `json:"item"`
	Label    string   `json:"label"`
	Version  int64    `json:"version"`
	Entities []entity `json:"entities"`
}

type entity struct {
	EntityNumber    int              `json:"entity_number"`
	Name            string           `json:"name"`
	Position        position         `json:"position"`
	Connections     *connections     `json:"connections,omitempty"`
	ControlBehavior *controlBehavior `json:"control_behavior,omitempty"`
}

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type connections struct {
	One *connectionPoint `json:"1,omitempty"`
	Two *connectionPoint `json:"2,omitempty"`
}

type connectionPoint struct {
	Red   []connectionData `json:"red,omitempty"`
	Green []connectionData `json:"green,omitempty"`
}

type connectionData struct {
	EntityID int `json:"entity_id"`
}

type controlBehavior struct {
	ArithmeticConditions *arithmeticConditions `json:"arithmetic_conditions,omitempty"`
	DeciderConditions    *deciderConditions    `json:"decider_conditions,omitempty"`
	Filters              []constantFilter      `json:"filters,omitempty"`
	IsOn                 *bool                 `json:"is_on,omitempty"`
}

type signalID struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type arithmeticConditions struct {
	FirstSignal  *signalID `json:"first_signal,omitempty"`
	FirstConst   *int32    `json:"first_constant,omitempty"`
	SecondSignal *signalID `json:"second_signal,omitempty"`
	SecondConst  *int32    `json:"second_constant,omitempty"`
	Operation    string    `json:"operation"`
	OutputSignal signalID  `json:"output_signal"`
}

type deciderConditions struct {
	FirstSignal  *signalID `json:"first_signal,omitempty"`
	FirstConst   *int32    `json:"first_constant,omitempty"`
	SecondSignal *signalID `json:"second_signal,omitempty"`
	SecondConst  *int32    `json:"second_constant,omitempty"`
	Comparator   string    `json:"comparator"`
	OutputSignal signalID  `json:"output_signal"`
	CopyCount    bool      `json:"copy_count_from_input"`
}

type constantFilter struct {
	Index  int      `json:"index"`
	Signal signalID `json:"signal"`
	Count  int32    `json:"count"`
}

// Emit renders a synthesized netlist, placed by pkg/layout, as blueprint
// JSON.
func Emit(nl *netlist.Netlist, positions []layout.Position, label string) ([]byte, error) {
	if len(positions) != len(nl.Combinators) {
		return nil, fmt.Errorf("blueprint: %d positions for %d combinators", len(positions), len(nl.Combinators))
	}

	body := blueprintBody{
		Item:    "blueprint",
		Label:   label,
		Version: 0,
	}

	for i, c := range nl.Combinators {
		e, err := renderCombinator(i, c, positions[i])
		if err != nil {
			return nil, err
		}

		body.Entities = append(body.Entities, e)
	}

	attachConnections(nl, body.Entities)

	return json.Marshal(document{Blueprint: body})
}

func renderCombinator(idx int, c netlist.Combinator, pos layout.Position) (entity, error) {
	e := entity{
		EntityNumber: idx + 1,
		Position:     position{X: float64(pos.Coord.X), Y: float64(pos.Coord.Y)},
	}

	switch {
	case c.Vanilla != nil:
		renderVanilla(&e, c.Vanilla)
	case c.Constant != nil:
		renderConstant(&e, c.Constant)
	default:
		return entity{}, fmt.Errorf("blueprint: combinator %d has neither shape set", idx)
	}

	return e, nil
}

func renderVanilla(e *entity, v *netlist.Vanilla) {
	op := v.VanillaOpOf()
	if isDeciderOp(op) {
		e.Name = "decider-combinator"
		e.ControlBehavior = &controlBehavior{DeciderConditions: deciderConditionsOf(v, op)}
	} else {
		e.Name = "arithmetic-combinator"
		e.ControlBehavior = &controlBehavior{ArithmeticConditions: arithmeticConditionsOf(v, op)}
	}
}

func renderConstant(e *entity, c *netlist.Constant) {
	e.Name = "constant-combinator"
	isOn := c.Enabled
	e.ControlBehavior = &controlBehavior{IsOn: &isOn}

	for i, slot := range c.OutputSlots {
		if slot == nil {
			continue
		}

		e.ControlBehavior.Filters = append(e.ControlBehavior.Filters, constantFilter{
			Index:  i + 1,
			Signal: signalIDOf(slot.Signal),
			Count:  slot.Count,
		})
	}
}

func isDeciderOp(op netlist.VanillaOp) bool {
	switch op {
	case netlist.OpEq, netlist.OpNe, netlist.OpGt, netlist.OpLt, netlist.OpLe, netlist.OpGe:
		return true
	default:
		return false
	}
}

func signalIDOf(s netlist.Signal) signalID {
	kind := "virtual"

	switch s.Kind {
	case netlist.Item:
		kind = "item"
	case netlist.Fluid:
		kind = "fluid"
	}

	return signalID{Name: s.Name, Type: kind}
}

func signalRefToFields(ref netlist.SignalRef) (*signalID, *int32) {
	if sig, ok := ref.Signal(); ok {
		s := signalIDOf(sig)
		return &s, nil
	}

	if v, ok := ref.ConstVal(); ok {
		vv := v
		return nil, &vv
	}

	each := signalID{Name: "signal-each", Type: "virtual"}

	return &each, nil
}

func arithmeticConditionsOf(v *netlist.Vanilla, op netlist.VanillaOp) *arithmeticConditions {
	fs, fc := signalRefToFields(v.InputSignals[0])
	ss, sc := signalRefToFields(v.InputSignals[1])
	out := signalIDOf(mustSignal(v.OutputSignal))

	return &arithmeticConditions{
		FirstSignal: fs, FirstConst: fc,
		SecondSignal: ss, SecondConst: sc,
		Operation:    arithOpText(op),
		OutputSignal: out,
	}
}

func deciderConditionsOf(v *netlist.Vanilla, op netlist.VanillaOp) *deciderConditions {
	fs, fc := signalRefToFields(v.InputSignals[0])
	ss, sc := signalRefToFields(v.InputSignals[1])
	out := signalIDOf(mustSignal(v.OutputSignal))

	return &deciderConditions{
		FirstSignal: fs, FirstConst: fc,
		SecondSignal: ss, SecondConst: sc,
		Comparator:   compareOpText(op),
		OutputSignal: out,
		CopyCount:    v.OutputCount,
	}
}

func mustSignal(ref netlist.SignalRef) netlist.Signal {
	if sig, ok := ref.Signal(); ok {
		return sig
	}

	return netlist.Signal{Kind: netlist.Virtual, Name: "signal-each"}
}

func arithOpText(op netlist.VanillaOp) string {
	switch op {
	case netlist.OpAdd:
		return "+"
	case netlist.OpSub:
		return "-"
	case netlist.OpMul:
		return "*"
	case netlist.OpDiv:
		return "/"
	case netlist.OpMod:
		return "%"
	case netlist.OpPow:
		return "^"
	case netlist.OpAnd:
		return "AND"
	case netlist.OpOr:
		return "OR"
	case netlist.OpXor:
		return "XOR"
	case netlist.OpShl:
		return "<<"
	case netlist.OpShr:
		return ">>"
	default:
		return "+"
	}
}

func compareOpText(op netlist.VanillaOp) string {
	switch op {
	case netlist.OpEq:
		return "="
	case netlist.OpNe:
		return "!="
	case netlist.OpGt:
		return ">"
	case netlist.OpLt:
		return "<"
	case netlist.OpLe:
		return "<="
	case netlist.OpGe:
		return ">="
	default:
		return "="
	}
}

// attachConnections wires each net's participating (combinator, port)
// endpoints into a star topology rooted at the first endpoint: enough to
// form one connected circuit network per net without enumerating every
// pair.
func attachConnections(nl *netlist.Netlist, entities []entity) {
	for _, net := range nl.Nets {
		endpoints := append(append([]netlist.Conn{}, net.InConn...), net.OutConn...)
		if len(endpoints) < 2 {
			continue
		}

		color := "red"
		if net.Color == netlist.Green {
			color = "green"
		}

		root := endpoints[0]

		for _, other := range endpoints[1:] {
			link(entities, root, other, color)
		}
	}
}

func link(entities []entity, a, b netlist.Conn, color string) {
	ae := &entities[int(a.Combinator)]
	be := &entities[int(b.Combinator)]

	addLink(ae, a.Port, be.EntityNumber, color)
	addLink(be, b.Port, ae.EntityNumber, color)
}

func addLink(e *entity, port int, otherEntityNumber int, color string) {
	if e.Connections == nil {
		e.Connections = &connections{}
	}

	var cp **connectionPoint
	if port == 0 {
		cp = &e.Connections.One
	} else {
		cp = &e.Connections.Two
	}

	if *cp == nil {
		*cp = &connectionPoint{}
	}

	data := connectionData{EntityID: otherEntityNumber}

	if color == "red" {
		(*cp).Red = append((*cp).Red, data)
	} else {
		(*cp).Green = append((*cp).Green, data)
	}
}
