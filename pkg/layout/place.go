package layout

import "github.com/dthusian/k2se/pkg/netlist"

// Layout assigns one grid position per combinator in nl, in index order,
// starting each search at the previously placed combinator's position so
// that combinators belonging to the same synthesized construct cluster
// together on the grid.
func Layout(nl *netlist.Netlist) ([]Position, error) {
	ls := NewLocationSearcher(nil)

	positions := make([]Position, len(nl.Combinators))
	cursor := Coord{X: 0, Y: 0}

	for i := range nl.Combinators {
		pos := ls.TakeNearestX2(cursor)
		positions[i] = Position{Coord: pos}
		cursor = pos
	}

	return positions, nil
}
