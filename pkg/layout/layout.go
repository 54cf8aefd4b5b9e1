// Package layout assigns a 2D grid position to every combinator a
// synthesis run produced, using a chunked free-space index so that
// combinators belonging to one synthesized construct land next to each
// other rather than being scattered.
package layout

import "github.com/bits-and-blooms/bitset"

// Coord is an integer grid coordinate.
type Coord struct {
	X, Y int
}

// Position is the placed location of one combinator.
type Position struct {
	Coord Coord
}

// Shaper reports which cells within a rectangular region are free to place
// a combinator footprint in. A bit set to 1 means free.
type Shaper interface {
	IsFreeArea(min, max Coord) *bitset.BitSet
}

// openShaper treats every cell as free; the default when no obstacle
// layout (e.g. power poles) is supplied.
type openShaper struct{}

func (openShaper) IsFreeArea(min, max Coord) *bitset.BitSet {
	w := max.X - min.X + 1
	h := max.Y - min.Y + 1
	bs := bitset.New(uint(w * h))
	bs.FlipRange(0, uint(w*h))

	return bs
}

const chunkSize = 16

type chunk struct {
	free *bitset.BitSet // 256 bits, one per cell; 1 == free
}

// LocationSearcher is a chunked index of free cells, grown lazily as
// placement probes reach new regions of the grid.
type LocationSearcher struct {
	shaper Shaper
	chunks map[Coord]*chunk
}

// NewLocationSearcher constructs a searcher backed by shaper. A nil shaper
// falls back to treating the whole grid as free.
func NewLocationSearcher(shaper Shaper) *LocationSearcher {
	if shaper == nil {
		shaper = openShaper{}
	}

	return &LocationSearcher{shaper: shaper, chunks: make(map[Coord]*chunk)}
}

func chunkCoordOf(c Coord) Coord {
	return Coord{floorDiv(c.X, chunkSize), floorDiv(c.Y, chunkSize)}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

func localIndex(c Coord) int {
	cc := chunkCoordOf(c)
	lx := c.X - cc.X*chunkSize
	ly := c.Y - cc.Y*chunkSize

	return ly*chunkSize + lx
}

func (ls *LocationSearcher) ensureChunk(cc Coord) *chunk {
	ch, ok := ls.chunks[cc]
	if ok {
		return ch
	}

	min := Coord{cc.X * chunkSize, cc.Y * chunkSize}
	max := Coord{min.X + chunkSize - 1, min.Y + chunkSize - 1}

	ch = &chunk{free: ls.shaper.IsFreeArea(min, max)}
	ls.chunks[cc] = ch

	return ch
}

func (ls *LocationSearcher) isFree(c Coord) bool {
	ch := ls.ensureChunk(chunkCoordOf(c))
	return ch.free.Test(uint(localIndex(c)))
}

func (ls *LocationSearcher) setOccupied(c Coord) {
	ch := ls.ensureChunk(chunkCoordOf(c))
	ch.free.Clear(uint(localIndex(c)))
}

func (ls *LocationSearcher) isX2Free(c Coord) bool {
	return ls.isFree(c) && ls.isFree(Coord{c.X + 1, c.Y})
}

func (ls *LocationSearcher) occupyX2(c Coord) {
	ls.setOccupied(c)
	ls.setOccupied(Coord{c.X + 1, c.Y})
}

// maxSearchRadius bounds the outward ring search so a saturated region ends
// the search instead of looping forever; TakeNearestX2 then returns the
// target without marking anything occupied.
const maxSearchRadius = 4096

// TakeNearestX2 finds the nearest free 2-wide (2x1) footprint to target,
// marks it occupied, and returns its anchor coordinate. Ties are broken by
// ringCells' order: for each x from left to right, the top-row cell then the
// bottom-row cell; then for each interior y from top to bottom, the
// left-column cell then the right-column cell.
func (ls *LocationSearcher) TakeNearestX2(target Coord) Coord {
	if ls.isX2Free(target) {
		ls.occupyX2(target)
		return target
	}

	for radius := 1; radius < maxSearchRadius; radius++ {
		for _, c := range ringCells(target, radius) {
			if ls.isX2Free(c) {
				ls.occupyX2(c)
				return c
			}
		}
	}

	return target
}

// ringCells enumerates the coordinates forming the border of the square of
// half-width radius centered on center.
func ringCells(center Coord, radius int) []Coord {
	var cells []Coord

	top := center.Y - radius
	bottom := center.Y + radius
	left := center.X - radius
	right := center.X + radius

	for x := left; x <= right; x++ {
		cells = append(cells, Coord{x, top}, Coord{x, bottom})
	}

	for y := top + 1; y < bottom; y++ {
		cells = append(cells, Coord{left, y}, Coord{right, y})
	}

	return cells
}
