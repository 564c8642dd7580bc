package world

import (
	"math"

	"github.com/talgya/antifreeze/internal/antifreeze"
	"github.com/talgya/antifreeze/internal/vmath"
)

type cellKey struct {
	X, Z int
}

type gridEntry struct {
	occ antifreeze.Occupant
	pos vmath.Vec3
	key cellKey
}

// Grid is a uniform spatial hash over the XZ plane.
// Queries walk only the cells overlapping the box, so cost tracks local
// density rather than population.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]uint64
	entries  map[uint64]*gridEntry
}

// NewGrid creates an empty grid. cellSize should be near the typical query radius.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 4
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]uint64),
		entries:  make(map[uint64]*gridEntry),
	}
}

func (g *Grid) keyFor(x, z float64) cellKey {
	return cellKey{X: int(math.Floor(x / g.cellSize)), Z: int(math.Floor(z / g.cellSize))}
}

// Insert adds occ at pos. Re-inserting an id moves it.
func (g *Grid) Insert(occ antifreeze.Occupant, pos vmath.Vec3) {
	if e, ok := g.entries[occ.ID()]; ok {
		e.occ = occ
		g.Move(occ.ID(), pos)
		return
	}
	key := g.keyFor(pos.X, pos.Z)
	g.entries[occ.ID()] = &gridEntry{occ: occ, pos: pos, key: key}
	g.cells[key] = append(g.cells[key], occ.ID())
}

// Move updates the position of a tracked id. Unknown ids are ignored.
func (g *Grid) Move(id uint64, pos vmath.Vec3) {
	e, ok := g.entries[id]
	if !ok {
		return
	}
	e.pos = pos
	key := g.keyFor(pos.X, pos.Z)
	if key == e.key {
		return
	}
	g.unlink(id, e.key)
	e.key = key
	g.cells[key] = append(g.cells[key], id)
}

// Remove forgets id.
func (g *Grid) Remove(id uint64) {
	e, ok := g.entries[id]
	if !ok {
		return
	}
	g.unlink(id, e.key)
	delete(g.entries, id)
}

func (g *Grid) unlink(id uint64, key cellKey) {
	ids := g.cells[key]
	for i, v := range ids {
		if v == id {
			ids[i] = ids[len(ids)-1]
			ids = ids[:len(ids)-1]
			break
		}
	}
	if len(ids) == 0 {
		delete(g.cells, key)
		return
	}
	g.cells[key] = ids
}

// Len returns the number of tracked entities.
func (g *Grid) Len() int {
	return len(g.entries)
}

// QueryBox visits every entity inside the inclusive box [min, max].
// Returning false from visit stops the query.
func (g *Grid) QueryBox(min, max vmath.Vec3, visit func(antifreeze.Occupant) bool) {
	lo := g.keyFor(min.X, min.Z)
	hi := g.keyFor(max.X, max.Z)

	for cx := lo.X; cx <= hi.X; cx++ {
		for cz := lo.Z; cz <= hi.Z; cz++ {
			for _, id := range g.cells[cellKey{X: cx, Z: cz}] {
				e := g.entries[id]
				p := e.pos
				if p.X < min.X || p.X > max.X || p.Y < min.Y || p.Y > max.Y || p.Z < min.Z || p.Z > max.Z {
					continue
				}
				if !visit(e.occ) {
					return
				}
			}
		}
	}
}
