package main

import "math"

// GridCellSize is the edge of one broad-phase cell in metres
const GridCellSize = 4000.0

type cellKey struct {
	cx, cy int
}

// ShipGrid is a sparse hash grid for range queries over an unbounded sea
type ShipGrid struct {
	cells map[cellKey][]*Ship
}

// NewShipGrid creates an empty grid
func NewShipGrid() *ShipGrid {
	return &ShipGrid{cells: make(map[cellKey][]*Ship)}
}

func cellOf(x, y float64) cellKey {
	return cellKey{int(math.Floor(x / GridCellSize)), int(math.Floor(y / GridCellSize))}
}

// Clear resets all cells (keeps allocated capacity)
func (g *ShipGrid) Clear() {
	for k, v := range g.cells {
		if len(v) == 0 {
			delete(g.cells, k)
			continue
		}
		g.cells[k] = v[:0]
	}
}

// Insert adds a ship at its current position
func (g *ShipGrid) Insert(sh *Ship) {
	k := cellOf(sh.X, sh.Y)
	g.cells[k] = append(g.cells[k], sh)
}

// QueryBuf appends every ship in cells overlapping the square around (x, y) and
// returns the extended slice. Callers still check the exact distance.
func (g *ShipGrid) QueryBuf(x, y, radius float64, buf []*Ship) []*Ship {
	lo := cellOf(x-radius, y-radius)
	hi := cellOf(x+radius, y+radius)
	for cy := lo.cy; cy <= hi.cy; cy++ {
		for cx := lo.cx; cx <= hi.cx; cx++ {
			buf = append(buf, g.cells[cellKey{cx, cy}]...)
		}
	}
	return buf
}
