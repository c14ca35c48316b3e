// Package systems provides spatial indexing and geometry helpers for the arena.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/laststand/components"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	DX, DY float64 // delta from query origin
	DistSq float64
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid over a
// bounded arena centered on the origin.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	halfW    float64
	halfH    float64
	cells    [][]ecs.Entity // flat grid of entity lists
}

// NewSpatialGrid creates a spatial grid covering the given arena size.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		halfW:    width / 2,
		halfH:    height / 2,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
// Positions outside the arena are stored in the nearest edge cell.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], e)
}

// QueryRadiusInto finds entities within radius and appends them to dst.
// Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float64, posMap *ecs.Map1[components.Position]) []Neighbor {
	col0, row0 := g.cellCoords(x-radius, y-radius)
	col1, row1 := g.cellCoords(x+radius, y+radius)
	radiusSq := radius * radius

	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				pos := posMap.Get(e)
				if pos == nil {
					continue
				}

				dx, dy := pos.X-x, pos.Y-y
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, DX: dx, DY: dy, DistSq: distSq})
				}
			}
		}
	}

	return dst
}

// cellCoords returns the clamped column and row for a world position.
func (g *SpatialGrid) cellCoords(x, y float64) (col, row int) {
	col = int((x + g.halfW) / g.cellSize)
	row = int((y + g.halfH) / g.cellSize)

	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float64) int {
	col, row := g.cellCoords(x, y)
	return row*g.cols + col
}
