package grid

import (
	"fmt"
	"math"
)

// New creates a width x height grid with the default cell size
func New(width, height int) (*Grid, error) {
	return NewWithCellSize(width, height, DefaultCellSize)
}

// NewWithCellSize creates a grid and generates its terrain and elevation.
// Generation is deterministic: the same dimensions always yield the same ground.
func NewWithCellSize(width, height int, cellSize float64) (*Grid, error) {
	if width < MinGridSize || width > MaxGridSize || height < MinGridSize || height > MaxGridSize {
		return nil, fmt.Errorf("grid dimensions must be between %d and %d, got %dx%d", MinGridSize, MaxGridSize, width, height)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %v", cellSize)
	}

	g := &Grid{
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		Zoom:     1,
		Cells:    make([][]Cell, height),
	}
	for z := 0; z < height; z++ {
		g.Cells[z] = make([]Cell, width)
		for x := 0; x < width; x++ {
			t := terrainAt(width, height, x, z)
			e := elevationAt(x, z)
			if t == Water {
				e = math.Min(e, -0.5)
			}
			g.Cells[z][x] = Cell{
				Position:  Position{X: x, Z: z},
				Terrain:   t,
				Elevation: e,
			}
		}
	}
	return g, nil
}

// terrainAt decides the ground type. Water wins over road, road over park.
func terrainAt(w, h, x, z int) Terrain {
	if isRiver(w, x, z) || isLake(w, h, x, z) {
		return Water
	}
	if x%8 == 0 || z%8 == 0 {
		return Road
	}
	if isParkZone(w, h, x, z) {
		return Park
	}
	return Land
}

func isRiver(w, x, z int) bool {
	meander := int(math.Round(math.Sin(float64(z)*0.25) * float64(w) / 24))
	center := w/2 + meander
	return abs(x-center) <= w/32
}

func isLake(w, h, x, z int) bool {
	r := max(1, min(w, h)/8)
	dx, dz := x-3*w/4, z-3*h/4
	return dx*dx+dz*dz <= r*r
}

func isParkZone(w, h, x, z int) bool {
	r := max(1, min(w, h)/10)
	dx, dz := x-w/4, z-3*h/4
	return dx*dx+dz*dz <= r*r
}

// elevationAt is a smooth bounded height field, |e| <= 3.6
func elevationAt(x, z int) float64 {
	fx, fz := float64(x), float64(z)
	return 1.8*math.Sin(0.31*fx)*math.Cos(0.27*fz) +
		1.2*math.Sin(0.13*(fx+fz)) +
		0.6*math.Cos(0.71*fx-0.53*fz)
}

// InBounds reports whether p lies on the grid
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.Width && p.Z >= 0 && p.Z < g.Height
}

// CellAt returns the cell at p; ok is false outside the grid
func (g *Grid) CellAt(p Position) (Cell, bool) {
	if !g.InBounds(p) {
		return Cell{}, false
	}
	return g.Cells[p.Z][p.X], true
}

// WorldToGrid converts a world point to the cell containing it. The grid is
// centered on the world origin.
func (g *Grid) WorldToGrid(w WorldPos) Position {
	return Position{
		X: int(math.Floor(w.X/g.CellSize + float64(g.Width)/2)),
		Z: int(math.Floor(w.Z/g.CellSize + float64(g.Height)/2)),
	}
}

// GridToWorld returns the world point at the center of p, with Y set to the
// cell elevation (0 outside the grid).
func (g *Grid) GridToWorld(p Position) WorldPos {
	wp := WorldPos{
		X: (float64(p.X) - float64(g.Width)/2 + 0.5) * g.CellSize,
		Z: (float64(p.Z) - float64(g.Height)/2 + 0.5) * g.CellSize,
	}
	if c, ok := g.CellAt(p); ok {
		wp.Y = c.Elevation
	}
	return wp
}

// InFootprintBounds reports whether a w x h footprint at p lies fully on the grid
func (g *Grid) InFootprintBounds(p Position, w, h int) bool {
	return g.InBounds(p) && g.InBounds(Position{X: p.X + w - 1, Z: p.Z + h - 1})
}

// IsAreaFree reports whether every cell of the footprint is on the grid,
// unoccupied and not water
func (g *Grid) IsAreaFree(p Position, w, h int) bool {
	if !g.InFootprintBounds(p, w, h) {
		return false
	}
	for z := p.Z; z < p.Z+h; z++ {
		for x := p.X; x < p.X+w; x++ {
			c := g.Cells[z][x]
			if c.Occupied || c.Terrain == Water {
				return false
			}
		}
	}
	return true
}

// hasTerrainNear searches the ring of the given radius around a footprint
func (g *Grid) hasTerrainNear(p Position, w, h, radius int, t Terrain) bool {
	for z := p.Z - radius; z < p.Z+h+radius; z++ {
		for x := p.X - radius; x < p.X+w+radius; x++ {
			inside := x >= p.X && x < p.X+w && z >= p.Z && z < p.Z+h
			if inside {
				continue
			}
			if c, ok := g.CellAt(Position{X: x, Z: z}); ok && c.Terrain == t {
				return true
			}
		}
	}
	return false
}

// markOccupied and clearOccupied are only called by Manager so the
// occupancy flag and building id stay in sync
func (g *Grid) markOccupied(p Position, w, h int, id string) {
	for z := p.Z; z < p.Z+h; z++ {
		for x := p.X; x < p.X+w; x++ {
			g.Cells[z][x].Occupied = true
			g.Cells[z][x].BuildingID = id
		}
	}
}

func (g *Grid) clearOccupied(p Position, w, h int) {
	for z := p.Z; z < p.Z+h; z++ {
		for x := p.X; x < p.X+w; x++ {
			if !g.InBounds(Position{X: x, Z: z}) {
				continue
			}
			g.Cells[z][x].Occupied = false
			g.Cells[z][x].BuildingID = ""
		}
	}
}

// CountTerrain counts cells of a terrain type, optionally only free ones
func (g *Grid) CountTerrain(t Terrain, freeOnly bool) int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if c.Terrain == t && (!freeOnly || !c.Occupied) {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	out := *g
	out.Cells = make([][]Cell, len(g.Cells))
	for z, row := range g.Cells {
		out.Cells[z] = append([]Cell(nil), row...)
	}
	return &out
}

// CheckConsistency verifies dimensions and the occupancy invariant
func (g *Grid) CheckConsistency() error {
	if len(g.Cells) != g.Height {
		return fmt.Errorf("grid has %d rows, expected %d", len(g.Cells), g.Height)
	}
	for z, row := range g.Cells {
		if len(row) != g.Width {
			return fmt.Errorf("grid row %d has %d cells, expected %d", z, len(row), g.Width)
		}
		for x, c := range row {
			if c.Position.X != x || c.Position.Z != z {
				return fmt.Errorf("cell at (%d,%d) reports position (%d,%d)", x, z, c.Position.X, c.Position.Z)
			}
			if c.Occupied != (c.BuildingID != "") {
				return fmt.Errorf("cell (%d,%d) occupancy does not match building id", x, z)
			}
		}
	}
	return nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
