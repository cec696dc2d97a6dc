package grid

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/wricardo/ecocity/game/catalog"
	"github.com/zyedidia/generic/mapset"
)

// Manager owns the grid and the placed buildings. It is not safe for
// concurrent use; callers serialize Place, Remove and Tick.
type Manager struct {
	grid      *Grid
	catalog   *catalog.Catalog
	validator *Validator

	buildings []*Building
	slots     map[string]int
	byType    map[string]mapset.Set[string]

	// NewID generates building ids; replaceable in tests
	NewID func() string
}

// NewManager creates a manager over an existing grid
func NewManager(g *Grid, c *catalog.Catalog) *Manager {
	return &Manager{
		grid:      g,
		catalog:   c,
		validator: NewValidator(c),
		slots:     make(map[string]int),
		byType:    make(map[string]mapset.Set[string]),
		NewID:     uuid.NewString,
	}
}

// Grid returns the managed grid
func (m *Manager) Grid() *Grid {
	return m.grid
}

// Catalog returns the catalog buildings are resolved against
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

// Validate checks a placement without mutating anything
func (m *Manager) Validate(buildingType string, pos Position) PlacementValidation {
	return m.validator.Validate(m.grid, m, buildingType, pos)
}

// Place re-validates and, when allowed, registers a new building under
// construction. The returned building is only meaningful if CanPlace is true.
func (m *Manager) Place(buildingType string, pos Position) (Building, PlacementValidation) {
	res := m.Validate(buildingType, pos)
	if !res.CanPlace {
		return Building{}, res
	}

	def, _ := m.catalog.Lookup(buildingType)
	b := &Building{
		ID:                   m.NewID(),
		Type:                 buildingType,
		Position:             pos,
		Level:                1,
		Efficiency:           1,
		Status:               StatusConstructing,
		ConstructionProgress: 0,
		Connected:            m.grid.hasTerrainNear(pos, def.Footprint.Width, def.Footprint.Height, RoadSearchRadius, Road),
	}
	m.register(b, def)
	return *b, res
}

func (m *Manager) register(b *Building, def catalog.Definition) {
	m.grid.markOccupied(b.Position, def.Footprint.Width, def.Footprint.Height, b.ID)
	m.slots[b.ID] = len(m.buildings)
	m.buildings = append(m.buildings, b)

	set, ok := m.byType[b.Type]
	if !ok {
		set = mapset.New[string]()
		m.byType[b.Type] = set
	}
	set.Put(b.ID)
}

// Remove deletes a building and frees its cells. It returns false for an
// unknown id.
func (m *Manager) Remove(id string) bool {
	slot, ok := m.slots[id]
	if !ok {
		return false
	}
	b := m.buildings[slot]
	if def, ok := m.catalog.Lookup(b.Type); ok {
		m.grid.clearOccupied(b.Position, def.Footprint.Width, def.Footprint.Height)
	} else {
		m.clearByID(id)
	}

	m.buildings = append(m.buildings[:slot], m.buildings[slot+1:]...)
	delete(m.slots, id)
	for i := slot; i < len(m.buildings); i++ {
		m.slots[m.buildings[i].ID] = i
	}
	if set, ok := m.byType[b.Type]; ok {
		set.Remove(id)
		if set.Size() == 0 {
			delete(m.byType, b.Type)
		}
	}
	return true
}

func (m *Manager) clearByID(id string) {
	for z := range m.grid.Cells {
		for x := range m.grid.Cells[z] {
			if m.grid.Cells[z][x].BuildingID == id {
				m.grid.Cells[z][x].Occupied = false
				m.grid.Cells[z][x].BuildingID = ""
			}
		}
	}
}

// Maintain restores a building to full efficiency. It returns false for an
// unknown id or a building still under construction.
func (m *Manager) Maintain(id string) bool {
	slot, ok := m.slots[id]
	if !ok {
		return false
	}
	b := m.buildings[slot]
	if !b.InService() {
		return false
	}
	b.Efficiency = 1
	b.Status = StatusOperational
	return true
}

// Tick ages every building by dt days, advances construction and applies
// efficiency decay. It returns the status transitions that happened.
func (m *Manager) Tick(dt float64) []StatusChange {
	if dt <= 0 {
		return nil
	}
	var changes []StatusChange
	for _, b := range m.buildings {
		before := b.Status
		b.AgeDays += dt

		switch b.Status {
		case StatusConstructing:
			days := 1.0
			if def, ok := m.catalog.Lookup(b.Type); ok {
				days = def.Stats.ConstructionDays
			}
			b.ConstructionProgress = min(1, b.ConstructionProgress+dt/days)
			if b.ConstructionProgress >= 1 {
				b.Status = StatusOperational
			}
		case StatusOperational, StatusNeedsMaintenance:
			if b.AgeDays > AgingStartDays {
				b.Efficiency = max(EfficiencyFloor, b.Efficiency-EfficiencyDecayYear*dt/365)
			}
			if b.Status == StatusOperational && b.Efficiency <= EfficiencyFloor {
				b.Status = StatusNeedsMaintenance
			}
		}

		if b.Status != before {
			changes = append(changes, StatusChange{BuildingID: b.ID, Type: b.Type, From: before, To: b.Status})
		}
	}
	return changes
}

// SetPowered marks every in-service building as powered or not
func (m *Manager) SetPowered(powered bool) {
	for _, b := range m.buildings {
		b.Powered = powered && b.InService()
	}
}

// Building returns a copy of the building with the given id
func (m *Manager) Building(id string) (Building, bool) {
	slot, ok := m.slots[id]
	if !ok {
		return Building{}, false
	}
	return *m.buildings[slot], true
}

// Buildings returns copies of all buildings in placement order
func (m *Manager) Buildings() []Building {
	out := make([]Building, len(m.buildings))
	for i, b := range m.buildings {
		out[i] = *b
	}
	return out
}

// Count returns the number of placed buildings
func (m *Manager) Count() int {
	return len(m.buildings)
}

// CountType implements Occupancy
func (m *Manager) CountType(buildingType string) int {
	set, ok := m.byType[buildingType]
	if !ok {
		return 0
	}
	return set.Size()
}

// PositionsOfType implements Occupancy
func (m *Manager) PositionsOfType(buildingType string) []Position {
	set, ok := m.byType[buildingType]
	if !ok {
		return nil
	}
	slots := make([]int, 0, set.Size())
	set.Each(func(id string) {
		slots = append(slots, m.slots[id])
	})
	slices.Sort(slots)

	out := make([]Position, len(slots))
	for i, slot := range slots {
		out[i] = m.buildings[slot].Position
	}
	return out
}

// HeightMap returns per-cell elevation plus the height of the covering
// building scaled by its construction progress. Indexed [z][x].
func (m *Manager) HeightMap() [][]float64 {
	hm := make([][]float64, m.grid.Height)
	for z, row := range m.grid.Cells {
		hm[z] = make([]float64, m.grid.Width)
		for x, c := range row {
			hm[z][x] = c.Elevation
			if !c.Occupied {
				continue
			}
			slot, ok := m.slots[c.BuildingID]
			if !ok {
				continue
			}
			b := m.buildings[slot]
			if def, ok := m.catalog.Lookup(b.Type); ok {
				hm[z][x] += def.Height * b.ConstructionProgress
			}
		}
	}
	return hm
}

// Restore replaces all buildings with the given set, re-marking occupancy.
// Used when importing a saved city; placement rules are not re-checked but
// footprints must be on free land.
func (m *Manager) Restore(buildings []Building) error {
	m.grid.clearOccupied(Position{}, m.grid.Width, m.grid.Height)
	m.buildings = nil
	m.slots = make(map[string]int)
	m.byType = make(map[string]mapset.Set[string])

	for _, in := range buildings {
		def, ok := m.catalog.Lookup(in.Type)
		if !ok {
			return fmt.Errorf("building %s: %w: %s", in.ID, catalog.ErrUnknownType, in.Type)
		}
		if in.ID == "" {
			return fmt.Errorf("building of type %s has no id", in.Type)
		}
		if _, dup := m.slots[in.ID]; dup {
			return fmt.Errorf("duplicate building id %s", in.ID)
		}
		if !m.grid.IsAreaFree(in.Position, def.Footprint.Width, def.Footprint.Height) {
			return fmt.Errorf("building %s at (%d,%d) overlaps another building, water or the grid edge",
				in.ID, in.Position.X, in.Position.Z)
		}
		b := in
		m.register(&b, def)
	}
	return nil
}
