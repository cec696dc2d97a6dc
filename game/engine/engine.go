package engine

import (
	"fmt"

	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/simulation"
)

// Engine provides the main interface for city operations
type Engine interface {
	// Building operations
	Validate(buildingType string, pos grid.Position) grid.PlacementValidation
	Place(buildingType string, pos grid.Position) (grid.Building, grid.PlacementValidation)
	BulkPlace(requests []PlacementRequest) []PlacementResult
	Remove(id string) bool
	Maintain(id string) error

	// Time
	Tick(dt float64) TickReport

	// State
	Snapshot() Snapshot
	ExportState() ExportedState
	ImportState(state ExportedState) error
	Reset() Snapshot

	// Queries
	GetConfig() *CityConfig
	GetCatalog() *catalog.Catalog
	GetHistory() []EventEntry
	GetLastEvent() *EventEntry
	CellAt(pos grid.Position) (grid.Cell, bool)
	HeightMap() [][]float64
	Day() float64
}

// CityEngine implements the Engine interface. It is not safe for concurrent
// use; callers must serialize mutating operations.
type CityEngine struct {
	config  *CityConfig
	catalog *catalog.Catalog

	manager      *grid.Manager
	simulator    *simulation.Simulator
	consequences *simulation.ConsequenceEngine
	aggregator   *simulation.Aggregator

	resources  simulation.Resources
	statistics simulation.Statistics
	history    []EventEntry
	message    string
}

// NewEngine creates a city engine from a configuration and catalog. A nil
// catalog selects the built-in one.
func NewEngine(config *CityConfig, cat *catalog.Catalog) (*CityEngine, error) {
	if err := ValidateCityConfig(config); err != nil {
		return nil, err
	}
	if cat == nil {
		cat = catalog.Default()
	}

	e := &CityEngine{
		config:     config,
		catalog:    cat,
		simulator:  simulation.NewSimulator(cat),
		aggregator: simulation.NewAggregator(cat),
		history:    []EventEntry{},
	}
	if err := e.initCity(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates a city engine with the default configuration
func NewEngineWithDefaults() *CityEngine {
	e, err := NewEngine(DefaultCityConfig(), nil)
	if err != nil {
		panic(fmt.Sprintf("default city config is invalid: %v", err))
	}
	return e
}

func (e *CityEngine) initCity() error {
	g, err := grid.NewWithCellSize(e.config.Width, e.config.Height, e.config.CellSize)
	if err != nil {
		return err
	}
	e.manager = grid.NewManager(g, e.catalog)
	e.consequences = simulation.NewConsequenceEngine()
	e.resources = simulation.NewResources(e.config.StartingFunds, e.config.TaxRate)
	e.resources.Population.Happiness = e.config.StartingHappiness
	e.statistics = simulation.NewStatistics()
	e.refreshStatistics()
	e.message = e.config.Messages.Welcome
	return nil
}

// refreshStatistics recomputes statistics without advancing time
func (e *CityEngine) refreshStatistics() []string {
	var unlocked []string
	e.statistics, unlocked = e.aggregator.Summarize(e.statistics, e.manager.Buildings(), e.resources, e.consequences.Active(), 0)
	return unlocked
}

// Validate checks a placement against the grid rules, the treasury and the
// city level. It never mutates state.
func (e *CityEngine) Validate(buildingType string, pos grid.Position) grid.PlacementValidation {
	res := e.manager.Validate(buildingType, pos)
	def, ok := e.catalog.Lookup(buildingType)
	if !ok {
		return res
	}
	if def.Stats.Cost > e.resources.Economy.Funds {
		res.Errors = append(res.Errors, fmt.Sprintf("insufficient funds: %s costs %.0f, treasury has %.0f",
			def.ID, def.Stats.Cost, e.resources.Economy.Funds))
		res.IsValid = false
		res.CanPlace = false
	}
	if def.Stats.UnlockLevel > e.statistics.CityLevel {
		res.Errors = append(res.Errors, fmt.Sprintf("%s requires city level %d (current level %d)",
			def.ID, def.Stats.UnlockLevel, e.statistics.CityLevel))
		res.IsValid = false
		res.CanPlace = false
	}
	return res
}

// Place validates and commits a placement, charging the building cost
func (e *CityEngine) Place(buildingType string, pos grid.Position) (grid.Building, grid.PlacementValidation) {
	res := e.Validate(buildingType, pos)
	if !res.CanPlace {
		if e.config.Messages.Rejected != "" {
			e.message = e.config.Messages.Rejected
		}
		return grid.Building{}, res
	}

	b, placed := e.manager.Place(buildingType, pos)
	if !placed.CanPlace {
		return grid.Building{}, placed
	}
	def, _ := e.catalog.Lookup(buildingType)
	e.resources.Economy.Funds -= def.Stats.Cost

	e.message = fmt.Sprintf("Placed %s at (%d,%d)", buildingType, pos.X, pos.Z)
	if e.config.Messages.Placed != "" {
		e.message = fmt.Sprintf(e.config.Messages.Placed, def.Name)
	}
	p := b.Position
	e.addEvent(EventEntry{Kind: EventPlaced, Message: e.message, BuildingID: b.ID, BuildingType: b.Type, Position: &p})
	e.recordAchievements(e.refreshStatistics())
	return b, res
}

// BulkPlace places buildings in order, continuing past rejections
func (e *CityEngine) BulkPlace(requests []PlacementRequest) []PlacementResult {
	results := make([]PlacementResult, 0, len(requests))
	for _, req := range requests {
		b, res := e.Place(req.Type, req.Position)
		result := PlacementResult{Request: req, Validation: res}
		if res.CanPlace {
			result.Building = &b
		}
		results = append(results, result)
	}
	return results
}

// Remove demolishes a building. Costs are not refunded.
func (e *CityEngine) Remove(id string) bool {
	b, ok := e.manager.Building(id)
	if !ok || !e.manager.Remove(id) {
		return false
	}

	e.message = fmt.Sprintf("Removed %s", b.Type)
	if e.config.Messages.Removed != "" {
		name := b.Type
		if def, ok := e.catalog.Lookup(b.Type); ok {
			name = def.Name
		}
		e.message = fmt.Sprintf(e.config.Messages.Removed, name)
	}
	p := b.Position
	e.addEvent(EventEntry{Kind: EventRemoved, Message: e.message, BuildingID: b.ID, BuildingType: b.Type, Position: &p})
	e.refreshStatistics()
	return true
}

// Maintain restores a building to full efficiency for MaintenanceCostDays of
// its maintenance cost
func (e *CityEngine) Maintain(id string) error {
	b, ok := e.manager.Building(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	if !b.InService() {
		return fmt.Errorf("%w: %s is %s", ErrNotInService, id, b.Status)
	}
	def, _ := e.catalog.Lookup(b.Type)
	cost := def.Stats.MaintenanceCost * MaintenanceCostDays
	if cost > e.resources.Economy.Funds {
		return fmt.Errorf("%w: maintenance costs %.0f", ErrInsufficientFunds, cost)
	}

	e.manager.Maintain(id)
	e.resources.Economy.Funds -= cost
	e.message = fmt.Sprintf("%s restored to full efficiency", b.Type)
	p := b.Position
	e.addEvent(EventEntry{Kind: EventMaintained, Message: e.message, BuildingID: b.ID, BuildingType: b.Type, Position: &p})
	return nil
}

// Tick advances the city by dt days: buildings age and finish construction,
// resources are integrated, consequences are evaluated and statistics are
// recomputed. Negative dt is treated as zero.
func (e *CityEngine) Tick(dt float64) TickReport {
	if dt < 0 {
		dt = 0
	}

	changes := e.manager.Tick(dt)
	buildings := e.manager.Buildings()
	e.resources = e.simulator.Update(e.resources, buildings, e.manager.Grid(), dt)
	e.manager.SetPowered(e.resources.Energy.Production >= e.resources.Energy.Consumption)

	fired, expired := e.consequences.Evaluate(e.resources, dt)
	var unlocked []string
	e.statistics, unlocked = e.aggregator.Summarize(e.statistics, e.manager.Buildings(), e.resources, e.consequences.Active(), dt)

	report := TickReport{
		Day:           e.statistics.DaysActive,
		Fired:         fired,
		Expired:       expired,
		StatusChanges: changes,
		Achievements:  unlocked,
	}

	for _, c := range changes {
		switch c.To {
		case grid.StatusOperational:
			if c.From == grid.StatusConstructing {
				e.addEvent(EventEntry{Kind: EventCompleted, Message: fmt.Sprintf("%s finished construction", c.Type), BuildingID: c.BuildingID, BuildingType: c.Type})
			}
		case grid.StatusNeedsMaintenance:
			e.addEvent(EventEntry{Kind: EventNeedsMaintenance, Message: fmt.Sprintf("%s needs maintenance", c.Type), BuildingID: c.BuildingID, BuildingType: c.Type})
		}
	}
	for _, c := range fired {
		e.message = c.Message
		e.addEvent(EventEntry{Kind: EventConsequence, Message: fmt.Sprintf("[%s] %s", c.Severity, c.Message)})
	}
	for _, c := range expired {
		e.addEvent(EventEntry{Kind: EventConsequenceExpired, Message: fmt.Sprintf("%s is over", c.Type)})
	}
	e.recordAchievements(unlocked)

	return report
}

func (e *CityEngine) recordAchievements(unlocked []string) {
	for _, a := range unlocked {
		e.addEvent(EventEntry{Kind: EventAchievement, Message: fmt.Sprintf("Achievement unlocked: %s", a)})
	}
}

// Snapshot returns a deep copy of the current city
func (e *CityEngine) Snapshot() Snapshot {
	return Snapshot{
		ConfigName: e.config.Name,
		Day:        e.statistics.DaysActive,
		Message:    e.message,
		Resources:  e.resources,
		Statistics: e.copyStatistics(),
		Buildings:  e.manager.Buildings(),
		Grid:       e.manager.Grid().Clone(),
		Active:     e.consequences.Active(),
	}
}

func (e *CityEngine) copyStatistics() simulation.Statistics {
	s := e.statistics
	s.BuildingsByCategory = make(map[catalog.Category]int, len(e.statistics.BuildingsByCategory))
	for k, v := range e.statistics.BuildingsByCategory {
		s.BuildingsByCategory[k] = v
	}
	s.Achievements = append([]string{}, e.statistics.Achievements...)
	s.Challenges = append([]simulation.Consequence{}, e.statistics.Challenges...)
	return s
}

// ExportState returns the plain serializable form of the city
func (e *CityEngine) ExportState() ExportedState {
	g := e.manager.Grid()
	return ExportedState{
		ConfigName: e.config.Name,
		Grid:       g.Clone(),
		Buildings:  e.manager.Buildings(),
		CellSize:   g.CellSize,
		Resources:  e.resources,
		Statistics: e.copyStatistics(),
		History:    append([]EventEntry{}, e.history...),
		Message:    e.message,
	}
}

// ImportState replaces the city with an exported one. Malformed states are
// rejected with ErrMalformedState and leave the engine unchanged.
func (e *CityEngine) ImportState(state ExportedState) error {
	if state.Grid == nil {
		return fmt.Errorf("%w: grid is missing", ErrMalformedState)
	}
	g := state.Grid.Clone()
	if g.Width < MinCitySize || g.Width > MaxCitySize || g.Height < MinCitySize || g.Height > MaxCitySize {
		return fmt.Errorf("%w: grid is %dx%d", ErrMalformedState, g.Width, g.Height)
	}
	if err := g.CheckConsistency(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if state.CellSize > 0 {
		g.CellSize = state.CellSize
	}
	if g.CellSize <= 0 {
		return fmt.Errorf("%w: cell size must be positive", ErrMalformedState)
	}

	m := grid.NewManager(g, e.catalog)
	if err := m.Restore(state.Buildings); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	ce := simulation.NewConsequenceEngine()
	ce.Restore(state.Statistics.Challenges)

	stats := state.Statistics
	if stats.Achievements == nil {
		stats.Achievements = []string{}
	}

	e.manager = m
	e.consequences = ce
	e.resources = state.Resources
	e.statistics = stats
	e.history = append([]EventEntry{}, state.History...)
	e.message = state.Message
	e.refreshStatistics()
	return nil
}

// Reset rebuilds the city from its configuration. History is kept.
func (e *CityEngine) Reset() Snapshot {
	history := e.history
	if err := e.initCity(); err != nil {
		// The config was validated on construction
		panic(fmt.Sprintf("reset failed: %v", err))
	}
	e.history = history
	e.addEvent(EventEntry{Kind: EventReset, Message: "City reset to " + e.config.Name})
	return e.Snapshot()
}

// GetConfig returns the city configuration
func (e *CityEngine) GetConfig() *CityConfig {
	return e.config
}

// GetCatalog returns the building catalog
func (e *CityEngine) GetCatalog() *catalog.Catalog {
	return e.catalog
}

// CellAt returns the grid cell at pos
func (e *CityEngine) CellAt(pos grid.Position) (grid.Cell, bool) {
	return e.manager.Grid().CellAt(pos)
}

// Building returns a placed building by id
func (e *CityEngine) Building(id string) (grid.Building, bool) {
	return e.manager.Building(id)
}

// HeightMap returns the per-cell render heights
func (e *CityEngine) HeightMap() [][]float64 {
	return e.manager.HeightMap()
}

// Day returns the number of simulated days
func (e *CityEngine) Day() float64 {
	return e.statistics.DaysActive
}

// Resources returns the current resources
func (e *CityEngine) Resources() simulation.Resources {
	return e.resources
}

// Statistics returns a copy of the current statistics
func (e *CityEngine) Statistics() simulation.Statistics {
	return e.copyStatistics()
}
