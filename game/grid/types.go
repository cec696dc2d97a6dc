package grid

import "fmt"

// Terrain is the fixed ground type of a cell
type Terrain string

const (
	Land  Terrain = "land"
	Water Terrain = "water"
	Park  Terrain = "park"
	Road  Terrain = "road"

	// Grid size limits
	MinGridSize = 8
	MaxGridSize = 128

	DefaultCellSize   = 2.0
	MaxSearchRadius   = 10
	WaterSearchRadius = 3
	RoadSearchRadius  = 2

	// Advisory thresholds for a single building's impact
	AirWarningThreshold   = -10.0
	CO2WarningThreshold   = 50.0
	NoiseWarningThreshold = 30.0
)

// Position is a cell coordinate on the ground plane
type Position struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// WorldPos is a point in world space; Y is up
type WorldPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Cell represents a single grid cell
type Cell struct {
	Position   Position `json:"position"`
	Terrain    Terrain  `json:"terrain"`
	Elevation  float64  `json:"elevation"`
	Occupied   bool     `json:"occupied"`
	BuildingID string   `json:"building_id,omitempty"`
}

// Grid is the city ground. Cells are indexed [z][x].
type Grid struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	CellSize float64  `json:"cell_size"`
	Zoom     float64  `json:"zoom"`
	Center   WorldPos `json:"center"`
	Cells    [][]Cell `json:"cells"`
}

// Status is the lifecycle state of a placed building
type Status string

const (
	StatusConstructing     Status = "constructing"
	StatusOperational      Status = "operational"
	StatusNeedsMaintenance Status = "needs_maintenance"
	StatusAbandoned        Status = "abandoned"
)

// Efficiency bounds and aging
const (
	MinEfficiency       = 0.5
	MaxEfficiency       = 1.5
	EfficiencyFloor     = 0.7
	AgingStartDays      = 365.0
	EfficiencyDecayYear = 0.01
)

// Building is a placed instance of a catalog definition
type Building struct {
	ID                   string   `json:"id"`
	Type                 string   `json:"type"`
	Position             Position `json:"position"`
	Level                int      `json:"level"`
	Efficiency           float64  `json:"efficiency"`
	AgeDays              float64  `json:"age_days"`
	Powered              bool     `json:"powered"`
	Connected            bool     `json:"connected"`
	Status               Status   `json:"status"`
	ConstructionProgress float64  `json:"construction_progress"`
}

// InService reports whether the building contributes to the simulation
func (b Building) InService() bool {
	return b.Status == StatusOperational || b.Status == StatusNeedsMaintenance
}

// StatusChange records a building lifecycle transition during a tick
type StatusChange struct {
	BuildingID string `json:"building_id"`
	Type       string `json:"type"`
	From       Status `json:"from"`
	To         Status `json:"to"`
}

// PlacementValidation is the outcome of checking a placement. Errors block
// placement, warnings do not; IsValid and CanPlace are both true exactly
// when Errors is empty.
type PlacementValidation struct {
	IsValid           bool      `json:"is_valid"`
	CanPlace          bool      `json:"can_place"`
	Warnings          []string  `json:"warnings"`
	Errors            []string  `json:"errors"`
	SuggestedPosition *Position `json:"suggested_position,omitempty"`
}

func (v *PlacementValidation) addError(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	v.IsValid = false
	v.CanPlace = false
}

func (v *PlacementValidation) addWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
