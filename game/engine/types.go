package engine

import (
	"errors"

	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/simulation"
)

const (
	// Validation constants
	MinCitySize           = grid.MinGridSize
	MaxCitySize           = grid.MaxGridSize
	DefaultMaxAdvanceDays = 365
	MaxBulkPlacements     = 50
	MaintenanceCostDays   = 30
	WebSocketBufferSize   = 256
)

var (
	// ErrUnknownBuilding is returned for operations on a building id that does not exist
	ErrUnknownBuilding = errors.New("unknown building")
	// ErrInsufficientFunds is returned when the treasury cannot cover an action
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotInService is returned when maintaining a building still under construction
	ErrNotInService = errors.New("building is not in service")
	// ErrMalformedState is returned by ImportState for inconsistent snapshots
	ErrMalformedState = errors.New("malformed city state")
)

// Event kinds recorded in the history
const (
	EventPlaced             = "placed"
	EventRemoved            = "removed"
	EventMaintained         = "maintained"
	EventCompleted          = "construction_completed"
	EventNeedsMaintenance   = "needs_maintenance"
	EventConsequence        = "consequence"
	EventConsequenceExpired = "consequence_expired"
	EventAchievement        = "achievement"
	EventReset              = "reset"
)

// CityConfig represents a city configuration loaded from JSON
type CityConfig struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	CellSize          float64 `json:"cell_size"`
	StartingFunds     float64 `json:"starting_funds"`
	TaxRate           float64 `json:"tax_rate"`
	StartingHappiness float64 `json:"starting_happiness"`
	MaxAdvanceDays    int     `json:"max_advance_days"`
	Messages          struct {
		Welcome  string `json:"welcome"`
		Placed   string `json:"placed"`
		Removed  string `json:"removed"`
		Rejected string `json:"rejected"`
	} `json:"messages"`
}

// EventEntry is a single entry in the city history
type EventEntry struct {
	Sequence     int            `json:"sequence"`
	Kind         string         `json:"kind"`
	Message      string         `json:"message"`
	Day          float64        `json:"day"`
	BuildingID   string         `json:"building_id,omitempty"`
	BuildingType string         `json:"building_type,omitempty"`
	Position     *grid.Position `json:"position,omitempty"`
	Timestamp    int64          `json:"timestamp"`
}

// Snapshot is the read model handed to renderers and UI panels
type Snapshot struct {
	ConfigName string                   `json:"config_name"`
	Day        float64                  `json:"day"`
	Message    string                   `json:"message"`
	Resources  simulation.Resources     `json:"resources"`
	Statistics simulation.Statistics    `json:"statistics"`
	Buildings  []grid.Building          `json:"buildings"`
	Grid       *grid.Grid               `json:"grid,omitempty"`
	Active     []simulation.Consequence `json:"active_consequences"`
}

// TickReport lists what changed during a tick. Only newly fired
// consequences are reported; active ones are in the snapshot.
type TickReport struct {
	Day           float64                  `json:"day"`
	Fired         []simulation.Consequence `json:"fired"`
	Expired       []simulation.Consequence `json:"expired"`
	StatusChanges []grid.StatusChange      `json:"status_changes"`
	Achievements  []string                 `json:"achievements"`
}

// ExportedState is the plain serializable form of a city
type ExportedState struct {
	ConfigName string                `json:"config_name"`
	Grid       *grid.Grid            `json:"grid"`
	Buildings  []grid.Building       `json:"buildings"`
	CellSize   float64               `json:"cell_size"`
	Resources  simulation.Resources  `json:"resources"`
	Statistics simulation.Statistics `json:"statistics"`
	History    []EventEntry          `json:"history"`
	Message    string                `json:"message"`
}

// PlacementRequest is one entry of a bulk placement
type PlacementRequest struct {
	Type     string        `json:"type"`
	Position grid.Position `json:"position"`
}

// PlacementResult pairs a placement request with its outcome
type PlacementResult struct {
	Request    PlacementRequest         `json:"request"`
	Building   *grid.Building           `json:"building,omitempty"`
	Validation grid.PlacementValidation `json:"validation"`
}
