package service

import (
	"sync"
	"time"

	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/simulation"
)

// SessionInfo provides information about a city session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	City           *CityState         `json:"city"`
	CityConfig     *engine.CityConfig `json:"city_config"`
}

// CityState is a snapshot of a city plus derived hints for clients
type CityState struct {
	engine.Snapshot
	Risks    []string `json:"risks"`
	ASCIIMap string   `json:"ascii_map,omitempty"`
}

// PlacementResult contains the result of a single placement
type PlacementResult struct {
	Success    bool                     `json:"success"`
	Building   *grid.Building           `json:"building,omitempty"`
	Validation grid.PlacementValidation `json:"validation"`
	Message    string                   `json:"message"`
	City       *CityState               `json:"city"`
}

// BulkPlaceResult contains the results of several placements
type BulkPlaceResult struct {
	Requested int                      `json:"requested"`
	Placed    int                      `json:"placed"`
	Rejected  int                      `json:"rejected"`
	Truncated bool                     `json:"truncated,omitempty"`
	Limit     int                      `json:"limit,omitempty"`
	Results   []engine.PlacementResult `json:"results"`
	City      *CityState               `json:"city"`
}

// AdvanceResult summarizes a multi-day advance
type AdvanceResult struct {
	DaysRequested float64                  `json:"days_requested"`
	DaysAdvanced  float64                  `json:"days_advanced"`
	Steps         int                      `json:"steps"`
	Truncated     bool                     `json:"truncated,omitempty"`
	Limit         int                      `json:"limit,omitempty"`
	Fired         []simulation.Consequence `json:"fired"`
	Expired       []simulation.Consequence `json:"expired"`
	StatusChanges []grid.StatusChange      `json:"status_changes"`
	Achievements  []string                 `json:"achievements"`
	City          *CityState               `json:"city"`
}

// CityEvent is pushed to live subscribers after a city changes
type CityEvent struct {
	Type      string         `json:"type"` // "placed", "removed", "maintained", "advanced", "consequence", "reset"
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Position  *grid.Position `json:"position,omitempty"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Kind  string `json:"kind,omitempty"`
}

// HistoryResponse contains a page of the event history
type HistoryResponse struct {
	Events      []engine.EventEntry `json:"events"`
	TotalEvents int                 `json:"total_events"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// ConfigInfo provides information about a city configuration
type ConfigInfo struct {
	Filename      string  `json:"filename"`
	ConfigID      string  `json:"config_id"` // The identifier to use for session creation
	Name          string  `json:"name"`      // Display name
	Description   string  `json:"description"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	StartingFunds float64 `json:"starting_funds"`
}

// Session is an active city. Engine calls must hold the session lock.
type Session struct {
	ID             string
	Engine         *engine.CityEngine
	Config         *engine.CityConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu sync.Mutex
}

// Lock acquires exclusive access to the session's engine
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch records an access
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastAccessedAt = time.Now()
	s.mu.Unlock()
}

// LastAccess returns the time of the last access
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastAccessedAt
}
