package service

import (
	"context"

	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
)

// CityService defines all city-related operations
type CityService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Building Operations
	PlaceBuilding(ctx context.Context, sessionID string, req engine.PlacementRequest) (*PlacementResult, error)
	BulkPlace(ctx context.Context, sessionID string, reqs []engine.PlacementRequest) (*BulkPlaceResult, error)
	ValidatePlacement(ctx context.Context, sessionID string, req engine.PlacementRequest) (*grid.PlacementValidation, error)
	RemoveBuilding(ctx context.Context, sessionID, buildingID string) (*CityState, error)
	MaintainBuilding(ctx context.Context, sessionID, buildingID string) (*CityState, error)

	// Time
	Advance(ctx context.Context, sessionID string, days float64) (*AdvanceResult, error)
	Reset(ctx context.Context, sessionID string) (*CityState, error)

	// City State
	GetCityState(ctx context.Context, sessionID string) (*CityState, error)
	GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetHeightMap(ctx context.Context, sessionID string) ([][]float64, error)
	DescribeCell(ctx context.Context, sessionID string, pos grid.Position) (string, error)
	ListBuildingTypes(ctx context.Context) ([]catalog.Definition, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.CityConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.CityConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.CityConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.CityConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles city configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.CityConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.CityConfig
	SaveConfig(name string, config *engine.CityConfig) error
}
