package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/simulation"
)

var (
	ErrInvalidDays     = errors.New("days must be a positive number")
	ErrNoPlacements    = errors.New("no placements requested")
	ErrCellOutOfBounds = errors.New("cell is outside the grid")
)

// History page sizes
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// cityServiceImpl implements the CityService interface
type cityServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewCityService creates a new city service instance
func NewCityService(sessions SessionManager, configs ConfigManager) CityService {
	return &cityServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a configuration display name
func (s *cityServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// session looks up a session and records the access. The caller locks it.
func (s *cityServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist saves a session after a mutation. Failures are logged, not returned.
func (s *cityServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: failed to persist session %s after %s: %v", sessionID, after, err)
	}
}

func cityState(e *engine.CityEngine) *CityState {
	snap := e.Snapshot()
	state := &CityState{
		Snapshot: snap,
		Risks:    engine.AnalyzeRisks(snap.Resources),
	}
	if snap.Grid != nil && snap.Grid.Width <= 64 {
		state.ASCIIMap = engine.RenderASCII(snap.Grid, snap.Buildings)
	}
	if state.Risks == nil {
		state.Risks = []string{}
	}
	return state
}

func (s *cityServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	sess.Lock()
	defer sess.Unlock()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		City:           cityState(sess.Engine),
		CityConfig:     sess.Config,
	}
}

// CreateSession creates a new city session from a named configuration, or
// the default one when configName is empty
func (s *cityServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.CityConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v", configName, configIDs)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations", configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	info := s.sessionInfo(sess)
	if configName != "" {
		info.ConfigName = strings.TrimSuffix(configName, ".json")
	}
	return info, nil
}

// GetSession retrieves session information
func (s *cityServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *cityServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *cityServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// PlaceBuilding validates and places one building
func (s *cityServiceImpl) PlaceBuilding(ctx context.Context, sessionID string, req engine.PlacementRequest) (*PlacementResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	b, res := sess.Engine.Place(req.Type, req.Position)
	result := &PlacementResult{
		Success:    res.CanPlace,
		Validation: res,
		City:       cityState(sess.Engine),
	}
	result.Message = result.City.Message
	if res.CanPlace {
		result.Building = &b
	}
	sess.Unlock()

	if res.CanPlace {
		s.persist(sessionID, "placement")
	}
	return result, nil
}

// BulkPlace places buildings in order, stopping after engine.MaxBulkPlacements
func (s *cityServiceImpl) BulkPlace(ctx context.Context, sessionID string, reqs []engine.PlacementRequest) (*BulkPlaceResult, error) {
	if len(reqs) == 0 {
		return nil, ErrNoPlacements
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkPlaceResult{Requested: len(reqs)}
	if len(reqs) > engine.MaxBulkPlacements {
		reqs = reqs[:engine.MaxBulkPlacements]
		result.Truncated = true
		result.Limit = engine.MaxBulkPlacements
	}

	sess.Lock()
	result.Results = sess.Engine.BulkPlace(reqs)
	for _, r := range result.Results {
		if r.Building != nil {
			result.Placed++
		} else {
			result.Rejected++
		}
	}
	result.City = cityState(sess.Engine)
	sess.Unlock()

	if result.Placed > 0 {
		s.persist(sessionID, "bulk placement")
	}
	return result, nil
}

// ValidatePlacement checks a placement without changing the city
func (s *cityServiceImpl) ValidatePlacement(ctx context.Context, sessionID string, req engine.PlacementRequest) (*grid.PlacementValidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	res := sess.Engine.Validate(req.Type, req.Position)
	return &res, nil
}

// RemoveBuilding demolishes a building
func (s *cityServiceImpl) RemoveBuilding(ctx context.Context, sessionID, buildingID string) (*CityState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	removed := sess.Engine.Remove(buildingID)
	state := cityState(sess.Engine)
	sess.Unlock()

	if !removed {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownBuilding, buildingID)
	}
	s.persist(sessionID, "removal")
	return state, nil
}

// MaintainBuilding restores a building to full efficiency
func (s *cityServiceImpl) MaintainBuilding(ctx context.Context, sessionID, buildingID string) (*CityState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	err = sess.Engine.Maintain(buildingID)
	state := cityState(sess.Engine)
	sess.Unlock()

	if err != nil {
		return nil, err
	}
	s.persist(sessionID, "maintenance")
	return state, nil
}

// Advance moves the city forward in steps of at most one day. Requests above
// the configured limit are truncated to it.
func (s *cityServiceImpl) Advance(ctx context.Context, sessionID string, days float64) (*AdvanceResult, error) {
	if days <= 0 || math.IsNaN(days) || math.IsInf(days, 0) {
		return nil, ErrInvalidDays
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &AdvanceResult{
		DaysRequested: days,
		Fired:         []simulation.Consequence{},
		Expired:       []simulation.Consequence{},
		StatusChanges: []grid.StatusChange{},
		Achievements:  []string{},
	}
	if limit := sess.Config.AdvanceLimit(); days > float64(limit) {
		days = float64(limit)
		result.Truncated = true
		result.Limit = limit
	}

	sess.Lock()
	for remaining := days; remaining > 1e-9; {
		if err = ctx.Err(); err != nil {
			break
		}
		step := math.Min(1, remaining)
		report := sess.Engine.Tick(step)
		remaining -= step
		result.DaysAdvanced += step
		result.Steps++
		result.Fired = append(result.Fired, report.Fired...)
		result.Expired = append(result.Expired, report.Expired...)
		result.StatusChanges = append(result.StatusChanges, report.StatusChanges...)
		result.Achievements = append(result.Achievements, report.Achievements...)
	}
	result.City = cityState(sess.Engine)
	sess.Unlock()

	if result.Steps > 0 {
		s.persist(sessionID, "advance")
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// Reset rebuilds the city from its configuration
func (s *cityServiceImpl) Reset(ctx context.Context, sessionID string) (*CityState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	sess.Engine.Reset()
	state := cityState(sess.Engine)
	sess.Unlock()

	s.persist(sessionID, "reset")
	return state, nil
}

// GetCityState returns the current city state
func (s *cityServiceImpl) GetCityState(ctx context.Context, sessionID string) (*CityState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return cityState(sess.Engine), nil
}

// GetEventHistory returns a page of the city's event history
func (s *cityServiceImpl) GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	var history []engine.EventEntry
	if opts.Kind != "" {
		history = sess.Engine.EventsOfKind(opts.Kind)
	} else {
		history = append(history, sess.Engine.GetHistory()...)
	}
	sess.Unlock()

	return paginate(history, opts), nil
}

func paginate(history []engine.EventEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	if opts.Limit > MaxHistoryLimit {
		opts.Limit = MaxHistoryLimit
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	events := []engine.EventEntry{}
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// GetHeightMap returns the per-cell render heights
func (s *cityServiceImpl) GetHeightMap(ctx context.Context, sessionID string) ([][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Engine.HeightMap(), nil
}

// DescribeCell returns a one-line description of a cell
func (s *cityServiceImpl) DescribeCell(ctx context.Context, sessionID string, pos grid.Position) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}

	sess.Lock()
	defer sess.Unlock()
	desc, ok := sess.Engine.DescribeCell(pos)
	if !ok {
		return "", fmt.Errorf("%w: (%d,%d)", ErrCellOutOfBounds, pos.X, pos.Z)
	}
	return desc, nil
}

// ListBuildingTypes returns the built-in building catalog
func (s *cityServiceImpl) ListBuildingTypes(ctx context.Context) ([]catalog.Definition, error) {
	return catalog.Default().All(), nil
}

// ListConfigs returns all available configurations
func (s *cityServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a configuration by name
func (s *cityServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.CityConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a configuration to disk
func (s *cityServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.CityConfig) error {
	return s.configs.SaveConfig(configName, config)
}
