package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/service"
	"github.com/wricardo/ecocity/game/session"
	"github.com/wricardo/ecocity/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.CityService
	hub     *websocket.Hub
	router  *mux.Router
	limiter *RateLimiter
}

// NewServer creates a new API server
func NewServer(cityService service.CityService, hub *websocket.Hub) *Server {
	s := &Server{
		service: cityService,
		hub:     hub,
		router:  mux.NewRouter(),
		limiter: NewRateLimiter(DefaultRateLimit, DefaultRateBurst),
	}

	s.setupRoutes()
	return s
}

// SetRateLimiter replaces the limiter for mutating requests. nil disables limiting.
func (s *Server) SetRateLimiter(rl *RateLimiter) {
	s.limiter = rl
}

// RateLimiter returns the active limiter, or nil
func (s *Server) RateLimiter() *RateLimiter {
	return s.limiter
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit)

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Must be registered before the {id} pattern
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// City operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetCityState).Methods("GET")
	api.HandleFunc("/sessions/{id}/buildings", s.handlePlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/bulk-place", s.handleBulkPlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/validate", s.handleValidate).Methods("POST")
	api.HandleFunc("/sessions/{id}/buildings/{bid}", s.handleRemove).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/buildings/{bid}/maintain", s.handleMaintain).Methods("POST")
	api.HandleFunc("/sessions/{id}/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/heightmap", s.handleHeightMap).Methods("GET")
	api.HandleFunc("/sessions/{id}/cells/{x}/{z}", s.handleDescribeCell).Methods("GET")

	// Catalog and configuration
	api.HandleFunc("/buildings", s.handleListBuildings).Methods("GET")
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		s.limiter.Middleware(next).ServeHTTP(w, r)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// statusFor maps service and engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		strings.HasPrefix(err.Error(), "session not found"),
		strings.Contains(err.Error(), "configuration not found"),
		errors.Is(err, engine.ErrUnknownBuilding):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDays),
		errors.Is(err, service.ErrNoPlacements),
		errors.Is(err, service.ErrCellOutOfBounds),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrNotInService),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func (s *Server) broadcast(sessionID string, city *service.CityState, eventType, message string, pos *grid.Position) {
	if s.hub == nil {
		return
	}
	if city != nil {
		s.hub.BroadcastToSession(sessionID, city)
	}
	if eventType != "" {
		s.hub.BroadcastEvent(sessionID, websocket.EventCity, service.CityEvent{
			Type:      eventType,
			Message:   message,
			Timestamp: time.Now(),
			Position:  pos,
		})
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// City Handlers

func (s *Server) handleGetCityState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetCityState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func decodePlacement(r *http.Request) (engine.PlacementRequest, error) {
	var req struct {
		Type     string         `json:"type"`
		Position *grid.Position `json:"position,omitempty"`
		X        *int           `json:"x,omitempty"`
		Z        *int           `json:"z,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return engine.PlacementRequest{}, err
	}
	if req.Type == "" {
		return engine.PlacementRequest{}, errors.New("building type is required")
	}

	out := engine.PlacementRequest{Type: req.Type}
	switch {
	case req.Position != nil:
		out.Position = *req.Position
	case req.X != nil && req.Z != nil:
		out.Position = grid.Position{X: *req.X, Z: *req.Z}
	default:
		return engine.PlacementRequest{}, errors.New("position is required")
	}
	return out, nil
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	req, err := decodePlacement(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := s.service.PlaceBuilding(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := "REJECTED"
	if result.Success {
		status = "OK"
		s.broadcast(sessionID, result.City, "placed", result.Message, &req.Position)
	}
	log.Printf("[PLACE] session=%s type=%s at=(%d,%d) status=%s errors=%d warnings=%d",
		sessionID, req.Type, req.Position.X, req.Position.Z, status,
		len(result.Validation.Errors), len(result.Validation.Warnings))

	code := http.StatusOK
	if !result.Success {
		code = http.StatusUnprocessableEntity
	}
	respondJSON(w, code, result)
}

func (s *Server) handleBulkPlace(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Placements []engine.PlacementRequest `json:"placements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.BulkPlace(r.Context(), sessionID, req.Placements)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if result.Placed > 0 {
		s.broadcast(sessionID, result.City, "placed",
			fmt.Sprintf("%d buildings placed", result.Placed), nil)
	}
	log.Printf("[BULK] session=%s placed=%d/%d rejected=%d truncated=%t",
		sessionID, result.Placed, result.Requested, result.Rejected, result.Truncated)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	req, err := decodePlacement(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	res, err := s.service.ValidatePlacement(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, buildingID := vars["id"], vars["bid"]

	state, err := s.service.RemoveBuilding(r.Context(), sessionID, buildingID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, state, "removed", fmt.Sprintf("Removed %s", buildingID), nil)
	log.Printf("[REMOVE] session=%s building=%s", sessionID, buildingID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Building %s removed", buildingID),
		"city":    state,
	})
}

func (s *Server) handleMaintain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, buildingID := vars["id"], vars["bid"]

	state, err := s.service.MaintainBuilding(r.Context(), sessionID, buildingID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, state, "maintained", fmt.Sprintf("Maintained %s", buildingID), nil)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Building %s maintained", buildingID),
		"city":    state,
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Days float64 `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Advance(r.Context(), sessionID, req.Days)
	if err != nil && result == nil {
		respondServiceError(w, err)
		return
	}

	if result.City != nil {
		s.broadcast(sessionID, result.City, "advanced",
			fmt.Sprintf("Advanced %.1f days", result.DaysAdvanced), nil)
	}
	for _, c := range result.Fired {
		s.broadcast(sessionID, nil, "consequence", c.Message, nil)
	}

	day := 0.0
	if result.City != nil {
		day = result.City.Day
	}
	log.Printf("[ADVANCE] session=%s days=%.2f/%.2f steps=%d day=%.1f fired=%d truncated=%t",
		sessionID, result.DaysAdvanced, result.DaysRequested, result.Steps, day, len(result.Fired), result.Truncated)

	if err != nil {
		// Canceled part way; the partial result is still reported
		respondJSON(w, statusFor(err), map[string]interface{}{
			"error":  err.Error(),
			"result": result,
		})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, state, "reset", "City reset", nil)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "City reset successfully",
		"city":    state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: service.DefaultHistoryLimit,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}
	opts.Kind = query.Get("kind")

	history, err := s.service.GetEventHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleHeightMap(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	heights, err := s.service.GetHeightMap(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"height":  len(heights),
		"heights": heights,
	})
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	x, errX := strconv.Atoi(vars["x"])
	z, errZ := strconv.Atoi(vars["z"])
	if errX != nil || errZ != nil {
		respondError(w, http.StatusBadRequest, "cell coordinates must be integers")
		return
	}

	pos := grid.Position{X: x, Z: z}
	desc, err := s.service.DescribeCell(r.Context(), vars["id"], pos)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"position":    pos,
		"description": desc,
	})
}

func (s *Server) handleListBuildings(w http.ResponseWriter, r *http.Request) {
	defs, err := s.service.ListBuildingTypes(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(defs),
		"buildings": defs,
	})
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id,omitempty"`
		engine.CityConfig
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}
	configID := req.ID
	if configID == "" {
		configID = slug(req.Name)
	}

	config := req.CityConfig
	if err := s.service.SaveConfig(r.Context(), configID, &config); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// slug turns a display name into a config file name
func slug(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// Unified Sessions Handler

type sessionSummary struct {
	SessionID    string    `json:"session_id"`
	ConfigName   string    `json:"config_name"`
	Day          float64   `json:"day"`
	Population   float64   `json:"population"`
	Funds        float64   `json:"funds"`
	Buildings    int       `json:"buildings"`
	Sustainable  float64   `json:"sustainability"`
	Active       int       `json:"active_consequences"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

func summarize(info *service.SessionInfo) sessionSummary {
	sum := sessionSummary{
		SessionID:    info.ID,
		ConfigName:   info.ConfigName,
		CreatedAt:    info.CreatedAt,
		LastAccessed: info.LastAccessedAt,
	}
	if info.City != nil {
		sum.Day = info.City.Day
		sum.Population = info.City.Resources.Population.Total
		sum.Funds = info.City.Resources.Economy.Funds
		sum.Buildings = len(info.City.Buildings)
		sum.Sustainable = info.City.Statistics.SustainabilityScore
		sum.Active = len(info.City.Active)
	}
	return sum
}

// handleUnifiedSessions compares several cities side by side
func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if info, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, info)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		configName := query.Get("configName")
		for _, info := range all {
			if configName == "" || info.ConfigName == configName {
				sessions = append(sessions, info)
			}
		}
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for _, info := range sessions {
		summaries = append(summaries, summarize(info))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Sustainable > summaries[j].Sustainable
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(summaries),
		"sessions": summaries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "live updates are disabled", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
