package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"EcoCity",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`EcoCity - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Grow a city on a terrain grid while keeping it sustainable. Buildings cost
funds, take days to construct and change energy, pollution, waste,
population and happiness. Neglect triggers consequences such as pollution
spikes and blackouts.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage cities
- city_state: resources, statistics, risks and an ASCII map
- list_buildings: the building catalog with costs and requirements
- validate_placement: check a placement without building
- place_building / bulk_place: build (requires intent explanation)
- remove_building / maintain_building: manage existing buildings
- advance_time: let days pass
- event_history: placements, completions, consequences, achievements
- describe_cell: terrain and occupancy of one cell
- reset_city, list_configs, city_instructions

NOTE: The 'intent' parameter on building tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func emptySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{"session_id": sessionProp()},
		Required:   []string{"session_id"},
	}
}

func placementSchema(withIntent bool) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"session_id": sessionProp(),
		"type": map[string]interface{}{
			"type":        "string",
			"enum":        buildingIDs(),
			"description": "Building type ID (see list_buildings)",
		},
		"x": map[string]interface{}{
			"type":        "integer",
			"description": "Column of the building's anchor cell (0-based)",
		},
		"z": map[string]interface{}{
			"type":        "integer",
			"description": "Row of the building's anchor cell (0-based)",
		},
	}
	if withIntent {
		props["intent"] = map[string]interface{}{
			"type":        "string",
			"description": "Brief explanation of why this building goes here (serves as a rubber duck to help explain your reasoning)",
		}
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   []string{"session_id", "type", "x", "z"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new city session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use, e.g. classic or small (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active city sessions",
		InputSchema: emptySchema(),
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnlySchema(),
	}, c.handleGetSession)

	// City operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "city_state",
		Description: "Get the current city state: day, resources, statistics, buildings, risks and map",
		InputSchema: sessionOnlySchema(),
	}, c.handleCityState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_buildings",
		Description: "List every building type with cost, footprint, construction time and requirements",
		InputSchema: emptySchema(),
	}, c.handleListBuildings)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "validate_placement",
		Description: "Check whether a building can be placed at a cell without building it",
		InputSchema: placementSchema(false),
	}, c.handleValidatePlacement)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_building",
		Description: "Place a building. Funds are charged immediately and construction starts.",
		InputSchema: placementSchema(true),
	}, c.handlePlaceBuilding)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_place",
		Description: fmt.Sprintf("Place up to %d buildings in order. Each placement is validated against the city as left by the previous ones.", engine.MaxBulkPlacements),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"placements": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"type": map[string]interface{}{"type": "string"},
							"x":    map[string]interface{}{"type": "integer"},
							"z":    map[string]interface{}{"type": "integer"},
						},
						"required": []string{"type", "x", "z"},
					},
					"description": "Placements to attempt",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind these placements (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "placements"},
		},
	}, c.handleBulkPlace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_building",
		Description: "Demolish a building and free its cells. Funds are not refunded.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":  sessionProp(),
				"building_id": map[string]interface{}{"type": "string", "description": "Building ID"},
			},
			Required: []string{"session_id", "building_id"},
		},
	}, c.handleRemoveBuilding)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "maintain_building",
		Description: fmt.Sprintf("Restore a building to full efficiency for %d days of its maintenance cost", engine.MaintenanceCostDays),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":  sessionProp(),
				"building_id": map[string]interface{}{"type": "string", "description": "Building ID"},
			},
			Required: []string{"session_id", "building_id"},
		},
	}, c.handleMaintainBuilding)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "advance_time",
		Description: "Advance the simulation by a number of days (fractions allowed)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"days": map[string]interface{}{
					"type":        "number",
					"description": "Days to advance, e.g. 1, 7 or 0.5",
				},
			},
			Required: []string{"session_id", "days"},
		},
	}, c.handleAdvance)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_city",
		Description: "Reset the city to its initial state. The event history is kept.",
		InputSchema: sessionOnlySchema(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_history",
		Description: "Get the event history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"kind": map[string]interface{}{
					"type": "string",
					"enum": []string{
						engine.EventPlaced, engine.EventRemoved, engine.EventMaintained,
						engine.EventCompleted, engine.EventNeedsMaintenance, engine.EventConsequence,
						engine.EventConsequenceExpired, engine.EventAchievement, engine.EventReset,
					},
					"description": "Only return events of this kind",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available city configurations",
		InputSchema: emptySchema(),
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "city_instructions",
		Description: "Get instructions, rules and strategy hints for building a sustainable city",
		InputSchema: emptySchema(),
	}, c.handleCityInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get terrain, elevation and occupancy of a single grid cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based)",
				},
				"z": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based)",
				},
			},
			Required: []string{"session_id", "x", "z"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A rejected placement comes back as 422 with a full result
	if resp.StatusCode == http.StatusUnprocessableEntity && result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(sessionID string, parts ...string) string {
	path := "/api/sessions/" + url.PathEscape(sessionID)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

func buildingIDs() []string {
	defs := catalog.Default().All()
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.City != nil {
		result += "\n" + formatCityState(session.City)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		day := 0.0
		if s.City != nil {
			day = s.City.Day
		}
		fmt.Fprintf(&sb, "- %s (Config: %s, Day %.1f, Created: %s)\n",
			s.ID, s.ConfigName, day, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleCityState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state service.CityState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCityState(&state)), nil
}

func (c *Client) handleListBuildings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count     int                  `json:"count"`
		Buildings []catalog.Definition `json:"buildings"`
	}
	if err := c.apiCall(ctx, "GET", "/api/buildings", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCatalog(response.Buildings)), nil
}

func placementFromArgs(args map[string]interface{}) (engine.PlacementRequest, error) {
	typ, _ := args["type"].(string)
	x, okX := intArg(args, "x")
	z, okZ := intArg(args, "z")
	if typ == "" || !okX || !okZ {
		return engine.PlacementRequest{}, fmt.Errorf("type, x and z are required")
	}
	return engine.PlacementRequest{Type: typ, Position: grid.Position{X: x, Z: z}}, nil
}

func (c *Client) handleValidatePlacement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	req, err := placementFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var res grid.PlacementValidation
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "validate"), req, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatValidation(req, &res)), nil
}

func (c *Client) handlePlaceBuilding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	req, err := placementFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.PlacementResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "buildings"), req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPlacementResult(req, &result)), nil
}

func (c *Client) handleBulkPlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	raw, _ := args["placements"].([]interface{})

	placements := make([]engine.PlacementRequest, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("placement %d is not an object", i+1)), nil
		}
		req, err := placementFromArgs(m)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("placement %d: %v", i+1, err)), nil
		}
		placements = append(placements, req)
	}

	var result service.BulkPlaceResult
	body := map[string]interface{}{"placements": placements}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "bulk-place"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkPlaceResult(&result)), nil
}

func (c *Client) handleRemoveBuilding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	buildingID, _ := args["building_id"].(string)

	var response struct {
		Message string             `json:"message"`
		City    *service.CityState `json:"city"`
	}
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, "buildings", url.PathEscape(buildingID)), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatCityState(response.City)), nil
}

func (c *Client) handleMaintainBuilding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	buildingID, _ := args["building_id"].(string)

	var response struct {
		Message string             `json:"message"`
		City    *service.CityState `json:"city"`
	}
	path := sessionPath(sessionID, "buildings", url.PathEscape(buildingID), "maintain")
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatCityState(response.City)), nil
}

func (c *Client) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	days, ok := args["days"].(float64)
	if !ok {
		return mcp.NewToolResultError("days is required"), nil
	}

	var result service.AdvanceResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "advance"), map[string]float64{"days": days}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAdvanceResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string             `json:"message"`
		City    *service.CityState `json:"city"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatCityState(response.City))), nil
}

func (c *Client) handleEventHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if kind, _ := args["kind"].(string); kind != "" {
		params.Set("kind", kind)
	}

	path := sessionPath(sessionID, "history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&sb, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Starting funds: %.0f\n\n",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.StartingFunds)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleCityInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(cityInstructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	z, okZ := intArg(args, "z")
	if !okX || !okZ {
		return mcp.NewToolResultError("x and z are required"), nil
	}

	var response struct {
		Description string `json:"description"`
	}
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "cells", fmt.Sprint(x), fmt.Sprint(z)), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Description), nil
}

// Formatting

func formatSessionInfo(session *service.SessionInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n", session.ID)
	fmt.Fprintf(&sb, "Config: %s\n", session.ConfigName)
	fmt.Fprintf(&sb, "Created: %s\n", session.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Last accessed: %s\n", session.LastAccessedAt.Format(time.RFC3339))
	if session.CityConfig != nil {
		fmt.Fprintf(&sb, "Grid: %dx%d\n", session.CityConfig.Width, session.CityConfig.Height)
	}
	if session.City != nil {
		sb.WriteString("\n")
		sb.WriteString(formatCityState(session.City))
	}
	return sb.String()
}

func formatCityState(state *service.CityState) string {
	if state == nil {
		return "No city state available"
	}
	r := state.Resources
	st := state.Statistics

	var sb strings.Builder
	fmt.Fprintf(&sb, "Day %.1f | Level %d | Sustainability %.0f | Environment %.0f\n",
		state.Day, st.CityLevel, st.SustainabilityScore, st.EnvironmentalScore)
	fmt.Fprintf(&sb, "Funds: %.0f (income %.0f/day, expenses %.0f/day)\n",
		r.Economy.Funds, r.Economy.Income, r.Economy.Expenses)
	fmt.Fprintf(&sb, "Population: %.0f/%.0f, happiness %.0f\n",
		r.Population.Total, r.Population.Capacity, r.Population.Happiness)
	fmt.Fprintf(&sb, "Energy: %.0f produced, %.0f consumed (%.0f%% renewable)\n",
		r.Energy.Production, r.Energy.Consumption, r.Energy.RenewablePercentage)
	fmt.Fprintf(&sb, "Environment: air %.0f, water %.0f, green space %.0f%%, CO2 %.0f\n",
		r.Environment.AirQuality, r.Environment.WaterQuality, r.Environment.GreenSpacePercentage, r.Environment.CO2Level)
	fmt.Fprintf(&sb, "Waste: %.0f produced, %.0f%% recycled\n", r.Waste.Production, r.Waste.RecyclingRate)

	counts := engine.CountByStatus(state.Buildings)
	fmt.Fprintf(&sb, "Buildings: %d (%d constructing, %d operational, %d need maintenance)\n",
		len(state.Buildings), counts[grid.StatusConstructing], counts[grid.StatusOperational], counts[grid.StatusNeedsMaintenance])

	if len(state.Active) > 0 {
		sb.WriteString("\nActive consequences:\n")
		for _, c := range state.Active {
			fmt.Fprintf(&sb, "  ⚠️ [%s] %s (%.0f days left)\n", c.Severity, c.Message, c.DurationDays)
		}
	}
	if len(state.Risks) > 0 {
		sb.WriteString("\nRisks:\n")
		for _, risk := range state.Risks {
			fmt.Fprintf(&sb, "  - %s\n", risk)
		}
	}
	if state.Message != "" {
		fmt.Fprintf(&sb, "\nMessage: %s\n", state.Message)
	}
	if state.ASCIIMap != "" {
		sb.WriteString("\nMap (. land, ~ water, \" park, # road, + construction, B building):\n")
		sb.WriteString(state.ASCIIMap)
	}
	return sb.String()
}

func formatValidation(req engine.PlacementRequest, res *grid.PlacementValidation) string {
	var sb strings.Builder
	if res.CanPlace {
		fmt.Fprintf(&sb, "✓ %s can be placed at (%d,%d)\n", req.Type, req.Position.X, req.Position.Z)
	} else {
		fmt.Fprintf(&sb, "✗ %s cannot be placed at (%d,%d)\n", req.Type, req.Position.X, req.Position.Z)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(&sb, "  error: %s\n", e)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&sb, "  warning: %s\n", w)
	}
	if res.SuggestedPosition != nil {
		fmt.Fprintf(&sb, "  suggestion: try (%d,%d)\n", res.SuggestedPosition.X, res.SuggestedPosition.Z)
	}
	return sb.String()
}

func formatPlacementResult(req engine.PlacementRequest, result *service.PlacementResult) string {
	var sb strings.Builder
	if result.Success && result.Building != nil {
		fmt.Fprintf(&sb, "✓ Placed %s (%s) at (%d,%d)\n", result.Building.Type, result.Building.ID, req.Position.X, req.Position.Z)
	} else {
		sb.WriteString("✗ Placement rejected\n")
	}
	sb.WriteString(formatValidation(req, &result.Validation))
	if result.City != nil {
		sb.WriteString("\n")
		sb.WriteString(formatCityState(result.City))
	}
	return sb.String()
}

func formatBulkPlaceResult(result *service.BulkPlaceResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bulk placement: %d placed, %d rejected of %d requested\n", result.Placed, result.Rejected, result.Requested)
	if result.Truncated {
		fmt.Fprintf(&sb, "⚠️ Only the first %d placements were attempted\n", result.Limit)
	}
	for i, r := range result.Results {
		status := "✓"
		if r.Building == nil {
			status = "✗"
		}
		fmt.Fprintf(&sb, "%2d. %s %s at (%d,%d)", i+1, status, r.Request.Type, r.Request.Position.X, r.Request.Position.Z)
		if len(r.Validation.Errors) > 0 {
			fmt.Fprintf(&sb, ": %s", strings.Join(r.Validation.Errors, "; "))
		}
		sb.WriteString("\n")
	}
	if result.City != nil {
		sb.WriteString("\n")
		sb.WriteString(formatCityState(result.City))
	}
	return sb.String()
}

func formatAdvanceResult(result *service.AdvanceResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Advanced %.1f of %.1f days in %d steps\n", result.DaysAdvanced, result.DaysRequested, result.Steps)
	if result.Truncated {
		fmt.Fprintf(&sb, "⚠️ Limited to %d days per request\n", result.Limit)
	}
	for _, ch := range result.StatusChanges {
		fmt.Fprintf(&sb, "  • %s %s: %s -> %s\n", ch.Type, ch.BuildingID, ch.From, ch.To)
	}
	for _, c := range result.Fired {
		fmt.Fprintf(&sb, "  ⚠️ %s: %s\n", c.Type, c.Message)
		for _, s := range c.Solutions {
			fmt.Fprintf(&sb, "     fix: %s\n", s)
		}
	}
	for _, c := range result.Expired {
		fmt.Fprintf(&sb, "  ✓ %s ended\n", c.Type)
	}
	for _, a := range result.Achievements {
		fmt.Fprintf(&sb, "  🏆 %s\n", a)
	}
	if result.City != nil {
		sb.WriteString("\n")
		sb.WriteString(formatCityState(result.City))
	}
	return sb.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Event history: page %d of %d (%d events)\n\n", history.Page, history.TotalPages, history.TotalEvents)
	for _, e := range history.Events {
		fmt.Fprintf(&sb, "#%d day %.1f [%s] %s\n", e.Sequence, e.Day, e.Kind, e.Message)
	}
	if history.HasNext {
		fmt.Fprintf(&sb, "\nMore events on page %d\n", history.Page+1)
	}
	return sb.String()
}

func formatCatalog(defs []catalog.Definition) string {
	sorted := append([]catalog.Definition(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].Stats.Cost < sorted[j].Stats.Cost
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Building catalog (%d types):\n\n", len(sorted))
	for _, d := range sorted {
		fmt.Fprintf(&sb, "• %s (%s, %s) %dx%d, cost %.0f, %.0f days to build, upkeep %.0f/day",
			d.ID, d.Name, d.Category, d.Footprint.Width, d.Footprint.Height,
			d.Stats.Cost, d.Stats.ConstructionDays, d.Stats.MaintenanceCost)
		var reqs []string
		if d.Stats.UnlockLevel > 1 {
			reqs = append(reqs, fmt.Sprintf("level %d", d.Stats.UnlockLevel))
		}
		if d.Requirements.NearRoad {
			reqs = append(reqs, "road nearby")
		}
		if d.Requirements.NearWater {
			reqs = append(reqs, "next to water")
		}
		for _, rule := range d.Requirements.MinDistance {
			reqs = append(reqs, fmt.Sprintf("%d cells from %s", rule.Cells, rule.Type))
		}
		if d.Requirements.MaxPerCity > 0 {
			reqs = append(reqs, fmt.Sprintf("max %d", d.Requirements.MaxPerCity))
		}
		if len(reqs) > 0 {
			fmt.Fprintf(&sb, " [requires %s]", strings.Join(reqs, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

const cityInstructions = `🏙️ EcoCity - Complete Instructions

OBJECTIVE:
Grow a thriving city while keeping it sustainable. There is no single win
condition: aim for a high sustainability score, a growing population and
the achievements that come with them.

GRID:
• The city is a grid of cells addressed as (x, z), 0-based
• Terrain: . land, ~ water (rivers and lakes), " park, # road
• Buildings never go on water or parks
• Multi-cell buildings are anchored at their top-left cell
• Map symbols: + construction site, B finished building

BUILDING LIFECYCLE:
• Funds are charged when a building is placed
• Construction takes the listed number of days
• Operational buildings lose efficiency over time and need maintenance
• maintain_building restores efficiency for 30 days of upkeep

REQUIREMENTS:
• Shops, factories, offices and recycling centers need a road nearby
• Water treatment and hydro plants must be next to water
• Some types unlock at higher city levels; some have a maximum count
• Factories next to homes are allowed but reduce happiness

RESOURCES:
• Energy: production must cover consumption or blackouts follow
• Environment: air and water quality suffer from industry and coal
• Waste: recycling keeps it under control
• Population grows toward housing capacity while happiness is good
• Economy: taxes from residents and commerce pay for upkeep

CONSEQUENCES:
• Pollution spikes, blackouts, waste crises and unrest fire when
  thresholds are crossed and last for several days
• Each consequence lists solutions; fix the cause before it fires again

STRATEGY HINTS:
1. Use list_buildings and validate_placement before spending funds
2. Pair housing with renewable energy early (solar panels, wind turbines)
3. Keep industry away from homes and surround it with tree groves
4. Advance time in small steps and watch the risks in city_state
5. Check event_history for what fired and why

Good luck building your EcoCity! 🌱`
