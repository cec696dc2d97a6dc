package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/service"
	"github.com/wricardo/ecocity/game/simulation"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func testCity() *service.CityState {
	state := &service.CityState{Risks: []string{"energy deficit of 12"}}
	state.Day = 12
	state.Message = "Building House"
	state.Resources.Economy.Funds = 48500
	state.Resources.Population.Total = 42
	state.Resources.Population.Capacity = 50
	state.Buildings = []grid.Building{
		{ID: "b-1", Type: "house", Status: grid.StatusOperational},
		{ID: "b-2", Type: "solar_panel", Status: grid.StatusConstructing},
	}
	state.ASCIIMap = "..#\n.B+\n~~#\n"
	return state
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "abcd"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/sessions/abcd", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "abcd" {
		t.Errorf("Expected id abcd, got %v", response["id"])
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
			t.Error("Expected error for unreachable server")
		}
	})

	t.Run("json error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "session not found", "code": 404})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || err.Error() != "session not found" {
			t.Errorf("Expected 'session not found', got %v", err)
		}
	})

	t.Run("plain error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error', got %v", err)
		}
	})
}

func TestClient_createSession(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(service.SessionInfo{ID: "a1b2", ConfigName: "small", City: testCity()})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]interface{}{"config_id": "small"}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "a1b2") || !strings.Contains(text, "Config: small") {
		t.Errorf("Expected session details, got: %s", text)
	}
	if body["config_id"] != "small" {
		t.Errorf("Expected config_id forwarded, got %v", body)
	}
}

func TestClient_placeBuilding(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		status   int
		response service.PlacementResult
		want     string
		isError  bool
	}{
		{
			name:   "placed",
			args:   map[string]interface{}{"session_id": "abcd", "type": "house", "x": float64(2), "z": float64(3), "intent": "homes near the park"},
			status: http.StatusOK,
			response: service.PlacementResult{
				Success:  true,
				Building: &grid.Building{ID: "b-7", Type: "house"},
				City:     testCity(),
			},
			want: "✓ Placed house (b-7) at (2,3)",
		},
		{
			name:   "rejected",
			args:   map[string]interface{}{"session_id": "abcd", "type": "house", "x": float64(5), "z": float64(3)},
			status: http.StatusUnprocessableEntity,
			response: service.PlacementResult{
				Validation: grid.PlacementValidation{
					Errors:            []string{"cell (5,3) is water"},
					SuggestedPosition: &grid.Position{X: 4, Z: 3},
				},
			},
			want: "suggestion: try (4,3)",
		},
		{
			name:    "missing coordinates",
			args:    map[string]interface{}{"session_id": "abcd", "type": "house"},
			isError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got engine.PlacementRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/sessions/abcd/buildings" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			result, err := NewClient(server.URL).handlePlaceBuilding(context.Background(), callRequest("place_building", tt.args))
			if err != nil {
				t.Fatalf("handlePlaceBuilding returned error: %v", err)
			}
			if tt.isError {
				if !result.IsError {
					t.Error("Expected a tool error")
				}
				return
			}

			text := resultText(t, result)
			if !strings.Contains(text, tt.want) {
				t.Errorf("Expected %q in result, got: %s", tt.want, text)
			}
			if got.Type != "house" {
				t.Errorf("Expected type forwarded, got %+v", got)
			}
		})
	}
}

func TestClient_bulkPlace(t *testing.T) {
	var got struct {
		Placements []engine.PlacementRequest `json:"placements"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(service.BulkPlaceResult{
			Requested: 2,
			Placed:    1,
			Rejected:  1,
			Results: []engine.PlacementResult{
				{Request: got.Placements[0], Building: &grid.Building{ID: "b-1"}},
				{Request: got.Placements[1], Validation: grid.PlacementValidation{Errors: []string{"insufficient funds"}}},
			},
		})
	}))
	defer server.Close()

	args := map[string]interface{}{
		"session_id": "abcd",
		"placements": []interface{}{
			map[string]interface{}{"type": "house", "x": float64(1), "z": float64(1)},
			map[string]interface{}{"type": "coal_plant", "x": float64(2), "z": float64(2)},
		},
	}
	result, err := NewClient(server.URL).handleBulkPlace(context.Background(), callRequest("bulk_place", args))
	if err != nil {
		t.Fatal(err)
	}

	text := resultText(t, result)
	for _, want := range []string{"1 placed, 1 rejected of 2", "✗ coal_plant at (2,2): insufficient funds"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
	if len(got.Placements) != 2 || got.Placements[1].Position != (grid.Position{X: 2, Z: 2}) {
		t.Errorf("Unexpected forwarded placements: %+v", got.Placements)
	}
}

func TestClient_advance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Days float64 `json:"days"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(service.AdvanceResult{
			DaysRequested: req.Days,
			DaysAdvanced:  req.Days,
			Steps:         3,
			Fired: []simulation.Consequence{{
				Type:      "pollution_spike",
				Message:   "Air quality has collapsed",
				Solutions: []string{"Replace coal with renewables"},
			}},
			Achievements: []string{"First Steps"},
			City:         testCity(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleAdvance(context.Background(), callRequest("advance_time", map[string]interface{}{"session_id": "abcd", "days": 2.5}))
	if err != nil {
		t.Fatal(err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Advanced 2.5 of 2.5 days", "pollution_spike", "fix: Replace coal", "🏆 First Steps"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}

	result, _ = client.handleAdvance(context.Background(), callRequest("advance_time", map[string]interface{}{"session_id": "abcd"}))
	if !result.IsError {
		t.Error("Expected tool error without days")
	}
}

func TestClient_eventHistoryQuery(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		json.NewEncoder(w).Encode(service.HistoryResponse{
			Events:      []engine.EventEntry{{Sequence: 4, Kind: engine.EventConsequence, Message: "Blackout", Day: 9}},
			TotalEvents: 7,
			Page:        2,
			TotalPages:  3,
			HasNext:     true,
		})
	}))
	defer server.Close()

	args := map[string]interface{}{"session_id": "abcd", "page": float64(2), "limit": float64(3), "kind": "consequence"}
	result, err := NewClient(server.URL).handleEventHistory(context.Background(), callRequest("event_history", args))
	if err != nil {
		t.Fatal(err)
	}

	if query != "kind=consequence&limit=3&page=2" {
		t.Errorf("Unexpected query %q", query)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "#4 day 9.0 [consequence] Blackout") || !strings.Contains(text, "page 3") {
		t.Errorf("Unexpected history output: %s", text)
	}
}

func TestFormatCityState(t *testing.T) {
	text := formatCityState(testCity())

	expected := []string{
		"Day 12.0",
		"Funds: 48500",
		"Population: 42/50",
		"Buildings: 2 (1 constructing, 1 operational, 0 need maintenance)",
		"energy deficit of 12",
		"Message: Building House",
		".B+",
	}
	for _, field := range expected {
		if !strings.Contains(text, field) {
			t.Errorf("Expected %q in formatted output, got: %s", field, text)
		}
	}

	if formatCityState(nil) != "No city state available" {
		t.Error("Expected placeholder for nil state")
	}
}

func TestFormatCatalog(t *testing.T) {
	text := formatCatalog(catalog.Default().All())

	for _, want := range []string{
		fmt.Sprintf("(%d types)", catalog.Default().Len()),
		"coal_plant (",
		"3x3, cost 20000, 25 days to build",
		"max 3",
		"next to water",
		"road nearby",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in catalog output", want)
		}
	}
}

func TestClient_handleCityInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleCityInstructions(context.Background(), callRequest("city_instructions", nil))
	if err != nil {
		t.Fatalf("handleCityInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, section := range []string{"OBJECTIVE:", "GRID:", "BUILDING LIFECYCLE:", "REQUIREMENTS:", "CONSEQUENCES:", "STRATEGY HINTS:"} {
		if !strings.Contains(text, section) {
			t.Errorf("Expected %q in instructions", section)
		}
	}
}
