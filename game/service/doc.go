// Package service provides the business logic layer for the city simulator.
//
// The service package implements:
//   - Multi-session city management
//   - Building placement, removal and maintenance
//   - Time advancement in steps of at most one day
//   - Paginated event history
//   - Configuration listing, loading and saving
//
// Core Interfaces:
//
// CityService is the main service interface used by the REST API, the MCP
// tools and the simulation clock. SessionManager handles session creation,
// retrieval and persistence. ConfigManager loads city configurations.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	cityService := service.NewCityService(sessionMgr, configMgr)
//
//	info, err := cityService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := cityService.PlaceBuilding(ctx, info.ID, engine.PlacementRequest{
//		Type:     "solar_panel",
//		Position: grid.Position{X: 4, Z: 3},
//	})
//	advance, err := cityService.Advance(ctx, info.ID, 30)
//
// Concurrency:
//
// Each session owns one engine and a lock. Every engine call runs under the
// session lock, so different sessions advance in parallel while operations
// on the same session are serialized. Sessions are saved after each
// successful mutation; save failures are logged and do not fail the call.
package service
