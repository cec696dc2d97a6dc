// Package api provides the HTTP REST API for city sessions.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a city ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (sort, order, limit)
//   - GET /api/sessions/unified - Compare cities, ranked by sustainability
//   - GET /api/sessions/{id} - Get a session with its city
//   - DELETE /api/sessions/{id} - Delete a session
//
// City operations:
//   - GET /api/sessions/{id}/state - Current city state
//   - POST /api/sessions/{id}/buildings - Place a building ({"type", "x", "z"})
//   - POST /api/sessions/{id}/bulk-place - Place up to 50 buildings in order
//   - POST /api/sessions/{id}/validate - Check a placement without building
//   - DELETE /api/sessions/{id}/buildings/{bid} - Demolish a building
//   - POST /api/sessions/{id}/buildings/{bid}/maintain - Restore efficiency
//   - POST /api/sessions/{id}/advance - Advance time ({"days": 7})
//   - POST /api/sessions/{id}/reset - Rebuild the city from its config
//   - GET /api/sessions/{id}/history - Event history (page, limit, order, kind)
//   - GET /api/sessions/{id}/heightmap - Terrain elevation per cell
//   - GET /api/sessions/{id}/cells/{x}/{z} - Describe one cell
//
// Catalog and configuration:
//   - GET /api/buildings - Building catalog
//   - GET /api/configs - List configurations
//   - POST /api/configs - Save a configuration
//   - GET /api/configs/{name} - Get one configuration
//
// Live updates are served on /ws?session={id}; every successful mutation
// pushes the new city state and a city_event to subscribers.
//
// Mutating requests are rate limited per client IP. Errors are returned as
// JSON with the matching status code:
//
//	{
//	  "error": "session not found: abcd",
//	  "code": 404
//	}
//
// A rejected placement is not an error: it returns 422 with the validation
// result so clients can show the reasons.
package api
