// Package mcp exposes the city REST API to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes one or two REST calls
// and the JSON responses are rendered as compact text for the agent.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - city_state: resources, statistics, risks and the ASCII map
//   - list_buildings: the building catalog
//   - validate_placement, place_building, bulk_place
//   - remove_building, maintain_building
//   - advance_time, reset_city
//   - event_history: paged history, optionally filtered by kind
//   - describe_cell, list_configs, city_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// The same MCPServer can be mounted over HTTP with
// server.NewStreamableHTTPServer.
package mcp
