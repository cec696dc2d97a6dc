// Package engine ties the city grid, the resource simulation and the
// consequence system into a single playable city.
//
// The engine package implements:
//   - Placement with funds and unlock-level checks on top of the grid rules
//   - Time advancement through Tick, which ages buildings, integrates
//     resources and fires consequences
//   - An event history of placements, completions, consequences and
//     achievements
//   - Export and import of the complete city state
//   - City configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the contract, implemented by CityEngine.
// CityConfig is loaded from JSON files and describes the grid size and the
// starting economy. Snapshot is a deep copy of the city for display, while
// ExportedState is the serializable form used for persistence.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	city, err := engine.NewEngine(config, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, res := city.Place("solar_panel", grid.Position{X: 2, Z: 2}); !res.CanPlace {
//		log.Println(res.Errors)
//	}
//	report := city.Tick(1)
//
// CityEngine is not safe for concurrent use. The service package serializes
// access per session.
package engine
