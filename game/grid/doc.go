// Package grid implements the city ground and the buildings placed on it.
//
// Grid holds width x height cells with terrain and elevation generated
// deterministically from the dimensions: a meandering river through the
// vertical center, a lake in the lower right quadrant, a road every eighth
// row and column, and a park zone in the lower left. Terrain never changes
// after creation; only occupancy does.
//
// Validator answers whether a building type may be placed at a position.
// Errors block placement, warnings are advisory. Minimum distance rules only
// ever warn. When a placement is blocked the validator searches square rings
// around the requested position for the nearest alternative.
//
// Manager commits placements, removes buildings, advances construction and
// aging on Tick and builds the height map for renderers:
//
//	g, _ := grid.New(32, 32)
//	m := grid.NewManager(g, catalog.Default())
//	b, res := m.Place("solar_panel", grid.Position{X: 2, Z: 2})
//	if !res.CanPlace {
//		fmt.Println(res.Errors)
//	}
//	changes := m.Tick(1)
//
// None of the types here are safe for concurrent mutation.
package grid
