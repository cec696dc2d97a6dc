package grid

import (
	"github.com/wricardo/ecocity/game/catalog"
)

// Occupancy is the read-only view of placed buildings a validator needs
type Occupancy interface {
	CountType(buildingType string) int
	PositionsOfType(buildingType string) []Position
}

// Validator checks placements against terrain, occupancy and catalog rules.
// It never mutates the grid.
type Validator struct {
	catalog *catalog.Catalog
}

// NewValidator creates a validator over a catalog
func NewValidator(c *catalog.Catalog) *Validator {
	return &Validator{catalog: c}
}

// Validate checks whether buildingType can be placed with its origin at pos.
// When blocked it searches growing square rings for an alternative.
func (v *Validator) Validate(g *Grid, occ Occupancy, buildingType string, pos Position) PlacementValidation {
	def, ok := v.catalog.Lookup(buildingType)
	if !ok {
		res := PlacementValidation{}
		res.addError("unknown building type %q", buildingType)
		return res
	}
	if !g.InBounds(pos) {
		res := PlacementValidation{}
		res.addError("position (%d,%d) is outside the %dx%d grid", pos.X, pos.Z, g.Width, g.Height)
		return res
	}

	res := v.check(g, occ, def, pos)
	if !res.CanPlace {
		res.SuggestedPosition = v.suggest(g, occ, def, pos)
	}
	return res
}

func (v *Validator) check(g *Grid, occ Occupancy, def catalog.Definition, pos Position) PlacementValidation {
	res := PlacementValidation{IsValid: true, CanPlace: true}
	w, h := def.Footprint.Width, def.Footprint.Height

	if !g.InFootprintBounds(pos, w, h) {
		res.addError("%s footprint %dx%d extends outside the grid", def.ID, w, h)
	} else if !g.IsAreaFree(pos, w, h) {
		res.addError("area occupied or water")
	}

	req := def.Requirements
	if req.NearWater && !g.hasTerrainNear(pos, w, h, WaterSearchRadius, Water) {
		res.addError("%s requires water within %d cells", def.ID, WaterSearchRadius)
	}
	if req.NearRoad && !g.hasTerrainNear(pos, w, h, RoadSearchRadius, Road) {
		res.addError("%s requires road access within %d cells", def.ID, RoadSearchRadius)
	}
	if req.MaxPerCity > 0 && occ != nil && occ.CountType(def.ID) >= req.MaxPerCity {
		res.addError("limit of %d %s per city reached", req.MaxPerCity, def.ID)
	}

	if occ != nil {
		for _, rule := range req.MinDistance {
			for _, other := range occ.PositionsOfType(rule.Type) {
				if d := chebyshev(pos, other); d < rule.Cells {
					res.addWarning("%s is %d cells from %s at (%d,%d); recommended minimum is %d",
						def.ID, d, rule.Type, other.X, other.Z, rule.Cells)
				}
			}
		}
	}

	imp := def.Impact
	if imp.AirQuality < AirWarningThreshold {
		res.addWarning("%s significantly reduces air quality (%.0f)", def.ID, imp.AirQuality)
	}
	if imp.CO2Emissions > CO2WarningThreshold {
		res.addWarning("%s has high CO2 emissions (%.0f)", def.ID, imp.CO2Emissions)
	}
	if imp.NoiseLevel > NoiseWarningThreshold {
		res.addWarning("%s is noisy (%.0f)", def.ID, imp.NoiseLevel)
	}
	return res
}

// suggest walks square rings of radius 1..MaxSearchRadius around pos in row
// order and returns the first position that passes
func (v *Validator) suggest(g *Grid, occ Occupancy, def catalog.Definition, pos Position) *Position {
	for r := 1; r <= MaxSearchRadius; r++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dz) != r {
					continue
				}
				p := Position{X: pos.X + dx, Z: pos.Z + dz}
				if !g.InBounds(p) {
					continue
				}
				if v.check(g, occ, def, p).CanPlace {
					return &p
				}
			}
		}
	}
	return nil
}

func chebyshev(a, b Position) int {
	return max(abs(a.X-b.X), abs(a.Z-b.Z))
}
