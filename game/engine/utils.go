package engine

import (
	"fmt"
	"strings"

	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/simulation"
)

// Map symbols for RenderASCII
const (
	SymbolLand     = '.'
	SymbolWater    = '~'
	SymbolPark     = '"'
	SymbolRoad     = '#'
	SymbolBuilding = 'B'
	SymbolSite     = '+'
)

// RenderASCII draws the grid one row per line: terrain symbols, 'B' for
// finished buildings and '+' for construction sites
func RenderASCII(g *grid.Grid, buildings []grid.Building) string {
	constructing := make(map[string]bool)
	for _, b := range buildings {
		if b.Status == grid.StatusConstructing {
			constructing[b.ID] = true
		}
	}

	var sb strings.Builder
	for _, row := range g.Cells {
		for _, c := range row {
			sb.WriteRune(cellSymbol(c, constructing))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func cellSymbol(c grid.Cell, constructing map[string]bool) rune {
	if c.Occupied {
		if constructing[c.BuildingID] {
			return SymbolSite
		}
		return SymbolBuilding
	}
	switch c.Terrain {
	case grid.Water:
		return SymbolWater
	case grid.Park:
		return SymbolPark
	case grid.Road:
		return SymbolRoad
	}
	return SymbolLand
}

// DescribeCell returns a one-line description of a cell and its building
func (e *CityEngine) DescribeCell(pos grid.Position) (string, bool) {
	c, ok := e.CellAt(pos)
	if !ok {
		return "", false
	}
	desc := fmt.Sprintf("(%d,%d) %s, elevation %.1f", pos.X, pos.Z, c.Terrain, c.Elevation)
	if !c.Occupied {
		return desc + ", free", true
	}
	b, ok := e.manager.Building(c.BuildingID)
	if !ok {
		return desc + ", occupied", true
	}
	return fmt.Sprintf("%s, %s %s (%s, %.0f%% built, efficiency %.2f)",
		desc, b.Type, b.ID, b.Status, b.ConstructionProgress*100, b.Efficiency), true
}

// CountByStatus counts buildings per lifecycle status
func CountByStatus(buildings []grid.Building) map[grid.Status]int {
	out := make(map[grid.Status]int)
	for _, b := range buildings {
		out[b.Status]++
	}
	return out
}

// AnalyzeRisks returns short warnings for resources close to a consequence threshold
func AnalyzeRisks(r simulation.Resources) []string {
	var risks []string
	if r.Environment.AirQuality < 40 {
		risks = append(risks, fmt.Sprintf("air quality %.0f is close to a pollution spike", r.Environment.AirQuality))
	}
	if r.Energy.Consumption > r.Energy.Production {
		risks = append(risks, fmt.Sprintf("energy deficit of %.0f", r.Energy.Consumption-r.Energy.Production))
	}
	if r.Waste.Production > 80 && r.Waste.RecyclingRate < 30 {
		risks = append(risks, fmt.Sprintf("only %.0f%% of waste is recycled", r.Waste.RecyclingRate))
	}
	if r.Population.Happiness < 35 {
		risks = append(risks, fmt.Sprintf("happiness %.0f may drive residents away", r.Population.Happiness))
	}
	if r.Economy.Income < r.Economy.Expenses {
		risks = append(risks, fmt.Sprintf("running a deficit of %.0f per day", r.Economy.Expenses-r.Economy.Income))
	}
	return risks
}
