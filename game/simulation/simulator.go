package simulation

import (
	"math"

	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/grid"
	"gonum.org/v1/gonum/floats"
)

// Rates and weights of the resource model
const (
	GrowthRatePerDay    = 0.02
	SeedPopulation      = 10.0
	HappinessResponse   = 0.5
	OvercrowdingDensity = 0.9

	AirRecoveryPerDay          = 0.5
	WaterRecoveryPerDay        = 0.4
	CO2RecoveryPerDay          = 1.0
	BiodiversityRecoveryPerDay = 0.2
)

// Simulator turns the set of in-service buildings into resource flows and
// integrates the stateful parts of Resources over time
type Simulator struct {
	catalog *catalog.Catalog
}

// NewSimulator creates a simulator over a catalog
func NewSimulator(c *catalog.Catalog) *Simulator {
	return &Simulator{catalog: c}
}

// contributions are per-building values already weighted by efficiency
type contributions struct {
	count        int
	production   []float64
	renewable    []float64
	consumption  []float64
	housing      []float64
	waste        []float64
	processing   []float64
	air          []float64
	water        []float64
	noise        []float64
	co2          []float64
	biodiversity []float64
	green        []float64
	income       []float64
	maintenance  []float64
	happiness    []float64
}

func (s *Simulator) collect(buildings []grid.Building, taxRate float64) contributions {
	var c contributions
	for _, b := range buildings {
		if !b.InService() {
			continue
		}
		def, ok := s.catalog.Lookup(b.Type)
		if !ok {
			continue
		}
		e := b.Efficiency
		imp := def.Impact

		c.count++
		c.production = append(c.production, imp.EnergyProduction*e)
		if def.Renewable() {
			c.renewable = append(c.renewable, imp.EnergyProduction*e)
		}
		c.consumption = append(c.consumption, imp.EnergyConsumption*e)
		c.housing = append(c.housing, float64(def.Stats.PopulationCapacity)*e)
		c.waste = append(c.waste, imp.WasteProduction*e)
		c.processing = append(c.processing, imp.WasteProcessing*e)
		c.air = append(c.air, imp.AirQuality*e)
		c.water = append(c.water, imp.WaterQuality*e)
		c.noise = append(c.noise, imp.NoiseLevel*e)
		c.co2 = append(c.co2, imp.CO2Emissions*e)
		c.biodiversity = append(c.biodiversity, imp.Biodiversity*e)
		c.green = append(c.green, imp.GreenSpaceContribution*e)
		c.income = append(c.income, def.DailyIncome(taxRate)*e)
		c.maintenance = append(c.maintenance, def.Stats.MaintenanceCost*e)
		c.happiness = append(c.happiness, def.Stats.BaseHappiness)
	}
	return c
}

func (c contributions) mean(v []float64) float64 {
	if c.count == 0 {
		return 0
	}
	return floats.Sum(v) / float64(c.count)
}

// Update advances prev by dt days and returns the new resources. Only
// buildings in service contribute, weighted by their efficiency. The grid
// supplies free park terrain for green space and may be nil.
func (s *Simulator) Update(prev Resources, buildings []grid.Building, g *grid.Grid, dt float64) Resources {
	if dt < 0 {
		dt = 0
	}
	r := prev
	c := s.collect(buildings, r.Economy.TaxRate)

	// Energy
	r.Energy.Production = floats.Sum(c.production)
	r.Energy.Consumption = floats.Sum(c.consumption)
	r.Energy.Storage = math.Max(0, r.Energy.Production-r.Energy.Consumption)
	r.Energy.RenewablePercentage = 0
	if r.Energy.Production > 0 {
		r.Energy.RenewablePercentage = clamp(floats.Sum(c.renewable)/r.Energy.Production*100, 0, 100)
	}

	// Waste
	r.Waste.Production = floats.Sum(c.waste)
	r.Waste.Recycling = math.Min(r.Waste.Production, floats.Sum(c.processing))
	r.Waste.Landfill = r.Waste.Production - r.Waste.Recycling
	r.Waste.RecyclingRate = 0
	if r.Waste.Production > 0 {
		r.Waste.RecyclingRate = clamp(r.Waste.Recycling/r.Waste.Production*100, 0, 100)
	}

	s.updateEnvironment(&r.Environment, c, g, dt)

	// Economy
	r.Economy.Income = floats.Sum(c.income)
	r.Economy.Expenses = floats.Sum(c.maintenance)
	r.Economy.Funds += (r.Economy.Income - r.Economy.Expenses) * dt

	r.Population.Capacity = floats.Sum(c.housing)
	r.Population.Happiness = s.nextHappiness(r, c, dt)
	s.updatePopulation(&r.Population, dt)

	return r
}

// updateEnvironment moves each index toward its target. Degradation is
// immediate; recovery happens at a fixed rate per day.
func (s *Simulator) updateEnvironment(env *Environment, c contributions, g *grid.Grid, dt float64) {
	airTarget := clamp(BaselineAirQuality+c.mean(c.air), 0, 100)
	waterTarget := clamp(BaselineWaterQuality+c.mean(c.water), 0, 100)
	co2Target := math.Max(MinCO2, BaselineCO2+c.mean(c.co2))
	bioTarget := clamp(BaselineBiodiversity+c.mean(c.biodiversity), 0, 100)

	env.AirQuality = approach(env.AirQuality, airTarget, AirRecoveryPerDay*dt, false)
	env.WaterQuality = approach(env.WaterQuality, waterTarget, WaterRecoveryPerDay*dt, false)
	env.BiodiversityIndex = approach(env.BiodiversityIndex, bioTarget, BiodiversityRecoveryPerDay*dt, false)
	env.CO2Level = math.Max(MinCO2, approach(env.CO2Level, co2Target, CO2RecoveryPerDay*dt, true))
	env.NoiseLevel = clamp(BaselineNoiseLevel+c.mean(c.noise), 0, 100)

	env.GreenSpacePercentage = 0
	if g != nil && g.Width*g.Height > 0 {
		green := float64(g.CountTerrain(grid.Park, true)) + floats.Sum(c.green)
		env.GreenSpacePercentage = clamp(green/float64(g.Width*g.Height)*100, 0, 100)
	}
}

// approach jumps to target when it is worse than current and otherwise
// recovers by at most step. For higherIsWorse indices the direction flips.
func approach(current, target, step float64, higherIsWorse bool) float64 {
	worse := target < current
	if higherIsWorse {
		worse = target > current
	}
	if worse {
		return target
	}
	if target > current {
		return math.Min(target, current+step)
	}
	return math.Max(target, current-step)
}

func (s *Simulator) nextHappiness(r Resources, c contributions, dt float64) float64 {
	env := r.Environment
	security := 1.0
	if r.Energy.Consumption > 0 {
		security = math.Min(1, r.Energy.Production/r.Energy.Consumption)
	}

	target := 0.20*env.AirQuality +
		0.15*env.WaterQuality +
		0.15*(100-env.NoiseLevel) +
		0.10*env.GreenSpacePercentage +
		20*security +
		0.10*r.Waste.RecyclingRate +
		c.mean(c.happiness)

	if r.Population.Capacity > 0 {
		if density := r.Population.Total / r.Population.Capacity; density > OvercrowdingDensity {
			target -= (density - OvercrowdingDensity) * 100
		}
	}
	target = clamp(target, 0, 100)

	h := r.Population.Happiness
	h += (target - h) * math.Min(1, HappinessResponse*dt)
	return clamp(h, 0, 100)
}

func (s *Simulator) updatePopulation(p *Population, dt float64) {
	if p.Capacity <= 0 {
		p.Total = 0
		p.Growth = 0
		return
	}
	if p.Total > p.Capacity {
		p.Total = p.Capacity
	}
	if p.Total < SeedPopulation && dt > 0 {
		p.Total = math.Min(p.Capacity, SeedPopulation)
	}

	p.Growth = 0
	if p.Total < p.Capacity {
		p.Growth = p.Total * GrowthRatePerDay * p.Happiness / 100
	}
	p.Total = math.Min(p.Capacity, p.Total*math.Pow(1+GrowthRatePerDay*p.Happiness/100, dt))
}
