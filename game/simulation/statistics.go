package simulation

import (
	"math"
	"slices"

	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/grid"
)

// Achievement ids
const (
	AchievementFirstBuilding     = "first_building"
	AchievementPopulation100     = "population_100"
	AchievementPopulation1000    = "population_1000"
	AchievementRenewableMajority = "renewable_majority"
	AchievementRecyclingChampion = "recycling_champion"
	AchievementCleanAir          = "clean_air"
	AchievementSustainableCity   = "sustainable_city"
)

// Statistics summarizes a city for scoring and progression
type Statistics struct {
	TotalBuildings      int                      `json:"total_buildings"`
	BuildingsByCategory map[catalog.Category]int `json:"buildings_by_category"`
	SustainabilityScore float64                  `json:"sustainability_score"`
	EnvironmentalScore  float64                  `json:"environmental_score"`
	CityLevel           int                      `json:"city_level"`
	DaysActive          float64                  `json:"days_active"`
	Achievements        []string                 `json:"achievements"`
	Challenges          []Consequence            `json:"challenges"`
}

// NewStatistics returns the statistics of an empty city
func NewStatistics() Statistics {
	by := make(map[catalog.Category]int)
	for _, c := range catalog.Categories() {
		by[c] = 0
	}
	return Statistics{
		BuildingsByCategory: by,
		CityLevel:           1,
		Achievements:        []string{},
		Challenges:          []Consequence{},
	}
}

// Aggregator derives Statistics from buildings, resources and consequences
type Aggregator struct {
	catalog *catalog.Catalog
}

// NewAggregator creates an aggregator over a catalog
func NewAggregator(c *catalog.Catalog) *Aggregator {
	return &Aggregator{catalog: c}
}

// Summarize computes new statistics. Achievements and days active carry over
// from prev; unlocked lists the achievements earned by this call.
func (a *Aggregator) Summarize(prev Statistics, buildings []grid.Building, r Resources, active []Consequence, dt float64) (stats Statistics, unlocked []string) {
	stats = NewStatistics()
	stats.DaysActive = prev.DaysActive + math.Max(0, dt)
	stats.Challenges = append(stats.Challenges, active...)

	envScore := 50.0
	for _, b := range buildings {
		// construction sites and abandoned buildings are not counted
		if !b.InService() {
			continue
		}
		def, ok := a.catalog.Lookup(b.Type)
		if !ok {
			continue
		}
		stats.TotalBuildings++
		stats.BuildingsByCategory[def.Category]++
		imp := def.Impact
		envScore += imp.AirQuality + imp.WaterQuality - imp.CO2Emissions/10 + imp.Biodiversity
	}
	stats.EnvironmentalScore = clamp(envScore, 0, 100)
	stats.SustainabilityScore = SustainabilityScore(r)
	stats.CityLevel = CityLevel(r.Population.Total, stats.SustainabilityScore)

	stats.Achievements = append(stats.Achievements, prev.Achievements...)
	for _, id := range earnedAchievements(stats, r) {
		if !slices.Contains(stats.Achievements, id) {
			stats.Achievements = append(stats.Achievements, id)
			unlocked = append(unlocked, id)
		}
	}
	return stats, unlocked
}

// SustainabilityScore weighs renewable share, recycling, environment quality,
// green space and happiness into a 0..100 score
func SustainabilityScore(r Resources) float64 {
	env := r.Environment
	quality := (env.AirQuality + env.WaterQuality + (100 - env.NoiseLevel) + env.BiodiversityIndex) / 4
	score := r.Energy.RenewablePercentage*0.25 +
		r.Waste.RecyclingRate*0.20 +
		quality*0.30 +
		env.GreenSpacePercentage*0.15 +
		r.Population.Happiness*0.10
	return clamp(score, 0, 100)
}

// CityLevel is limited by both population and sustainability, minimum 1
func CityLevel(population, sustainability float64) int {
	level := min(int(math.Floor(population/100)), int(math.Floor(sustainability/20)))
	return max(1, level)
}

func earnedAchievements(s Statistics, r Resources) []string {
	var out []string
	if s.TotalBuildings > 0 {
		out = append(out, AchievementFirstBuilding)
	}
	if r.Population.Total >= 100 {
		out = append(out, AchievementPopulation100)
	}
	if r.Population.Total >= 1000 {
		out = append(out, AchievementPopulation1000)
	}
	if r.Energy.Production > 0 && r.Energy.RenewablePercentage >= 50 {
		out = append(out, AchievementRenewableMajority)
	}
	if r.Waste.Production > 0 && r.Waste.RecyclingRate >= 75 {
		out = append(out, AchievementRecyclingChampion)
	}
	if s.TotalBuildings >= 5 && r.Environment.AirQuality >= 90 {
		out = append(out, AchievementCleanAir)
	}
	if s.SustainabilityScore >= 80 {
		out = append(out, AchievementSustainableCity)
	}
	return out
}
