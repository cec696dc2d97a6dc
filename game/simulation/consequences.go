package simulation

// Severity ranks how serious a consequence is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Consequence types
const (
	PollutionSpike   = "pollution_spike"
	EnergyShortage   = "energy_shortage"
	WasteCrisis      = "waste_crisis"
	PopulationExodus = "population_exodus"
	BudgetCrisis     = "budget_crisis"
)

// Effects describes the suggested impact of a consequence. Effects are
// reported, not applied. Population is a percentage.
type Effects struct {
	Happiness          float64 `json:"happiness"`
	Population         float64 `json:"population"`
	Funds              float64 `json:"funds"`
	EnvironmentalScore float64 `json:"environmental_score"`
}

// Consequence is a threshold-triggered event that stays active for a while
type Consequence struct {
	Type         string   `json:"type"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Cause        string   `json:"cause"`
	Effects      Effects  `json:"effects"`
	DurationDays float64  `json:"duration_days"`
	Solutions    []string `json:"solutions"`
}

type consequenceRule struct {
	template Consequence
	trigger  func(r Resources) bool
}

var consequenceRules = []consequenceRule{
	{
		template: Consequence{
			Type:         PollutionSpike,
			Severity:     SeverityCritical,
			Message:      "Air pollution has reached dangerous levels",
			Cause:        "air quality below 30",
			Effects:      Effects{Happiness: -20, Population: -5, Funds: -10000, EnvironmentalScore: -15},
			DurationDays: 30,
			Solutions: []string{
				"Replace coal plants with renewable energy",
				"Plant trees and build parks",
				"Move heavy industry away from homes",
			},
		},
		trigger: func(r Resources) bool { return r.Environment.AirQuality < 30 },
	},
	{
		template: Consequence{
			Type:         EnergyShortage,
			Severity:     SeverityHigh,
			Message:      "The city is consuming more energy than it produces",
			Cause:        "energy consumption more than 10% above production",
			Effects:      Effects{Happiness: -15, Funds: -5000, EnvironmentalScore: -5},
			DurationDays: 14,
			Solutions: []string{
				"Build solar panels or wind turbines",
				"Replace apartments with eco homes",
			},
		},
		trigger: func(r Resources) bool { return r.Energy.Consumption > r.Energy.Production*1.1 },
	},
	{
		template: Consequence{
			Type:         WasteCrisis,
			Severity:     SeverityMedium,
			Message:      "Landfills are overflowing",
			Cause:        "recycling rate below 20% with heavy waste production",
			Effects:      Effects{Happiness: -10, Funds: -3000, EnvironmentalScore: -8},
			DurationDays: 21,
			Solutions: []string{
				"Build a recycling center",
				"Reduce industrial waste",
			},
		},
		trigger: func(r Resources) bool { return r.Waste.RecyclingRate < 20 && r.Waste.Production > 100 },
	},
	{
		template: Consequence{
			Type:         PopulationExodus,
			Severity:     SeverityHigh,
			Message:      "Unhappy residents are leaving the city",
			Cause:        "happiness below 25",
			Effects:      Effects{Happiness: -5, Population: -10, Funds: -8000, EnvironmentalScore: -10},
			DurationDays: 30,
			Solutions: []string{
				"Build parks and nature reserves",
				"Reduce noise and pollution near homes",
				"Secure a reliable energy supply",
			},
		},
		trigger: func(r Resources) bool { return r.Population.Happiness < 25 },
	},
	{
		template: Consequence{
			Type:         BudgetCrisis,
			Severity:     SeverityHigh,
			Message:      "The city treasury is in debt",
			Cause:        "funds below zero",
			Effects:      Effects{Happiness: -10, Population: -2, EnvironmentalScore: -5},
			DurationDays: 30,
			Solutions: []string{
				"Raise taxes",
				"Remove buildings with high maintenance costs",
				"Build commercial districts",
			},
		},
		trigger: func(r Resources) bool { return r.Economy.Funds < 0 },
	},
}

// ConsequenceEngine tracks active consequences. At most one consequence of
// each type is active at a time.
type ConsequenceEngine struct {
	active []Consequence
}

// NewConsequenceEngine creates an engine with no active consequences
func NewConsequenceEngine() *ConsequenceEngine {
	return &ConsequenceEngine{}
}

// Evaluate decays active consequences by dt days, prunes the expired ones and
// fires new ones whose trigger holds. It returns the fired and expired lists.
func (ce *ConsequenceEngine) Evaluate(r Resources, dt float64) (fired, expired []Consequence) {
	if dt > 0 {
		kept := ce.active[:0]
		for _, c := range ce.active {
			c.DurationDays -= dt
			if c.DurationDays <= 0 {
				expired = append(expired, c)
				continue
			}
			kept = append(kept, c)
		}
		ce.active = kept
	}

	for _, rule := range consequenceRules {
		if ce.IsActive(rule.template.Type) || !rule.trigger(r) {
			continue
		}
		c := rule.template
		c.Solutions = append([]string(nil), rule.template.Solutions...)
		ce.active = append(ce.active, c)
		fired = append(fired, c)
	}
	return fired, expired
}

// IsActive reports whether a consequence of the given type is active
func (ce *ConsequenceEngine) IsActive(consequenceType string) bool {
	for _, c := range ce.active {
		if c.Type == consequenceType {
			return true
		}
	}
	return false
}

// Active returns a copy of the active consequences
func (ce *ConsequenceEngine) Active() []Consequence {
	return append([]Consequence(nil), ce.active...)
}

// Restore replaces the active set, keeping only the first of each type
func (ce *ConsequenceEngine) Restore(active []Consequence) {
	ce.active = nil
	for _, c := range active {
		if c.DurationDays <= 0 || ce.IsActive(c.Type) {
			continue
		}
		ce.active = append(ce.active, c)
	}
}
