package simulation

// Environmental baselines of an empty city
const (
	BaselineAirQuality   = 85.0
	BaselineWaterQuality = 90.0
	BaselineNoiseLevel   = 20.0
	BaselineCO2          = 400.0
	BaselineBiodiversity = 70.0
	MinCO2               = 350.0

	DefaultFunds     = 100000.0
	DefaultTaxRate   = 15.0
	DefaultHappiness = 50.0
)

type Population struct {
	Total     float64 `json:"total"`
	Capacity  float64 `json:"capacity"`
	Happiness float64 `json:"happiness"`
	Growth    float64 `json:"growth"`
}

type Energy struct {
	Production          float64 `json:"production"`
	Consumption         float64 `json:"consumption"`
	Storage             float64 `json:"storage"`
	RenewablePercentage float64 `json:"renewable_percentage"`
}

type Environment struct {
	AirQuality           float64 `json:"air_quality"`
	WaterQuality         float64 `json:"water_quality"`
	NoiseLevel           float64 `json:"noise_level"`
	CO2Level             float64 `json:"co2_level"`
	GreenSpacePercentage float64 `json:"green_space_percentage"`
	BiodiversityIndex    float64 `json:"biodiversity_index"`
}

type Waste struct {
	Production    float64 `json:"production"`
	Recycling     float64 `json:"recycling"`
	Landfill      float64 `json:"landfill"`
	RecyclingRate float64 `json:"recycling_rate"`
}

type Economy struct {
	Funds    float64 `json:"funds"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	TaxRate  float64 `json:"tax_rate"`
}

// Resources is the full resource state of a city. Flows (energy, waste,
// income) are recomputed every update; population total, happiness, funds
// and the environment indices are integrated over time.
type Resources struct {
	Population  Population  `json:"population"`
	Energy      Energy      `json:"energy"`
	Environment Environment `json:"environment"`
	Waste       Waste       `json:"waste"`
	Economy     Economy     `json:"economy"`
}

// NewResources returns the resources of a fresh, empty city
func NewResources(funds, taxRate float64) Resources {
	return Resources{
		Population: Population{Happiness: DefaultHappiness},
		Environment: Environment{
			AirQuality:        BaselineAirQuality,
			WaterQuality:      BaselineWaterQuality,
			NoiseLevel:        BaselineNoiseLevel,
			CO2Level:          BaselineCO2,
			BiodiversityIndex: BaselineBiodiversity,
		},
		Economy: Economy{Funds: funds, TaxRate: clamp(taxRate, 0, 100)},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
