package catalog

// Category groups building types
type Category string

const (
	Residential    Category = "residential"
	Commercial     Category = "commercial"
	Industrial     Category = "industrial"
	Infrastructure Category = "infrastructure"
	Energy         Category = "energy"
	Environment    Category = "environment"
)

// Default income rates per day before tax
const (
	IncomePerResident   = 50.0
	IncomePerRetailJob  = 80.0
	IncomePerFactoryJob = 120.0
	IncomePerEnergyUnit = 3.0
)

// Categories lists every category in display order
func Categories() []Category {
	return []Category{Residential, Commercial, Industrial, Infrastructure, Energy, Environment}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case Residential, Commercial, Industrial, Infrastructure, Energy, Environment:
		return true
	}
	return false
}

// Profile carries the category-specific behavior of a definition. The set of
// implementations is closed to this package.
type Profile interface {
	Category() Category
	// BaseIncome is the untaxed daily income of one building at full efficiency
	BaseIncome(d Definition) float64
	profile()
}

type ResidentialProfile struct {
	IncomePerResident float64 `json:"income_per_resident"`
}

type CommercialProfile struct {
	IncomePerJob float64 `json:"income_per_job"`
}

type IndustrialProfile struct {
	IncomePerJob float64 `json:"income_per_job"`
}

type InfrastructureProfile struct{}

type EnergyProfile struct {
	Renewable     bool    `json:"renewable"`
	IncomePerUnit float64 `json:"income_per_unit"`
}

type EnvironmentProfile struct{}

func (ResidentialProfile) Category() Category    { return Residential }
func (CommercialProfile) Category() Category     { return Commercial }
func (IndustrialProfile) Category() Category     { return Industrial }
func (InfrastructureProfile) Category() Category { return Infrastructure }
func (EnergyProfile) Category() Category         { return Energy }
func (EnvironmentProfile) Category() Category    { return Environment }

func (p ResidentialProfile) BaseIncome(d Definition) float64 {
	return p.IncomePerResident * float64(d.Stats.PopulationCapacity)
}

func (p CommercialProfile) BaseIncome(d Definition) float64 {
	return p.IncomePerJob * float64(d.Stats.PopulationCapacity)
}

func (p IndustrialProfile) BaseIncome(d Definition) float64 {
	return p.IncomePerJob * float64(d.Stats.PopulationCapacity)
}

func (InfrastructureProfile) BaseIncome(Definition) float64 { return 0 }

func (p EnergyProfile) BaseIncome(d Definition) float64 {
	return p.IncomePerUnit * d.Impact.EnergyProduction
}

func (EnvironmentProfile) BaseIncome(Definition) float64 { return 0 }

func (ResidentialProfile) profile()    {}
func (CommercialProfile) profile()     {}
func (IndustrialProfile) profile()     {}
func (InfrastructureProfile) profile() {}
func (EnergyProfile) profile()         {}
func (EnvironmentProfile) profile()    {}

// DefaultProfile returns the standard profile for a category. renewable is
// only meaningful for energy. Unknown categories return nil.
func DefaultProfile(c Category, renewable bool) Profile {
	switch c {
	case Residential:
		return ResidentialProfile{IncomePerResident: IncomePerResident}
	case Commercial:
		return CommercialProfile{IncomePerJob: IncomePerRetailJob}
	case Industrial:
		return IndustrialProfile{IncomePerJob: IncomePerFactoryJob}
	case Infrastructure:
		return InfrastructureProfile{}
	case Energy:
		return EnergyProfile{Renewable: renewable, IncomePerUnit: IncomePerEnergyUnit}
	case Environment:
		return EnvironmentProfile{}
	}
	return nil
}
