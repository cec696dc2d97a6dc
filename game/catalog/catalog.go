package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed buildings.yaml
var defaultCatalogYAML []byte

var (
	// ErrUnknownType is returned when a building type is not in the catalog
	ErrUnknownType = errors.New("unknown building type")
	// ErrInvalidDefinition is returned when a definition fails validation
	ErrInvalidDefinition = errors.New("invalid building definition")
)

// Footprint is the number of cells a building covers along x and z
type Footprint struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Impact holds the per-building environmental and resource coefficients
type Impact struct {
	AirQuality             float64 `json:"air_quality" yaml:"air_quality"`
	WaterQuality           float64 `json:"water_quality" yaml:"water_quality"`
	NoiseLevel             float64 `json:"noise_level" yaml:"noise_level"`
	CO2Emissions           float64 `json:"co2_emissions" yaml:"co2_emissions"`
	EnergyProduction       float64 `json:"energy_production" yaml:"energy_production"`
	EnergyConsumption      float64 `json:"energy_consumption" yaml:"energy_consumption"`
	WasteProduction        float64 `json:"waste_production" yaml:"waste_production"`
	WasteProcessing        float64 `json:"waste_processing" yaml:"waste_processing"`
	Biodiversity           float64 `json:"biodiversity" yaml:"biodiversity"`
	GreenSpaceContribution float64 `json:"green_space_contribution" yaml:"green_space_contribution"`
}

// Stats holds cost, capacity and progression values
type Stats struct {
	Cost               float64 `json:"cost" yaml:"cost"`
	MaintenanceCost    float64 `json:"maintenance_cost" yaml:"maintenance_cost"`
	PopulationCapacity int     `json:"population_capacity" yaml:"population_capacity"`
	BaseHappiness      float64 `json:"base_happiness" yaml:"base_happiness"`
	ConstructionDays   float64 `json:"construction_days" yaml:"construction_days"`
	UnlockLevel        int     `json:"unlock_level" yaml:"unlock_level"`
}

// DistanceRule asks for a minimum Chebyshev distance to every building of Type
type DistanceRule struct {
	Type  string `json:"type" yaml:"type"`
	Cells int    `json:"cells" yaml:"cells"`
}

// Requirements are the placement rules of a building type
type Requirements struct {
	NearWater   bool           `json:"near_water,omitempty" yaml:"near_water"`
	NearRoad    bool           `json:"near_road,omitempty" yaml:"near_road"`
	MinDistance []DistanceRule `json:"min_distance,omitempty" yaml:"min_distance"`
	MaxPerCity  int            `json:"max_per_city,omitempty" yaml:"max_per_city"`
}

// Definition is one immutable catalog entry
type Definition struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Category     Category     `json:"category" yaml:"category"`
	Footprint    Footprint    `json:"footprint" yaml:"footprint"`
	Height       float64      `json:"height" yaml:"height"`
	Impact       Impact       `json:"impact" yaml:"impact"`
	Stats        Stats        `json:"stats" yaml:"stats"`
	Requirements Requirements `json:"requirements" yaml:"requirements"`
	Profile      Profile      `json:"-" yaml:"-"`
}

// Renewable reports whether the building produces renewable energy
func (d Definition) Renewable() bool {
	p, ok := d.Profile.(EnergyProfile)
	return ok && p.Renewable
}

// DailyIncome returns the income generated per day at full efficiency
func (d Definition) DailyIncome(taxRate float64) float64 {
	if d.Profile == nil {
		return 0
	}
	return d.Profile.BaseIncome(d) * taxRate / 100
}

// rawDefinition is the on-disk form; category-specific fields are folded into a Profile
type rawDefinition struct {
	Definition `yaml:",inline"`
	Renewable  bool `yaml:"renewable"`
}

type catalogFile struct {
	Buildings []rawDefinition `yaml:"buildings"`
}

// Catalog is a read-only table of building definitions keyed by id
type Catalog struct {
	defs  map[string]Definition
	order []string
}

// New builds a catalog from definitions. Definitions without a profile get
// the default profile of their category.
func New(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Profile == nil {
			d.Profile = DefaultProfile(d.Category, false)
		}
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidDefinition, d.ID)
		}
		c.defs[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	// Distance rules must reference known types
	for _, id := range c.order {
		for _, rule := range c.defs[id].Requirements.MinDistance {
			if _, ok := c.defs[rule.Type]; !ok {
				return nil, fmt.Errorf("%w: %s: min_distance references unknown type %q", ErrInvalidDefinition, id, rule.Type)
			}
		}
	}
	return c, nil
}

// Parse decodes a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(file.Buildings) == 0 {
		return nil, fmt.Errorf("%w: catalog has no buildings", ErrInvalidDefinition)
	}

	defs := make([]Definition, 0, len(file.Buildings))
	for _, raw := range file.Buildings {
		d := raw.Definition
		d.Profile = DefaultProfile(d.Category, raw.Renewable)
		defs = append(defs, d)
	}
	return New(defs)
}

// LoadFile reads a YAML catalog from disk
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
})

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("embedded building catalog is invalid: %v", err))
	}
	return c
}

// Lookup returns the definition for a building type
func (c *Catalog) Lookup(id string) (Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// Get returns the definition or ErrUnknownType
func (c *Catalog) Get(id string) (Definition, error) {
	d, ok := c.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownType, id)
	}
	return d, nil
}

// All returns every definition in catalog order
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

// ByCategory returns the definitions of one category in catalog order
func (c *Catalog) ByCategory(category Category) []Definition {
	var out []Definition
	for _, id := range c.order {
		if d := c.defs[id]; d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of definitions
func (c *Catalog) Len() int {
	return len(c.order)
}

func validateDefinition(d Definition) error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDefinition)
	}
	if !d.Category.Valid() {
		return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidDefinition, d.ID, d.Category)
	}
	if d.Profile.Category() != d.Category {
		return fmt.Errorf("%w: %s: profile category %s does not match %s", ErrInvalidDefinition, d.ID, d.Profile.Category(), d.Category)
	}
	if d.Footprint.Width < 1 || d.Footprint.Height < 1 {
		return fmt.Errorf("%w: %s: footprint must be at least 1x1, got %dx%d", ErrInvalidDefinition, d.ID, d.Footprint.Width, d.Footprint.Height)
	}
	if d.Stats.Cost < 0 || d.Stats.MaintenanceCost < 0 {
		return fmt.Errorf("%w: %s: costs must not be negative", ErrInvalidDefinition, d.ID)
	}
	if d.Stats.PopulationCapacity < 0 {
		return fmt.Errorf("%w: %s: population_capacity must not be negative", ErrInvalidDefinition, d.ID)
	}
	if d.Stats.ConstructionDays <= 0 {
		return fmt.Errorf("%w: %s: construction_days must be positive", ErrInvalidDefinition, d.ID)
	}
	if d.Stats.UnlockLevel < 1 {
		return fmt.Errorf("%w: %s: unlock_level must be at least 1", ErrInvalidDefinition, d.ID)
	}
	if d.Requirements.MaxPerCity < 0 {
		return fmt.Errorf("%w: %s: max_per_city must not be negative", ErrInvalidDefinition, d.ID)
	}
	for _, rule := range d.Requirements.MinDistance {
		if rule.Cells < 1 {
			return fmt.Errorf("%w: %s: min_distance to %s must be positive", ErrInvalidDefinition, d.ID, rule.Type)
		}
	}
	return nil
}
