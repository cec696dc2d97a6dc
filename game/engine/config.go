package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/simulation"
)

// ValidateCityConfig validates a city configuration
func ValidateCityConfig(config *CityConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.Width < MinCitySize || config.Width > MaxCitySize {
		return fmt.Errorf("config validation: width must be between %d and %d, got %d", MinCitySize, MaxCitySize, config.Width)
	}
	if config.Height < MinCitySize || config.Height > MaxCitySize {
		return fmt.Errorf("config validation: height must be between %d and %d, got %d", MinCitySize, MaxCitySize, config.Height)
	}
	if config.CellSize <= 0 {
		return fmt.Errorf("config validation: cell_size must be positive, got %v", config.CellSize)
	}

	if config.StartingFunds < 0 {
		return fmt.Errorf("config validation: starting_funds must not be negative, got %v", config.StartingFunds)
	}
	if config.TaxRate < 0 || config.TaxRate > 100 {
		return fmt.Errorf("config validation: tax_rate must be between 0 and 100, got %v", config.TaxRate)
	}
	if config.StartingHappiness < 0 || config.StartingHappiness > 100 {
		return fmt.Errorf("config validation: starting_happiness must be between 0 and 100, got %v", config.StartingHappiness)
	}
	if config.MaxAdvanceDays < 0 {
		return fmt.Errorf("config validation: max_advance_days must not be negative, got %d", config.MaxAdvanceDays)
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.Placed != "" && !strings.Contains(config.Messages.Placed, "%s") {
		return fmt.Errorf("config validation: messages.placed must contain %%s for the building type")
	}
	if config.Messages.Removed != "" && !strings.Contains(config.Messages.Removed, "%s") {
		return fmt.Errorf("config validation: messages.removed must contain %%s for the building type")
	}

	return nil
}

// LoadCityConfig loads a city configuration from a JSON file
func LoadCityConfig(filename string) (*CityConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config CityConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateCityConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigByName loads a city configuration by name from the configs directory
func LoadConfigByName(configName string) (*CityConfig, error) {
	if !strings.HasSuffix(configName, ".json") {
		configName = configName + ".json"
	}

	config, err := LoadCityConfig(filepath.Join("configs", configName))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file '%s' not found", configName)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
	}
	return config, nil
}

// DefaultCityConfig returns the built-in configuration
func DefaultCityConfig() *CityConfig {
	config := &CityConfig{
		Name:              "classic",
		Description:       "A 32x32 valley with a river, a lake and a starting budget of 100,000",
		Width:             32,
		Height:            32,
		CellSize:          grid.DefaultCellSize,
		StartingFunds:     simulation.DefaultFunds,
		TaxRate:           simulation.DefaultTaxRate,
		StartingHappiness: simulation.DefaultHappiness,
		MaxAdvanceDays:    DefaultMaxAdvanceDays,
	}
	config.Messages.Welcome = "Welcome, mayor! Build a city that can live with its river."
	config.Messages.Placed = "Construction of %s has started"
	config.Messages.Removed = "%s demolished"
	config.Messages.Rejected = "That building cannot go there"
	return config
}

// AdvanceLimit returns the most days a single advance may cover
func (c *CityConfig) AdvanceLimit() int {
	if c == nil || c.MaxAdvanceDays == 0 {
		return DefaultMaxAdvanceDays
	}
	return c.MaxAdvanceDays
}
