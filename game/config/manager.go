package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Manager loads city configurations from a directory and caches them
type Manager struct {
	configDir     string
	defaultConfig *engine.CityConfig
	configs       map[string]*engine.CityConfig
	mu            sync.RWMutex
}

// NewManager creates a configuration manager for configDir
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.CityConfig),
	}

	// Load default config
	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

func configFilename(name string) string {
	if strings.HasSuffix(name, ".json") {
		return name
	}
	return name + ".json"
}

// LoadConfig loads a configuration by name, with or without the .json suffix
func (m *Manager) LoadConfig(name string) (*engine.CityConfig, error) {
	name = strings.TrimSuffix(name, ".json")

	// Check cache first
	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	// Read config file
	data, err := os.ReadFile(filepath.Join(m.configDir, configFilename(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse config
	var config engine.CityConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate config
	if err := engine.ValidateCityConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Cache the config
	m.configs[name] = &config
	return &config, nil
}

// ListConfigs describes every valid configuration in the directory, sorted
// by file name. Invalid files are skipped.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		// Try to load the config to get details
		config, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid configs
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:      entry.Name(),
			ConfigID:      name, // identifier used for session creation
			Name:          config.Name,
			Description:   config.Description,
			Width:         config.Width,
			Height:        config.Height,
			StartingFunds: config.StartingFunds,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Filename < configs[j].Filename })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.CityConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// ReloadConfig drops a cached configuration and reads it again from disk
func (m *Manager) ReloadConfig(name string) error {
	m.mu.Lock()
	delete(m.configs, strings.TrimSuffix(name, ".json"))
	m.mu.Unlock()

	_, err := m.LoadConfig(name)
	return err
}

// RefreshCache clears the cache and reloads the default configuration
func (m *Manager) RefreshCache() error {
	// Clear cache
	m.mu.Lock()
	m.configs = make(map[string]*engine.CityConfig)
	m.mu.Unlock()

	// Reload default config
	return m.loadDefaultConfig()
}

// ValidateConfig checks a configuration without saving it
func (m *Manager) ValidateConfig(config *engine.CityConfig) error {
	return engine.ValidateCityConfig(config)
}

// Count returns the number of cached configurations
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// loadDefaultConfig prefers classic.json, then the first valid file, then
// the built-in configuration
func (m *Manager) loadDefaultConfig() error {
	// Try to load classic.json as default
	config, err := m.LoadConfig("classic")
	if err != nil {
		// Fall back to the first available config, then the built-in one
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			config = engine.DefaultCityConfig()
		} else if config, err = m.LoadConfig(configs[0].ConfigID); err != nil {
			config = engine.DefaultCityConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates and writes a configuration to disk
func (m *Manager) SaveConfig(name string, config *engine.CityConfig) error {
	// Validate config before saving
	if err := engine.ValidateCityConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	// Marshal config to JSON with indentation
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(filepath.Join(m.configDir, configFilename(name)), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	return nil
}
