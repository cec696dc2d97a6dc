package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/ecocity/game/engine"
)

func createValidConfig() *engine.CityConfig {
	config := &engine.CityConfig{
		Name:              "Test Config",
		Description:       "Test configuration",
		Width:             16,
		Height:            16,
		CellSize:          2,
		StartingFunds:     50000,
		TaxRate:           15,
		StartingHappiness: 50,
		MaxAdvanceDays:    30,
	}
	config.Messages.Welcome = "Welcome!"
	config.Messages.Placed = "Building %s"
	config.Messages.Removed = "Removed %s"
	config.Messages.Rejected = "No"
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.CityConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		config := createValidConfig()
		config.Name = "Classic"
		writeConfigFile(t, dir, "classic", config)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic to be the default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in config", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.Name != engine.DefaultCityConfig().Name {
			t.Errorf("Expected built-in default, got %+v", def)
		}
	})

	t.Run("first valid file without classic", func(t *testing.T) {
		dir := t.TempDir()
		config := createValidConfig()
		config.Name = "Alpha"
		writeConfigFile(t, dir, "alpha", config)
		config.Name = "Beta"
		writeConfigFile(t, dir, "beta", config)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatal(err)
		}
		if manager.GetDefault().Name != "Alpha" {
			t.Errorf("Expected first file as default, got %q", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	config := createValidConfig()
	config.Name = "Small"
	config.StartingFunds = 150000
	writeConfigFile(t, dir, "small", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		loaded, err := manager.LoadConfig("small")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if loaded.Name != "Small" || loaded.StartingFunds != 150000 {
			t.Errorf("Unexpected config %+v", loaded)
		}
	})

	t.Run("load with .json extension shares cache entry", func(t *testing.T) {
		a, err := manager.LoadConfig("small.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		b, _ := manager.LoadConfig("small")
		if a != b {
			t.Error("Expected the same cached config with and without extension")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		if _, err := manager.LoadConfig("non-existent"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "invalid.json"), []byte(`{"name": ""}`), 0644)
		if _, err := manager.LoadConfig("invalid"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "malformed.json"), []byte(`{"name": "Malformed", invalid json}`), 0644)
		if _, err := manager.LoadConfig("malformed"); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"classic", "small", "metropolis"} {
		config := createValidConfig()
		config.Name = name
		writeConfigFile(t, dir, name, config)
	}
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{}`), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 3 {
		t.Fatalf("Expected 3 configs, got %d", len(configs))
	}
	want := []string{"classic", "metropolis", "small"}
	for i, info := range configs {
		if info.ConfigID != want[i] {
			t.Errorf("Expected config %d to be %s, got %s", i, want[i], info.ConfigID)
		}
		if info.Width != 16 || info.Height != 16 || info.StartingFunds != 50000 {
			t.Errorf("Unexpected config info %+v", info)
		}
	}
}

func TestManager_SaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	config := createValidConfig()
	config.Name = "Changeable"
	if err := manager.SaveConfig("changeable", config); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "changeable.json")); err != nil {
		t.Fatalf("Expected config file on disk: %v", err)
	}

	changed := createValidConfig()
	changed.Name = "Changeable"
	changed.TaxRate = 25
	writeConfigFile(t, dir, "changeable", changed)

	if loaded, _ := manager.LoadConfig("changeable"); loaded.TaxRate != 15 {
		t.Errorf("Expected cached tax rate 15, got %f", loaded.TaxRate)
	}
	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded, _ := manager.LoadConfig("changeable"); loaded.TaxRate != 25 {
		t.Errorf("Expected reloaded tax rate 25, got %f", loaded.TaxRate)
	}

	bad := createValidConfig()
	bad.Width = 2
	if err := manager.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected bad name to be rejected, got %v", err)
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	config := createValidConfig()
	config.Name = "Other"
	writeConfigFile(t, dir, "other", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "Other" {
		t.Errorf("Expected 'Other' as default, got %q", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_ValidateConfig(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.ValidateConfig(createValidConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation: %v", err)
	}

	config := createValidConfig()
	config.TaxRate = 150
	if err := manager.ValidateConfig(config); err == nil {
		t.Error("Expected error for tax rate above 100")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := manager.RefreshCache(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 5 {
		t.Errorf("Expected 5 configs in cache, got %d", manager.Count())
	}
}

func TestShippedConfigsAreValid(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("Failed to open shipped configs: %v", err)
	}
	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 3 {
		t.Errorf("Expected 3 shipped configs, got %d", len(configs))
	}
	if manager.GetDefault().Name != "classic" {
		t.Errorf("Expected classic default, got %q", manager.GetDefault().Name)
	}
}
