// Package config manages the city configurations stored as JSON files in a
// directory.
//
// Each configuration names a city, sets its grid dimensions and cell size,
// its starting treasury, tax rate and happiness, the longest single time
// advance, and the messages shown when buildings are placed or removed.
//
// Shipped configurations:
//   - classic: 32x32 city with a balanced budget
//   - small: 16x16 starter city with extra funds
//   - metropolis: 64x64 city on a tight budget
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cityConfig, err := manager.LoadConfig("small")
//	configs, err := manager.ListConfigs()
//
// Loaded configurations are cached until ReloadConfig or RefreshCache. When
// classic.json is missing the first valid file becomes the default, and an
// empty directory falls back to engine.DefaultCityConfig.
package config
