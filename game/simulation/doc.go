// Package simulation models how placed buildings shape a city over time.
//
// Simulator.Update recomputes energy, waste and economy flows from the
// buildings in service and integrates population, happiness, funds and the
// environment indices. Pollution takes effect at once while recovery toward
// the baseline is gradual.
//
// ConsequenceEngine raises timed events when thresholds are crossed, at most
// one per type, and counts them down. Effects are descriptive only.
//
// Aggregator derives scores, city level and achievements.
package simulation
