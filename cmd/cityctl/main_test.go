package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/config"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/simulation"
)

const testConfigDir = "../../configs"

// run executes cityctl with args and returns its output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"cityctl"}, args...))
	return out.String(), err
}

func smallCity(t *testing.T) *engine.CityEngine {
	t.Helper()
	configs, err := config.NewManager(testConfigDir)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := configs.LoadConfig("small")
	if err != nil {
		t.Fatal(err)
	}
	city, err := engine.NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return city
}

func TestCatalogCommand(t *testing.T) {
	out, err := run(t, "catalog", "--category", "energy")
	if err != nil {
		t.Fatalf("catalog failed: %v", err)
	}
	if !strings.Contains(out, "solar_panel") || !strings.Contains(out, "coal_plant") {
		t.Errorf("Expected energy buildings, got:\n%s", out)
	}
	if strings.Contains(out, "house ") {
		t.Errorf("Expected only energy buildings, got:\n%s", out)
	}
	if !strings.Contains(out, "max 2") {
		t.Errorf("Expected the hydroelectric limit in the rules column, got:\n%s", out)
	}
}

func TestCatalogCommand_YAMLRoundTrip(t *testing.T) {
	out, err := run(t, "catalog", "--format", "yaml")
	if err != nil {
		t.Fatalf("catalog failed: %v", err)
	}
	cat, err := catalog.Parse([]byte(out))
	if err != nil {
		t.Fatalf("Printed catalog does not parse: %v", err)
	}
	if cat.Len() != catalog.Default().Len() {
		t.Errorf("Expected %d definitions, got %d", catalog.Default().Len(), cat.Len())
	}
}

func TestCatalogCommand_Errors(t *testing.T) {
	if _, err := run(t, "catalog", "--format", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
	if _, err := run(t, "catalog", "--file", "/non/existent.yaml"); err == nil {
		t.Error("Expected error for missing catalog file")
	}
}

func TestTerrainCommand(t *testing.T) {
	out, err := run(t, "--config-dir", testConfigDir, "terrain", "--config", "small")
	if err != nil {
		t.Fatalf("terrain failed: %v", err)
	}
	if !strings.HasPrefix(out, "small: 16x16") {
		t.Errorf("Expected header for the small config, got:\n%s", out)
	}

	rows := 0
	for _, line := range strings.Split(out, "\n") {
		if len(line) == 16 && !strings.ContainsAny(line, " :,") {
			rows++
		}
	}
	if rows != 16 {
		t.Errorf("Expected 16 map rows, got %d", rows)
	}
	if !strings.Contains(out, "water ") {
		t.Errorf("Expected terrain counts, got:\n%s", out)
	}
}

func TestValidateConfigCommand(t *testing.T) {
	out, err := run(t, "--config-dir", testConfigDir, "validate-config")
	if err != nil {
		t.Fatalf("Shipped configurations should be valid: %v\n%s", err, out)
	}
	if !strings.Contains(out, "VALID small.json") {
		t.Errorf("Expected small.json in the report, got:\n%s", out)
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"name": "bad", "width": 2, "height": 2}`), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "validate-config", bad, filepath.Join(testConfigDir, "small.json"))
	if err == nil {
		t.Fatal("Expected error when a configuration is invalid")
	}
	if !strings.Contains(out, "INVALID bad.json") || !strings.Contains(out, "VALID small.json") {
		t.Errorf("Unexpected report:\n%s", out)
	}

	if _, err := run(t, "--config-dir", dir+"/empty", "validate-config"); err == nil {
		t.Error("Expected error when no files are found")
	}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		steps   int
	}{
		{
			name: "valid",
			input: `config: small
steps:
  - place:
      - {type: house, x: 1, z: 1}
    advance: 5
  - remove: [house]
    advance: 1`,
			steps: 2,
		},
		{name: "no steps", input: "config: small", wantErr: true},
		{name: "negative advance", input: "steps:\n  - advance: -3", wantErr: true},
		{name: "malformed", input: "steps: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(plan.Steps) != tt.steps {
				t.Errorf("Expected %d steps, got %d", tt.steps, len(plan.Steps))
			}
		})
	}
}

func TestParsePlan_TooManyPlacements(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("steps:\n  - place:\n")
	for i := 0; i <= engine.MaxBulkPlacements; i++ {
		fmt.Fprintf(&sb, "      - {type: house, x: %d, z: 0}\n", i)
	}
	if _, err := ParsePlan([]byte(sb.String())); err == nil {
		t.Error("Expected error for an oversized step")
	}
}

func TestRunPlan(t *testing.T) {
	city := smallCity(t)
	pos, ok := findSpot(city, "house", city.Snapshot().Grid)
	if !ok {
		t.Fatal("No spot for a house on the small map")
	}

	plan := &Plan{Steps: []PlanStep{
		{
			Place: []PlanPlacement{
				{Type: "house", X: pos.X, Z: pos.Z},
				{Type: "house", X: pos.X, Z: pos.Z},
			},
			Advance: 5,
		},
		{Advance: 1000},
		{Remove: []string{"house", "park"}},
	}}

	var out bytes.Buffer
	outcome, err := RunPlan(context.Background(), city, plan, &out)
	if err != nil {
		t.Fatalf("RunPlan failed: %v", err)
	}
	if outcome.Placed != 1 || outcome.Rejected != 1 {
		t.Errorf("Expected 1 placed and 1 rejected, got %d and %d", outcome.Placed, outcome.Rejected)
	}

	limit := city.GetConfig().AdvanceLimit()
	if outcome.Days != 5+limit {
		t.Errorf("Expected %d days, got %d", 5+limit, outcome.Days)
	}
	if outcome.Final.Day != float64(5+limit) {
		t.Errorf("Expected final day %d, got %v", 5+limit, outcome.Final.Day)
	}
	if len(outcome.Final.Buildings) != 0 {
		t.Errorf("Expected the house to be removed, got %d buildings", len(outcome.Final.Buildings))
	}
	if !strings.Contains(out.String(), "truncated") || !strings.Contains(out.String(), "nothing to remove for park") {
		t.Errorf("Unexpected log:\n%s", out.String())
	}
}

func TestRunPlan_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunPlan(ctx, smallCity(t), &Plan{Steps: []PlanStep{{Advance: 1}}}, io.Discard)
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSimulateCommand(t *testing.T) {
	city := smallCity(t)
	pos, ok := findSpot(city, "solar_panel", city.Snapshot().Grid)
	if !ok {
		t.Fatal("No spot for a solar panel")
	}

	planFile := filepath.Join(t.TempDir(), "plan.yaml")
	plan := fmt.Sprintf("config: small\nsteps:\n  - place:\n      - {type: solar_panel, x: %d, z: %d}\n    advance: 10\n", pos.X, pos.Z)
	if err := os.WriteFile(planFile, []byte(plan), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config-dir", testConfigDir, "simulate", "--plan", planFile, "--map")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for _, want := range []string{"placed solar_panel", "1 placed, 0 rejected, 10 days simulated", "day 10, level"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	if _, err := run(t, "simulate"); err == nil {
		t.Error("Expected error without --plan")
	}
}

func TestNextBuildings(t *testing.T) {
	deficit := simulation.NewResources(100000, 10)
	deficit.Energy.Consumption = 50
	if got := nextBuildings(deficit); got[0] != "solar_panel" {
		t.Errorf("Expected solar_panel first for an energy deficit, got %v", got)
	}

	calm := simulation.NewResources(100000, 10)
	calm.Energy.Production = 100
	calm.Population.Happiness = 80
	calm.Population.Capacity = 100
	got := nextBuildings(calm)
	if len(got) != 2 || got[0] != "shop" || got[1] != "house" {
		t.Errorf("Expected only growth buildings for a calm city, got %v", got)
	}
}

func TestAutoplay(t *testing.T) {
	city := smallCity(t)
	var out bytes.Buffer
	snap, err := Autoplay(context.Background(), city, AutoplayOptions{Days: 30, Step: 5, Reserve: 5000}, &out)
	if err != nil {
		t.Fatalf("Autoplay failed: %v", err)
	}
	if snap.Day != 30 {
		t.Errorf("Expected day 30, got %v", snap.Day)
	}
	if len(snap.Buildings) == 0 {
		t.Errorf("Expected the builder to place something, log:\n%s", out.String())
	}
	if snap.Resources.Economy.Funds < 0 {
		t.Errorf("Funds went negative: %v", snap.Resources.Economy.Funds)
	}

	broke := smallCity(t)
	snap, _ = Autoplay(context.Background(), broke, AutoplayOptions{Days: 10, Step: 5, Reserve: 1e9}, io.Discard)
	if len(snap.Buildings) != 0 {
		t.Errorf("Expected no construction with an unreachable reserve, got %d buildings", len(snap.Buildings))
	}
}

func TestFindSpot(t *testing.T) {
	city := smallCity(t)
	g := city.Snapshot().Grid
	pos, ok := findSpot(city, "hydroelectric", g)
	if !ok {
		t.Skip("small map has no spot next to water")
	}
	if !city.Validate("hydroelectric", pos).CanPlace {
		t.Errorf("findSpot returned an invalid position %+v", pos)
	}
	if _, ok := findSpot(city, "no_such_building", g); ok {
		t.Error("Expected no spot for an unknown type")
	}
}
