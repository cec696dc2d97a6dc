package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
)

// Plan is a scripted city: a configuration and a list of steps, each placing
// buildings and then advancing time.
//
//	config: small
//	steps:
//	  - place:
//	      - {type: solar_panel, x: 2, z: 2}
//	      - {type: house, x: 5, z: 5}
//	    advance: 10
type Plan struct {
	Config string     `yaml:"config"`
	Steps  []PlanStep `yaml:"steps"`
}

// PlanStep places buildings in order, then advances Advance days
type PlanStep struct {
	Place   []PlanPlacement `yaml:"place"`
	Remove  []string        `yaml:"remove"`
	Advance int             `yaml:"advance"`
}

// PlanPlacement is one building of a step
type PlanPlacement struct {
	Type string `yaml:"type"`
	X    int    `yaml:"x"`
	Z    int    `yaml:"z"`
}

// LoadPlan reads a YAML plan file
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML plan
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("parse plan: no steps")
	}
	for i, s := range p.Steps {
		if s.Advance < 0 {
			return nil, fmt.Errorf("parse plan: step %d advances %d days", i+1, s.Advance)
		}
		if len(s.Place) > engine.MaxBulkPlacements {
			return nil, fmt.Errorf("parse plan: step %d places %d buildings, limit is %d", i+1, len(s.Place), engine.MaxBulkPlacements)
		}
	}
	return &p, nil
}

// PlanOutcome summarizes a finished run
type PlanOutcome struct {
	Placed   int
	Rejected int
	Days     int
	Final    engine.Snapshot
}

// RunPlan executes a plan against city. Removals name buildings by the type
// and refer to the oldest one of that type. Advances longer than the
// configuration's limit are truncated, like the server does.
func RunPlan(ctx context.Context, city *engine.CityEngine, plan *Plan, out io.Writer) (PlanOutcome, error) {
	var outcome PlanOutcome
	limit := city.GetConfig().AdvanceLimit()

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		fmt.Fprintf(out, "step %d (day %.0f)\n", i+1, city.Day())

		requests := make([]engine.PlacementRequest, 0, len(step.Place))
		for _, p := range step.Place {
			requests = append(requests, engine.PlacementRequest{Type: p.Type, Position: grid.Position{X: p.X, Z: p.Z}})
		}
		for _, r := range city.BulkPlace(requests) {
			if r.Building != nil {
				outcome.Placed++
				fmt.Fprintf(out, "  placed %s at (%d,%d)\n", r.Request.Type, r.Request.Position.X, r.Request.Position.Z)
				continue
			}
			outcome.Rejected++
			fmt.Fprintf(out, "  rejected %s at (%d,%d): %v\n", r.Request.Type, r.Request.Position.X, r.Request.Position.Z, r.Validation.Errors)
		}

		for _, buildingType := range step.Remove {
			id := oldestOfType(city.Snapshot().Buildings, buildingType)
			if id == "" || !city.Remove(id) {
				fmt.Fprintf(out, "  nothing to remove for %s\n", buildingType)
				continue
			}
			fmt.Fprintf(out, "  removed %s %s\n", buildingType, id)
		}

		days := step.Advance
		if days > limit {
			fmt.Fprintf(out, "  advance of %d days truncated to %d\n", days, limit)
			days = limit
		}
		for d := 0; d < days; d++ {
			if err := ctx.Err(); err != nil {
				return outcome, err
			}
			report := city.Tick(1)
			outcome.Days++
			for _, c := range report.Fired {
				fmt.Fprintf(out, "  day %.0f: [%s] %s\n", report.Day, c.Severity, c.Message)
			}
			for _, a := range report.Achievements {
				fmt.Fprintf(out, "  day %.0f: achievement %s\n", report.Day, a)
			}
		}
	}

	outcome.Final = city.Snapshot()
	return outcome, nil
}

func oldestOfType(buildings []grid.Building, buildingType string) string {
	best := ""
	age := -1.0
	for _, b := range buildings {
		if b.Type == buildingType && b.AgeDays > age {
			best, age = b.ID, b.AgeDays
		}
	}
	return best
}

// printSummary writes the closing report shared by simulate and autoplay
func printSummary(out io.Writer, snap engine.Snapshot) {
	r, s := snap.Resources, snap.Statistics
	fmt.Fprintf(out, "\nday %.0f, level %d, %d buildings\n", snap.Day, s.CityLevel, s.TotalBuildings)
	fmt.Fprintf(out, "population %.0f/%.0f, happiness %.0f\n", r.Population.Total, r.Population.Capacity, r.Population.Happiness)
	fmt.Fprintf(out, "energy %.0f produced, %.0f consumed, %.0f%% renewable\n", r.Energy.Production, r.Energy.Consumption, r.Energy.RenewablePercentage)
	fmt.Fprintf(out, "air %.0f, water %.0f, co2 %.0f\n", r.Environment.AirQuality, r.Environment.WaterQuality, r.Environment.CO2Level)
	fmt.Fprintf(out, "funds %.0f (income %.0f, expenses %.0f)\n", r.Economy.Funds, r.Economy.Income, r.Economy.Expenses)
	fmt.Fprintf(out, "sustainability %.0f, environment %.0f\n", s.SustainabilityScore, s.EnvironmentalScore)
	for _, risk := range engine.AnalyzeRisks(r) {
		fmt.Fprintf(out, "risk: %s\n", risk)
	}
}

func simulateCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "run a YAML plan and report the resulting city",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "plan", Required: true, Usage: "plan file"},
			&cli.BoolFlag{Name: "map", Usage: "print the final map"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			plan, err := LoadPlan(cmd.String("plan"))
			if err != nil {
				return err
			}
			city, err := newCity(cmd, plan.Config)
			if err != nil {
				return err
			}

			outcome, err := RunPlan(ctx, city, plan, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d placed, %d rejected, %d days simulated\n", outcome.Placed, outcome.Rejected, outcome.Days)
			printSummary(out, outcome.Final)
			if cmd.Bool("map") {
				fmt.Fprint(out, engine.RenderASCII(outcome.Final.Grid, outcome.Final.Buildings))
			}
			return nil
		},
	}
}
