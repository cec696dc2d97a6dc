package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
	"github.com/wricardo/ecocity/game/simulation"
)

// AutoplayOptions configures the greedy builder
type AutoplayOptions struct {
	Days    int     // days to simulate
	Step    int     // days between building rounds
	Reserve float64 // funds never spent on construction
}

// nextBuildings lists building types worth adding, most urgent first.
// The final entries keep the city growing when nothing is urgent.
func nextBuildings(r simulation.Resources) []string {
	var want []string
	if r.Energy.Production <= r.Energy.Consumption+5 {
		want = append(want, "solar_panel", "wind_turbine")
	}
	if r.Waste.Production > 40 && r.Waste.RecyclingRate < 40 {
		want = append(want, "recycling_center")
	}
	if r.Environment.AirQuality < 60 || r.Environment.CO2Level > simulation.BaselineCO2+100 {
		want = append(want, "tree_grove")
	}
	if r.Population.Happiness < 55 {
		want = append(want, "park")
	}
	if r.Population.Total >= r.Population.Capacity*0.8 {
		want = append(want, "eco_home", "house")
	}
	return append(want, "shop", "house")
}

// findSpot scans the grid row by row for the first valid position
func findSpot(city *engine.CityEngine, buildingType string, g *grid.Grid) (grid.Position, bool) {
	for z := 0; z < g.Height; z++ {
		for x := 0; x < g.Width; x++ {
			pos := grid.Position{X: x, Z: z}
			if city.Validate(buildingType, pos).CanPlace {
				return pos, true
			}
		}
	}
	return grid.Position{}, false
}

// buildRound places at most one building: the most urgent type that is not
// already under construction, is affordable above the reserve and fits
// somewhere on the map.
func buildRound(city *engine.CityEngine, reserve float64) (grid.Building, bool) {
	snap := city.Snapshot()
	cat := city.GetCatalog()

	constructing := make(map[string]bool)
	for _, b := range snap.Buildings {
		if b.Status == grid.StatusConstructing {
			constructing[b.Type] = true
		}
	}

	tried := make(map[string]bool)
	for _, t := range nextBuildings(snap.Resources) {
		if tried[t] || constructing[t] {
			continue
		}
		tried[t] = true

		def, ok := cat.Lookup(t)
		if !ok || snap.Resources.Economy.Funds-def.Stats.Cost < reserve {
			continue
		}
		pos, ok := findSpot(city, t, snap.Grid)
		if !ok {
			continue
		}
		if b, res := city.Place(t, pos); res.CanPlace {
			return b, true
		}
	}
	return grid.Building{}, false
}

// Autoplay grows a city with a greedy policy and returns the final snapshot
func Autoplay(ctx context.Context, city *engine.CityEngine, opts AutoplayOptions, out io.Writer) (engine.Snapshot, error) {
	if opts.Step <= 0 {
		opts.Step = 1
	}
	for day := 0; day < opts.Days; day += opts.Step {
		if err := ctx.Err(); err != nil {
			return city.Snapshot(), err
		}
		if b, ok := buildRound(city, opts.Reserve); ok {
			fmt.Fprintf(out, "day %4.0f: %s at (%d,%d)\n", city.Day(), b.Type, b.Position.X, b.Position.Z)
		}

		days := opts.Step
		if remaining := opts.Days - day; days > remaining {
			days = remaining
		}
		for d := 0; d < days; d++ {
			report := city.Tick(1)
			for _, c := range report.Fired {
				fmt.Fprintf(out, "day %4.0f: [%s] %s\n", report.Day, c.Severity, c.Message)
			}
		}
	}
	return city.Snapshot(), nil
}

func autoplayCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "grow a city with a greedy builder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "configuration name (default: the directory default)"},
			&cli.IntFlag{Name: "days", Value: 120, Usage: "days to simulate"},
			&cli.IntFlag{Name: "step", Value: 5, Usage: "days between building rounds"},
			&cli.FloatFlag{Name: "reserve", Value: 5000, Usage: "funds kept out of construction"},
			&cli.BoolFlag{Name: "map", Usage: "print the final map"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			city, err := newCity(cmd, cmd.String("config"))
			if err != nil {
				return err
			}
			snap, err := Autoplay(ctx, city, AutoplayOptions{
				Days:    int(cmd.Int("days")),
				Step:    int(cmd.Int("step")),
				Reserve: cmd.Float("reserve"),
			}, out)
			if err != nil {
				return err
			}
			printSummary(out, snap)
			if cmd.Bool("map") {
				fmt.Fprint(out, engine.RenderASCII(snap.Grid, snap.Buildings))
			}
			return nil
		},
	}
}
