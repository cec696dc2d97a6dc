package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/ecocity/game/catalog"
	"github.com/wricardo/ecocity/game/config"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/grid"
)

// loadCatalog returns the catalog named by --catalog or the built-in one
func loadCatalog(cmd *cli.Command) (*catalog.Catalog, error) {
	path := cmd.String("catalog")
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

// loadConfig resolves a configuration by name from --config-dir. An empty
// name selects the directory's default.
func loadConfig(cmd *cli.Command, name string) (*engine.CityConfig, error) {
	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, err
	}
	if name == "" {
		return configs.GetDefault(), nil
	}
	return configs.LoadConfig(name)
}

// newCity builds an engine for the named configuration
func newCity(cmd *cli.Command, name string) (*engine.CityEngine, error) {
	cfg, err := loadConfig(cmd, name)
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog(cmd)
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(cfg, cat)
}

func catalogCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "list building definitions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "catalog YAML file to inspect instead of --catalog"},
			&cli.StringFlag{Name: "category", Usage: "only list this category"},
			&cli.StringFlag{Name: "format", Value: "text", Usage: "text, yaml or json"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cat, err := loadCatalog(cmd)
			if path := cmd.String("file"); path != "" {
				cat, err = catalog.LoadFile(path)
			}
			if err != nil {
				return err
			}

			defs := cat.All()
			if c := cmd.String("category"); c != "" {
				defs = cat.ByCategory(catalog.Category(c))
			}
			return printCatalog(out, defs, cmd.String("format"))
		},
	}
}

func printCatalog(out io.Writer, defs []catalog.Definition, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(map[string]any{"buildings": defs})
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintf(out, "%-18s %-14s %5s %9s %7s %6s %s\n", "ID", "CATEGORY", "SIZE", "COST", "UPKEEP", "DAYS", "RULES")
	for _, d := range defs {
		fmt.Fprintf(out, "%-18s %-14s %2dx%-2d %9.0f %7.0f %6.0f %s\n",
			d.ID, d.Category, d.Footprint.Width, d.Footprint.Height,
			d.Stats.Cost, d.Stats.MaintenanceCost, d.Stats.ConstructionDays, rules(d))
	}
	fmt.Fprintf(out, "%d buildings\n", len(defs))
	return nil
}

func rules(d catalog.Definition) string {
	var parts []string
	if d.Stats.UnlockLevel > 1 {
		parts = append(parts, fmt.Sprintf("level %d", d.Stats.UnlockLevel))
	}
	if d.Requirements.NearRoad {
		parts = append(parts, "road")
	}
	if d.Requirements.NearWater {
		parts = append(parts, "water")
	}
	for _, r := range d.Requirements.MinDistance {
		parts = append(parts, fmt.Sprintf("%d from %s", r.Cells, r.Type))
	}
	if d.Requirements.MaxPerCity > 0 {
		parts = append(parts, fmt.Sprintf("max %d", d.Requirements.MaxPerCity))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func terrainCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "terrain",
		Usage: "render the empty map of a configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "configuration name (default: the directory default)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			city, err := newCity(cmd, cmd.String("config"))
			if err != nil {
				return err
			}
			snap := city.Snapshot()
			g := snap.Grid

			fmt.Fprintf(out, "%s: %dx%d cells of %.1fm\n", snap.ConfigName, g.Width, g.Height, g.CellSize)
			fmt.Fprint(out, engine.RenderASCII(g, snap.Buildings))
			fmt.Fprintf(out, "land %d, water %d, park %d, road %d\n",
				g.CountTerrain(grid.Land, false), g.CountTerrain(grid.Water, false),
				g.CountTerrain(grid.Park, false), g.CountTerrain(grid.Road, false))
			return nil
		},
	}
}

// configCheck is the outcome of validating one configuration file
type configCheck struct {
	File  string
	Valid bool
	Notes []string
}

// checkConfigFile loads a configuration, validates it and builds a city
// from it to catch problems that only show up on an actual grid
func checkConfigFile(path string, cat *catalog.Catalog) configCheck {
	res := configCheck{File: filepath.Base(path)}

	cfg, err := engine.LoadCityConfig(path)
	if err != nil {
		res.Notes = append(res.Notes, err.Error())
		return res
	}
	city, err := engine.NewEngine(cfg, cat)
	if err != nil {
		res.Notes = append(res.Notes, err.Error())
		return res
	}

	res.Valid = true
	g := city.Snapshot().Grid
	res.Notes = append(res.Notes,
		fmt.Sprintf("%dx%d, funds %.0f, tax %.0f%%, advance limit %d days",
			cfg.Width, cfg.Height, cfg.StartingFunds, cfg.TaxRate, cfg.AdvanceLimit()))

	if g.CountTerrain(grid.Water, false) == 0 {
		res.Notes = append(res.Notes, "warning: no water, water_treatment and hydroelectric can never be placed")
	}
	if g.CountTerrain(grid.Road, false) == 0 {
		res.Notes = append(res.Notes, "warning: no roads, road-bound buildings can never be placed")
	}
	cheapest := 0.0
	for _, d := range cat.All() {
		if cheapest == 0 || d.Stats.Cost < cheapest {
			cheapest = d.Stats.Cost
		}
	}
	if cfg.StartingFunds < cheapest {
		res.Notes = append(res.Notes, fmt.Sprintf("warning: starting funds cannot buy any building (cheapest costs %.0f)", cheapest))
	}
	return res
}

func validateConfigCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate-config",
		Usage:     "validate configuration files",
		ArgsUsage: "[files...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			files := cmd.Args().Slice()
			if len(files) == 0 {
				files, err = filepath.Glob(filepath.Join(cmd.String("config-dir"), "*.json"))
				if err != nil {
					return err
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no configuration files found")
			}

			invalid := 0
			for _, file := range files {
				res := checkConfigFile(file, cat)
				status := "VALID"
				if !res.Valid {
					status = "INVALID"
					invalid++
				}
				fmt.Fprintf(out, "%s %s\n", status, res.File)
				for _, n := range res.Notes {
					fmt.Fprintf(out, "  %s\n", n)
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d configurations are invalid", invalid, len(files))
			}
			fmt.Fprintf(out, "all %d configurations are valid\n", len(files))
			return nil
		},
	}
}
