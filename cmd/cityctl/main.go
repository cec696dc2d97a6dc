// Command cityctl is the operator CLI for EcoCity. It works on configuration
// and catalog files directly and runs cities in-process, without a server.
//
// Usage:
//
//	cityctl catalog [--file buildings.yaml] [--category energy] [--format text|yaml|json]
//	cityctl terrain [--config small]
//	cityctl validate-config [files...]
//	cityctl simulate --plan plan.yaml
//	cityctl autoplay [--config small] [--days 120] [--step 5]
package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree; all output goes to out
func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "cityctl",
		Usage:   "inspect catalogs and configurations, and run cities offline",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Value: "configs",
				Usage: "directory containing city configuration files",
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "building catalog YAML file (defaults to the built-in catalog)",
			},
		},
		Commands: []*cli.Command{
			catalogCommand(out),
			terrainCommand(out),
			validateConfigCommand(out),
			simulateCommand(out),
			autoplayCommand(out),
		},
	}
}
