package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/soultaco83/jellyfin-packaging/internal/buildcfg"
	"github.com/soultaco83/jellyfin-packaging/internal/builder"
	"github.com/soultaco83/jellyfin-packaging/internal/log"
	"github.com/soultaco83/jellyfin-packaging/internal/runner"
)

var buildCmd = &cli.Command{
	Name:      "build",
	Usage:     "Build release images",
	ArgsUsage: "<version> [arch]",
	Action:    buildAction,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Build configuration file",
			Value: "build.yaml",
		},
		&cli.BoolFlag{
			Name:  "local",
			Usage: "Local build, do not tag, push or build manifests",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Debug build, use the Debug .NET configuration",
		},
	},
	Description: `Builds the multi-architecture Docker images for a release.

Stable releases are tag names with a "v" (e.g. v10.9.0); unstable
releases are "master" or a date-to-the-hour version (e.g.
2024021600). "master" and "auto" are autocorrected to a dated
version string.`,
}

func buildAction(ctx context.Context, c *cli.Command) error {
	version := c.Args().First()
	if version == "" {
		return fmt.Errorf("a version argument is required")
	}

	cfg, err := buildcfg.Load(c.String("config"))
	if err != nil {
		return err
	}

	root, err := repoRoot()
	if err != nil {
		return err
	}

	normalized := builder.Normalize(version, time.Now())
	if normalized != version {
		log.Info("Autocorrected version", "from", version, "to", normalized)
	}

	b := builder.New(cfg, &runner.Exec{}, root)
	return b.BuildDocker(normalized, builder.Options{
		Arch:  c.Args().Get(1),
		Local: c.Bool("local"),
		Debug: c.Bool("debug"),
	})
}

// repoRoot finds the top level of this repository, falling back to the
// working directory outside a git checkout.
func repoRoot() (string, error) {
	exec := &runner.Exec{}
	root, err := exec.Output("git", "rev-parse", "--show-toplevel")
	if err == nil && root != "" {
		return root, nil
	}
	return os.Getwd()
}
