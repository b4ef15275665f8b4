package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/soultaco83/jellyfin-packaging/internal/checkout"
	"github.com/soultaco83/jellyfin-packaging/internal/runner"
)

var checkoutCmd = &cli.Command{
	Name:      "checkout",
	Usage:     "Checkout submodules for a build",
	ArgsUsage: "[release]",
	Action:    checkoutAction,
	Description: `Updates all submodules and checks them out at the requested
release tag. Defaults to master; a tag that is not valid for both
the server and web submodules falls back to master.`,
}

func checkoutAction(ctx context.Context, c *cli.Command) error {
	target := c.Args().First()
	if target == "" {
		target = "master"
	}

	root, err := repoRoot()
	if err != nil {
		return err
	}

	_, err = checkout.New(&runner.Exec{}, root).Run(target)
	return err
}
