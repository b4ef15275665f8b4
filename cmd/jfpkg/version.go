package main

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

var (
	Version = "1.0.0"
)

var versionCmd = &cli.Command{
	Name:    "version",
	Aliases: []string{"v"},
	Usage:   "Show version information",
	Action:  versionCommand,
}

func versionCommand(ctx context.Context, cmd *cli.Command) error {
	fmt.Printf("jfpkg %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			fmt.Printf("  commit: %s\n", setting.Value)
		case "vcs.time":
			fmt.Printf("  built:  %s\n", setting.Value)
		}
	}
	return nil
}
