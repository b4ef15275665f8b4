package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/soultaco83/jellyfin-packaging/internal/config"
	"github.com/soultaco83/jellyfin-packaging/internal/installer"
	"github.com/soultaco83/jellyfin-packaging/internal/log"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

var pluginsCmd = &cli.Command{
	Name:  "plugins",
	Usage: "Manage optional plugins baked into the image",
	Commands: []*cli.Command{
		{
			Name:   "install",
			Usage:  "Resolve, download and install the configured plugins",
			Action: pluginsInstallAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "config",
					Usage: "Installer configuration file (TOML)",
					Value: "plugins.toml",
				},
				&cli.StringFlag{
					Name:  "plugin-dir",
					Usage: "Override the plugin installation directory",
				},
				&cli.BoolFlag{
					Name:  "require-primary",
					Usage: "Fail the run when the primary catalog is unreachable",
				},
				&cli.BoolFlag{
					Name:  "debug",
					Usage: "Enable debug logging",
				},
			},
			Description: `Installs the plugins listed in the configuration file. Each
plugin is resolved against its catalog (or a hosting-API latest
release), downloaded, unpacked and given a normalized meta.json
descriptor. One plugin failing never aborts the run: plugin
absence must not fail the surrounding image build.`,
		},
	},
}

func pluginsInstallAction(ctx context.Context, c *cli.Command) error {
	if c.Bool("debug") {
		log.SetLevel(slog.LevelDebug)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dir := c.String("plugin-dir"); dir != "" {
		cfg.PluginDir = dir
		cfg.RuntimeRoot = dir
	}

	summary := installer.New(cfg).Run()

	fmt.Println()
	fmt.Println("=== Installation Summary ===")
	for _, result := range summary.Results {
		if result.Outcome == installer.Success {
			fmt.Printf("%s %s %s\n", okStyle.Render("✓"), result.Name, result.Version)
		} else {
			fmt.Printf("%s %s (%s)\n", failStyle.Render("✗"), result.Name, result.Outcome)
		}
	}
	fmt.Printf("Successful: %d\n", summary.Succeeded)
	fmt.Printf("Failed: %d\n", summary.Failed)

	if summary.PrimaryUnreachable && c.Bool("require-primary") {
		return fmt.Errorf("primary plugin catalog unreachable")
	}
	if summary.Failed > 0 {
		// Soft success: warn but never fail the build over optional
		// plugins.
		fmt.Println(warnStyle.Render("Warning: some plugins failed to install"))
		return nil
	}

	fmt.Println(okStyle.Render("All plugins installed successfully"))
	return nil
}
