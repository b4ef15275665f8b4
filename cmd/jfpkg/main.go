package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "jfpkg",
		Usage: "Jellyfin packaging and release automation",
		Commands: []*cli.Command{
			buildCmd,
			checkoutCmd,
			pluginsCmd,
			versionCmd,
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
