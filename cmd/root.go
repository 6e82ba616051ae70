package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "multifeed",
		Usage: "A merged RSS feed for a multi-blog network",
		Description: `Aggregates the most recent published posts across all eligible
		blogs of the network into a single time-ordered RSS feed.

		The merged document is cached and invalidated whenever posts or
		feed settings change, so repeated requests do not fan out over
		every blog's content table.

		Flags can generally be set via environment variables, e.g.:

		--database => MULTIFEED_DATABASE=multifeed.db
		--port => MULTIFEED_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			buildCmd(),
			optionCmd(),
			setupCmd(),
			seedCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
