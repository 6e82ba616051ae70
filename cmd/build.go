package cmd

import (
	"fmt"
	"os"

	"multifeed/db"
	"multifeed/feeds"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func buildCmd() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build the merged feed once and print it",
		Description: `Runs one aggregation pass over the blog network and writes the
rendered RSS document to stdout.

Useful for inspecting what the server would serve, or for generating the
document from cron and serving it statically.

Prints all log messages to stderr.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{
				Name:    "base-url",
				Value:   "http://localhost:3000",
				Usage:   "Public base URL used for feed self links",
				EnvVars: []string{"MULTIFEED_BASE_URL"},
			},
		},
		Action: func(ctx *cli.Context) error {
			// Keep stdout clean for the document itself
			log.SetOutput(os.Stderr)

			reader, err := db.NewReader(ctx.String("database"))
			if err != nil {
				return err
			}
			defer reader.Close()

			settings, err := reader.Settings(ctx.Context)
			if err != nil {
				return err
			}

			aggregator := feeds.NewAggregator(reader, 0)
			refs, err := aggregator.BuildFeed(ctx.Context, settings)
			if err != nil {
				return err
			}

			renderer := feeds.NewRenderer(reader, ctx.String("base-url"))
			doc, err := renderer.Render(ctx.Context, refs, settings)
			if err != nil {
				return err
			}

			fmt.Print(string(doc.Body))
			return nil
		},
	}
}
