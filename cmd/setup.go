package cmd

import (
	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"

	"multifeed/db"
)

func setupCmd() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Interactively configure the network feed",
		Description: `Asks for the basic feed options and writes them to the site
options table. Run migrate first.`,
		Flags: []cli.Flag{
			databaseFlag(),
		},
		Action: func(ctx *cli.Context) error {
			slug, err := prompt.New().Ask("Feed slug:").Input("network-feed")
			if err != nil {
				return err
			}

			title, err := prompt.New().Ask("Feed title:").Input("Network feed")
			if err != nil {
				return err
			}

			description, err := prompt.New().Ask("Feed description:").Input("Recent posts from all blogs")
			if err != nil {
				return err
			}

			writer, err := db.NewWriter(ctx.String("database"), nil)
			if err != nil {
				return err
			}
			defer writer.Close()

			for name, value := range map[string]string{
				db.OptionFeedSlug:        slug,
				db.OptionFeedTitle:       title,
				db.OptionFeedDescription: description,
			} {
				if err := writer.SetOption(ctx.Context, name, value); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
