package cmd

import (
	"fmt"

	"multifeed/db"

	"github.com/urfave/cli/v2"
)

func optionCmd() *cli.Command {
	return &cli.Command{
		Name:  "option",
		Usage: "Read and write network feed options",
		Description: `Reads or writes entries in the site options table that control
the merged feed: slug, title, description, per-blog and total entry limits,
excluded blogs, cache expiry and rendering options.

Writing an option from here updates the store directly. A running server
picks the change up at the latest when its cached document expires; notify
its /events endpoint with an update_settings action to drop the cache
immediately.`,
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print the effective feed settings",
				Flags:     []cli.Flag{databaseFlag()},
				ArgsUsage: " ",
				Action: func(ctx *cli.Context) error {
					reader, err := db.NewReader(ctx.String("database"))
					if err != nil {
						return err
					}
					defer reader.Close()

					settings, err := reader.Settings(ctx.Context)
					if err != nil {
						return err
					}

					fmt.Printf("%s = %s\n", db.OptionFeedSlug, settings.Slug)
					fmt.Printf("%s = %s\n", db.OptionFeedTitle, settings.Title)
					fmt.Printf("%s = %s\n", db.OptionFeedDescription, settings.Description)
					fmt.Printf("%s = %d\n", db.OptionMaxEntriesPerBlog, settings.MaxEntriesPerBlog)
					fmt.Printf("%s = %d\n", db.OptionMaxEntries, settings.MaxEntries)
					fmt.Printf("%s = %v\n", db.OptionCacheExpiry, settings.CacheExpiry)
					fmt.Printf("%s = %t\n", db.OptionUseExcerpt, settings.UseExcerpt)
					fmt.Printf("%s = %s\n", db.OptionFeedLanguage, settings.Language)
					fmt.Printf("%s = %s/%d\n", db.OptionUpdatePeriod, settings.UpdatePeriod, settings.UpdateFrequency)
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Set one option",
				ArgsUsage: "NAME VALUE",
				Flags:     []cli.Flag{databaseFlag()},
				Action: func(ctx *cli.Context) error {
					if ctx.NArg() != 2 {
						return fmt.Errorf("expected NAME VALUE, got %d arguments", ctx.NArg())
					}

					writer, err := db.NewWriter(ctx.String("database"), nil)
					if err != nil {
						return err
					}
					defer writer.Close()

					return writer.SetOption(ctx.Context, ctx.Args().Get(0), ctx.Args().Get(1))
				},
			},
		},
	}
}
