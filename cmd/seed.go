package cmd

import (
	"fmt"
	"time"

	"multifeed/db"
	"multifeed/models"

	"github.com/urfave/cli/v2"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create demo blogs and posts",
		Description: `Fills the database with a few blogs and published posts for
local development. Run migrate first.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.IntFlag{
				Name:  "blogs",
				Value: 3,
				Usage: "Number of blogs to create",
			},
			&cli.IntFlag{
				Name:  "posts",
				Value: 5,
				Usage: "Number of posts per blog",
			},
		},
		Action: func(ctx *cli.Context) error {
			writer, err := db.NewWriter(ctx.String("database"), nil)
			if err != nil {
				return err
			}
			defer writer.Close()

			blogs := ctx.Int("blogs")
			posts := ctx.Int("posts")
			now := time.Now().UTC()

			for b := 1; b <= blogs; b++ {
				blogID := int64(b)
				if err := writer.CreateBlog(ctx.Context, models.Blog{
					ID:          blogID,
					Public:      true,
					LastUpdated: now.Unix(),
				}); err != nil {
					return err
				}

				for p := 1; p <= posts; p++ {
					published := now.Add(-time.Duration(p) * time.Hour)
					_, err := writer.PublishPost(ctx.Context, models.Post{
						BlogID:      blogID,
						Title:       fmt.Sprintf("Blog %d post %d", b, p),
						Author:      fmt.Sprintf("author-%d", b),
						Guid:        fmt.Sprintf("%d", p),
						Permalink:   fmt.Sprintf("http://blog%d.example.test/?p=%d", b, p),
						Content:     fmt.Sprintf("<p>Content of post %d on blog %d</p>", p, b),
						Excerpt:     fmt.Sprintf("Excerpt of post %d on blog %d", p, b),
						Categories:  []string{"news"},
						PublishedAt: published,
					})
					if err != nil {
						return err
					}
				}
			}

			fmt.Printf("Seeded %d blogs with %d posts each\n", blogs, posts)
			return nil
		},
	}
}
