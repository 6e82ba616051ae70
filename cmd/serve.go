package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"multifeed/config"
	"multifeed/db"
	"multifeed/events"
	"multifeed/feeds"
	"multifeed/server"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the merged network feed",
		Description: `Starts the HTTP server for the merged network feed.

Requests whose path ends in the configured feed slug are answered with the
cached RSS document, rebuilding it from the blog network when the cache is
cold. Content and settings mutation events posted to /events invalidate the
cache immediately.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
				EnvVars: []string{"MULTIFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "SQLite database file location",
				EnvVars: []string{"MULTIFEED_DATABASE"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				EnvVars: []string{"MULTIFEED_PORT"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Public base URL used for feed self links",
				EnvVars: []string{"MULTIFEED_BASE_URL"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of concurrent per-blog queries",
				EnvVars: []string{"MULTIFEED_WORKERS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			configureLogging(cfg.Log)

			fmt.Println("Starting multifeed...")

			reader, err := openReader(ctx.Context, cfg.Database.Path)
			if err != nil {
				return err
			}
			defer reader.Close()

			bus := events.NewBus()
			cache := feeds.NewDocumentCache()
			feeds.WireInvalidation(bus, cache)

			app := server.Server(&server.ServerConfig{
				Reader:     reader,
				Aggregator: feeds.NewAggregator(reader, cfg.Aggregation.Workers),
				Renderer:   feeds.NewRenderer(reader, cfg.Server.BaseURL),
				Cache:      cache,
				Bus:        bus,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			go func() {
				<-c
				fmt.Println("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Errorf("Error shutting down server: %v", err)
				}
			}()

			fmt.Println("Starting server...")
			if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
				return err
			}

			fmt.Println("Done!")
			return nil
		},
	}
}

func configureLogging(cfg config.TomlLog) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// loadConfig merges the optional TOML file with command line flags. Flags
// win over the file.
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if database := ctx.String("database"); database != "" {
		cfg.Database.Path = database
	}
	if port := ctx.Int("port"); port != 0 {
		cfg.Server.Port = port
	}
	if baseURL := ctx.String("base-url"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if workers := ctx.Int("workers"); workers != 0 {
		cfg.Aggregation.Workers = workers
	}

	return cfg, nil
}

// openReader connects to the database, retrying with exponential backoff so
// the server survives starting before the volume is ready.
func openReader(ctx context.Context, database string) (*db.Reader, error) {
	reader, err := db.NewReader(database)
	if err != nil {
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	err = backoff.Retry(func() error {
		if err := reader.Ping(ctx); err != nil {
			log.Warnf("Database not ready, retrying: %v", err)
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("database never became ready: %w", err)
	}

	return reader, nil
}
