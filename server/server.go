package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"multifeed/events"
	"multifeed/feeds"
	"multifeed/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// SettingsReader provides the feed settings for each request.
// *db.Reader implements it.
type SettingsReader interface {
	Settings(ctx context.Context) (*models.FeedSettings, error)
}

type ServerConfig struct {

	// The reader to use for settings lookups
	Reader SettingsReader

	// Aggregator building the merged post list
	Aggregator *feeds.Aggregator

	// Renderer serializing the RSS document
	Renderer *feeds.Renderer

	// Cache holding the rendered document
	Cache *feeds.DocumentCache

	// Bus that store mutations are announced on
	Bus *events.Bus
}

// mutationEvent is the body of a store mutation notification.
type mutationEvent struct {
	Action string `json:"action"`
	BlogID int64  `json:"blogId"`
	PostID int64  `json:"postId"`
	Option string `json:"option"`
}

// Returns a fiber.App instance serving the merged network feed
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]interface{}{
			"status": "ok",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Mutation notifications from the content/settings store. Each one is
	// republished on the process bus, which the cache invalidation is
	// subscribed to.
	app.Post("/events", func(c *fiber.Ctx) error {
		var evt mutationEvent
		if err := c.BodyParser(&evt); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid event body")
		}

		event, ok := toEvent(evt)
		if !ok {
			return c.Status(fiber.StatusBadRequest).SendString("Unknown action")
		}

		config.Bus.Publish(event)
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Any path ending in the configured feed slug serves the merged feed,
	// everything else is not found.
	app.Get("/*", func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		settings, err := config.Reader.Settings(ctx)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error reading feed settings")
			return c.Status(fiber.StatusServiceUnavailable).SendString("Feed temporarily unavailable")
		}

		if settings.Slug == "" || !strings.HasSuffix(c.Path(), settings.Slug) {
			return c.SendStatus(fiber.StatusNotFound)
		}

		if doc, ok := config.Cache.Get(feeds.CacheKey); ok {
			return sendDocument(c, doc)
		}

		refs, err := config.Aggregator.BuildFeed(ctx, settings)
		if err != nil {
			if errors.Is(err, feeds.ErrNoBlogs) {
				log.Error("No blogs available for aggregation")
				return c.Status(fiber.StatusInternalServerError).SendString("There are no blogs.")
			}
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error building feed")
			return c.Status(fiber.StatusServiceUnavailable).SendString("Feed temporarily unavailable")
		}

		doc, err := config.Renderer.Render(ctx, refs, settings)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error rendering feed")
			return c.Status(fiber.StatusServiceUnavailable).SendString("Feed temporarily unavailable")
		}

		// Concurrent misses may each rebuild and store; last writer wins and
		// all of them produced equivalent documents.
		config.Cache.Put(feeds.CacheKey, doc, settings.CacheExpiry)

		return sendDocument(c, doc)
	})

	return app
}

func sendDocument(c *fiber.Ctx, doc *models.FeedDocument) error {
	c.Set(fiber.HeaderContentType, doc.ContentType)
	return c.Send(doc.Body)
}

func toEvent(evt mutationEvent) (interface{}, bool) {
	switch evt.Action {
	case "publish_post":
		return models.PublishPostEvent{BlogID: evt.BlogID, PostID: evt.PostID}, true
	case "save_post":
		return models.UpdatePostEvent{BlogID: evt.BlogID, PostID: evt.PostID}, true
	case "trashed_post":
		return models.TrashPostEvent{BlogID: evt.BlogID, PostID: evt.PostID}, true
	case "deleted_post":
		return models.DeletePostEvent{BlogID: evt.BlogID, PostID: evt.PostID}, true
	case "private_to_published":
		return models.PromotePostEvent{BlogID: evt.BlogID, PostID: evt.PostID}, true
	case "update_settings":
		return models.UpdateSettingsEvent{Option: evt.Option}, true
	}
	return nil, false
}
