package feeds

import (
	"fmt"

	"multifeed/events"
	"multifeed/models"

	log "github.com/sirupsen/logrus"
)

// WireInvalidation subscribes the document cache to every content and
// settings mutation on the bus. Each matching event drops the cached feed so
// the next request rebuilds it.
func WireInvalidation(bus *events.Bus, cache *DocumentCache) {
	bus.Subscribe(func(event interface{}) {
		switch event.(type) {
		case models.PublishPostEvent,
			models.UpdatePostEvent,
			models.TrashPostEvent,
			models.DeletePostEvent,
			models.PromotePostEvent,
			models.UpdateSettingsEvent:
			log.WithFields(log.Fields{
				"event": fmt.Sprintf("%T", event),
			}).Debug("Invalidating feed cache")
			cache.Invalidate(CacheKey)
		}
	})
}
