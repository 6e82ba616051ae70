package feeds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"multifeed/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// ErrNoBlogs is returned when blog enumeration yields nothing. An empty
// network is a misconfiguration, not an empty feed, and is surfaced
// distinctly from the store being unreachable.
var ErrNoBlogs = errors.New("no blogs available")

const defaultWorkers = 8

// Aggregator collects recent post references across all eligible blogs and
// merges them into one globally ordered sequence.
type Aggregator struct {
	store   Store
	workers int
}

func NewAggregator(store Store, workers int) *Aggregator {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Aggregator{
		store:   store,
		workers: workers,
	}
}

// BuildFeed runs one aggregation pass:
//
//  1. enumerate eligible blogs minus the excluded set
//  2. fetch each blog's most recent posts, capped per blog, concurrently
//  3. stable-sort the union by publish date descending
//  4. truncate to the global maximum when one is set
//
// A single blog's query failure degrades that blog to zero items and never
// aborts the pass. Enumeration failure aborts the pass.
func (a *Aggregator) BuildFeed(ctx context.Context, settings *models.FeedSettings) ([]models.PostRef, error) {
	started := time.Now()
	asOf := started.UTC()

	blogs, err := a.store.EligibleBlogs(ctx, settings.ExcludedBlogs)
	if err != nil {
		return nil, fmt.Errorf("listing eligible blogs: %w", err)
	}
	if len(blogs) == 0 {
		return nil, ErrNoBlogs
	}

	// Fan out the per-blog queries over a bounded worker pool. Each result
	// lands in the slot matching the blog's enumeration position, so the
	// merge below never depends on completion order.
	results := make([][]models.PostRef, len(blogs))
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	degraded := 0

	for i, blogID := range blogs {
		wg.Add(1)
		go func(slot int, blogID int64) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			refs, err := a.store.RecentPostRefs(ctx, blogID, settings.MaxEntriesPerBlog, asOf)
			if err != nil {
				log.WithFields(log.Fields{
					"blog":  blogID,
					"error": err,
				}).Warn("Blog query failed, contributing no items")
				degradedBlogQueries.Inc()
				mu.Lock()
				degraded++
				mu.Unlock()
				return
			}
			results[slot] = refs
		}(i, blogID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refs := lo.Flatten(results)

	// Ties keep accumulation order: blog enumeration order first, then the
	// per-blog newest-first query order.
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].PublishedAt.After(refs[j].PublishedAt)
	})

	if settings.MaxEntries > 0 && len(refs) > settings.MaxEntries {
		refs = refs[:settings.MaxEntries]
	}

	buildCount.Inc()
	buildDuration.Observe(time.Since(started).Seconds())

	log.WithFields(log.Fields{
		"blogs":    len(blogs),
		"degraded": degraded,
		"items":    len(refs),
		"duration": time.Since(started),
	}).Info("Aggregated network feed")

	return refs, nil
}
