// Package feeds implements the aggregation pipeline behind the merged
// network feed: collecting recent posts per blog, merging and ordering them,
// rendering the RSS document and caching the result.
package feeds

import (
	"context"
	"time"

	"multifeed/models"
)

// Store is the read-only view of the blog network the pipeline runs against.
// *db.Reader implements it.
type Store interface {
	// EligibleBlogs returns the ids of blogs that may contribute to the
	// feed, minus the excluded set.
	EligibleBlogs(ctx context.Context, excluded map[int64]struct{}) ([]int64, error)

	// RecentPostRefs returns references to a blog's most recent published
	// posts strictly older than asOf, newest first, capped at limit. A blog
	// without content yields an empty result, not an error.
	RecentPostRefs(ctx context.Context, blogID int64, limit int, asOf time.Time) ([]models.PostRef, error)

	// GetPost resolves the display fields of one post in its blog's scope.
	// Returns nil without error when the post is gone.
	GetPost(ctx context.Context, blogID int64, postID int64) (*models.Post, error)
}
