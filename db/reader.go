package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"multifeed/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

type Reader struct {
	db *sql.DB
}

func NewReader(database string) (*Reader, error) {
	db, err := readConnection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return &Reader{
		db: db,
	}, nil
}

// Ping verifies the database is reachable.
func (reader *Reader) Ping(ctx context.Context) error {
	return reader.db.PingContext(ctx)
}

func (reader *Reader) Close() error {
	return reader.db.Close()
}

// postsTable returns the name of the content table holding a blog's posts.
// Each blog owns its own table, created when the blog is set up.
func postsTable(blogID int64) string {
	return fmt.Sprintf("blog_%d_posts", blogID)
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// EligibleBlogs returns the ids of all blogs that may contribute to the
// network feed: public, not archived, not spam, not deleted and updated at
// least once. Blogs in the excluded set are subtracted. The result is ordered
// by blog id so one aggregation pass enumerates blogs reproducibly.
func (reader *Reader) EligibleBlogs(ctx context.Context, excluded map[int64]struct{}) ([]int64, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("blog_id").From("blogs")
	sb.Where(
		sb.Equal("public", 1),
		sb.Equal("archived", 0),
		sb.Equal("spam", 0),
		sb.Equal("deleted", 0),
		sb.IsNotNull("last_updated"),
		sb.GreaterThan("last_updated", 0),
	)

	if len(excluded) > 0 {
		ids := lo.Keys(excluded)
		sb.Where(sb.NotIn("blog_id", sqlbuilder.Flatten(ids)...))
	}

	sb.OrderBy("blog_id").Asc()

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var blogs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		blogs = append(blogs, id)
	}

	return blogs, rows.Err()
}

// RecentPostRefs returns references to a blog's most recent published posts,
// strictly older than asOf, newest first, capped at limit. A blog whose
// content table does not exist has no posts and yields an empty result.
func (reader *Reader) RecentPostRefs(ctx context.Context, blogID int64, limit int, asOf time.Time) ([]models.PostRef, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "post_date_gmt").From(postsTable(blogID))
	sb.Where(
		sb.Equal("post_type", "post"),
		sb.Equal("post_status", "publish"),
		sb.Equal("post_password", ""),
		sb.LessThan("post_date_gmt", asOf.Unix()),
	)
	sb.OrderBy("post_date_gmt").Desc()
	sb.Limit(limit)

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var refs []models.PostRef
	for rows.Next() {
		var id, published int64
		if err := rows.Scan(&id, &published); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		refs = append(refs, models.PostRef{
			PostID:      id,
			BlogID:      blogID,
			PublishedAt: time.Unix(published, 0).UTC(),
		})
	}

	return refs, rows.Err()
}

// GetPost resolves the display fields of a single post in its blog's scope.
// Returns nil without error when the post or its blog's table is gone.
func (reader *Reader) GetPost(ctx context.Context, blogID int64, postID int64) (*models.Post, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "title", "author", "guid", "permalink", "content", "excerpt", "categories", "comment_count", "post_date_gmt")
	sb.From(postsTable(blogID))
	sb.Where(sb.Equal("id", postID))

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var post models.Post
	var categories string
	var published int64
	err := reader.db.QueryRowContext(ctx, query, args...).Scan(
		&post.ID, &post.Title, &post.Author, &post.Guid, &post.Permalink,
		&post.Content, &post.Excerpt, &categories, &post.CommentCount, &published,
	)
	if err == sql.ErrNoRows || isMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	post.BlogID = blogID
	post.PublishedAt = time.Unix(published, 0).UTC()
	post.Categories = splitCategories(categories)

	return &post, nil
}

func splitCategories(categories string) []string {
	parts := strings.Split(categories, ",")
	parts = lo.Map(parts, func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Filter(parts, func(part string, _ int) bool {
		return part != ""
	})
}
