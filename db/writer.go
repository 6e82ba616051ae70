package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"multifeed/events"
	"multifeed/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Writer is the mutation side of the content store. Every successful write
// announces the matching event on the bus so caches can invalidate.
type Writer struct {
	db  *sql.DB
	bus *events.Bus
}

// NewWriter opens a read-write connection. The bus may be nil when no
// subscriber cares about mutations (one-shot CLI commands).
func NewWriter(database string, bus *events.Bus) (*Writer, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &Writer{
		db:  db,
		bus: bus,
	}, nil
}

func (writer *Writer) Close() error {
	return writer.db.Close()
}

func (writer *Writer) publish(event interface{}) {
	if writer.bus != nil {
		writer.bus.Publish(event)
	}
}

// EnsureBlogTables creates the per-blog content table if it does not exist.
func (writer *Writer) EnsureBlogTables(ctx context.Context, blogID int64) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_type TEXT NOT NULL DEFAULT 'post',
		post_status TEXT NOT NULL DEFAULT 'draft',
		post_password TEXT NOT NULL DEFAULT '',
		post_date_gmt INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		guid TEXT NOT NULL DEFAULT '',
		permalink TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		excerpt TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT '',
		comment_count INTEGER NOT NULL DEFAULT 0
	)`, postsTable(blogID))

	if _, err := writer.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create content table: %w", err)
	}
	return nil
}

// CreateBlog registers a blog in the directory and sets up its content table.
func (writer *Writer) CreateBlog(ctx context.Context, blog models.Blog) error {
	insert := sqlbuilder.NewInsertBuilder()
	query, args := insert.InsertInto("blogs").
		Cols("blog_id", "public", "archived", "spam", "deleted", "last_updated").
		Values(blog.ID, boolToInt(blog.Public), boolToInt(blog.Archived), boolToInt(blog.Spam), boolToInt(blog.Deleted), nullableTime(blog.LastUpdated)).
		BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := writer.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert blog: %w", err)
	}

	return writer.EnsureBlogTables(ctx, blog.ID)
}

// PublishPost inserts a published post into the blog's content table,
// touches the blog's last-updated timestamp and fires a publish event.
func (writer *Writer) PublishPost(ctx context.Context, post models.Post) (int64, error) {
	log.WithFields(log.Fields{
		"blog":  post.BlogID,
		"title": post.Title,
	}).Info("Publishing post")

	insert := sqlbuilder.NewInsertBuilder()
	query, args := insert.InsertInto(postsTable(post.BlogID)).
		Cols("post_type", "post_status", "post_password", "post_date_gmt",
			"title", "author", "guid", "permalink", "content", "excerpt", "categories", "comment_count").
		Values("post", "publish", "", post.PublishedAt.Unix(),
			post.Title, post.Author, post.Guid, post.Permalink, post.Content, post.Excerpt,
			strings.Join(post.Categories, ","), post.CommentCount).
		BuildWithFlavor(sqlbuilder.SQLite)

	res, err := writer.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}

	if err := writer.touchBlog(ctx, post.BlogID); err != nil {
		log.WithFields(log.Fields{
			"blog":  post.BlogID,
			"error": err,
		}).Warn("Failed to update blog last_updated")
	}

	writer.publish(models.PublishPostEvent{BlogID: post.BlogID, PostID: id})
	return id, nil
}

// UpdatePost replaces the editable fields of a post and fires an update event.
func (writer *Writer) UpdatePost(ctx context.Context, post models.Post) error {
	update := sqlbuilder.NewUpdateBuilder()
	update.Update(postsTable(post.BlogID)).
		Set(
			update.Assign("title", post.Title),
			update.Assign("author", post.Author),
			update.Assign("content", post.Content),
			update.Assign("excerpt", post.Excerpt),
			update.Assign("categories", strings.Join(post.Categories, ",")),
			update.Assign("comment_count", post.CommentCount),
		).
		Where(update.Equal("id", post.ID))
	query, args := update.BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := writer.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	writer.publish(models.UpdatePostEvent{BlogID: post.BlogID, PostID: post.ID})
	return nil
}

// TrashPost moves a post to the trash status and fires a trash event.
func (writer *Writer) TrashPost(ctx context.Context, blogID int64, postID int64) error {
	if err := writer.setStatus(ctx, blogID, postID, "trash"); err != nil {
		return err
	}
	writer.publish(models.TrashPostEvent{BlogID: blogID, PostID: postID})
	return nil
}

// PromotePost transitions a private post to published and fires a promote
// event.
func (writer *Writer) PromotePost(ctx context.Context, blogID int64, postID int64) error {
	if err := writer.setStatus(ctx, blogID, postID, "publish"); err != nil {
		return err
	}
	writer.publish(models.PromotePostEvent{BlogID: blogID, PostID: postID})
	return nil
}

// DeletePost removes a post for good and fires a delete event.
func (writer *Writer) DeletePost(ctx context.Context, blogID int64, postID int64) error {
	del := sqlbuilder.NewDeleteBuilder()
	del.DeleteFrom(postsTable(blogID)).Where(del.Equal("id", postID))
	query, args := del.BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := writer.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	writer.publish(models.DeletePostEvent{BlogID: blogID, PostID: postID})
	return nil
}

// SetOption upserts a site option and fires a settings event.
func (writer *Writer) SetOption(ctx context.Context, name string, value string) error {
	query := "INSERT INTO site_options (option_name, option_value) VALUES (?, ?) " +
		"ON CONFLICT (option_name) DO UPDATE SET option_value = excluded.option_value"

	if _, err := writer.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to set option: %w", err)
	}

	writer.publish(models.UpdateSettingsEvent{Option: name})
	return nil
}

func (writer *Writer) setStatus(ctx context.Context, blogID int64, postID int64, status string) error {
	update := sqlbuilder.NewUpdateBuilder()
	update.Update(postsTable(blogID)).
		Set(update.Assign("post_status", status)).
		Where(update.Equal("id", postID))
	query, args := update.BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := writer.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update post status: %w", err)
	}
	return nil
}

func (writer *Writer) touchBlog(ctx context.Context, blogID int64) error {
	update := sqlbuilder.NewUpdateBuilder()
	update.Update("blogs").
		Set(update.Assign("last_updated", time.Now().Unix())).
		Where(update.Equal("blog_id", blogID))
	query, args := update.BuildWithFlavor(sqlbuilder.SQLite)

	_, err := writer.db.ExecContext(ctx, query, args...)
	return err
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableTime(unix int64) interface{} {
	if unix == 0 {
		return nil
	}
	return unix
}
