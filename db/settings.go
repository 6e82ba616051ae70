package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"multifeed/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Option names recognized in the site_options table.
const (
	OptionFeedSlug          = "feed_slug"
	OptionFeedTitle         = "feed_title"
	OptionFeedDescription   = "feed_description"
	OptionMaxEntriesPerBlog = "max_entries_per_blog"
	OptionMaxEntries        = "max_entries"
	OptionExcludedBlogs     = "excluded_blogs"
	OptionCacheExpiry       = "cache_expiry_minutes"
	OptionUseExcerpt        = "use_excerpt"
	OptionFeedLanguage      = "feed_language"
	OptionUpdatePeriod      = "update_period"
	OptionUpdateFrequency   = "update_frequency"
)

// DefaultSettings returns the feed settings used when the corresponding
// site options are not set.
func DefaultSettings() *models.FeedSettings {
	return &models.FeedSettings{
		Slug:              "network-feed",
		Title:             "Network feed",
		Description:       "Recent posts from all blogs",
		MaxEntriesPerBlog: 10,
		MaxEntries:        50,
		ExcludedBlogs:     map[int64]struct{}{},
		CacheExpiry:       60 * time.Minute,
		UseExcerpt:        false,
		Language:          "en",
		UpdatePeriod:      "hourly",
		UpdateFrequency:   1,
	}
}

// Settings reads all site options and merges them over the defaults.
// Unknown options are ignored, malformed values fall back to the default for
// their key.
func (reader *Reader) Settings(ctx context.Context) (*models.FeedSettings, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("option_name", "option_value").From("site_options")

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	options := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		options[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	settings := DefaultSettings()

	if value, ok := options[OptionFeedSlug]; ok && value != "" {
		settings.Slug = value
	}
	if value, ok := options[OptionFeedTitle]; ok && value != "" {
		settings.Title = value
	}
	if value, ok := options[OptionFeedDescription]; ok && value != "" {
		settings.Description = value
	}
	if value, ok := options[OptionMaxEntriesPerBlog]; ok {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			settings.MaxEntriesPerBlog = parsed
		}
	}
	if value, ok := options[OptionMaxEntries]; ok {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			settings.MaxEntries = parsed
		}
	}
	if value, ok := options[OptionExcludedBlogs]; ok {
		settings.ExcludedBlogs = parseExcludedBlogs(value)
	}
	if value, ok := options[OptionCacheExpiry]; ok {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			settings.CacheExpiry = time.Duration(parsed) * time.Minute
		}
	}
	if value, ok := options[OptionUseExcerpt]; ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			settings.UseExcerpt = parsed
		}
	}
	if value, ok := options[OptionFeedLanguage]; ok && value != "" {
		settings.Language = value
	}
	if value, ok := options[OptionUpdatePeriod]; ok && value != "" {
		settings.UpdatePeriod = value
	}
	if value, ok := options[OptionUpdateFrequency]; ok {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			settings.UpdateFrequency = parsed
		}
	}

	return settings, nil
}

// parseExcludedBlogs parses a comma separated list of blog ids. Entries that
// are not valid ids are skipped with a warning rather than failing the whole
// aggregation.
func parseExcludedBlogs(value string) map[int64]struct{} {
	excluded := map[int64]struct{}{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id < 1 {
			log.WithFields(log.Fields{
				"entry": part,
			}).Warn("Skipping invalid excluded blog id")
			continue
		}
		excluded[id] = struct{}{}
	}
	return excluded
}
