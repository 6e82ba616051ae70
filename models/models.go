package models

import "time"

// Blog is one site in the network as recorded in the blogs directory table.
// The aggregation treats it as read-only for the duration of one pass.
type Blog struct {
	ID          int64 `json:"id"`
	Public      bool  `json:"public"`
	Archived    bool  `json:"archived"`
	Spam        bool  `json:"spam"`
	Deleted     bool  `json:"deleted"`
	LastUpdated int64 `json:"lastUpdated"` // unix seconds, 0 means never updated
}

// PostRef is a lightweight reference to a post produced by the per-blog
// recent-posts query. Display fields are resolved separately at render time.
type PostRef struct {
	PostID      int64     `json:"postId"`
	BlogID      int64     `json:"blogId"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Post is the fully resolved content row behind one feed item.
type Post struct {
	ID           int64
	BlogID       int64
	Title        string
	Author       string
	Guid         string
	Permalink    string
	Content      string
	Excerpt      string
	Categories   []string
	CommentCount int64
	PublishedAt  time.Time
}

// FeedDocument is the rendered feed as an opaque blob plus the metadata
// needed to serve it.
type FeedDocument struct {
	Body        []byte
	ContentType string
	BuiltAt     time.Time
}

// FeedSettings holds the network-wide feed options read from the settings
// store. Missing options fall back to defaults, see db.DefaultSettings.
type FeedSettings struct {
	Slug              string
	Title             string
	Description       string
	MaxEntriesPerBlog int
	MaxEntries        int // 0 means unlimited
	ExcludedBlogs     map[int64]struct{}
	CacheExpiry       time.Duration
	UseExcerpt        bool
	Language          string
	UpdatePeriod      string
	UpdateFrequency   int
}

// PublishPostEvent fired when a post is published
type PublishPostEvent struct {
	BlogID int64
	PostID int64
}

// UpdatePostEvent fired when a published post is saved again
type UpdatePostEvent struct {
	BlogID int64
	PostID int64
}

// TrashPostEvent fired when a post is moved to the trash
type TrashPostEvent struct {
	BlogID int64
	PostID int64
}

// DeletePostEvent fired when a post is removed for good
type DeletePostEvent struct {
	BlogID int64
	PostID int64
}

// PromotePostEvent fired when a private post transitions to published
type PromotePostEvent struct {
	BlogID int64
	PostID int64
}

// UpdateSettingsEvent fired when a site option changes
type UpdateSettingsEvent struct {
	Option string
}
