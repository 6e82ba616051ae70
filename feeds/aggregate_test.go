package feeds_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"multifeed/feeds"
	"multifeed/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore is an in-memory feeds.Store for pipeline tests.
type stubStore struct {
	blogs    []int64
	blogsErr error
	refs     map[int64][]models.PostRef
	refsErr  map[int64]error
	posts    map[string]*models.Post
	postsErr error
}

func (s *stubStore) EligibleBlogs(ctx context.Context, excluded map[int64]struct{}) ([]int64, error) {
	if s.blogsErr != nil {
		return nil, s.blogsErr
	}
	var blogs []int64
	for _, id := range s.blogs {
		if _, ok := excluded[id]; !ok {
			blogs = append(blogs, id)
		}
	}
	return blogs, nil
}

func (s *stubStore) RecentPostRefs(ctx context.Context, blogID int64, limit int, asOf time.Time) ([]models.PostRef, error) {
	if err := s.refsErr[blogID]; err != nil {
		return nil, err
	}
	var refs []models.PostRef
	for _, ref := range s.refs[blogID] {
		if ref.PublishedAt.Before(asOf) {
			refs = append(refs, ref)
		}
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (s *stubStore) GetPost(ctx context.Context, blogID int64, postID int64) (*models.Post, error) {
	if s.postsErr != nil {
		return nil, s.postsErr
	}
	return s.posts[postKey(blogID, postID)], nil
}

func postKey(blogID, postID int64) string {
	return fmt.Sprintf("%d/%d", blogID, postID)
}

func ref(blogID, postID int64, publishedAt time.Time) models.PostRef {
	return models.PostRef{PostID: postID, BlogID: blogID, PublishedAt: publishedAt}
}

func testSettings() *models.FeedSettings {
	return &models.FeedSettings{
		Slug:              "network-feed",
		Title:             "Network feed",
		Description:       "Recent posts from all blogs",
		MaxEntriesPerBlog: 10,
		MaxEntries:        0,
		ExcludedBlogs:     map[int64]struct{}{},
		CacheExpiry:       time.Hour,
		Language:          "en",
		UpdatePeriod:      "hourly",
		UpdateFrequency:   1,
	}
}

func TestBuildFeedOrdering(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store := &stubStore{
		blogs: []int64{1, 2},
		refs: map[int64][]models.PostRef{
			1: {ref(1, 11, base.Add(-1*time.Hour)), ref(1, 12, base.Add(-3*time.Hour))},
			2: {ref(2, 21, base.Add(-30*time.Minute)), ref(2, 22, base.Add(-2*time.Hour))},
		},
	}

	aggregator := feeds.NewAggregator(store, 2)
	refs, err := aggregator.BuildFeed(context.Background(), testSettings())
	require.NoError(t, err)

	require.Len(t, refs, 4)
	assert.Equal(t, int64(21), refs[0].PostID)
	assert.Equal(t, int64(11), refs[1].PostID)
	assert.Equal(t, int64(22), refs[2].PostID)
	assert.Equal(t, int64(12), refs[3].PostID)
	for i := 1; i < len(refs); i++ {
		assert.False(t, refs[i].PublishedAt.After(refs[i-1].PublishedAt))
	}
}

func TestBuildFeedStableTieBreak(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store := &stubStore{
		blogs: []int64{1, 2, 3},
		refs: map[int64][]models.PostRef{
			1: {ref(1, 10, when), ref(1, 11, when)},
			2: {ref(2, 20, when)},
			3: {ref(3, 30, when)},
		},
	}

	aggregator := feeds.NewAggregator(store, 3)

	// Equal timestamps keep blog enumeration order, then per-blog order,
	// independent of which worker finishes first.
	for run := 0; run < 10; run++ {
		refs, err := aggregator.BuildFeed(context.Background(), testSettings())
		require.NoError(t, err)
		require.Len(t, refs, 4)
		assert.Equal(t, int64(10), refs[0].PostID)
		assert.Equal(t, int64(11), refs[1].PostID)
		assert.Equal(t, int64(20), refs[2].PostID)
		assert.Equal(t, int64(30), refs[3].PostID)
	}
}

func TestBuildFeedGlobalLimit(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store := &stubStore{
		blogs: []int64{1, 2},
		refs: map[int64][]models.PostRef{
			1: {ref(1, 11, base.Add(-1*time.Minute)), ref(1, 12, base.Add(-2*time.Minute))},
			2: {ref(2, 21, base.Add(-3*time.Minute)), ref(2, 22, base.Add(-4*time.Minute))},
		},
	}

	settings := testSettings()
	settings.MaxEntries = 3

	aggregator := feeds.NewAggregator(store, 2)
	refs, err := aggregator.BuildFeed(context.Background(), settings)
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Equal(t, int64(11), refs[0].PostID)
	assert.Equal(t, int64(12), refs[1].PostID)
	assert.Equal(t, int64(21), refs[2].PostID)
	for _, r := range refs {
		assert.NotEqual(t, int64(22), r.PostID, "oldest post must be the one truncated")
	}
}

func TestBuildFeedPerBlogLimit(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
	}

	store := &stubStore{
		blogs: []int64{1, 2},
		refs: map[int64][]models.PostRef{
			1: {ref(1, 13, day(3)), ref(1, 12, day(2)), ref(1, 11, day(1))},
			2: {ref(2, 23, day(3)), ref(2, 22, day(2)), ref(2, 21, day(1))},
		},
	}

	settings := testSettings()
	settings.MaxEntriesPerBlog = 2

	aggregator := feeds.NewAggregator(store, 2)
	refs, err := aggregator.BuildFeed(context.Background(), settings)
	require.NoError(t, err)

	require.Len(t, refs, 4)
	perBlog := map[int64]int{}
	for _, r := range refs {
		perBlog[r.BlogID]++
		assert.NotEqual(t, int64(11), r.PostID, "day 1 post must never appear")
		assert.NotEqual(t, int64(21), r.PostID, "day 1 post must never appear")
	}
	assert.Equal(t, 2, perBlog[1])
	assert.Equal(t, 2, perBlog[2])
}

func TestBuildFeedExcludedBlogs(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store := &stubStore{
		blogs: []int64{1, 2, 3},
		refs: map[int64][]models.PostRef{
			1: {ref(1, 11, base.Add(-1*time.Hour))},
			2: {ref(2, 21, base.Add(-2*time.Hour))},
			3: {ref(3, 31, base.Add(-3*time.Hour))},
		},
	}

	settings := testSettings()
	settings.ExcludedBlogs = map[int64]struct{}{2: {}}

	aggregator := feeds.NewAggregator(store, 2)
	refs, err := aggregator.BuildFeed(context.Background(), settings)
	require.NoError(t, err)

	require.Len(t, refs, 2)
	for _, r := range refs {
		assert.NotEqual(t, int64(2), r.BlogID)
	}
}

func TestBuildFeedDegradedBlog(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store := &stubStore{
		blogs: []int64{1, 2},
		refs: map[int64][]models.PostRef{
			1: {ref(1, 11, base.Add(-1*time.Hour))},
		},
		refsErr: map[int64]error{2: errors.New("query timeout")},
	}

	aggregator := feeds.NewAggregator(store, 2)
	refs, err := aggregator.BuildFeed(context.Background(), testSettings())
	require.NoError(t, err, "a single blog failure must not abort the pass")

	require.Len(t, refs, 1)
	assert.Equal(t, int64(11), refs[0].PostID)
}

func TestBuildFeedEmptyBlogContributesNothing(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store := &stubStore{
		blogs: []int64{1, 2},
		refs: map[int64][]models.PostRef{
			1: {ref(1, 11, base.Add(-1*time.Hour))},
			// blog 2 has no qualifying posts
		},
	}

	aggregator := feeds.NewAggregator(store, 2)
	refs, err := aggregator.BuildFeed(context.Background(), testSettings())
	require.NoError(t, err)
	require.Len(t, refs, 1)
}

func TestBuildFeedNoBlogs(t *testing.T) {
	aggregator := feeds.NewAggregator(&stubStore{}, 2)
	_, err := aggregator.BuildFeed(context.Background(), testSettings())
	assert.ErrorIs(t, err, feeds.ErrNoBlogs)
}

func TestBuildFeedEnumerationFailureIsFatal(t *testing.T) {
	store := &stubStore{blogsErr: errors.New("database is locked")}
	aggregator := feeds.NewAggregator(store, 2)
	_, err := aggregator.BuildFeed(context.Background(), testSettings())
	require.Error(t, err)
	assert.NotErrorIs(t, err, feeds.ErrNoBlogs)
}
