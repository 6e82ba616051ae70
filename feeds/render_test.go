package feeds_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"multifeed/feeds"
	"multifeed/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderStore() *stubStore {
	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &stubStore{
		posts: map[string]*models.Post{
			postKey(1, 11): {
				ID:           11,
				BlogID:       1,
				Title:        "Tips & tricks <for> everyone",
				Author:       "alice",
				Guid:         "11",
				Permalink:    "http://blog1.example.test/?p=11",
				Content:      "<p>Full content</p>",
				Excerpt:      "Short excerpt",
				Categories:   []string{"howto", "news"},
				CommentCount: 3,
				PublishedAt:  published,
			},
			postKey(2, 11): {
				ID:          11,
				BlogID:      2,
				Title:       "Same raw id, different blog",
				Author:      "bob",
				Guid:        "11",
				Permalink:   "http://blog2.example.test/?p=11",
				Excerpt:     "Other excerpt",
				PublishedAt: published.Add(-time.Hour),
			},
		},
	}
}

func renderRefs() []models.PostRef {
	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []models.PostRef{
		{PostID: 11, BlogID: 1, PublishedAt: published},
		{PostID: 11, BlogID: 2, PublishedAt: published.Add(-time.Hour)},
	}
}

func TestRenderDocumentStructure(t *testing.T) {
	renderer := feeds.NewRenderer(renderStore(), "http://network.example.test")

	doc, err := renderer.Render(context.Background(), renderRefs(), testSettings())
	require.NoError(t, err)

	body := string(doc.Body)
	assert.Equal(t, feeds.ContentType, doc.ContentType)
	assert.True(t, strings.HasPrefix(body, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>"))
	assert.Contains(t, body, `<rss version="2.0"`)
	assert.Contains(t, body, `xmlns:content="http://purl.org/rss/1.0/modules/content/"`)
	assert.Contains(t, body, "<title>Network feed</title>")
	assert.Contains(t, body, `<atom:link href="http://network.example.test/network-feed" rel="self" type="application/rss+xml">`)
	assert.Contains(t, body, "<sy:updatePeriod>hourly</sy:updatePeriod>")
	assert.Contains(t, body, "<sy:updateFrequency>1</sy:updateFrequency>")
	assert.Contains(t, body, "<language>en</language>")
	assert.Contains(t, body, "<dc:creator>alice</dc:creator>")
	assert.Contains(t, body, "<category>howto</category>")
	assert.Contains(t, body, "<slash:comments>3</slash:comments>")
	assert.Contains(t, body, "<wfw:commentRss>http://blog1.example.test/?p=11/feed</wfw:commentRss>")
}

func TestRenderEscapesUserText(t *testing.T) {
	renderer := feeds.NewRenderer(renderStore(), "http://network.example.test")

	doc, err := renderer.Render(context.Background(), renderRefs(), testSettings())
	require.NoError(t, err)

	body := string(doc.Body)
	assert.Contains(t, body, "Tips &amp; tricks &lt;for&gt; everyone")
	assert.NotContains(t, body, "<title>Tips & tricks")
}

func TestRenderGuidNamespacedByBlog(t *testing.T) {
	renderer := feeds.NewRenderer(renderStore(), "http://network.example.test")

	doc, err := renderer.Render(context.Background(), renderRefs(), testSettings())
	require.NoError(t, err)

	body := string(doc.Body)
	assert.Contains(t, body, `<guid isPermaLink="false">blog-1-post-11</guid>`)
	assert.Contains(t, body, `<guid isPermaLink="false">blog-2-post-11</guid>`)
}

func TestRenderFullContentMode(t *testing.T) {
	renderer := feeds.NewRenderer(renderStore(), "http://network.example.test")

	doc, err := renderer.Render(context.Background(), renderRefs(), testSettings())
	require.NoError(t, err)

	body := string(doc.Body)
	// Post with a body embeds it, the excerpt stays in the description.
	assert.Contains(t, body, "<content:encoded><![CDATA[<p>Full content</p>]]></content:encoded>")
	assert.Contains(t, body, "<description><![CDATA[Short excerpt]]></description>")
	// Post without a body falls back to the excerpt.
	assert.Contains(t, body, "<content:encoded><![CDATA[Other excerpt]]></content:encoded>")
}

func TestRenderExcerptMode(t *testing.T) {
	renderer := feeds.NewRenderer(renderStore(), "http://network.example.test")

	settings := testSettings()
	settings.UseExcerpt = true

	doc, err := renderer.Render(context.Background(), renderRefs(), settings)
	require.NoError(t, err)

	body := string(doc.Body)
	assert.NotContains(t, body, "content:encoded")
	assert.Contains(t, body, "<description><![CDATA[Short excerpt]]></description>")
}

func TestRenderLastBuildDateFromItems(t *testing.T) {
	renderer := feeds.NewRenderer(renderStore(), "http://network.example.test")

	doc, err := renderer.Render(context.Background(), renderRefs(), testSettings())
	require.NoError(t, err)

	newest := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Contains(t, string(doc.Body), "<lastBuildDate>"+newest.Format(time.RFC1123Z)+"</lastBuildDate>")
}

func TestRenderSkipsVanishedPosts(t *testing.T) {
	store := renderStore()
	refs := append(renderRefs(), models.PostRef{PostID: 99, BlogID: 1, PublishedAt: time.Now().UTC()})

	renderer := feeds.NewRenderer(store, "http://network.example.test")
	doc, err := renderer.Render(context.Background(), refs, testSettings())
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(string(doc.Body), "<item>"))
}
