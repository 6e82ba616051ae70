package feeds

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"multifeed/models"

	log "github.com/sirupsen/logrus"
)

// ContentType is the media type the rendered document is served with.
const ContentType = "application/rss+xml; charset=UTF-8"

type rssDocument struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	ContentNS string     `xml:"xmlns:content,attr"`
	WfwNS     string     `xml:"xmlns:wfw,attr"`
	DcNS      string     `xml:"xmlns:dc,attr"`
	AtomNS    string     `xml:"xmlns:atom,attr"`
	SyNS      string     `xml:"xmlns:sy,attr"`
	SlashNS   string     `xml:"xmlns:slash,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title           string    `xml:"title"`
	SelfLink        atomLink  `xml:"atom:link"`
	Link            string    `xml:"link"`
	Description     string    `xml:"description"`
	LastBuildDate   string    `xml:"lastBuildDate"`
	Language        string    `xml:"language,omitempty"`
	UpdatePeriod    string    `xml:"sy:updatePeriod"`
	UpdateFrequency int       `xml:"sy:updateFrequency"`
	Items           []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssGuid struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

type rssItem struct {
	Title        string   `xml:"title"`
	Link         string   `xml:"link"`
	Comments     string   `xml:"comments"`
	PubDate      string   `xml:"pubDate"`
	Creator      string   `xml:"dc:creator"`
	Categories   []string `xml:"category"`
	Guid         rssGuid  `xml:"guid"`
	Description  cdata    `xml:"description"`
	Content      *cdata   `xml:"content:encoded,omitempty"`
	CommentRss   string   `xml:"wfw:commentRss"`
	CommentCount int64    `xml:"slash:comments"`
}

// Renderer resolves post references into display rows and serializes the
// RSS document.
type Renderer struct {
	store   Store
	baseURL string
}

func NewRenderer(store Store, baseURL string) *Renderer {
	return &Renderer{
		store:   store,
		baseURL: baseURL,
	}
}

// FeedURL is the canonical, self-referencing address of the network feed.
func (r *Renderer) FeedURL(settings *models.FeedSettings) string {
	return r.baseURL + "/" + settings.Slug
}

// Render resolves each reference in its blog's scope and serializes the
// document. A reference whose post disappeared between aggregation and
// render is skipped.
func (r *Renderer) Render(ctx context.Context, refs []models.PostRef, settings *models.FeedSettings) (*models.FeedDocument, error) {
	builtAt := time.Now().UTC()
	feedURL := r.FeedURL(settings)

	items := make([]rssItem, 0, len(refs))
	lastBuild := time.Time{}

	for _, ref := range refs {
		post, err := r.store.GetPost(ctx, ref.BlogID, ref.PostID)
		if err != nil {
			return nil, fmt.Errorf("resolving post %d of blog %d: %w", ref.PostID, ref.BlogID, err)
		}
		if post == nil {
			log.WithFields(log.Fields{
				"blog": ref.BlogID,
				"post": ref.PostID,
			}).Warn("Post vanished before rendering, skipping")
			continue
		}

		items = append(items, r.renderItem(post, settings))
		if post.PublishedAt.After(lastBuild) {
			lastBuild = post.PublishedAt
		}
	}

	// The header timestamp reflects the merged item set, not the platform
	// at large. An empty feed reports its own build time.
	if lastBuild.IsZero() {
		lastBuild = builtAt
	}

	doc := rssDocument{
		Version:   "2.0",
		ContentNS: "http://purl.org/rss/1.0/modules/content/",
		WfwNS:     "http://wellformedweb.org/CommentAPI/",
		DcNS:      "http://purl.org/dc/elements/1.1/",
		AtomNS:    "http://www.w3.org/2005/Atom",
		SyNS:      "http://purl.org/rss/1.0/modules/syndication/",
		SlashNS:   "http://purl.org/rss/1.0/modules/slash/",
		Channel: rssChannel{
			Title: settings.Title,
			SelfLink: atomLink{
				Href: feedURL,
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Link:            feedURL,
			Description:     settings.Description,
			LastBuildDate:   lastBuild.UTC().Format(time.RFC1123Z),
			Language:        settings.Language,
			UpdatePeriod:    settings.UpdatePeriod,
			UpdateFrequency: settings.UpdateFrequency,
			Items:           items,
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "\t")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding feed: %w", err)
	}
	buf.WriteByte('\n')

	return &models.FeedDocument{
		Body:        buf.Bytes(),
		ContentType: ContentType,
		BuiltAt:     builtAt,
	}, nil
}

func (r *Renderer) renderItem(post *models.Post, settings *models.FeedSettings) rssItem {
	item := rssItem{
		Title:    post.Title,
		Link:     post.Permalink,
		Comments: post.Permalink + "#comments",
		PubDate:  post.PublishedAt.UTC().Format(time.RFC1123Z),
		Creator:  post.Author,
		// Guids are namespaced by blog so raw post ids colliding across
		// blogs can never produce the same guid.
		Guid: rssGuid{
			IsPermaLink: "false",
			Value:       fmt.Sprintf("blog-%d-post-%s", post.BlogID, post.Guid),
		},
		Categories:   post.Categories,
		Description:  cdata{Value: post.Excerpt},
		CommentRss:   post.Permalink + "/feed",
		CommentCount: post.CommentCount,
	}

	if !settings.UseExcerpt {
		if post.Content != "" {
			item.Content = &cdata{Value: post.Content}
		} else {
			item.Content = &cdata{Value: post.Excerpt}
		}
	}

	return item
}
