// Package feed collects candidate news articles from syndicated feeds and
// normalizes them for embedding.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// ErrNoArticles indicates that every configured feed failed to produce
// items. Callers must treat this as a hard ingestion failure.
var ErrNoArticles = errors.New("no articles fetched from any feed")

// DefaultFeedURLs is the built-in feed list, chosen for topical diversity.
var DefaultFeedURLs = []string{
	"https://timesofindia.indiatimes.com/rssfeeds/-2128936835.cms",
	"https://timesofindia.indiatimes.com/rssfeedstopstories.cms",
	"https://feeds.bbci.co.uk/news/world/rss.xml",
	"http://rss.cnn.com/rss/edition.rss",
	"https://www.wired.com/feed/rss",
	"https://www.ft.com/?format=rss",
	"https://www.espn.com/espn/rss/news",
	"https://feeds.bbci.co.uk/sport/rss.xml",
	"https://variety.com/feed/",
	"https://www.rollingstone.com/music/music-news/feed/",
	"https://www.nasa.gov/rss/dyn/breaking_news.rss",
	"https://www.livescience.com/feeds/all",
}

// Article is one normalized news item. Articles are immutable once created;
// identity is the opaque ID, not a content hash.
type Article struct {
	ID          string
	Title       string
	Content     string
	Link        string
	PublishedAt time.Time
	Source      string
	Category    string
}

// Fetcher pulls articles from a set of RSS feeds.
type Fetcher struct {
	parser   *gofeed.Parser
	feedURLs []string
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher for the given feed URLs. An empty list falls
// back to DefaultFeedURLs.
func NewFetcher(feedURLs []string, logger *slog.Logger) *Fetcher {
	if len(feedURLs) == 0 {
		feedURLs = DefaultFeedURLs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		parser:   gofeed.NewParser(),
		feedURLs: feedURLs,
		logger:   logger,
	}
}

// FetchArticles pulls items from every configured feed, shuffles the pooled
// candidates, and returns at most targetCount of them. A failing feed is
// logged and skipped; only when every feed fails is ErrNoArticles returned.
func (f *Fetcher) FetchArticles(ctx context.Context, targetCount int) ([]Article, error) {
	var pool []Article

	for _, feedURL := range f.feedURLs {
		parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			f.logger.Warn("feed fetch failed", "url", feedURL, "error", err)
			continue
		}

		for _, item := range parsed.Items {
			pool = append(pool, newArticle(item, parsed.Title))
		}
		f.logger.Info("fetched feed", "source", parsed.Title, "items", len(parsed.Items))
	}

	if len(pool) == 0 {
		return nil, ErrNoArticles
	}

	// Uniform shuffle before truncating, for topical diversity.
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > targetCount {
		pool = pool[:targetCount]
	}

	f.logger.Info("collected articles", "count", len(pool))
	return pool, nil
}

func newArticle(item *gofeed.Item, feedTitle string) Article {
	content := item.Description
	if content == "" {
		content = item.Content
	}

	publishedAt := time.Now()
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	}

	source := feedTitle
	if source == "" {
		source = "Unknown"
	}

	category := "General"
	if len(item.Categories) > 0 {
		category = strings.Join(item.Categories, ", ")
	}

	return Article{
		ID:          uuid.New().String(),
		Title:       item.Title,
		Content:     CleanContent(content),
		Link:        item.Link,
		PublishedAt: publishedAt,
		Source:      source,
		Category:    category,
	}
}

// CleanContent strips HTML tags and collapses runs of whitespace.
func CleanContent(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// EmbeddingText derives the exact text that gets embedded for an article.
// Similarity search matches against this text, so it must stay stable
// between ingestion runs.
func EmbeddingText(a Article) string {
	return strings.TrimSpace(a.Title + ". " + a.Content)
}
