package feed

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/danibustillo97/rpa-news/internal/slug"
)

// collectFromFeed turns feed items into candidates. RSS entries carry real
// titles and publish times, so the anchor-text heuristics do not apply.
func (c *Crawler) collectFromFeed(ctx context.Context, srcURL string) ([]Candidate, error) {
	parser := gofeed.NewParser()
	parser.Client = c.client
	parser.UserAgent = c.userAgent

	fd, err := parser.ParseURLWithContext(srcURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var out []Candidate
	for _, item := range fd.Items {
		title := collapseWhitespace(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		out = append(out, Candidate{
			Title:      title,
			URL:        item.Link,
			Domain:     slug.Domain(item.Link),
			Discovered: item.PublishedParsed,
		})
	}
	return out, nil
}
