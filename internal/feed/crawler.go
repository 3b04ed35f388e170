package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/danibustillo97/rpa-news/internal/config"
	"github.com/danibustillo97/rpa-news/internal/logger"
	"github.com/danibustillo97/rpa-news/internal/metrics"
	"github.com/danibustillo97/rpa-news/internal/slug"
)

const minAnchorTextLen = 40

// Anchor targets that look like articles: a year segment in the path or one
// of the section keywords.
var (
	rePathYear   = regexp.MustCompile(`/(19|20)\d{2}([/-]|$)`)
	pathKeywords = []string{"noticia", "news", "deportes", "futbol"}
	docSuffixes  = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".zip"}
)

// Crawler fetches one page (or feed) per configured source and extracts
// candidates. Sources are independent; a failing source is skipped.
type Crawler struct {
	client      *http.Client
	concurrency int
	userAgent   string
}

func NewCrawler(timeout time.Duration, concurrency int, userAgent string) *Crawler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Crawler{
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		userAgent:   userAgent,
	}
}

// Discover crawls all sources through a bounded worker pool and returns the
// aggregated candidate list in completion order.
func (c *Crawler) Discover(ctx context.Context, sources []config.Source) []Candidate {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []Candidate
	)
	sem := make(chan struct{}, c.concurrency)

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(src config.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			found, err := c.collect(ctx, src)
			if err != nil {
				logger.Warn("source skipped", "url", src.URL, "error", err)
				metrics.Global.IncrementSourcesFailed()
				return
			}
			metrics.Global.IncrementSourcesCrawled()
			logger.Info("source crawled", "url", src.URL, "candidates", len(found))

			mu.Lock()
			candidates = append(candidates, found...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	metrics.Global.AddCandidatesFound(len(candidates))
	return candidates
}

func (c *Crawler) collect(ctx context.Context, src config.Source) ([]Candidate, error) {
	if src.Kind == "rss" {
		return c.collectFromFeed(ctx, src.URL)
	}
	return c.collectFromPage(ctx, src.URL)
}

// collectFromPage extracts candidates from anchor elements of a single
// fetched page. Best effort: no pagination, no link-graph traversal.
func (c *Crawler) collectFromPage(ctx context.Context, srcURL string) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	base, err := url.Parse(srcURL)
	if err != nil {
		return nil, fmt.Errorf("parse source URL: %w", err)
	}

	pageTime := pagePublishedTime(doc)

	var out []Candidate
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		title := collapseWhitespace(a.Text())
		if utf8.RuneCountInString(title) <= minAnchorTextLen {
			return
		}

		href, _ := a.Attr("href")
		full := resolveURL(base, href)
		if full == "" || !looksLikeArticle(full) || seen[full] {
			return
		}
		seen[full] = true

		ts := anchorTime(a)
		if ts == nil {
			ts = pageTime
		}

		out = append(out, Candidate{
			Title:      title,
			URL:        full,
			Domain:     slug.Domain(full),
			Discovered: ts,
		})
	})

	return out, nil
}

// resolveURL resolves href against the source base and keeps only absolute
// http(s) targets.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func looksLikeArticle(full string) bool {
	lower := strings.ToLower(full)
	for _, suffix := range docSuffixes {
		if strings.HasSuffix(strings.SplitN(lower, "?", 2)[0], suffix) {
			return false
		}
	}
	if rePathYear.MatchString(lower) {
		return true
	}
	for _, kw := range pathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// anchorTime looks for a time-marker element near the anchor: the anchor
// itself, then up to two ancestor containers.
func anchorTime(a *goquery.Selection) *time.Time {
	node := a
	for i := 0; i < 3; i++ {
		tm := node.Find("time").First()
		if tm.Length() > 0 {
			if dt, ok := tm.Attr("datetime"); ok {
				if ts := parseTime(dt); ts != nil {
					return ts
				}
			}
			if ts := parseTime(strings.TrimSpace(tm.Text())); ts != nil {
				return ts
			}
		}
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
	}
	return nil
}

// pagePublishedTime reads a page-level published-time meta tag.
func pagePublishedTime(doc *goquery.Document) *time.Time {
	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[property="og:published_time"]`,
		`meta[name="published_time"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if ts := parseTime(content); ts != nil {
				return ts
			}
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// parseTime tries the known layouts and returns nil for anything it cannot
// parse; an unparseable marker means "no timestamp", never an error.
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
