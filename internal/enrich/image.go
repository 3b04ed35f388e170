package enrich

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/danibustillo97/rpa-news/internal/logger"
)

const placeholderMarker = "placeholder.com"

// ImageResolver fetches the article page and extracts a representative
// image: the Open-Graph image if present, otherwise the first embedded
// image that is not an inline data URI. Hosts on the blocklist are known to
// 403 or serve unusable assets.
type ImageResolver struct {
	client    *http.Client
	userAgent string
	blocklist []string
}

func NewImageResolver(timeout time.Duration, userAgent string, blocklist []string) *ImageResolver {
	return &ImageResolver{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		blocklist: blocklist,
	}
}

// Resolve returns the image URL or "" when no usable image exists. Fetch
// failures are treated as "no image found", never as run errors.
func (r *ImageResolver) Resolve(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Debug("image page fetch failed", "url", pageURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	imgURL := ""
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && content != "" {
		imgURL = content
	} else {
		doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			if src == "" || strings.HasPrefix(src, "data:") {
				return true
			}
			imgURL = src
			return false
		})
	}

	if imgURL == "" {
		return ""
	}
	if strings.Contains(imgURL, placeholderMarker) {
		return ""
	}
	for _, blocked := range r.blocklist {
		if strings.Contains(imgURL, blocked) {
			logger.Debug("image host blocked", "url", imgURL, "host", blocked)
			return ""
		}
	}
	return imgURL
}
