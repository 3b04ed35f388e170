// Package enrich drives a candidate through the external rewrite,
// generation and image-resolution calls, applying a validation gate after
// each step.
package enrich

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/danibustillo97/rpa-news/internal/ai"
	"github.com/danibustillo97/rpa-news/internal/feed"
	"github.com/danibustillo97/rpa-news/internal/logger"
)

const (
	minRewrittenWords = 5
	minContentLen     = 200
)

// StageResult is the explicit outcome of one gate: either the candidate
// survives or it is dropped with a reason. Gate failures are expected and
// frequent; they are never errors.
type StageResult struct {
	OK     bool
	Reason string
}

func pass() StageResult              { return StageResult{OK: true} }
func drop(reason string) StageResult { return StageResult{Reason: reason} }

// ImageFinder resolves a representative image for an article page. An empty
// result means no usable image.
type ImageFinder interface {
	Resolve(ctx context.Context, pageURL string) string
}

type Enricher struct {
	gen    ai.TextGenerator
	budget *ai.Budget
	images ImageFinder
}

func New(gen ai.TextGenerator, budget *ai.Budget, images ImageFinder) *Enricher {
	return &Enricher{gen: gen, budget: budget, images: images}
}

// Enrich mutates the candidate in place: possibly rewritten title, then
// generated content, then image. The first failed gate drops the candidate.
func (e *Enricher) Enrich(ctx context.Context, c *feed.Candidate) StageResult {
	e.rewriteTitle(ctx, c)

	if res := e.generateContent(ctx, c); !res.OK {
		return res
	}
	return e.resolveImage(ctx, c)
}

// rewriteTitle is a substitution, not a gate: any failure, and any result
// shorter than five words, keeps the original title.
func (e *Enricher) rewriteTitle(ctx context.Context, c *feed.Candidate) {
	if err := e.budget.UseRewrite(); err != nil {
		logger.Debug("rewrite skipped", "title", c.Title, "error", err)
		return
	}

	rewritten, err := e.gen.RewriteTitle(ctx, c.Title)
	if err != nil {
		logger.Warn("title rewrite failed, keeping original", "title", c.Title, "error", err)
		return
	}
	if len(strings.Fields(rewritten)) < minRewrittenWords {
		logger.Debug("rewritten title too short, keeping original", "rewritten", rewritten)
		return
	}
	c.Title = rewritten
}

func (e *Enricher) generateContent(ctx context.Context, c *feed.Candidate) StageResult {
	if err := e.budget.UseGenerate(); err != nil {
		return drop("generation budget exhausted")
	}

	content, err := e.gen.GenerateContent(ctx, c.Title, c.URL)
	if err != nil {
		logger.Warn("content generation failed", "title", c.Title, "error", err)
		return drop("content generation failed")
	}
	if utf8.RuneCountInString(content) < minContentLen {
		return drop("content empty or too short")
	}

	c.Content = content
	return pass()
}

func (e *Enricher) resolveImage(ctx context.Context, c *feed.Candidate) StageResult {
	img := e.images.Resolve(ctx, c.URL)
	if img == "" {
		return drop("no usable image")
	}
	c.ImageURL = img
	return pass()
}
