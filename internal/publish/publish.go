// Package publish orders deduplicated candidates by recency and drives
// each one through enrichment and persistence, bounded by the run quota.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/danibustillo97/rpa-news/internal/classify"
	"github.com/danibustillo97/rpa-news/internal/dedup"
	"github.com/danibustillo97/rpa-news/internal/enrich"
	"github.com/danibustillo97/rpa-news/internal/feed"
	"github.com/danibustillo97/rpa-news/internal/logger"
	"github.com/danibustillo97/rpa-news/internal/metrics"
	"github.com/danibustillo97/rpa-news/internal/retry"
	"github.com/danibustillo97/rpa-news/internal/slug"
	"github.com/danibustillo97/rpa-news/internal/storage"
)

const (
	articleAuthor   = "Noirs Virals"
	articleStatus   = "draft"
	articleLanguage = "es"

	// Give up on the run after this many inserts fail back to back;
	// silent data loss is worse than a visible crash.
	maxConsecutivePersistFailures = 3
)

// Enricher runs the per-candidate gates.
type Enricher interface {
	Enrich(ctx context.Context, c *feed.Candidate) enrich.StageResult
}

// ArticleWriter is the write side of the persisted store.
type ArticleWriter interface {
	Insert(ctx context.Context, a *storage.Article) error
}

type Options struct {
	Quota          int
	Delay          time.Duration // pacing between successful saves
	IncludeUndated bool          // rank undated candidates last instead of excluding them
	Retry          retry.Config
}

type Scheduler struct {
	store    ArticleWriter
	index    *dedup.Index
	enricher Enricher
	vocab    classify.Vocabulary
	opts     Options
}

func New(store ArticleWriter, index *dedup.Index, enricher Enricher, vocab classify.Vocabulary, opts Options) *Scheduler {
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 1
	}
	return &Scheduler{
		store:    store,
		index:    index,
		enricher: enricher,
		vocab:    vocab,
		opts:     opts,
	}
}

// Run processes candidates one at a time, newest first, until the list is
// exhausted or the quota is reached. Enrichment is strictly sequential: the
// generation service and the image hosts are rate-sensitive.
func (s *Scheduler) Run(ctx context.Context, candidates []feed.Candidate) (int, error) {
	ranked := s.rank(candidates)
	logger.Info("scheduling candidates", "ranked", len(ranked), "discovered", len(candidates), "quota", s.opts.Quota)

	published := 0
	consecutiveFailures := 0
	failedInserts := 0

	for i := range ranked {
		if published >= s.opts.Quota {
			break
		}
		// The run may be aborted between candidates; persistence is
		// append-only per candidate, so nothing is left half-written.
		if err := ctx.Err(); err != nil {
			return published, err
		}

		c := ranked[i]
		key := slug.Key(c.Title)
		normURL := slug.NormalizeURL(c.URL)

		if s.isDuplicate(ctx, key, normURL, c.Title) {
			continue
		}

		if res := s.enricher.Enrich(ctx, &c); !res.OK {
			logger.Info("candidate dropped", "title", c.Title, "reason", res.Reason)
			metrics.Global.IncrementGateDrops()
			continue
		}

		// Rewriting can change the identity key; re-derive from the final
		// title and check again.
		key = slug.Key(c.Title)
		if s.isDuplicate(ctx, key, normURL, c.Title) {
			continue
		}

		article := s.buildArticle(&c, key, normURL)
		err := retry.Do(ctx, s.opts.Retry, func() error {
			return s.store.Insert(ctx, article)
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return published, err
			}
			logger.Error("failed to persist article", "title", article.Title, "error", err)
			metrics.Global.IncrementPersistFailures()
			failedInserts++
			consecutiveFailures++
			if consecutiveFailures >= maxConsecutivePersistFailures {
				return published, fmt.Errorf("store rejecting inserts repeatedly: %w", err)
			}
			continue
		}
		consecutiveFailures = 0

		s.index.MarkPublished(key, normURL)
		published++
		metrics.Global.IncrementArticlesPublished()
		logger.Info("article published", "title", article.Title, "league", article.League, "score", article.RelevanceScore)

		if published < s.opts.Quota && s.opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return published, ctx.Err()
			case <-time.After(s.opts.Delay):
			}
		}
	}

	if published == 0 && failedInserts > 0 {
		return 0, fmt.Errorf("no article could be persisted (%d insert failures)", failedInserts)
	}
	return published, nil
}

// rank orders candidates by discovery time, newest first. Undated
// candidates are excluded by default; when included they rank below every
// dated one.
func (s *Scheduler) rank(candidates []feed.Candidate) []feed.Candidate {
	var dated, undated []feed.Candidate
	for _, c := range candidates {
		if c.Discovered != nil {
			dated = append(dated, c)
		} else {
			undated = append(undated, c)
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Discovered.After(*dated[j].Discovered)
	})

	if !s.opts.IncludeUndated {
		return dated
	}
	return append(dated, undated...)
}

func (s *Scheduler) isDuplicate(ctx context.Context, key, normURL, title string) bool {
	dup, err := s.index.IsDuplicate(ctx, key, normURL)
	if err != nil {
		// Lookup failure is not proof of novelty, but the store is also
		// checked at insert time via the in-run seen-set on the next run;
		// proceed the way the store being empty would.
		logger.Warn("duplicate lookup failed", "title", title, "error", err)
		return false
	}
	if dup {
		logger.Debug("duplicate skipped", "title", title, "slug", key)
		metrics.Global.IncrementDuplicatesFiltered()
	}
	return dup
}

func (s *Scheduler) buildArticle(c *feed.Candidate, key, normURL string) *storage.Article {
	now := time.Now().UTC()
	league := s.vocab.League(c.Title)

	return &storage.Article{
		Title:          c.Title,
		Slug:           key,
		Content:        c.Content,
		ImageURL:       c.ImageURL,
		SourceURL:      normURL,
		SourceDomain:   c.Domain,
		Author:         articleAuthor,
		Status:         articleStatus,
		Category:       league,
		League:         league,
		Country:        s.vocab.Country(c.Content),
		Team:           s.vocab.Team(c.Content),
		Tags:           s.vocab.ExtractTags(c.Content),
		Summary:        classify.Summary(c.Content),
		RelevanceScore: s.vocab.Score(c.Content),
		Language:       articleLanguage,
		PublishedAt:    now,
		CreatedAt:      now,
	}
}
