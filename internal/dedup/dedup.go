// Package dedup decides whether a candidate has already been published,
// combining the persisted store with an in-run seen-set. The seen-set
// closes the window between store check and store write within one run;
// concurrent runs can still race on the same key.
package dedup

import "context"

// ArticleStore is the read side of the persisted store.
type ArticleStore interface {
	ExistsByIdentity(ctx context.Context, slug, sourceURL string) (bool, error)
}

// Index is scoped to a single run and discarded at run end.
type Index struct {
	store     ArticleStore
	seenSlugs map[string]struct{}
	seenURLs  map[string]struct{}
}

func NewIndex(store ArticleStore) *Index {
	return &Index{
		store:     store,
		seenSlugs: make(map[string]struct{}),
		seenURLs:  make(map[string]struct{}),
	}
}

// IsDuplicate reports whether the identity key or the normalized URL has
// already been published, either persisted or earlier in this run. An empty
// key is degenerate and always counts as a duplicate. A store error is
// returned alongside false; callers decide whether to proceed.
func (ix *Index) IsDuplicate(ctx context.Context, slug, sourceURL string) (bool, error) {
	if slug == "" {
		return true, nil
	}
	if _, ok := ix.seenSlugs[slug]; ok {
		return true, nil
	}
	if sourceURL != "" {
		if _, ok := ix.seenURLs[sourceURL]; ok {
			return true, nil
		}
	}
	return ix.store.ExistsByIdentity(ctx, slug, sourceURL)
}

// MarkPublished records a successful persistence in the in-run seen-set.
func (ix *Index) MarkPublished(slug, sourceURL string) {
	if slug != "" {
		ix.seenSlugs[slug] = struct{}{}
	}
	if sourceURL != "" {
		ix.seenURLs[sourceURL] = struct{}{}
	}
}
