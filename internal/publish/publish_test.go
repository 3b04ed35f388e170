package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/danibustillo97/rpa-news/internal/ai"
	"github.com/danibustillo97/rpa-news/internal/classify"
	"github.com/danibustillo97/rpa-news/internal/config"
	"github.com/danibustillo97/rpa-news/internal/dedup"
	"github.com/danibustillo97/rpa-news/internal/enrich"
	"github.com/danibustillo97/rpa-news/internal/feed"
	"github.com/danibustillo97/rpa-news/internal/logger"
	"github.com/danibustillo97/rpa-news/internal/retry"
	"github.com/danibustillo97/rpa-news/internal/slug"
	"github.com/danibustillo97/rpa-news/internal/storage"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	existing  map[string]bool // persisted slugs and source URLs
	inserted  []*storage.Article
	insertErr error
}

func (f *fakeStore) ExistsByIdentity(_ context.Context, slug, sourceURL string) (bool, error) {
	return f.existing[slug] || f.existing[sourceURL], nil
}

func (f *fakeStore) Insert(_ context.Context, a *storage.Article) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, a)
	return nil
}

// stubEnricher applies a fixed transformation instead of calling external
// services.
type stubEnricher struct {
	retitle    func(string) string
	dropReason string
}

func (s *stubEnricher) Enrich(_ context.Context, c *feed.Candidate) enrich.StageResult {
	if s.dropReason != "" {
		return enrich.StageResult{Reason: s.dropReason}
	}
	if s.retitle != nil {
		c.Title = s.retitle(c.Title)
	}
	c.Content = strings.Repeat("Un partido de fútbol con goles para recordar. ", 8)
	c.ImageURL = "https://cdn.ejemplo.com/foto.jpg"
	return enrich.StageResult{OK: true}
}

func newScheduler(store *fakeStore, enricher Enricher, opts Options) *Scheduler {
	if opts.Quota == 0 {
		opts.Quota = 5
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Config{MaxAttempts: 1}
	}
	return New(store, dedup.NewIndex(store), enricher, classify.Default(), opts)
}

func datedCandidate(title string, age time.Duration) feed.Candidate {
	ts := time.Now().Add(-age)
	return feed.Candidate{
		Title:      title,
		URL:        "https://ejemplo.com/2024/" + slug.Key(title),
		Domain:     "ejemplo.com",
		Discovered: &ts,
	}
}

func TestRunHonorsQuotaAndRecency(t *testing.T) {
	store := &fakeStore{}
	s := newScheduler(store, &stubEnricher{}, Options{Quota: 3})

	var candidates []feed.Candidate
	// Oldest first on purpose; ranking must invert this.
	for i := 6; i >= 1; i-- {
		candidates = append(candidates, datedCandidate(fmt.Sprintf("Crónica número %d del torneo", i), time.Duration(i)*time.Hour))
	}

	published, err := s.Run(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 3 {
		t.Fatalf("published = %d, want 3", published)
	}
	if len(store.inserted) != 3 {
		t.Fatalf("inserted = %d, want 3", len(store.inserted))
	}
	for i, wantNum := range []int{1, 2, 3} {
		want := fmt.Sprintf("Crónica número %d del torneo", wantNum)
		if store.inserted[i].Title != want {
			t.Errorf("insert %d: title = %q, want %q (newest first)", i, store.inserted[i].Title, want)
		}
	}
}

func TestRunPublishesFewerThanQuotaWhenListIsShort(t *testing.T) {
	store := &fakeStore{}
	s := newScheduler(store, &stubEnricher{}, Options{Quota: 5})

	candidates := []feed.Candidate{
		datedCandidate("Primera crónica del día de hoy", time.Hour),
		datedCandidate("Segunda crónica del día de hoy", 2*time.Hour),
	}
	published, err := s.Run(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 2 {
		t.Errorf("published = %d, want 2", published)
	}
}

func TestRunUndatedPolicy(t *testing.T) {
	undated := feed.Candidate{Title: "Nota sin fecha conocida", URL: "https://ejemplo.com/noticias/sin-fecha", Domain: "ejemplo.com"}
	dated := datedCandidate("Nota fechada de esta mañana", time.Hour)

	store := &fakeStore{}
	s := newScheduler(store, &stubEnricher{}, Options{Quota: 5})
	published, err := s.Run(context.Background(), []feed.Candidate{undated, dated})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 1 {
		t.Fatalf("published = %d, want 1 (undated excluded by default)", published)
	}
	if store.inserted[0].Title != dated.Title {
		t.Errorf("published %q, want the dated candidate", store.inserted[0].Title)
	}

	store = &fakeStore{}
	s = newScheduler(store, &stubEnricher{}, Options{Quota: 5, IncludeUndated: true})
	published, err = s.Run(context.Background(), []feed.Candidate{undated, dated})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 2 {
		t.Fatalf("published = %d, want 2 with IncludeUndated", published)
	}
	if store.inserted[1].Title != undated.Title {
		t.Errorf("undated candidate not ranked last: %q", store.inserted[1].Title)
	}
}

func TestRunSkipsPersistedDuplicates(t *testing.T) {
	title := "Gol histórico en el clásico de la capital"
	store := &fakeStore{existing: map[string]bool{slug.Key(title): true}}
	s := newScheduler(store, &stubEnricher{}, Options{})

	published, err := s.Run(context.Background(), []feed.Candidate{datedCandidate(title, time.Hour)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 0 || len(store.inserted) != 0 {
		t.Errorf("duplicate was published (published=%d inserted=%d)", published, len(store.inserted))
	}
}

func TestRunSkipsInRunDuplicates(t *testing.T) {
	store := &fakeStore{}
	s := newScheduler(store, &stubEnricher{}, Options{})

	a := datedCandidate("La Misma Noticia repetida en dos portales", time.Hour)
	b := datedCandidate("¡la misma noticia REPETIDA en dos portales!", 2*time.Hour)
	b.URL = "https://otro.com/2024/la-misma"

	published, err := s.Run(context.Background(), []feed.Candidate{a, b})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 1 {
		t.Errorf("published = %d, want 1 (same identity key)", published)
	}
}

func TestRunChecksIdentityAgainAfterRewrite(t *testing.T) {
	existingTitle := "El título ya publicado la semana pasada"
	store := &fakeStore{existing: map[string]bool{slug.Key(existingTitle): true}}
	enricher := &stubEnricher{retitle: func(string) string { return existingTitle }}
	s := newScheduler(store, enricher, Options{})

	published, err := s.Run(context.Background(), []feed.Candidate{
		datedCandidate("Un título completamente distinto al publicado", time.Hour),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 0 || len(store.inserted) != 0 {
		t.Error("rewrite collided with a persisted slug but was still published")
	}
}

func TestRunCountsGateDropsAgainstNothing(t *testing.T) {
	store := &fakeStore{}
	s := newScheduler(store, &stubEnricher{dropReason: "no usable image"}, Options{Quota: 2})

	published, err := s.Run(context.Background(), []feed.Candidate{
		datedCandidate("Primera crónica del día de hoy", time.Hour),
		datedCandidate("Segunda crónica del día de hoy", 2*time.Hour),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 0 || len(store.inserted) != 0 {
		t.Errorf("dropped candidates were persisted (published=%d)", published)
	}
}

func TestRunAbortsAfterRepeatedPersistFailures(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	s := newScheduler(store, &stubEnricher{}, Options{Quota: 10})

	var candidates []feed.Candidate
	for i := 1; i <= 5; i++ {
		candidates = append(candidates, datedCandidate(fmt.Sprintf("Crónica número %d del torneo", i), time.Duration(i)*time.Hour))
	}

	published, err := s.Run(context.Background(), candidates)
	if err == nil {
		t.Fatal("Run succeeded with a store that rejects every insert")
	}
	if published != 0 {
		t.Errorf("published = %d, want 0", published)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{}
	s := newScheduler(store, &stubEnricher{}, Options{})

	published, err := s.Run(ctx, []feed.Candidate{datedCandidate("Crónica del día de hoy en el estadio", time.Hour)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if published != 0 || len(store.inserted) != 0 {
		t.Error("work done after cancellation")
	}
}

func TestRunPacesBetweenSaves(t *testing.T) {
	store := &fakeStore{}
	s := newScheduler(store, &stubEnricher{}, Options{Quota: 2, Delay: 50 * time.Millisecond})

	start := time.Now()
	published, err := s.Run(context.Background(), []feed.Candidate{
		datedCandidate("Primera crónica del día de hoy", time.Hour),
		datedCandidate("Segunda crónica del día de hoy", 2*time.Hour),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 2 {
		t.Fatalf("published = %d, want 2", published)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("run finished in %v, pacing delay not applied", elapsed)
	}
}

type pipelineGenerator struct{}

func (pipelineGenerator) RewriteTitle(_ context.Context, _ string) (string, error) {
	return "Victoria clave en la lucha por laliga esta temporada", nil
}

func (pipelineGenerator) GenerateContent(_ context.Context, _, _ string) (string, error) {
	return strings.Repeat("El partido de fútbol dejó goles y una gran actuación del real madrid en españa. ", 5), nil
}

// The full path: portal page to persisted article, with only the store and
// the text generation faked.
func TestPipelineEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article>
<a href="/2024/06/victoria-clave">Una victoria clave que cambia el rumbo de la temporada</a>
<time datetime="2024-06-02T12:00:00Z">2 de junio</time>
</article></body></html>`)
	})
	mux.HandleFunc("/2024/06/victoria-clave", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
<meta property="og:image" content="https://cdn.ejemplo.com/victoria.jpg">
</head><body>nota</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	crawler := feed.NewCrawler(5*time.Second, 2, "test-agent")
	candidates := crawler.Discover(context.Background(), []config.Source{{URL: srv.URL}})
	if len(candidates) != 1 {
		t.Fatalf("discovered %d candidates, want 1", len(candidates))
	}

	store := &fakeStore{}
	enricher := enrich.New(
		pipelineGenerator{},
		ai.NewBudget(0, 0, 0),
		enrich.NewImageResolver(5*time.Second, "test-agent", []string{"espncdn.com"}),
	)
	s := New(store, dedup.NewIndex(store), enricher, classify.Default(), Options{
		Quota: 5,
		Retry: retry.Config{MaxAttempts: 1},
	})

	published, err := s.Run(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if published != 1 || len(store.inserted) != 1 {
		t.Fatalf("published = %d, inserted = %d, want 1", published, len(store.inserted))
	}

	a := store.inserted[0]
	if a.Title != "Victoria clave en la lucha por laliga esta temporada" {
		t.Errorf("title = %q, want the rewritten title", a.Title)
	}
	if a.Slug != slug.Key(a.Title) {
		t.Errorf("slug = %q, want the identity key of the final title", a.Slug)
	}
	if a.Status != "draft" {
		t.Errorf("status = %q, want draft", a.Status)
	}
	if a.Author != "Noirs Virals" {
		t.Errorf("author = %q", a.Author)
	}
	if a.Language != "es" {
		t.Errorf("language = %q, want es", a.Language)
	}
	if a.League != "La Liga" {
		t.Errorf("league = %q, want La Liga", a.League)
	}
	if a.Country != "España" {
		t.Errorf("country = %q, want España", a.Country)
	}
	if a.Team != "Real Madrid" {
		t.Errorf("team = %q, want Real Madrid", a.Team)
	}
	if a.ImageURL != "https://cdn.ejemplo.com/victoria.jpg" {
		t.Errorf("image = %q", a.ImageURL)
	}
	if a.SourceURL != srv.URL+"/2024/06/victoria-clave" {
		t.Errorf("source URL = %q", a.SourceURL)
	}
	if a.Summary == "" || !strings.HasSuffix(a.Summary, "...") {
		t.Errorf("summary = %q, want a truncated summary", a.Summary)
	}
	if a.RelevanceScore <= 0 {
		t.Errorf("relevance score = %d, want positive", a.RelevanceScore)
	}
	if len(a.Tags) == 0 {
		t.Error("no tags extracted")
	}
	if a.PublishedAt.IsZero() || a.CreatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}
