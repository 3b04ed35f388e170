package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Article is the persisted entity. Country, team and summary may be absent.
type Article struct {
	Title          string
	Slug           string
	Content        string
	ImageURL       string
	SourceURL      string
	SourceDomain   string
	Author         string
	Status         string
	Category       string
	League         string
	Country        string
	Team           string
	Tags           []string
	Summary        string
	RelevanceScore int
	Language       string
	PublishedAt    time.Time
	CreatedAt      time.Time
}

// Store persists articles in PostgreSQL. The pipeline only ever checks
// existence and appends single rows; there are no updates or deletes.
type Store struct {
	db *sql.DB
}

// New connects to the database and makes sure the schema exists.
func New(connectionString string) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS news (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT,
		source_url TEXT NOT NULL,
		source VARCHAR(100),
		author VARCHAR(100),
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		category VARCHAR(100),
		league VARCHAR(100),
		country VARCHAR(100),
		team VARCHAR(100),
		tags TEXT[],
		summary TEXT,
		relevance_score INTEGER,
		language VARCHAR(10),
		published_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_news_slug ON news(slug);
	CREATE INDEX IF NOT EXISTS idx_news_source_url ON news(source_url);
	CREATE INDEX IF NOT EXISTS idx_news_published_at ON news(published_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ExistsByIdentity reports whether an article with the given identity key
// or the given normalized source URL is already persisted. The OR keeps the
// title-derived key as the primary signal and the URL as the secondary one.
func (s *Store) ExistsByIdentity(ctx context.Context, slug, sourceURL string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM news WHERE slug = $1 OR source_url = $2`
	if err := s.db.QueryRowContext(ctx, query, slug, sourceURL).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return count > 0, nil
}

// Insert appends one article row.
func (s *Store) Insert(ctx context.Context, a *Article) error {
	query := `
		INSERT INTO news (
			title, slug, content, image_url, source_url, source, author,
			status, category, league, country, team, tags, summary,
			relevance_score, language, published_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.Title, a.Slug, a.Content, a.ImageURL, a.SourceURL, a.SourceDomain,
		a.Author, a.Status, a.Category, a.League,
		nullable(a.Country), nullable(a.Team), pq.Array(a.Tags),
		nullable(a.Summary), a.RelevanceScore, a.Language,
		a.PublishedAt, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
