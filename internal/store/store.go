package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mandate/blog_service/pkg/models"
)

var (
	// ErrNotFound is returned when no article matches the lookup.
	ErrNotFound = errors.New("article not found")

	// ErrSlugExists is returned when an insert or update would reuse an
	// existing slug. The caller should rename the article; nothing is
	// overwritten.
	ErrSlugExists = errors.New("an article with this title already exists")
)

// uniqueViolation is the Postgres error code backing the slug invariant.
const uniqueViolation = "23505"

type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS articles(
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  content TEXT NOT NULL,
  author TEXT NOT NULL,
  published BOOLEAN NOT NULL DEFAULT FALSE,
  published_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  source_url TEXT
);

CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published, published_at DESC);
CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created_at DESC);
`
	_, err := db.Exec(initSQL)
	return err
}

const articleColumns = "id, title, slug, content, author, published, published_at, created_at, COALESCE(source_url, '') AS source_url"

// Insert writes a new article row and fills in the assigned id and creation
// timestamp. A slug collision aborts the insert with ErrSlugExists.
func (p *PgStore) Insert(a *models.Article) error {
	query := `
INSERT INTO articles (title, slug, content, author, published, published_at, source_url)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''))
RETURNING id, created_at
`
	err := p.db.QueryRow(query,
		a.Title,
		a.Slug,
		a.Content,
		a.Author,
		a.Published,
		a.PublishedAt,
		a.SourceURL,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrSlugExists
		}
		return fmt.Errorf("insert article slug=%s: %w", a.Slug, err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing article.
func (p *PgStore) Update(a *models.Article) error {
	query := `
UPDATE articles
SET title=$1, slug=$2, content=$3, author=$4, published=$5, published_at=$6
WHERE id=$7
`
	res, err := p.db.Exec(query,
		a.Title,
		a.Slug,
		a.Content,
		a.Author,
		a.Published,
		a.PublishedAt,
		a.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrSlugExists
		}
		return fmt.Errorf("update article id=%d: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PgStore) GetByID(id int64) (*models.Article, error) {
	a := &models.Article{}
	query := fmt.Sprintf("SELECT %s FROM articles WHERE id = $1", articleColumns)
	if err := p.db.Get(a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (p *PgStore) FindBySlug(slug string) (*models.Article, error) {
	a := &models.Article{}
	query := fmt.Sprintf("SELECT %s FROM articles WHERE slug = $1", articleColumns)
	if err := p.db.Get(a, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListPublished returns published articles newest-first using keyset
// pagination: cursor 0 starts from the top, otherwise rows with id < cursor.
func (p *PgStore) ListPublished(cursor int64, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows := []*models.Article{}
	query := fmt.Sprintf(`
SELECT %s FROM articles
WHERE published = TRUE AND ($1 = 0 OR id < $1)
ORDER BY id DESC
LIMIT $2
`, articleColumns)
	err := p.db.Select(&rows, query, cursor, limit)
	return rows, err
}

// ListAll is the admin view: drafts included, newest-first.
func (p *PgStore) ListAll(cursor int64, limit int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows := []*models.Article{}
	query := fmt.Sprintf(`
SELECT %s FROM articles
WHERE $1 = 0 OR id < $1
ORDER BY id DESC
LIMIT $2
`, articleColumns)
	err := p.db.Select(&rows, query, cursor, limit)
	return rows, err
}

// PublishedForSitemap returns slug and timestamps for every published
// article, newest-first.
func (p *PgStore) PublishedForSitemap() ([]*models.Article, error) {
	rows := []*models.Article{}
	query := `
SELECT id, title, slug, content, author, published, published_at, created_at, COALESCE(source_url, '') AS source_url
FROM articles
WHERE published = TRUE
ORDER BY published_at DESC NULLS LAST
`
	err := p.db.Select(&rows, query)
	return rows, err
}
