package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mandate/blog_service/internal/auth"
	dbtypes "github.com/mandate/blog_service/internal/db"
	"github.com/mandate/blog_service/internal/scrape"
	"github.com/mandate/blog_service/internal/store"
	"github.com/mandate/blog_service/pkg/models"
)

var (
	// ErrUnsupportedSource rejects import URLs outside the allow-listed
	// publishing platforms before any browser work starts.
	ErrUnsupportedSource = errors.New("please provide a valid Medium URL (medium.com or Medium publication)")

	// ErrInvalidCredentials is returned by Login on a wrong password.
	ErrInvalidCredentials = errors.New("invalid password")
)

// sessionTTL is how long an issued admin token stays valid.
const sessionTTL = 7 * 24 * time.Hour

const cacheTTL = 5 * time.Minute

type ArticleStore interface {
	Insert(*models.Article) error
	Update(*models.Article) error
	GetByID(id int64) (*models.Article, error)
	FindBySlug(slug string) (*models.Article, error)
	ListPublished(cursor int64, limit int) ([]*models.Article, error)
	ListAll(cursor int64, limit int) ([]*models.Article, error)
	PublishedForSitemap() ([]*models.Article, error)
}

// ArticleScraper runs the import extraction pipeline for one URL.
type ArticleScraper interface {
	Scrape(ctx context.Context, sourceURL string) (*scrape.Extraction, error)
	RunDiagnostics(ctx context.Context, testURL string) *scrape.DiagnosticsReport
}

type Service struct {
	repo     ArticleStore
	rdb      *redis.Client
	scraper  ArticleScraper
	verifier *auth.Verifier
	logger   *slog.Logger

	adminPassword string
	siteBaseURL   string
	allowedHosts  []string
}

type Settings struct {
	AdminPassword string
	SiteBaseURL   string
	AllowedHosts  []string
}

// NewService wires the use cases. rdb may be nil, in which case reads go
// straight to the store.
func NewService(repo ArticleStore, rdb *redis.Client, scraper ArticleScraper, verifier *auth.Verifier, logger *slog.Logger, settings Settings) *Service {
	return &Service{
		repo:          repo,
		rdb:           rdb,
		scraper:       scraper,
		verifier:      verifier,
		logger:        logger,
		adminPassword: settings.AdminPassword,
		siteBaseURL:   strings.TrimRight(settings.SiteBaseURL, "/"),
		allowedHosts:  settings.AllowedHosts,
	}
}

// Login checks the shared admin password and issues a session token.
func (s *Service) Login(password string) (string, error) {
	if s.adminPassword == "" {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return "", ErrInvalidCredentials
	}
	return s.verifier.Issue(sessionTTL)
}

// Import runs the whole import pipeline for one source URL: allow-list check,
// scrape, slug derivation, insert. Nothing is written on any failure, and a
// second import of the same source conflicts on the slug by design.
func (s *Service) Import(ctx context.Context, sourceURL string, publishNow bool) (*models.Article, error) {
	if !s.sourceAllowed(sourceURL) {
		return nil, ErrUnsupportedSource
	}

	ext, err := s.scraper.Scrape(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	slug := Slugify(ext.Title)
	if _, err := s.repo.FindBySlug(slug); err == nil {
		return nil, store.ErrSlugExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	art := &models.Article{
		Title:     ext.Title,
		Slug:      slug,
		Content:   ext.Content,
		Author:    ext.Author,
		Published: publishNow,
		SourceURL: sourceURL,
	}
	if publishNow {
		art.PublishedAt = dbtypes.NullTimeFrom(time.Now().UTC())
	}
	if err := s.repo.Insert(art); err != nil {
		return nil, err
	}

	s.logger.Info("article imported",
		"id", art.ID,
		"slug", art.Slug,
		"author", art.Author,
		"published", art.Published,
		"source_url", sourceURL,
	)
	s.invalidateCache(ctx, art.Slug)
	return art, nil
}

// Diagnostics self-tests the import pipeline without writing data.
func (s *Service) Diagnostics(ctx context.Context, testURL string) *scrape.DiagnosticsReport {
	return s.scraper.RunDiagnostics(ctx, testURL)
}

type ArticleInput struct {
	Title     string
	Content   string
	Author    string
	Published bool
}

// Create stores a hand-written article with the same slug derivation and
// conflict rule as imports.
func (s *Service) Create(ctx context.Context, in ArticleInput) (*models.Article, error) {
	slug := Slugify(in.Title)
	if _, err := s.repo.FindBySlug(slug); err == nil {
		return nil, store.ErrSlugExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	art := &models.Article{
		Title:     in.Title,
		Slug:      slug,
		Content:   in.Content,
		Author:    in.Author,
		Published: in.Published,
	}
	if in.Published {
		art.PublishedAt = dbtypes.NullTimeFrom(time.Now().UTC())
	}
	if err := s.repo.Insert(art); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, art.Slug)
	return art, nil
}

// Update rewrites an article, re-deriving the slug and re-checking its
// uniqueness against all other records. publishedAt is set on the false→true
// transition and cleared on true→false.
func (s *Service) Update(ctx context.Context, id int64, in ArticleInput) (*models.Article, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	newSlug := Slugify(in.Title)
	if newSlug != existing.Slug {
		if _, err := s.repo.FindBySlug(newSlug); err == nil {
			return nil, store.ErrSlugExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	publishedAt := existing.PublishedAt
	if in.Published && !existing.Published {
		publishedAt = dbtypes.NullTimeFrom(time.Now().UTC())
	} else if !in.Published {
		publishedAt = dbtypes.NullTime{}
	}

	oldSlug := existing.Slug
	existing.Title = in.Title
	existing.Slug = newSlug
	existing.Content = in.Content
	existing.Author = in.Author
	existing.Published = in.Published
	existing.PublishedAt = publishedAt

	if err := s.repo.Update(existing); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, oldSlug, newSlug)
	return existing, nil
}

// ListResult is one page of articles plus the cursor for the next page, if
// any.
type ListResult struct {
	Articles   []*models.Article `json:"articles"`
	NextCursor int64             `json:"next_cursor,omitempty"`
}

func (s *Service) ListPublished(ctx context.Context, cursor int64, limit int) (*ListResult, error) {
	limit = clampLimit(limit)
	key := fmt.Sprintf("articles:front:%d:%d", cursor, limit)
	if cached, ok := s.cacheGetList(ctx, key); ok {
		return cached, nil
	}

	rows, err := s.repo.ListPublished(cursor, limit+1)
	if err != nil {
		return nil, err
	}
	res := paginate(rows, limit)
	s.cacheSet(ctx, key, res)
	return res, nil
}

func (s *Service) ListAdmin(ctx context.Context, cursor int64, limit int) (*ListResult, error) {
	limit = clampLimit(limit)
	rows, err := s.repo.ListAll(cursor, limit+1)
	if err != nil {
		return nil, err
	}
	return paginate(rows, limit), nil
}

// GetBySlug serves the public article page: published articles only.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	key := "article:slug:" + slug
	if cached, ok := s.cacheGetArticle(ctx, key); ok {
		if !cached.Published {
			return nil, store.ErrNotFound
		}
		return cached, nil
	}

	art, err := s.repo.FindBySlug(slug)
	if err != nil {
		return nil, err
	}
	if !art.Published {
		return nil, store.ErrNotFound
	}
	s.cacheSet(ctx, key, art)
	return art, nil
}

// GetBySlugAdmin also returns drafts.
func (s *Service) GetBySlugAdmin(ctx context.Context, slug string) (*models.Article, error) {
	return s.repo.FindBySlug(slug)
}

func (s *Service) sourceAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range s.allowedHosts {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func paginate(rows []*models.Article, limit int) *ListResult {
	res := &ListResult{Articles: rows}
	if len(rows) > limit {
		res.Articles = rows[:limit]
		res.NextCursor = rows[limit-1].ID
	}
	return res
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// cache helpers; redis being down or absent degrades to direct DB reads.

func (s *Service) cacheGetArticle(ctx context.Context, key string) (*models.Article, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	art := &models.Article{}
	if err := json.Unmarshal(raw, art); err != nil {
		return nil, false
	}
	return art, true
}

func (s *Service) cacheGetList(ctx context.Context, key string) (*ListResult, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	res := &ListResult{}
	if err := json.Unmarshal(raw, res); err != nil {
		return nil, false
	}
	return res, true
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (s *Service) invalidateCache(ctx context.Context, slugs ...string) {
	if s.rdb == nil {
		return
	}
	keys := []string{}
	for _, slug := range slugs {
		keys = append(keys, "article:slug:"+slug)
	}
	if front, err := s.rdb.Keys(ctx, "articles:front:*").Result(); err == nil {
		keys = append(keys, front...)
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", "error", err)
	}
}
