package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate/blog_service/internal/auth"
	"github.com/mandate/blog_service/internal/scrape"
	"github.com/mandate/blog_service/internal/store"
	"github.com/mandate/blog_service/pkg/models"
)

// fakeStore is an in-memory ArticleStore enforcing the slug uniqueness
// invariant the same way the Postgres store does.
type fakeStore struct {
	articles []*models.Article
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (f *fakeStore) Insert(a *models.Article) error {
	for _, existing := range f.articles {
		if existing.Slug == a.Slug {
			return store.ErrSlugExists
		}
	}
	a.ID = f.nextID
	f.nextID++
	a.CreatedAt = time.Now().UTC()
	clone := *a
	f.articles = append(f.articles, &clone)
	return nil
}

func (f *fakeStore) Update(a *models.Article) error {
	for _, existing := range f.articles {
		if existing.ID != a.ID && existing.Slug == a.Slug {
			return store.ErrSlugExists
		}
	}
	for i, existing := range f.articles {
		if existing.ID == a.ID {
			clone := *a
			f.articles[i] = &clone
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetByID(id int64) (*models.Article, error) {
	for _, a := range f.articles {
		if a.ID == id {
			clone := *a
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindBySlug(slug string) (*models.Article, error) {
	for _, a := range f.articles {
		if a.Slug == slug {
			clone := *a
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListPublished(cursor int64, limit int) ([]*models.Article, error) {
	out := []*models.Article{}
	for i := len(f.articles) - 1; i >= 0; i-- {
		a := f.articles[i]
		if !a.Published {
			continue
		}
		if cursor != 0 && a.ID >= cursor {
			continue
		}
		if len(out) >= limit {
			break
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeStore) ListAll(cursor int64, limit int) ([]*models.Article, error) {
	out := []*models.Article{}
	for i := len(f.articles) - 1; i >= 0; i-- {
		a := f.articles[i]
		if cursor != 0 && a.ID >= cursor {
			continue
		}
		if len(out) >= limit {
			break
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeStore) PublishedForSitemap() ([]*models.Article, error) {
	out := []*models.Article{}
	for _, a := range f.articles {
		if a.Published {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

// fakeScraper returns a canned extraction or error without any browser.
type fakeScraper struct {
	ext   *scrape.Extraction
	err   error
	calls int
}

func (f *fakeScraper) Scrape(ctx context.Context, sourceURL string) (*scrape.Extraction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	clone := *f.ext
	return &clone, nil
}

func (f *fakeScraper) RunDiagnostics(ctx context.Context, testURL string) *scrape.DiagnosticsReport {
	return &scrape.DiagnosticsReport{Success: true, Hints: []string{}}
}

func newTestService(repo ArticleStore, scraper ArticleScraper) *Service {
	return NewService(repo, nil, scraper, auth.NewVerifier("test-secret"),
		slog.New(slog.NewTextHandler(io.Discard, nil)), Settings{
			AdminPassword: "hunter2",
			SiteBaseURL:   "https://mandate.app",
			AllowedHosts:  []string{"medium.com", "towardsdatascience.com", "betterprogramming.pub"},
		})
}

func goodExtraction() *scrape.Extraction {
	return &scrape.Extraction{
		Title:   "Stop Losing Revenue to Chargebacks",
		Author:  "Jane Writer",
		Content: strings.Repeat("Substantial article body. ", 20),
	}
}

func TestImportSuccess(t *testing.T) {
	repo := newFakeStore()
	scraper := &fakeScraper{ext: goodExtraction()}
	svc := newTestService(repo, scraper)

	art, err := svc.Import(context.Background(), "https://medium.com/@jane/chargebacks", false)
	require.NoError(t, err)
	assert.Equal(t, "stop-losing-revenue-to-chargebacks", art.Slug)
	assert.Equal(t, "Jane Writer", art.Author)
	assert.Equal(t, "https://medium.com/@jane/chargebacks", art.SourceURL)
	assert.False(t, art.Published)
	assert.False(t, art.PublishedAt.Valid, "no publish timestamp for a draft import")
	assert.NotZero(t, art.ID)
}

func TestImportPublishNow(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	art, err := svc.Import(context.Background(), "https://medium.com/@jane/chargebacks", true)
	require.NoError(t, err)
	assert.True(t, art.Published)
	assert.True(t, art.PublishedAt.Valid)
	assert.WithinDuration(t, time.Now().UTC(), art.PublishedAt.Time, 5*time.Second)
}

func TestImportUnsupportedSource(t *testing.T) {
	repo := newFakeStore()
	scraper := &fakeScraper{ext: goodExtraction()}
	svc := newTestService(repo, scraper)

	urls := []string{
		"https://example.com/some-article",
		"https://evilmedium.com/x",        // no subdomain trickery
		"https://medium.com.evil.org/x",   // suffix spoofing
		"ftp://medium.com/x",              // wrong scheme
		"not a url at all",
	}
	for _, u := range urls {
		_, err := svc.Import(context.Background(), u, false)
		assert.ErrorIs(t, err, ErrUnsupportedSource, "url %q", u)
	}
	assert.Zero(t, scraper.calls, "no browser work before the allow-list check")
}

func TestImportAllowedSubdomain(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	_, err := svc.Import(context.Background(), "https://engineering.medium.com/post", false)
	assert.NoError(t, err)
}

func TestImportPageLoadErrorPropagates(t *testing.T) {
	repo := newFakeStore()
	loadErr := &scrape.PageLoadError{URL: "https://medium.com/x", Status: 404}
	svc := newTestService(repo, &fakeScraper{err: loadErr})

	_, err := svc.Import(context.Background(), "https://medium.com/x", false)

	var plErr *scrape.PageLoadError
	require.ErrorAs(t, err, &plErr)
	assert.EqualValues(t, 404, plErr.Status)

	var vErr *scrape.ValidationError
	assert.False(t, errors.As(err, &vErr), "a 404 is never reported as a validation failure")
	assert.Empty(t, repo.articles, "nothing persisted on failure")
}

func TestImportValidationErrorPropagates(t *testing.T) {
	repo := newFakeStore()
	vErr := &scrape.ValidationError{Field: "content", Length: 0}
	svc := newTestService(repo, &fakeScraper{err: vErr})

	_, err := svc.Import(context.Background(), "https://medium.com/x", false)

	var got *scrape.ValidationError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "content", got.Field)
	assert.Zero(t, got.Length)
	assert.Empty(t, repo.articles)
}

func TestImportDuplicateConflicts(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	first, err := svc.Import(context.Background(), "https://medium.com/@jane/chargebacks", false)
	require.NoError(t, err)

	_, err = svc.Import(context.Background(), "https://medium.com/@jane/chargebacks", false)
	assert.ErrorIs(t, err, store.ErrSlugExists)

	require.Len(t, repo.articles, 1, "exactly one record for that title")
	assert.Equal(t, first.Slug, repo.articles[0].Slug)
}

func TestCreateAndSlugConflict(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	_, err := svc.Create(context.Background(), ArticleInput{
		Title: "Hello, World! — 2024 Guide", Content: "body", Author: "Jane",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2024-guide", repo.articles[0].Slug)

	// Different punctuation, same slug skeleton.
	_, err = svc.Create(context.Background(), ArticleInput{
		Title: "Hello World 2024 Guide", Content: "body", Author: "Jane",
	})
	assert.ErrorIs(t, err, store.ErrSlugExists)
}

func TestUpdatePublishTransitions(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	art, err := svc.Create(context.Background(), ArticleInput{
		Title: "Draft Post", Content: "body", Author: "Jane", Published: false,
	})
	require.NoError(t, err)
	require.False(t, art.PublishedAt.Valid)

	// false→true sets the timestamp.
	updated, err := svc.Update(context.Background(), art.ID, ArticleInput{
		Title: "Draft Post", Content: "body", Author: "Jane", Published: true,
	})
	require.NoError(t, err)
	assert.True(t, updated.Published)
	assert.True(t, updated.PublishedAt.Valid)
	publishedAt := updated.PublishedAt.Time

	// true→true keeps the original timestamp.
	updated, err = svc.Update(context.Background(), art.ID, ArticleInput{
		Title: "Draft Post", Content: "new body", Author: "Jane", Published: true,
	})
	require.NoError(t, err)
	assert.Equal(t, publishedAt, updated.PublishedAt.Time)

	// true→false clears it.
	updated, err = svc.Update(context.Background(), art.ID, ArticleInput{
		Title: "Draft Post", Content: "new body", Author: "Jane", Published: false,
	})
	require.NoError(t, err)
	assert.False(t, updated.Published)
	assert.False(t, updated.PublishedAt.Valid)
}

func TestUpdateReDerivesSlug(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	art, err := svc.Create(context.Background(), ArticleInput{
		Title: "Original Title", Content: "body", Author: "Jane",
	})
	require.NoError(t, err)

	other, err := svc.Create(context.Background(), ArticleInput{
		Title: "Taken Title", Content: "body", Author: "Jane",
	})
	require.NoError(t, err)

	// Renaming onto another article's slug conflicts.
	_, err = svc.Update(context.Background(), art.ID, ArticleInput{
		Title: "Taken Title!", Content: "body", Author: "Jane",
	})
	assert.ErrorIs(t, err, store.ErrSlugExists)

	// Keeping its own title (same slug) is fine.
	_, err = svc.Update(context.Background(), other.ID, ArticleInput{
		Title: "Taken Title", Content: "edited", Author: "Jane",
	})
	assert.NoError(t, err)

	// Renaming to a fresh title re-derives the slug.
	updated, err := svc.Update(context.Background(), art.ID, ArticleInput{
		Title: "Brand New Title", Content: "body", Author: "Jane",
	})
	require.NoError(t, err)
	assert.Equal(t, "brand-new-title", updated.Slug)
}

func TestUpdateNotFound(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	_, err := svc.Update(context.Background(), 999, ArticleInput{
		Title: "Whatever", Content: "body", Author: "Jane",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListPublishedPagination(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), ArticleInput{
			Title: "Post " + string(rune('A'+i)), Content: "body", Author: "Jane", Published: true,
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), ArticleInput{
		Title: "Hidden Draft", Content: "body", Author: "Jane", Published: false,
	})
	require.NoError(t, err)

	page1, err := svc.ListPublished(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, page1.Articles, 2)
	assert.NotZero(t, page1.NextCursor)
	assert.Equal(t, "Post E", page1.Articles[0].Title, "newest first")

	page2, err := svc.ListPublished(context.Background(), page1.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page2.Articles, 2)
	assert.NotEqual(t, page1.Articles[0].ID, page2.Articles[0].ID)

	page3, err := svc.ListPublished(context.Background(), page2.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page3.Articles, 1)
	assert.Zero(t, page3.NextCursor, "no further page")

	for _, page := range []*ListResult{page1, page2, page3} {
		for _, a := range page.Articles {
			assert.NotEqual(t, "Hidden Draft", a.Title, "drafts never appear publicly")
		}
	}
}

func TestGetBySlugHidesDrafts(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	_, err := svc.Create(context.Background(), ArticleInput{
		Title: "Secret Draft", Content: "body", Author: "Jane", Published: false,
	})
	require.NoError(t, err)

	_, err = svc.GetBySlug(context.Background(), "secret-draft")
	assert.ErrorIs(t, err, store.ErrNotFound)

	art, err := svc.GetBySlugAdmin(context.Background(), "secret-draft")
	require.NoError(t, err)
	assert.Equal(t, "Secret Draft", art.Title)
}

func TestLogin(t *testing.T) {
	repo := newFakeStore()
	svc := newTestService(repo, &fakeScraper{ext: goodExtraction()})

	token, err := svc.Login("hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	verifier := auth.NewVerifier("test-secret")
	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	_, err = svc.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
