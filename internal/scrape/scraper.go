package scrape

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	// defaultNavigationTimeout bounds navigate + DOMContentLoaded for one
	// page load. The settle delay and capture run outside this budget.
	defaultNavigationTimeout = 60 * time.Second

	// defaultSettleDelay is the fixed wait after DOMContentLoaded. Medium
	// streams the article body in after the initial paint, so extraction
	// against the initial DOM would come up near-empty.
	defaultSettleDelay = 5 * time.Second

	minTitleLen   = 3
	minContentLen = 100
)

// Scraper drives a headless browser to turn a source URL into an Extraction.
// Each Scrape call launches and tears down its own browser instance; nothing
// is pooled or shared between calls.
type Scraper struct {
	logger      *slog.Logger
	navTimeout  time.Duration
	settleDelay time.Duration
}

type Option func(*Scraper)

// WithNavigationTimeout overrides the per-page navigation timeout.
func WithNavigationTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.navTimeout = d }
}

// WithSettleDelay overrides the post-load settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Scraper) { s.settleDelay = d }
}

func New(logger *slog.Logger, opts ...Option) *Scraper {
	s := &Scraper{
		logger:      logger,
		navTimeout:  defaultNavigationTimeout,
		settleDelay: defaultSettleDelay,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// renderedPage is what navigation hands to extraction: the post-settle HTML
// snapshot plus the outcome metadata used for failure classification.
type renderedPage struct {
	HTML    string
	Title   string
	Status  int64
	Elapsed time.Duration
}

// Scrape runs the whole import extraction pipeline for one URL: launch,
// navigate, settle, capture, extract, validate. The browser and page are
// released on every exit path before any error propagates.
func (s *Scraper) Scrape(ctx context.Context, sourceURL string) (*Extraction, error) {
	rp, err := s.loadPage(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rp.HTML))
	if err != nil {
		return nil, &PageLoadError{URL: sourceURL, Reason: "unparseable page HTML: " + err.Error()}
	}

	ext := ExtractArticle(doc)
	ext.Diagnostics.PageURL = sourceURL
	ext.Diagnostics.PageTitle = rp.Title

	s.logger.Info("extraction complete",
		"url", sourceURL,
		"status", rp.Status,
		"elapsed", rp.Elapsed,
		"title_selector", ext.Diagnostics.TitleSelector,
		"author_selector", ext.Diagnostics.AuthorSelector,
		"content_strategy", ext.Diagnostics.ContentStrategy,
		"element_count", ext.Diagnostics.ElementCount,
		"content_length", utf8.RuneCountInString(ext.Content),
	)

	if err := validateExtraction(ext); err != nil {
		s.logger.Error("extraction validation failed",
			"url", sourceURL,
			"page_title", rp.Title,
			"title", ext.Title,
			"content_length", utf8.RuneCountInString(ext.Content),
			"error", err,
		)
		return nil, err
	}
	return ext, nil
}

// loadPage launches a browser, navigates and captures the rendered page.
// Deferred cancels release page and browser exactly once on every path.
func (s *Scraper) loadPage(ctx context.Context, sourceURL string) (*renderedPage, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// Running an empty task list forces the browser process to start, so a
	// launch failure is reported as such instead of as a navigation failure.
	if err := chromedp.Run(browserCtx); err != nil {
		s.logger.Error("browser launch failed", "error", err)
		return nil, &BrowserLaunchError{Err: err}
	}

	var status int64
	domLoaded := make(chan struct{}, 1)
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			// Only the main document response classifies the load outcome.
			if e.Type == network.ResourceTypeDocument {
				atomic.CompareAndSwapInt64(&status, 0, int64(e.Response.Status))
			}
		case *page.EventDomContentEventFired:
			select {
			case domLoaded <- struct{}{}:
			default:
			}
		}
	})

	// The navigation timeout covers only navigate + DOMContentLoaded; the
	// settle delay and capture run outside it so a page that finishes near
	// the limit is not pushed over by the fixed sleep.
	navCtx, cancelNav := context.WithTimeout(browserCtx, s.navTimeout)
	defer cancelNav()

	start := time.Now()
	err := chromedp.Run(navCtx,
		network.Enable(),
		// Navigate without waiting for the full load event: Medium-style
		// pages stream content long after initial paint.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errText, err := page.Navigate(sourceURL).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return errors.New(errText)
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-domLoaded:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
	)
	if err != nil {
		elapsed := time.Since(start)
		finalStatus := atomic.LoadInt64(&status)
		s.logger.Error("navigation failed",
			"url", sourceURL,
			"status", finalStatus,
			"elapsed", elapsed,
			"error", err,
		)
		return nil, classifyNavigationError(err, sourceURL, finalStatus, s.navTimeout)
	}

	var pageTitle, html string
	err = chromedp.Run(browserCtx,
		chromedp.Sleep(s.settleDelay),
		chromedp.Title(&pageTitle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	elapsed := time.Since(start)
	finalStatus := atomic.LoadInt64(&status)

	if err != nil {
		s.logger.Error("page capture failed", "url", sourceURL, "status", finalStatus, "error", err)
		return nil, &PageLoadError{URL: sourceURL, Status: finalStatus, Reason: "failed to capture rendered page: " + err.Error()}
	}

	if finalStatus >= 400 {
		return nil, &PageLoadError{URL: sourceURL, Status: finalStatus, PageTitle: pageTitle}
	}
	if bad, reason := badPageTitle(pageTitle); bad {
		return nil, &PageLoadError{URL: sourceURL, Status: finalStatus, PageTitle: pageTitle, Reason: reason}
	}

	s.logger.Info("page loaded", "url", sourceURL, "status", finalStatus, "elapsed", elapsed, "page_title", pageTitle)
	return &renderedPage{HTML: html, Title: pageTitle, Status: finalStatus, Elapsed: elapsed}, nil
}

// classifyNavigationError sorts a failed navigation into the error taxonomy:
// a blown deadline is a timeout, a Chromium net-layer failure means the site
// was never reached, and anything else is a page load failure.
func classifyNavigationError(err error, sourceURL string, status int64, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &NavigationTimeoutError{URL: sourceURL, Timeout: timeout}
	}
	if reason := err.Error(); isConnectionErrText(reason) {
		return &ConnectionError{URL: sourceURL, Reason: reason}
	}
	return &PageLoadError{URL: sourceURL, Status: status, Reason: err.Error()}
}

// connectionErrTexts are the Chromium net errors that occur before any
// response arrives: DNS and connection-level failures.
var connectionErrTexts = []string{
	"net::ERR_NAME_NOT_RESOLVED",
	"net::ERR_CONNECTION_REFUSED",
	"net::ERR_CONNECTION_TIMED_OUT",
	"net::ERR_CONNECTION_RESET",
	"net::ERR_ADDRESS_UNREACHABLE",
	"net::ERR_INTERNET_DISCONNECTED",
	"net::ERR_PROXY_CONNECTION_FAILED",
}

func isConnectionErrText(reason string) bool {
	for _, t := range connectionErrTexts {
		if strings.Contains(reason, t) {
			return true
		}
	}
	return false
}

// badPageTitle flags titles that indicate an error page served with a 2xx
// status, which Medium does for some missing or gated articles.
func badPageTitle(title string) (bool, string) {
	lower := strings.ToLower(title)
	switch {
	case title == "":
		return true, "empty page title"
	case strings.Contains(lower, "error"):
		return true, "page title indicates an error page"
	case strings.Contains(lower, "not found"):
		return true, "page title indicates a missing page"
	}
	return false, ""
}

// validateExtraction applies the minimum-length floors. Both are counted in
// characters, not bytes, so non-ASCII titles and bodies measure the same as
// ASCII ones.
func validateExtraction(ext *Extraction) error {
	if utf8.RuneCountInString(strings.TrimSpace(ext.Title)) < minTitleLen {
		return &ValidationError{Field: "title", Value: ext.Title}
	}
	if n := utf8.RuneCountInString(ext.Content); n < minContentLen {
		return &ValidationError{Field: "content", Length: n}
	}
	return nil
}
