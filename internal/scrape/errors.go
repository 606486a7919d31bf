package scrape

import (
	"fmt"
	"time"
)

// BrowserLaunchError means the headless browser process could not start.
// This is an infrastructure problem, not something the caller can correct.
type BrowserLaunchError struct {
	Err error
}

func (e *BrowserLaunchError) Error() string {
	return fmt.Sprintf("browser launch failed: %v", e.Err)
}

func (e *BrowserLaunchError) Unwrap() error { return e.Err }

// NavigationTimeoutError means the page did not finish loading within the
// navigation timeout. Kept distinct from PageLoadError so callers can tell
// "took too long" apart from "not accessible".
type NavigationTimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s timed out after %s", e.URL, e.Timeout)
}

// ConnectionError means the source site could not be reached at all: DNS
// resolution failed or the connection was refused before any response. Like
// BrowserLaunchError this points at infrastructure, not at the URL.
type ConnectionError struct {
	URL    string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to %s: %s", e.URL, e.Reason)
}

// PageLoadError means the page was reachable but unusable: HTTP status >= 400,
// a navigation failure, or an error/not-found page title.
type PageLoadError struct {
	URL       string
	Status    int64
	PageTitle string
	Reason    string
}

func (e *PageLoadError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("failed to load page %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("failed to load page %s: %s", e.URL, e.Reason)
}

// ValidationError means the page loaded but extraction did not recover enough
// content to trust. Field is "title" or "content". For a title failure Value
// carries the best-effort extracted title (possibly empty); for a content
// failure Length carries the number of characters actually recovered.
type ValidationError struct {
	Field  string
	Value  string
	Length int
}

func (e *ValidationError) Error() string {
	if e.Field == "title" {
		return fmt.Sprintf("could not extract article title: found %q; the page might not be accessible, behind a paywall, or the content structure has changed", e.Value)
	}
	return fmt.Sprintf("could not extract sufficient article content: found %d characters; the article might be behind a paywall, require login, or the content structure has changed", e.Length)
}
