package scrape

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

// defaultDiagnosticsURL is a known-good page used to self-test the pipeline.
const defaultDiagnosticsURL = "https://medium.com"

const diagnosticsNavTimeout = 30 * time.Second

// DiagnosticsReport is the result of a pipeline self-test. It never touches
// the article store; it only exercises the browser, navigation, extraction
// and plain network reachability, and derives remediation hints from
// whichever checks failed.
type DiagnosticsReport struct {
	ID          string          `json:"id"`
	Success     bool            `json:"success"`
	Environment EnvironmentInfo `json:"environment"`
	Browser     BrowserChecks   `json:"browser"`
	Network     NetworkChecks   `json:"network"`
	Hints       []string        `json:"recommendations"`
}

type EnvironmentInfo struct {
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	HeapUsedMB uint64 `json:"heap_used_mb"`
	HeapSysMB  uint64 `json:"heap_sys_mb"`
}

type BrowserChecks struct {
	Launch            bool   `json:"launch"`
	Navigation        bool   `json:"navigation"`
	ContentExtraction bool   `json:"content_extraction"`
	Error             string `json:"error,omitempty"`
}

type NetworkChecks struct {
	Reachable      bool   `json:"reachable"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	StatusCode     int64  `json:"status_code"`
	Error          string `json:"error,omitempty"`
}

// RunDiagnostics self-tests the import pipeline against testURL (the default
// Medium front page when empty) without writing any data.
func (s *Scraper) RunDiagnostics(ctx context.Context, testURL string) *DiagnosticsReport {
	if testURL == "" {
		testURL = defaultDiagnosticsURL
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	report := &DiagnosticsReport{
		ID: uuid.New().String(),
		Environment: EnvironmentInfo{
			GoVersion:  runtime.Version(),
			Platform:   runtime.GOOS,
			Arch:       runtime.GOARCH,
			HeapUsedMB: mem.HeapAlloc / 1024 / 1024,
			HeapSysMB:  mem.HeapSys / 1024 / 1024,
		},
	}

	s.checkBrowser(ctx, testURL, report)
	s.checkReachability(ctx, testURL, report)

	report.Success = report.Browser.Launch &&
		report.Browser.Navigation &&
		report.Browser.ContentExtraction &&
		report.Network.Reachable
	report.Hints = remediationHints(report)

	s.logger.Info("diagnostics complete",
		"id", report.ID,
		"success", report.Success,
		"launch", report.Browser.Launch,
		"navigation", report.Browser.Navigation,
		"extraction", report.Browser.ContentExtraction,
		"reachable", report.Network.Reachable,
	)
	return report
}

func (s *Scraper) checkBrowser(ctx context.Context, testURL string, report *DiagnosticsReport) {
	ctx, cancel := context.WithTimeout(ctx, diagnosticsNavTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx); err != nil {
		report.Browser.Error = err.Error()
		return
	}
	report.Browser.Launch = true

	start := time.Now()
	var pageTitle, bodyText string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(testURL),
		chromedp.Title(&pageTitle),
		chromedp.Text("body", &bodyText, chromedp.ByQuery),
	)
	report.Network.ResponseTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		report.Browser.Error = err.Error()
		return
	}
	report.Browser.Navigation = true
	report.Browser.ContentExtraction = pageTitle != "" && strings.TrimSpace(bodyText) != ""
}

func (s *Scraper) checkReachability(ctx context.Context, testURL string, report *DiagnosticsReport) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, testURL, nil)
	if err != nil {
		report.Network.Error = err.Error()
		return
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		report.Network.Error = err.Error()
		return
	}
	defer resp.Body.Close()

	report.Network.StatusCode = int64(resp.StatusCode)
	report.Network.Reachable = resp.StatusCode < 400
}

func remediationHints(report *DiagnosticsReport) []string {
	if report.Success {
		return []string{}
	}
	var hints []string
	if !report.Browser.Launch {
		hints = append(hints, "Browser launch is failing - check that Chrome is installed and the container configuration allows it to start")
	}
	if report.Browser.Launch && !report.Browser.Navigation {
		hints = append(hints, "Network connectivity issues detected - the browser could not reach the target site")
	}
	if report.Browser.Navigation && !report.Browser.ContentExtraction {
		hints = append(hints, "Content extraction is failing - the page loaded but yielded no title or body text")
	}
	if !report.Network.Reachable {
		hints = append(hints, "Target site is not reachable from this server - check outbound network access and DNS")
	}
	return hints
}
