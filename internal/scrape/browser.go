package scrape

import (
	"github.com/chromedp/chromedp"
)

// defaultUserAgent is a realistic desktop Chrome UA. Medium serves a degraded
// or bot-challenge variant to obviously automated clients.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// allocatorOptions returns the Chrome launch flags used for every scrape.
// Sandboxing is disabled because the service runs in a container without the
// privileges the Chrome sandbox needs; /dev/shm is tiny in most container
// runtimes, hence disable-dev-shm-usage.
func allocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.UserAgent(defaultUserAgent),
		chromedp.WindowSize(1920, 1080),
	)
}
