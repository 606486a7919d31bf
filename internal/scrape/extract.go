package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction holds the fields recovered from one page. It lives only for the
// duration of a single import call; Diagnostics records which strategy
// satisfied each field for failure diagnosis.
type Extraction struct {
	Title   string
	Author  string
	Content string

	Diagnostics Diagnostics
}

// Diagnostics describes how an extraction was satisfied.
type Diagnostics struct {
	TitleSelector   string
	AuthorSelector  string
	ContentStrategy string
	ElementCount    int
	PageURL         string
	PageTitle       string
}

const unknownAuthor = "Unknown Author"

// Medium's markup is not a stable contract, so every field is extracted by an
// ordered list of candidate selectors: platform-specific structural selectors
// first, generic ones last, first non-empty match wins.
var titleSelectors = []string{
	`h1[data-testid="storyTitle"]`,
	`[data-testid="storyTitle"]`,
	`article h1`,
	`.graf--title`,
	`[data-testid="headerTitle"]`,
	`h1.pw-post-title`,
	`h1[data-testid="post-title"]`,
	`.post-title h1`,
	`h1`,
}

var authorSelectors = []string{
	`[data-testid="authorName"]`,
	`a[rel="author"]`,
	`[data-testid="storyAuthorName"]`,
	`.author-name`,
	`a[data-testid="authorName"]`,
	`.pw-author-name`,
	`[data-testid="author-name"]`,
	`.author a`,
}

// contentStrategy is one candidate rule for locating the article body. Scoped
// strategies query inside a single container; no scopes means the unscoped
// filtered search (strategy 5).
type contentStrategy struct {
	name   string
	scopes []string
}

var contentStrategies = []contentStrategy{
	{"article", []string{"article"}},
	{"main", []string{"main"}},
	{"story-content", []string{`[data-testid="storyContent"]`, `.story-content`, `.postArticle-content`, `[data-testid="post-content"]`}},
	{"medium-classes", []string{`.postArticle-readMore`, `.section-content`, `.post-content`}},
	{"filtered", nil},
}

const textElements = "p, h1, h2, h3, h4, h5, h6"

// excludedAncestors are page regions that hold boilerplate rather than
// article body; the unscoped strategy drops any element inside them.
const excludedAncestors = `nav, header, footer, .sidebar, [role="banner"], [role="navigation"], .comments, .author-info`

// ExtractArticle recovers title, author and content from a rendered page.
// It never fails: missing fields come back empty (or "Unknown Author") and
// validation decides whether the result is usable.
func ExtractArticle(doc *goquery.Document) *Extraction {
	ext := &Extraction{}
	ext.Title, ext.Diagnostics.TitleSelector = extractTitle(doc)
	ext.Author, ext.Diagnostics.AuthorSelector = extractAuthor(doc)
	ext.Content, ext.Diagnostics.ContentStrategy, ext.Diagnostics.ElementCount = extractContent(doc)
	return ext
}

func extractTitle(doc *goquery.Document) (string, string) {
	for _, sel := range titleSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text, sel
		}
	}
	if v := metaContent(doc, `meta[property="og:title"]`, `meta[name="title"]`); v != "" {
		return v, "meta tag"
	}
	return "", ""
}

func extractAuthor(doc *goquery.Document) (string, string) {
	for _, sel := range authorSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text, sel
		}
	}
	if v := metaContent(doc, `meta[name="author"]`, `meta[property="article:author"]`); v != "" {
		return v, "meta tag"
	}
	// A missing author is not a failure; the article may still be valid.
	return unknownAuthor, ""
}

func extractContent(doc *goquery.Document) (string, string, int) {
	for _, strat := range contentStrategies {
		sel := resolveStrategy(doc, strat)
		if sel == nil || sel.Length() == 0 {
			continue
		}
		return renderMarkdown(sel), strat.name, sel.Length()
	}
	return "", "", 0
}

// resolveStrategy locates the text elements one strategy provides. Scoped
// strategies take the first container selector that matches and holds at
// least one text element, then query only inside that container; pages with
// repeated or nested containers never contribute duplicate paragraphs.
func resolveStrategy(doc *goquery.Document, strat contentStrategy) *goquery.Selection {
	if len(strat.scopes) == 0 {
		return doc.Find(textElements).FilterFunction(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if len(text) <= 20 {
				return false
			}
			return s.Closest(excludedAncestors).Length() == 0
		})
	}
	for _, scope := range strat.scopes {
		container := doc.Find(scope).First()
		if container.Length() == 0 {
			continue
		}
		if sel := container.Find(textElements); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// renderMarkdown concatenates the matched elements in document order:
// headings as #-prefixed lines preserving level, paragraphs as plain lines,
// blank-line separated. Very short fragments are caption/boilerplate noise.
func renderMarkdown(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) <= 10 {
			return
		}
		name := goquery.NodeName(s)
		if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
			level := int(name[1] - '0')
			parts = append(parts, strings.Repeat("#", level)+" "+text)
		} else {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
