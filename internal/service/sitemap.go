package service

import (
	"context"
	"fmt"
	"strings"
)

type sitemapURL struct {
	loc        string
	lastmod    string
	changefreq string
	priority   string
}

// staticPages are the marketing routes included in every sitemap, relative to
// the site base URL.
var staticPages = []sitemapURL{
	{loc: "/", changefreq: "weekly", priority: "1.0"},
	{loc: "/how-it-works-ecosystem", changefreq: "monthly", priority: "0.9"},
	{loc: "/use-cases", changefreq: "weekly", priority: "0.9"},
	{loc: "/use-cases/ai-usage-based-billing", changefreq: "monthly", priority: "0.8"},
	{loc: "/developers", changefreq: "monthly", priority: "0.8"},
	{loc: "/blog", changefreq: "daily", priority: "0.8"},
}

// Sitemap renders the XML sitemap: the static marketing pages plus one entry
// per published article with its publish date as lastmod.
func (s *Service) Sitemap(ctx context.Context) (string, error) {
	articles, err := s.repo.PublishedForSitemap()
	if err != nil {
		return "", err
	}

	urls := make([]sitemapURL, 0, len(staticPages)+len(articles))
	for _, p := range staticPages {
		p.loc = s.siteBaseURL + strings.TrimSuffix(p.loc, "/")
		if p.loc == s.siteBaseURL {
			p.loc += "/"
		}
		urls = append(urls, p)
	}
	for _, a := range articles {
		lastmod := a.CreatedAt
		if a.PublishedAt.Valid {
			lastmod = a.PublishedAt.Time
		}
		urls = append(urls, sitemapURL{
			loc:        fmt.Sprintf("%s/blog/%s", s.siteBaseURL, a.Slug),
			lastmod:    lastmod.Format("2006-01-02"),
			changefreq: "monthly",
			priority:   "0.7",
		})
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, u := range urls {
		b.WriteString("  <url>\n")
		fmt.Fprintf(&b, "    <loc>%s</loc>\n", u.loc)
		if u.lastmod != "" {
			fmt.Fprintf(&b, "    <lastmod>%s</lastmod>\n", u.lastmod)
		}
		fmt.Fprintf(&b, "    <changefreq>%s</changefreq>\n", u.changefreq)
		fmt.Fprintf(&b, "    <priority>%s</priority>\n", u.priority)
		b.WriteString("  </url>\n")
	}
	b.WriteString("</urlset>")
	return b.String(), nil
}
