// Package parser implements the Parser Consumer (PC): a pure HTML/text
// parser and the consumer loop that drains the fetch handoff queue,
// persists extracted text, writes the visited record, and hands
// discovered links back to the Frontier Manager.
package parser

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentSelectors lists elements stripped before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer"

// Parsed is the external Parser contract's return value (spec §6.1):
// extracted text, discovered absolute links, and an optional title.
type Parsed struct {
	Text            string
	Title           string
	DiscoveredLinks []string
}

// Parse is the Parser contract: a pure function of raw bytes and the
// page's base URL. It never performs I/O. Non-HTML content types
// (content_type not containing "html") are passed through as raw text
// with no link discovery, since goquery has nothing to walk.
func Parse(raw []byte, baseURL, contentType string) Parsed {
	if !strings.Contains(strings.ToLower(contentType), "html") {
		return Parsed{Text: strings.TrimSpace(string(raw))}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Parsed{Text: strings.TrimSpace(string(raw))}
	}

	return Parsed{
		Title:           extractTitle(doc),
		Text:            extractBodyText(doc),
		DiscoveredLinks: discoverLinks(doc, baseURL),
	}
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}
	return ""
}

// extractBodyText prefers <article> content, falling back to <body>
// with script/style/nav/header/footer stripped.
func extractBodyText(doc *goquery.Document) string {
	article := doc.Find("article").First()
	if article.Length() > 0 {
		article.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(article.Text())
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		body.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(body.Text())
	}

	return ""
}

// discoverLinks resolves every a[href] against base and returns the
// absolute http(s) URLs, deduplicated and in document order.
func discoverLinks(doc *goquery.Document, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := baseURL.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""

		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links
}
