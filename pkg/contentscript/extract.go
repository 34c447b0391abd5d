// Package contentscript is the Go side of the page content script.
//
// It extracts structural signals from a page's HTML, classifies the page and
// produces the analysis payload reported with PAGE_LOADED and ANALYZE_PAGE.
package contentscript

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxTextLength bounds the cleaned text kept for classification.
const DefaultMaxTextLength = 20000

// Extraction holds the signals collected from one document.
type Extraction struct {
	Title       string
	Description string
	OGType      string
	Headings    []string
	WordCount   int

	Links         int
	Forms         int
	SearchInputs  int
	PriceMentions int
	CartButtons   int
	ArticleTags   int
	FeedRegions   int
	ProductSchema bool

	Text      string
	Truncated bool
}

var (
	pricePattern = regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d{2})?`)
	cartPattern  = regexp.MustCompile(`(?i)\b(add to (cart|bag|basket)|buy now)\b`)
)

// Extract parses rawHTML and collects its signals. Cleaned text is cut at
// maxLength bytes; WordCount always covers the whole document.
func Extract(rawHTML string, maxLength int) (*Extraction, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}

	e := &Extraction{
		Title:       extractTitle(doc),
		Description: extractMeta(doc, "name", "description"),
		OGType:      strings.ToLower(extractMeta(doc, "property", "og:type")),
	}

	var text strings.Builder
	walk(doc, e, &text)

	full := strings.Join(strings.Fields(text.String()), " ")
	e.WordCount = len(strings.Fields(full))
	e.PriceMentions = len(pricePattern.FindAllString(full, -1))
	e.Text, e.Truncated = truncate(full, maxLength)
	return e, nil
}

// walk visits n and its children, skipping noise elements.
func walk(n *html.Node, e *Extraction, text *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			text.WriteString(t)
			text.WriteByte(' ')
		}
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) {
			if tag == "script" && strings.Contains(nodeText(n), `"Product"`) && attr(n, "type") == "application/ld+json" {
				e.ProductSchema = true
			}
			return
		}
		inspectElement(n, tag, e)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, e, text)
	}
}

func inspectElement(n *html.Node, tag string, e *Extraction) {
	switch tag {
	case "a":
		if attr(n, "href") != "" {
			e.Links++
		}
	case "form":
		e.Forms++
		if strings.EqualFold(attr(n, "role"), "search") {
			e.SearchInputs++
		}
	case "input":
		typ := strings.ToLower(attr(n, "type"))
		name := strings.ToLower(attr(n, "name"))
		if typ == "search" || name == "q" || name == "query" || name == "search" {
			e.SearchInputs++
		}
	case "button":
		if cartPattern.MatchString(nodeText(n)) {
			e.CartButtons++
		}
	case "article":
		e.ArticleTags++
	case "h1", "h2", "h3":
		if h := strings.Join(strings.Fields(nodeText(n)), " "); h != "" {
			e.Headings = append(e.Headings, h)
		}
	}

	if strings.EqualFold(attr(n, "role"), "feed") {
		e.FeedRegions++
	}
	if strings.Contains(attr(n, "itemtype"), "schema.org/Product") {
		e.ProductSchema = true
	}
}

// isSkippedElement returns true for elements that should be completely removed
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "iframe", "embed", "object", "svg", "template", "title":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// nodeText concatenates the text below n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return b.String()
}

func truncate(s string, maxLength int) (string, bool) {
	if len(s) <= maxLength {
		return s, false
	}
	cut := maxLength
	// Back up to a rune boundary.
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...", true
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(nodeText(n))
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return title
}

// extractMeta returns the content of the first <meta key=value> element.
func extractMeta(doc *html.Node, key, value string) string {
	var content string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" && strings.EqualFold(attr(n, key), value) {
			if c := strings.TrimSpace(attr(n, "content")); c != "" {
				content = c
				return
			}
		}
		for c := n.FirstChild; c != nil && content == ""; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return content
}
