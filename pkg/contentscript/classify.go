package contentscript

import (
	"context"
	"net/url"
	"strings"
)

// Page labels produced by the classifiers.
const (
	LabelArticle   = "article"
	LabelEcommerce = "ecommerce"
	LabelSearch    = "search"
	LabelSocial    = "social"
	LabelGeneral   = "general"
)

// Labels lists every label a classifier may return.
var Labels = []string{LabelArticle, LabelEcommerce, LabelSearch, LabelSocial, LabelGeneral}

// IsLabel reports whether s is a known label.
func IsLabel(s string) bool {
	for _, l := range Labels {
		if s == l {
			return true
		}
	}
	return false
}

// Classifier assigns a label to an extracted page.
type Classifier interface {
	Classify(ctx context.Context, pageURL string, e *Extraction) (string, error)
}

// HeuristicClassifier labels pages from structural signals alone.
type HeuristicClassifier struct{}

var socialHosts = []string{
	"twitter.com", "x.com", "facebook.com", "instagram.com", "reddit.com",
	"linkedin.com", "threads.net", "bsky.app", "mastodon.social", "tiktok.com",
}

// Classify implements Classifier. It never fails.
func (HeuristicClassifier) Classify(ctx context.Context, pageURL string, e *Extraction) (string, error) {
	u, _ := url.Parse(pageURL)

	switch {
	case isSocial(u, e):
		return LabelSocial, nil
	case isSearch(u, e):
		return LabelSearch, nil
	case isEcommerce(e):
		return LabelEcommerce, nil
	case isArticle(e):
		return LabelArticle, nil
	default:
		return LabelGeneral, nil
	}
}

func isSocial(u *url.URL, e *Extraction) bool {
	if e.FeedRegions > 0 {
		return true
	}
	if u == nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range socialHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func isSearch(u *url.URL, e *Extraction) bool {
	if u == nil {
		return false
	}
	q := u.Query()
	hasQuery := q.Get("q") != "" || q.Get("query") != "" || q.Get("search") != "" || q.Get("p") != ""
	if !hasQuery {
		return false
	}
	return strings.Contains(strings.ToLower(u.Path), "search") || e.SearchInputs > 0
}

func isEcommerce(e *Extraction) bool {
	if e.OGType == "product" || e.ProductSchema {
		return true
	}
	return e.CartButtons > 0 && e.PriceMentions > 0
}

func isArticle(e *Extraction) bool {
	if e.OGType == "article" {
		return true
	}
	if e.ArticleTags > 0 && e.WordCount >= 150 {
		return true
	}
	return e.WordCount >= 600 && len(e.Headings) > 0 && e.Links*20 < e.WordCount
}
