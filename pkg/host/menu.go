package host

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"
)

// Menu contexts understood by the host.
const (
	MenuContextPage      = "page"
	MenuContextSelection = "selection"
)

// WebURLPatterns restricts a menu item to http and https pages.
var WebURLPatterns = []string{"http://*/*", "https://*/*"}

// MenuItem is a context menu entry registration.
type MenuItem struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Contexts            []string `json:"contexts"`
	DocumentURLPatterns []string `json:"documentUrlPatterns,omitempty"`
}

// URLMatcher matches document URLs against a set of match patterns.
type URLMatcher struct {
	patterns []glob.Glob
	all      bool
}

// NewURLMatcher compiles match patterns such as "https://*/*".
// "<all_urls>" or an empty list matches everything.
func NewURLMatcher(patterns []string) (*URLMatcher, error) {
	m := &URLMatcher{}
	if len(patterns) == 0 {
		m.all = true
		return m, nil
	}

	for _, pattern := range patterns {
		if pattern == "<all_urls>" {
			m.all = true
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern '%s': %w", pattern, err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// Match reports whether rawURL is covered by the patterns.
func (m *URLMatcher) Match(rawURL string) bool {
	if m.all {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	// Match patterns always carry a path; "https://example.com" means "/".
	if u.Path == "" {
		u.Path = "/"
	}
	normalized := u.String()

	for _, pattern := range m.patterns {
		if pattern.Match(normalized) {
			return true
		}
	}
	return false
}

// Matches reports whether the item applies to a document at rawURL.
func (item MenuItem) Matches(rawURL string) (bool, error) {
	m, err := NewURLMatcher(item.DocumentURLPatterns)
	if err != nil {
		return false, err
	}
	return m.Match(rawURL), nil
}

// HasContext reports whether the item is shown in the given context.
func (item MenuItem) HasContext(context string) bool {
	for _, c := range item.Contexts {
		if c == context || c == "all" {
			return true
		}
	}
	return false
}
