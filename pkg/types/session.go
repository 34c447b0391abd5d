package types

import (
	"net/url"
	"strings"
	"time"
)

// TabID identifies a browsing context (a tab) inside the host.
type TabID int

// Tab is the host's view of a browsing context.
type Tab struct {
	ID    TabID  `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// Analysis is the opaque classification payload reported by a content script.
// Only the optional "pageType" key is interpreted by the orchestrator.
type Analysis map[string]any

// PageType returns the classification label, or "" if none was supplied.
func (a Analysis) PageType() string {
	if a == nil {
		return ""
	}
	label, _ := a["pageType"].(string)
	return label
}

// HasPageType reports whether the payload carries a non-empty pageType label.
func (a Analysis) HasPageType() bool {
	return a.PageType() != ""
}

// Clone returns a shallow copy so callers cannot mutate registry state.
func (a Analysis) Clone() Analysis {
	if a == nil {
		return nil
	}
	out := make(Analysis, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// TabSession is the orchestrator-held summary of one tab's current navigation.
type TabSession struct {
	TabID        TabID     `json:"tabId"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	StartTime    time.Time `json:"startTime"`
	LastActivity time.Time `json:"lastActivity"`
	Interactions int       `json:"interactions"`
	Analysis     Analysis  `json:"analysis,omitempty"`
	ContentReady bool      `json:"contentReady"`
}

// IsWebURL reports whether rawURL uses a scheme content scripts can run on.
// Host-internal pages (chrome://, about:, extension pages) are excluded.
func IsWebURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}
