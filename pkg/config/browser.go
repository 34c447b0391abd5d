package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/pagepilot/pkg/types"
)

// SectionIDBrowser is the identifier for the Playwright browser section
const SectionIDBrowser = "browser"

// BrowserSection configures the Playwright-driven Chromium host.
type BrowserSection struct {
	Headless  bool
	StartURLs []string
	Install   bool
	mu        sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

func (s *BrowserSection) ID() string    { return SectionIDBrowser }
func (s *BrowserSection) Title() string { return "Browser" }
func (s *BrowserSection) Description() string {
	return "Chromium instance driven through Playwright when serving with --host playwright."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"headless":   s.Headless,
		"start_urls": append([]string{}, s.StartURLs...),
		"install":    s.Install,
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	urls, hasURLs, err := stringSliceValue(data, "start_urls")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := boolValue(data, "headless"); ok {
		s.Headless = v
	}
	if v, ok := boolValue(data, "install"); ok {
		s.Install = v
	}
	if hasURLs {
		s.StartURLs = urls
	}
	return nil
}

// Validate checks that every start URL is a web page.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.StartURLs {
		if !types.IsWebURL(u) {
			return fmt.Errorf("start_urls entry %q is not an http(s) URL", u)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = true
	s.StartURLs = nil
	s.Install = true
}

// Snapshot returns a copy of the settings.
func (s *BrowserSection) Snapshot() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BrowserSettings{
		Headless:  s.Headless,
		StartURLs: append([]string(nil), s.StartURLs...),
		Install:   s.Install,
	}
}

// BrowserSettings is a plain copy of BrowserSection.
type BrowserSettings struct {
	Headless  bool
	StartURLs []string
	Install   bool
}
