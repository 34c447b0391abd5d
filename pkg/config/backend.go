package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

const (
	// SectionIDBackend is the identifier for the backend section
	SectionIDBackend = "backend"

	DefaultBackendURL       = "http://localhost:3000/api"
	DefaultUserID           = "extension-user"
	DefaultBackendTimeout   = 30 * time.Second
	DefaultSummaryMaxLength = 200
)

// BackendSection configures the content-analysis backend.
type BackendSection struct {
	BaseURL          string
	UserID           string
	Timeout          time.Duration
	SummaryMaxLength int
	mu               sync.RWMutex
}

// NewBackendSection creates a backend section with default settings.
func NewBackendSection() *BackendSection {
	s := &BackendSection{}
	s.Reset()
	return s
}

func (s *BackendSection) ID() string    { return SectionIDBackend }
func (s *BackendSection) Title() string { return "Backend" }
func (s *BackendSection) Description() string {
	return "Remote analysis service used for proxied requests and page summaries."
}

// Data returns the current configuration data.
func (s *BackendSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"base_url":           s.BaseURL,
		"user_id":            s.UserID,
		"timeout":            s.Timeout.String(),
		"summary_max_length": s.SummaryMaxLength,
	}
}

// SetData updates the configuration from the provided data.
func (s *BackendSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	timeout, hasTimeout, err := durationValue(data, "timeout")
	if err != nil {
		return err
	}
	maxLength, hasMaxLength, err := intValue(data, "summary_max_length")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := stringValue(data, "base_url"); ok {
		s.BaseURL = v
	}
	if v, ok := stringValue(data, "user_id"); ok {
		s.UserID = v
	}
	if hasTimeout {
		s.Timeout = timeout
	}
	if hasMaxLength {
		s.SummaryMaxLength = maxLength
	}
	return nil
}

// Validate validates the current configuration.
func (s *BackendSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", s.BaseURL)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if s.SummaryMaxLength <= 0 {
		return fmt.Errorf("summary_max_length must be positive")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BackendSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseURL = DefaultBackendURL
	s.UserID = DefaultUserID
	s.Timeout = DefaultBackendTimeout
	s.SummaryMaxLength = DefaultSummaryMaxLength
}

// Snapshot returns a copy of the settings without the lock.
func (s *BackendSection) Snapshot() BackendSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BackendSettings{
		BaseURL:          s.BaseURL,
		UserID:           s.UserID,
		Timeout:          s.Timeout,
		SummaryMaxLength: s.SummaryMaxLength,
	}
}

// BackendSettings is a plain copy of BackendSection.
type BackendSettings struct {
	BaseURL          string
	UserID           string
	Timeout          time.Duration
	SummaryMaxLength int
}
