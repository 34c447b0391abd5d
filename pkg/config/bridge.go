package config

import (
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	// SectionIDBridge is the identifier for the extension bridge section
	SectionIDBridge = "bridge"

	DefaultListenAddr     = "127.0.0.1:8787"
	DefaultRequestTimeout = 10 * time.Second
	DefaultPingInterval   = 20 * time.Second
)

// BridgeSection configures the WebSocket link to the browser extension.
type BridgeSection struct {
	ListenAddr     string
	RequestTimeout time.Duration
	PingInterval   time.Duration
	mu             sync.RWMutex
}

// NewBridgeSection creates a bridge section with default settings.
func NewBridgeSection() *BridgeSection {
	s := &BridgeSection{}
	s.Reset()
	return s
}

func (s *BridgeSection) ID() string    { return SectionIDBridge }
func (s *BridgeSection) Title() string { return "Extension Bridge" }
func (s *BridgeSection) Description() string {
	return "Loopback WebSocket endpoint the extension shim connects to."
}

// Data returns the current configuration data.
func (s *BridgeSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"listen_addr":     s.ListenAddr,
		"request_timeout": s.RequestTimeout.String(),
		"ping_interval":   s.PingInterval.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *BridgeSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	requestTimeout, hasRequestTimeout, err := durationValue(data, "request_timeout")
	if err != nil {
		return err
	}
	pingInterval, hasPingInterval, err := durationValue(data, "ping_interval")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := stringValue(data, "listen_addr"); ok {
		s.ListenAddr = v
	}
	if hasRequestTimeout {
		s.RequestTimeout = requestTimeout
	}
	if hasPingInterval {
		s.PingInterval = pingInterval
	}
	return nil
}

// Validate requires a loopback listen address.
func (s *BridgeSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	host, _, err := net.SplitHostPort(s.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid listen_addr %q: %w", s.ListenAddr, err)
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("listen_addr must be a loopback address, got %q", host)
		}
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if s.PingInterval <= 0 {
		return fmt.Errorf("ping_interval must be positive")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BridgeSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListenAddr = DefaultListenAddr
	s.RequestTimeout = DefaultRequestTimeout
	s.PingInterval = DefaultPingInterval
}

// Snapshot returns a copy of the settings.
func (s *BridgeSection) Snapshot() BridgeSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BridgeSettings{
		ListenAddr:     s.ListenAddr,
		RequestTimeout: s.RequestTimeout,
		PingInterval:   s.PingInterval,
	}
}

// BridgeSettings is a plain copy of BridgeSection.
type BridgeSettings struct {
	ListenAddr     string
	RequestTimeout time.Duration
	PingInterval   time.Duration
}
