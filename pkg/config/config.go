// Package config loads pagepilot settings from a sectioned JSON or YAML file.
package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager over store with every pagepilot
// section registered.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)
	sections := []Section{
		NewBackendSection(),
		NewBridgeSection(),
		NewBrowserSection(),
		NewLLMSection(),
	}
	for _, s := range sections {
		if err := manager.RegisterSection(s); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// Initialize creates and loads the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func section[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	s, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := s.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetBackend returns the backend section from global config.
// Returns nil if config is not initialized.
func GetBackend() *BackendSection {
	return section[*BackendSection](SectionIDBackend)
}

// GetBridge returns the bridge section from global config.
// Returns nil if config is not initialized.
func GetBridge() *BridgeSection {
	return section[*BridgeSection](SectionIDBridge)
}

// GetBrowser returns the browser section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	return section[*BrowserSection](SectionIDBrowser)
}

// GetLLM returns the LLM settings section from global config.
// Returns nil if config is not initialized.
func GetLLM() *LLMSection {
	return section[*LLMSection](SectionIDLLM)
}
