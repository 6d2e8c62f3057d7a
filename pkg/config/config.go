// Package config holds forge-playwright settings: a JSON section store on
// disk, overlaid with environment variables (optionally loaded from .env).
package config

import (
	"fmt"
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Load builds a manager from the settings file at configPath (empty selects
// DefaultPath), then overlays the environment. File values lose to
// environment values.
func Load(configPath string, lookup LookupFunc) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	section := NewPlaywrightSection()
	if err := manager.RegisterSection(section); err != nil {
		return nil, err
	}
	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	if err := ApplyEnv(section, lookup); err != nil {
		return nil, err
	}
	if err := section.Validate(); err != nil {
		return nil, fmt.Errorf("invalid playwright settings: %w", err)
	}
	return manager, nil
}

// Initialize creates the global configuration manager from the process
// environment. This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	manager, err := Load(configPath, nil)
	if err != nil {
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

// GetPlaywright returns the playwright section of m.
func GetPlaywright(m *Manager) *PlaywrightSection {
	section, ok := m.GetSection(SectionIDPlaywright)
	if !ok {
		return nil
	}
	pw, _ := section.(*PlaywrightSection)
	return pw
}

// CurrentSettings returns the global playwright settings, or the defaults
// when config is not initialized.
func CurrentSettings() Settings {
	if !IsInitialized() {
		return DefaultSettings()
	}
	pw := GetPlaywright(Global())
	if pw == nil {
		return DefaultSettings()
	}
	return pw.Settings()
}
