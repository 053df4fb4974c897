package service

import (
	"sync"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

// CadenceSettingsStore holds the process-wide cadence thresholds. Every replacement
// bumps the version so memoized classifications can be keyed on it.
type CadenceSettingsStore struct {
	mu       sync.RWMutex
	settings models.CadenceSettings
	version  int64
}

// NewCadenceSettingsStore seeds the store at version 1.
func NewCadenceSettingsStore(initial models.CadenceSettings) *CadenceSettingsStore {
	return &CadenceSettingsStore{settings: initial, version: 1}
}

// Current returns a snapshot of the settings and their version.
func (s *CadenceSettingsStore) Current() (models.CadenceSettings, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, s.version
}

// Replace swaps in new settings and returns the new version.
func (s *CadenceSettingsStore) Replace(next models.CadenceSettings) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = next
	s.version++
	return s.version
}
