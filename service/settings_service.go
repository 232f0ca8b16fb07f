package service

import (
	"sync"

	"coldsend-backend/models"
)

// SettingsService holds the process-wide user settings
type SettingsService struct {
	mu       sync.RWMutex
	settings models.Settings
}

// NewSettingsService creates a settings service seeded with initial values
func NewSettingsService(initial models.Settings) *SettingsService {
	return &SettingsService{settings: initial}
}

// Snapshot returns a copy of the current settings
func (s *SettingsService) Snapshot() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Save merges every non-empty field of update and returns the result
func (s *SettingsService) Save(update models.Settings) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = s.settings.Merge(update)
	return s.settings
}

// RequireForGeneration returns the settings when email generation can run
func (s *SettingsService) RequireForGeneration() (models.Settings, error) {
	settings := s.Snapshot()
	if missing := settings.MissingForGeneration(); len(missing) > 0 {
		return settings, &MissingSettingsError{Fields: missing}
	}
	return settings, nil
}

// RequireApolloKey returns the people-lookup API key when one is saved
func (s *SettingsService) RequireApolloKey() (string, error) {
	settings := s.Snapshot()
	if settings.ApolloAPIKey == "" {
		return "", &MissingSettingsError{Fields: []string{"apolloApiKey"}}
	}
	return settings.ApolloAPIKey, nil
}
