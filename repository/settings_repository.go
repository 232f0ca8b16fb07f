package repository

import (
	"encoding/json"
	"errors"
	"os"

	"coldsend-backend/models"
)

// SettingsFileRepository reads the optional local settings seed file
type SettingsFileRepository struct {
	path string
}

// NewSettingsFileRepository creates a repository for the seed file at path
func NewSettingsFileRepository(path string) *SettingsFileRepository {
	return &SettingsFileRepository{path: path}
}

// Load reads the seed file, returning empty settings when it does not exist
func (r *SettingsFileRepository) Load() (models.Settings, error) {
	if r.path == "" {
		return models.Settings{}, nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Settings{}, nil
		}
		return models.Settings{}, err
	}

	var settings models.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}
