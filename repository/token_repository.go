package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coldsend-backend/models"
	"coldsend-backend/storage"
)

// DefaultTokenKey is the object key of the persisted token pair
const DefaultTokenKey = "oauth/token.json"

// TokenRepository persists the single mail-provider token record
type TokenRepository struct {
	store storage.Storage
	key   string
}

// NewTokenRepository creates a token repository storing under key
func NewTokenRepository(store storage.Storage, key string) *TokenRepository {
	if key == "" {
		key = DefaultTokenKey
	}
	return &TokenRepository{store: store, key: key}
}

// Load reads the token record. It returns nil without error when none is stored.
func (r *TokenRepository) Load(ctx context.Context) (*models.TokenRecord, error) {
	rc, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer rc.Close()

	var record models.TokenRecord
	if err := json.NewDecoder(rc).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode token record: %w", err)
	}
	return &record, nil
}

// Save overwrites the stored token record
func (r *TokenRepository) Save(ctx context.Context, record *models.TokenRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return r.store.Put(ctx, r.key, bytes.NewReader(data))
}
