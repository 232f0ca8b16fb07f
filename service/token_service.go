package service

import (
	"context"
	"fmt"
	"sync"

	"coldsend-backend/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// MailScopes are the delegated Microsoft Graph permissions requested at login
var MailScopes = []string{
	"offline_access",
	"User.Read",
	"https://graph.microsoft.com/Mail.Send",
}

// TokenStore persists the single token record
type TokenStore interface {
	Load(ctx context.Context) (*models.TokenRecord, error)
	Save(ctx context.Context, record *models.TokenRecord) error
}

// TokenManager loads, refreshes and persists the mail-provider token pair.
// All access goes through one mutex so concurrent refreshes cannot lose a write.
type TokenManager struct {
	mu     sync.Mutex
	store  TokenStore
	oauth  *oauth2.Config
	cached *models.TokenRecord
}

// NewMicrosoftOAuthConfig builds the OAuth client for a Microsoft Entra tenant
func NewMicrosoftOAuthConfig(clientID, clientSecret, tenantID, redirectURL string) *oauth2.Config {
	if tenantID == "" {
		tenantID = "common"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenantID),
		RedirectURL:  redirectURL,
		Scopes:       MailScopes,
	}
}

// NewTokenManager creates a token manager
func NewTokenManager(store TokenStore, oauth *oauth2.Config) *TokenManager {
	return &TokenManager{store: store, oauth: oauth}
}

// AccessToken returns the stored access token without touching the network
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	if record == nil || record.AccessToken == "" {
		return "", ErrTokenNotFound
	}
	return record.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new pair and persists it.
// When stale is no longer the current access token another caller already
// refreshed, and the current token is returned without a second exchange.
func (m *TokenManager) Refresh(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	if record != nil && stale != "" && record.AccessToken != "" && record.AccessToken != stale {
		return record.AccessToken, nil
	}
	if record == nil || record.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	token, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: record.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	updated := recordFromToken(token)
	if err := m.saveLocked(ctx, updated); err != nil {
		return "", err
	}
	return updated.AccessToken, nil
}

// AuthCodeURL returns the consent URL the user is sent to at login
func (m *TokenManager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair and persists it
func (m *TokenManager) Exchange(ctx context.Context, code string) (*models.TokenRecord, error) {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record := recordFromToken(token)
	if err := m.saveLocked(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (m *TokenManager) loadLocked(ctx context.Context) (*models.TokenRecord, error) {
	if m.cached != nil {
		return m.cached, nil
	}
	record, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load token record: %w", err)
	}
	m.cached = record
	return record, nil
}

// saveLocked persists first; the cache only moves once the write succeeded
func (m *TokenManager) saveLocked(ctx context.Context, record *models.TokenRecord) error {
	if err := m.store.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to persist token record: %w", err)
	}
	m.cached = record
	return nil
}

// extraTokenFields are the Microsoft token response fields stored with the pair
var extraTokenFields = []string{"id_token", "ext_expires_in"}

func recordFromToken(token *oauth2.Token) *models.TokenRecord {
	record := &models.TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		record.Scope = scope
	}
	for _, name := range extraTokenFields {
		if v := token.Extra(name); v != nil && v != "" {
			if record.Extra == nil {
				record.Extra = make(map[string]interface{})
			}
			record.Extra[name] = v
		}
	}
	return record
}
