package models

import "time"

// TokenRecord represents the delegated mail-provider credentials persisted on disk.
// The record is overwritten wholesale on every login and refresh.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`

	// Extra holds provider fields beyond the token pair, such as id_token
	Extra map[string]interface{} `json:"extra,omitempty"`
}
