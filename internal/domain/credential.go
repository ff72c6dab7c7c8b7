// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// CredentialKey is the fixed storage key of the persisted bearer token.
const CredentialKey = "token"

// StoredCredential is the single durable item kept by the client: the bearer
// token that survives restarts until an explicit logout or a 401.
//
// Subject and ExpiresAt are informational values read from unverified token
// claims when the token happens to be a JWT; they are empty for opaque tokens.
type StoredCredential struct {
	Key       string     `gorm:"type:TEXT NOT NULL;primaryKey"`
	Token     string     `gorm:"type:TEXT NOT NULL"`
	Subject   string     `gorm:"type:TEXT"`
	ExpiresAt *time.Time `gorm:"type:DATETIME"`
	UpdatedAt time.Time  `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (StoredCredential) TableName() string { return "credentials" }
