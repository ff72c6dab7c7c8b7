// Package repo implements the local persistence layer of the client.
// This file provides repository functions for the persisted bearer
// credential.
//
// The store holds at most one row, keyed by domain.CredentialKey. Functions
// are context-aware and accept a *gorm.DB handle.
//
// Error semantics:
//   - When no credential is stored, GetCredential returns ErrNotFound.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// ErrNotFound aliases gorm.ErrRecordNotFound for callers that should not
// depend on gorm directly.
var ErrNotFound = gorm.ErrRecordNotFound

// GetCredential returns the stored credential or ErrNotFound.
func GetCredential(ctx context.Context, db *gorm.DB) (*domain.StoredCredential, error) {
	var c domain.StoredCredential
	err := db.WithContext(ctx).First(&c, "key = ?", domain.CredentialKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCredential stores token under the fixed key, replacing any previous
// value. subject and expiresAt are optional metadata.
func SaveCredential(ctx context.Context, db *gorm.DB, token, subject string, expiresAt *time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	c := &domain.StoredCredential{
		Key:       domain.CredentialKey,
		Token:     token,
		Subject:   subject,
		ExpiresAt: expiresAt,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(c).Error
}

// DeleteCredential removes the stored credential. Deleting a missing row is
// not an error.
func DeleteCredential(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).
		Where("key = ?", domain.CredentialKey).
		Delete(&domain.StoredCredential{}).Error
}

// CredentialStore adapts the functions above to the token-store contract used
// by the auth controller.
type CredentialStore struct {
	DB *gorm.DB
}

// NewCredentialStore returns a store bound to db.
func NewCredentialStore(db *gorm.DB) *CredentialStore { return &CredentialStore{DB: db} }

// Load returns the stored token, or "" when none is present.
func (s *CredentialStore) Load(ctx context.Context) (string, error) {
	c, err := GetCredential(ctx, s.DB)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.Token, nil
}

// Save persists token with its optional metadata.
func (s *CredentialStore) Save(ctx context.Context, token, subject string, expiresAt *time.Time) error {
	return SaveCredential(ctx, s.DB, token, subject, expiresAt)
}

// Clear removes the stored token.
func (s *CredentialStore) Clear(ctx context.Context) error {
	return DeleteCredential(ctx, s.DB)
}
