package services

import (
	"context"
	"time"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/domain"
)

// AuthAPI is the subset of the backend used by AuthService.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*api.TokenResponse, error)
	LoginGoogle(ctx context.Context, idToken string) (*api.TokenResponse, error)
	Register(ctx context.Context, in api.RegisterRequest) (*domain.Identity, error)
	Profile(ctx context.Context) (*domain.Identity, error)
	SetToken(token string)
}

// DocumentsAPI lists the signed-in user's documents.
type DocumentsAPI interface {
	Documents(ctx context.Context) ([]domain.Document, error)
}

// ChatAPI reads and extends chat transcripts.
type ChatAPI interface {
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
	Chat(ctx context.Context, in api.ChatRequest) (*api.ChatResponse, error)
}

// UploadAPI submits upload batches.
type UploadAPI interface {
	Upload(ctx context.Context, files []domain.PendingFile) (*domain.UploadResult, error)
}

// AdminAPI is the administrative surface of the backend.
type AdminAPI interface {
	AdminStats(ctx context.Context) (*domain.AdminStats, error)
	AdminUsers(ctx context.Context) ([]domain.AdminUser, error)
	AdminDocuments(ctx context.Context) ([]domain.Document, error)
	DeleteUser(ctx context.Context, username string) error
	DeleteDocument(ctx context.Context, id string) error
}

// HealthAPI reports backend status.
type HealthAPI interface {
	Health(ctx context.Context) (*domain.HealthStatus, error)
}

// Backend is everything the core needs from the backend client.
type Backend interface {
	AuthAPI
	DocumentsAPI
	ChatAPI
	UploadAPI
	AdminAPI
	HealthAPI
	SetUnauthorizedHandler(fn func())
}

// TokenStore persists the bearer credential across restarts.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token, subject string, expiresAt *time.Time) error
	Clear(ctx context.Context) error
}

// Scheduler runs delayed background work.
type Scheduler interface {
	After(d time.Duration, task func()) (cancel func(), err error)
}

// IdentitySource exposes the confirmed identity of the signed-in user.
type IdentitySource interface {
	CurrentIdentity() (domain.Identity, bool)
}

// requireIdentity returns the current identity or ErrNotAuthenticated.
func requireIdentity(src IdentitySource) (domain.Identity, error) {
	id, ok := src.CurrentIdentity()
	if !ok {
		return domain.Identity{}, ErrNotAuthenticated
	}
	return id, nil
}

// requireAdmin returns the current identity when it carries the admin role.
func requireAdmin(src IdentitySource) (domain.Identity, error) {
	id, err := requireIdentity(src)
	if err != nil {
		return id, err
	}
	if !id.IsAdmin() {
		return id, ErrForbidden
	}
	return id, nil
}
