package handlers

import (
	"context"

	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
)

//
// Service contracts
//

// AuthController is the session surface used by the auth endpoints.
type AuthController interface {
	State() services.AuthState
	Login(ctx context.Context, username, password string) (*domain.Identity, error)
	LoginWithExternalCredential(ctx context.Context, idToken string) (*domain.Identity, error)
	Register(ctx context.Context, username, email, password string) error
	Logout()
}

// NavController switches panels.
type NavController interface {
	State() services.NavState
	Activate(ctx context.Context, p domain.Panel) error
	OpenChatFor(ctx context.Context, documentID string) error
}

// DocumentController owns the document list and the selection.
type DocumentController interface {
	State() services.DocumentsState
	LoadDocuments(ctx context.Context) error
	Toggle(id string, checked bool) error
	ClearSelection()
	StartSession(ctx context.Context, ids []string) (*domain.ChatSession, error)
	StartSelected(ctx context.Context) (*domain.ChatSession, error)
}

// ChatController owns the active conversation.
type ChatController interface {
	State() services.ChatState
	Send(ctx context.Context, content string) (*domain.Message, error)
	AskSuggested(ctx context.Context, index int) (*domain.Message, error)
	SetDraft(text string)
}

// UploadController owns the upload batch.
type UploadController interface {
	State() services.UploadState
	AddFiles(files []domain.PendingFile) int
	RemoveFile(index int) error
	Submit(ctx context.Context) (*domain.UploadResult, error)
}

// ProfileController shows identity and backend status.
type ProfileController interface {
	State() services.ProfileState
	Load(ctx context.Context) error
}

// AdminController drives the admin panel.
type AdminController interface {
	State() services.AdminState
	LoadDashboard(ctx context.Context) error
	SwitchTab(ctx context.Context, tab domain.AdminTab, forceLoad bool) error
	RequestDeleteUser(username string) (*domain.PendingConfirmation, error)
	RequestDeleteDocument(id, filename string) (*domain.PendingConfirmation, error)
	Confirm(ctx context.Context, id string) error
	Cancel(id string) error
}

//
// Handler wiring
//

// Handlers groups the companion endpoints, one controller per panel.
type Handlers struct {
	auth    AuthController
	nav     NavController
	docs    DocumentController
	chat    ChatController
	upload  UploadController
	profile ProfileController
	admin   AdminController

	// MaxUploadBytes caps a single multipart upload request.
	MaxUploadBytes int64
}

// New binds the handlers to an assembled client core.
func New(app *services.App) *Handlers {
	return &Handlers{
		auth:           app.Auth,
		nav:            app.Nav,
		docs:           app.Documents,
		chat:           app.Chat,
		upload:         app.Upload,
		profile:        app.Profile,
		admin:          app.Admin,
		MaxUploadBytes: 64 << 20,
	}
}
