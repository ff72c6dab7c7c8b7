package services

import (
	"context"
	"time"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// Options tunes the wiring done by NewApp.
type Options struct {
	MaxFiles     int
	RefreshDelay time.Duration
}

// App is the assembled client core: every panel service sharing one
// authentication context.
type App struct {
	Auth      *AuthService
	Nav       *Navigator
	Documents *DocumentService
	Chat      *ChatService
	Upload    *UploadService
	Profile   *ProfileService
	Admin     *AdminService
}

// NewApp wires the services together. Signing in shows the dashboard with the
// chat panel; teardown (logout or any 401) resets every panel and returns to
// the unauthenticated view.
func NewApp(b Backend, store TokenStore, sched Scheduler, out Notifier, opts Options) *App {
	out = orNop(out)

	auth := NewAuthService(b, store, out)
	nav := NewNavigator(auth, out)
	chat := NewChatService(b, out)
	docs := NewDocumentService(b, chat, auth, out)
	upload := NewUploadService(b, sched, out)
	profile := NewProfileService(b, auth, out)
	admin := NewAdminService(b, auth, out)

	if opts.MaxFiles > 0 {
		upload.MaxFiles = opts.MaxFiles
	}
	if opts.RefreshDelay > 0 {
		upload.RefreshDelay = opts.RefreshDelay
	}
	upload.Refresh = docs.LoadDocuments

	nav.Register(domain.PanelDocuments, docs.LoadDocuments)
	nav.Register(domain.PanelChat, docs.LoadForChat)
	nav.Register(domain.PanelProfile, profile.Load)
	nav.Register(domain.PanelAdmin, admin.LoadDashboard)
	nav.SetSelector(docs)

	auth.OnSignedIn(func(ctx context.Context, id domain.Identity) {
		notice(out, domain.NoticeSuccess, "Welcome, "+id.Username+"!")
		_ = nav.ShowDashboard(ctx)
	})
	auth.OnTeardown(func() {
		chat.Reset()
		docs.Reset()
		upload.Reset()
		profile.Reset()
		admin.Reset()
		nav.ShowAuth()
	})
	b.SetUnauthorizedHandler(auth.HandleUnauthorized)

	return &App{
		Auth:      auth,
		Nav:       nav,
		Documents: docs,
		Chat:      chat,
		Upload:    upload,
		Profile:   profile,
		Admin:     admin,
	}
}

// Version returns the state version of component c.
func (a *App) Version(c Component) (uint64, bool) {
	switch c {
	case ComponentAuth:
		return a.Auth.State().Version, true
	case ComponentNav:
		return a.Nav.State().Version, true
	case ComponentDocuments:
		return a.Documents.State().Version, true
	case ComponentChat:
		return a.Chat.State().Version, true
	case ComponentUpload:
		return a.Upload.State().Version, true
	case ComponentProfile:
		return a.Profile.State().Version, true
	case ComponentAdmin:
		return a.Admin.State().Version, true
	}
	return 0, false
}
