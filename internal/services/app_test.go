package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/domain"
)

func newTestApp(t *testing.T) (*App, *fakeBackend, *fakeStore, *fakeScheduler, *recorder) {
	t.Helper()
	b := newFakeBackend()
	st := &fakeStore{}
	sched := &fakeScheduler{}
	rec := newRecorder()
	app := NewApp(b, st, sched, rec, Options{MaxFiles: 3, RefreshDelay: time.Second})
	return app, b, st, sched, rec
}

func TestApp_LoginShowsChatDashboard(t *testing.T) {
	app, b, _, _, rec := newTestApp(t)
	if _, err := app.Auth.Login(ctx(), "alice", "pw"); err != nil {
		t.Fatal(err)
	}
	nav := app.Nav.State()
	if nav.View != ViewDashboard || nav.Active != domain.PanelChat {
		t.Fatalf("nav=%+v", nav)
	}
	if b.count("documents") != 1 || !app.Documents.State().Loaded {
		t.Fatal("chat panel must load the document list")
	}
	found := false
	for _, n := range rec.notices {
		if strings.HasPrefix(n.Message, "Welcome, alice") {
			found = true
		}
	}
	if !found {
		t.Fatalf("notices=%+v", rec.notices)
	}
	if app.Upload.State().Max != 3 {
		t.Fatalf("max=%d", app.Upload.State().Max)
	}
}

func TestApp_ChatScenario(t *testing.T) {
	app, b, _, _, _ := newTestApp(t)
	_, _ = app.Auth.Login(ctx(), "alice", "pw")

	_ = app.Documents.Toggle("b", true)
	_ = app.Documents.Toggle("a", true)
	sess, err := app.Documents.StartSelected(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if sess.SessionID != "a_b" {
		t.Fatalf("session id=%q", sess.SessionID)
	}
	if _, err := app.Chat.Send(ctx(), "hello"); err != nil {
		t.Fatal(err)
	}
	if len(app.Chat.State().Messages) != 2 || b.chats[0].SessionID != "a_b" {
		t.Fatalf("chat=%+v", app.Chat.State())
	}
}

func TestApp_LogoutDuringExternalLoginStaysOnAuthView(t *testing.T) {
	app, b, st, _, _ := newTestApp(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	b.googleFn = func(string) (*api.TokenResponse, error) {
		close(entered)
		<-release
		return &api.TokenResponse{AccessToken: "tok-late", TokenType: "bearer"}, nil
	}

	errc := make(chan error, 1)
	go func() {
		_, err := app.Auth.LoginWithExternalCredential(ctx(), "google-id-token")
		errc <- err
	}()
	<-entered
	app.Auth.Logout()
	close(release)

	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Fatalf("err=%v", err)
	}
	if nav := app.Nav.State(); nav.View != ViewAuth {
		t.Fatalf("view=%q after logout", nav.View)
	}
	if _, ok := app.Auth.CurrentIdentity(); ok || st.stored() != "" {
		t.Fatalf("stored=%q", st.stored())
	}
}

func TestApp_UnauthorizedTearsEverythingDown(t *testing.T) {
	app, b, st, _, rec := newTestApp(t)
	_, _ = app.Auth.Login(ctx(), "alice", "pw")
	_ = app.Documents.Toggle("a", true)
	_, _ = app.Documents.StartSelected(ctx())
	app.Upload.AddFiles(files("x.pdf"))

	b.documentsFn = func() ([]domain.Document, error) { return nil, b.unauthorized("documents.list") }
	_ = app.Nav.Activate(ctx(), domain.PanelDocuments)

	if _, ok := app.Auth.CurrentIdentity(); ok {
		t.Fatal("identity must be cleared")
	}
	if st.stored() != "" || b.currentToken() != "" {
		t.Fatal("credential must be cleared")
	}
	if app.Nav.State().View != ViewAuth {
		t.Fatal("must return to the auth view")
	}
	if app.Chat.State().Active || len(app.Upload.Files()) != 0 || app.Documents.State().Loaded {
		t.Fatal("component state must be reset")
	}
	if n, _ := rec.last(); !strings.Contains(n.Message, "session has expired") {
		t.Fatalf("notice=%+v", rec.notices)
	}
}

func TestApp_UploadRefreshesDocuments(t *testing.T) {
	app, b, _, sched, _ := newTestApp(t)
	_, _ = app.Auth.Login(ctx(), "alice", "pw")
	before := b.count("documents")
	app.Upload.AddFiles(files("new.pdf"))
	if _, err := app.Upload.Submit(ctx()); err != nil {
		t.Fatal(err)
	}
	if sched.tasks[0].delay != time.Second {
		t.Fatalf("delay=%v", sched.tasks[0].delay)
	}
	sched.runPending()
	if b.count("documents") != before+1 {
		t.Fatalf("documents calls=%d", b.count("documents"))
	}
}

func TestApp_Version(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)
	for _, c := range Components {
		if _, ok := app.Version(c); !ok {
			t.Fatalf("no version for %s", c)
		}
	}
	if _, ok := app.Version("nope"); ok {
		t.Fatal("unknown component")
	}
	v0, _ := app.Version(ComponentUpload)
	app.Upload.AddFiles(files("a"))
	if v1, _ := app.Version(ComponentUpload); v1 <= v0 {
		t.Fatalf("version did not advance: %d -> %d", v0, v1)
	}
}
