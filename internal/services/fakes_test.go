package services

import (
	"context"
	"sync"
	"time"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/domain"
)

func ctx() context.Context { return context.Background() }

// ----- Fake backend -----

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
	token string

	loginFn     func(username, password string) (*api.TokenResponse, error)
	googleFn    func(idToken string) (*api.TokenResponse, error)
	registerFn  func(in api.RegisterRequest) (*domain.Identity, error)
	profileFn   func() (*domain.Identity, error)
	documentsFn func() ([]domain.Document, error)
	historyFn   func(sessionID string) ([]domain.Message, error)
	chatFn      func(in api.ChatRequest) (*api.ChatResponse, error)
	uploadFn    func(files []domain.PendingFile) (*domain.UploadResult, error)
	statsFn     func() (*domain.AdminStats, error)
	usersFn     func() ([]domain.AdminUser, error)
	adminDocsFn func() ([]domain.Document, error)
	delUserFn   func(username string) error
	delDocFn    func(id string) error
	healthFn    func() (*domain.HealthStatus, error)

	onUnauthorized func()

	histories []string
	chats     []api.ChatRequest
	uploads   [][]domain.PendingFile
	deleted   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: map[string]int{}}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) currentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// unauthorized mimics the api client: the hook fires, then the error returns.
func (f *fakeBackend) unauthorized(op string) error {
	f.mu.Lock()
	fn := f.onUnauthorized
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
	return &api.Error{Op: op, Status: 401, Detail: "Could not validate credentials"}
}

func (f *fakeBackend) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeBackend) SetUnauthorizedHandler(fn func()) {
	f.mu.Lock()
	f.onUnauthorized = fn
	f.mu.Unlock()
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (*api.TokenResponse, error) {
	f.hit("login")
	if f.loginFn != nil {
		return f.loginFn(username, password)
	}
	return &api.TokenResponse{AccessToken: "tok-" + username, TokenType: "bearer"}, nil
}

func (f *fakeBackend) LoginGoogle(_ context.Context, idToken string) (*api.TokenResponse, error) {
	f.hit("google")
	if f.googleFn != nil {
		return f.googleFn(idToken)
	}
	return &api.TokenResponse{AccessToken: "tok-google", TokenType: "bearer"}, nil
}

func (f *fakeBackend) Register(_ context.Context, in api.RegisterRequest) (*domain.Identity, error) {
	f.hit("register")
	if f.registerFn != nil {
		return f.registerFn(in)
	}
	return &domain.Identity{Username: in.Username, Email: in.Email, Role: domain.RoleUser}, nil
}

func (f *fakeBackend) Profile(context.Context) (*domain.Identity, error) {
	f.hit("profile")
	if f.profileFn != nil {
		return f.profileFn()
	}
	return &domain.Identity{ID: 1, Username: "alice", Email: "alice@example.com", Role: domain.RoleUser}, nil
}

func (f *fakeBackend) Documents(context.Context) ([]domain.Document, error) {
	f.hit("documents")
	if f.documentsFn != nil {
		return f.documentsFn()
	}
	return []domain.Document{
		{ID: "a", Filename: "a.pdf", IsIndexed: true},
		{ID: "b", Filename: "b.pdf", IsIndexed: true},
		{ID: "p", Filename: "pending.pdf", IsIndexed: false},
	}, nil
}

func (f *fakeBackend) History(_ context.Context, sessionID string) ([]domain.Message, error) {
	f.hit("history")
	f.mu.Lock()
	f.histories = append(f.histories, sessionID)
	f.mu.Unlock()
	if f.historyFn != nil {
		return f.historyFn(sessionID)
	}
	return []domain.Message{}, nil
}

func (f *fakeBackend) Chat(_ context.Context, in api.ChatRequest) (*api.ChatResponse, error) {
	f.hit("chat")
	f.mu.Lock()
	f.chats = append(f.chats, in)
	f.mu.Unlock()
	if f.chatFn != nil {
		return f.chatFn(in)
	}
	return &api.ChatResponse{Response: "reply to " + in.Message}, nil
}

func (f *fakeBackend) Upload(_ context.Context, files []domain.PendingFile) (*domain.UploadResult, error) {
	f.hit("upload")
	f.mu.Lock()
	f.uploads = append(f.uploads, files)
	f.mu.Unlock()
	if f.uploadFn != nil {
		return f.uploadFn(files)
	}
	res := &domain.UploadResult{}
	for _, p := range files {
		res.UploadedDocuments = append(res.UploadedDocuments, domain.UploadedDocument{ID: "d-" + p.Name, Filename: p.Name})
	}
	return res, nil
}

func (f *fakeBackend) AdminStats(context.Context) (*domain.AdminStats, error) {
	f.hit("stats")
	if f.statsFn != nil {
		return f.statsFn()
	}
	return &domain.AdminStats{TotalUsers: 2, TotalDocuments: 3, TotalChats: 4}, nil
}

func (f *fakeBackend) AdminUsers(context.Context) ([]domain.AdminUser, error) {
	f.hit("users")
	if f.usersFn != nil {
		return f.usersFn()
	}
	return []domain.AdminUser{{ID: 1, Username: "root", Role: domain.RoleAdmin}, {ID: 2, Username: "bob", Role: domain.RoleUser}}, nil
}

func (f *fakeBackend) AdminDocuments(context.Context) ([]domain.Document, error) {
	f.hit("admin_documents")
	if f.adminDocsFn != nil {
		return f.adminDocsFn()
	}
	return []domain.Document{{ID: "d1", Filename: "x.pdf", Owner: "bob"}}, nil
}

func (f *fakeBackend) DeleteUser(_ context.Context, username string) error {
	f.hit("delete_user")
	f.mu.Lock()
	f.deleted = append(f.deleted, "user:"+username)
	f.mu.Unlock()
	if f.delUserFn != nil {
		return f.delUserFn(username)
	}
	return nil
}

func (f *fakeBackend) DeleteDocument(_ context.Context, id string) error {
	f.hit("delete_document")
	f.mu.Lock()
	f.deleted = append(f.deleted, "document:"+id)
	f.mu.Unlock()
	if f.delDocFn != nil {
		return f.delDocFn(id)
	}
	return nil
}

func (f *fakeBackend) Health(context.Context) (*domain.HealthStatus, error) {
	f.hit("health")
	if f.healthFn != nil {
		return f.healthFn()
	}
	return &domain.HealthStatus{Status: "healthy", Database: "connected", RAGService: "connected"}, nil
}

// ----- Fake token store -----

type fakeStore struct {
	mu      sync.Mutex
	token   string
	subject string
	saves   int
	clears  int
	loadErr error
}

func (s *fakeStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.loadErr
}

func (s *fakeStore) Save(_ context.Context, token, subject string, _ *time.Time) error {
	s.mu.Lock()
	s.token, s.subject = token, subject
	s.saves++
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.clears++
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) stored() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ----- Fake scheduler -----

type scheduled struct {
	delay     time.Duration
	task      func()
	cancelled bool
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*scheduled
}

func (s *fakeScheduler) After(d time.Duration, task func()) (func(), error) {
	t := &scheduled{delay: d, task: task}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		t.cancelled = true
		s.mu.Unlock()
	}, nil
}

// runPending runs every task that was not cancelled.
func (s *fakeScheduler) runPending() int {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	n := 0
	for _, t := range tasks {
		if !t.cancelled {
			t.task()
			n++
		}
	}
	return n
}

// ----- Recording notifier -----

type recorder struct {
	mu      sync.Mutex
	renders map[Component]int
	notices []domain.Notice
}

func newRecorder() *recorder { return &recorder{renders: map[Component]int{}} }

func (r *recorder) Render(c Component) {
	r.mu.Lock()
	r.renders[c]++
	r.mu.Unlock()
}

func (r *recorder) Notify(n domain.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) last() (domain.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return domain.Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

func (r *recorder) levels(level domain.NoticeLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Level == level {
			n++
		}
	}
	return n
}

// ----- Fixed identity -----

type staticIdentity struct {
	id *domain.Identity
}

func (s staticIdentity) CurrentIdentity() (domain.Identity, bool) {
	if s.id == nil {
		return domain.Identity{}, false
	}
	return *s.id, true
}

func asUser(name string) staticIdentity {
	return staticIdentity{id: &domain.Identity{Username: name, Role: domain.RoleUser}}
}

func asAdmin(name string) staticIdentity {
	return staticIdentity{id: &domain.Identity{Username: name, Role: domain.RoleAdmin}}
}
