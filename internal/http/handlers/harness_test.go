package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
)

// ---------- fake document-chat backend ----------

type backend struct {
	mu       sync.Mutex
	chatDown bool
	chats    []api.ChatRequest
	uploads  []string
	deleted  []string
}

func (b *backend) detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// user resolves the bearer token issued by /auth/token ("tok-<username>").
func (b *backend) user(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer tok-") {
		b.detail(c, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}
	return strings.TrimPrefix(h, "Bearer tok-"), true
}

func roleOf(username string) domain.Role {
	if username == "root" {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

func (b *backend) engine() *gin.Engine {
	r := gin.New()
	g := r.Group(api.BasePath)

	g.POST("/auth/token", func(c *gin.Context) {
		if c.PostForm("password") != "pw" {
			b.detail(c, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		c.JSON(http.StatusOK, api.TokenResponse{AccessToken: "tok-" + c.PostForm("username"), TokenType: "bearer"})
	})
	g.POST("/auth/google", func(c *gin.Context) {
		b.detail(c, http.StatusBadRequest, "Invalid Google token")
	})
	g.POST("/auth/register", func(c *gin.Context) {
		var in api.RegisterRequest
		_ = c.ShouldBindJSON(&in)
		if in.Username == "taken" {
			b.detail(c, http.StatusBadRequest, "Username already registered")
			return
		}
		c.JSON(http.StatusOK, domain.Identity{Username: in.Username, Email: in.Email, Role: domain.RoleUser})
	})
	g.GET("/auth/profile", func(c *gin.Context) {
		u, ok := b.user(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, domain.Identity{ID: 1, Username: u, Email: u + "@example.com", Role: roleOf(u)})
	})
	g.GET("/documents/documents", func(c *gin.Context) {
		if _, ok := b.user(c); !ok {
			return
		}
		c.JSON(http.StatusOK, []domain.Document{
			{ID: "a", Filename: "a.pdf", IsIndexed: true},
			{ID: "b", Filename: "b.pdf", IsIndexed: true},
			{ID: "p", Filename: "pending.pdf"},
		})
	})
	g.POST("/documents/upload", func(c *gin.Context) {
		if _, ok := b.user(c); !ok {
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			b.detail(c, http.StatusBadRequest, "no files")
			return
		}
		res := domain.UploadResult{}
		b.mu.Lock()
		for _, fh := range form.File["files"] {
			b.uploads = append(b.uploads, fh.Filename)
			res.UploadedDocuments = append(res.UploadedDocuments, domain.UploadedDocument{ID: fh.Filename, Filename: fh.Filename})
		}
		b.mu.Unlock()
		c.JSON(http.StatusOK, res)
	})
	g.GET("/chat/history/:session", func(c *gin.Context) {
		if _, ok := b.user(c); !ok {
			return
		}
		c.JSON(http.StatusOK, []domain.Message{})
	})
	g.POST("/chat", func(c *gin.Context) {
		if _, ok := b.user(c); !ok {
			return
		}
		var in api.ChatRequest
		_ = c.ShouldBindJSON(&in)
		b.mu.Lock()
		down := b.chatDown
		b.chats = append(b.chats, in)
		b.mu.Unlock()
		if down {
			b.detail(c, http.StatusServiceUnavailable, "RAG service unavailable")
			return
		}
		c.JSON(http.StatusOK, api.ChatResponse{Response: "echo: " + in.Message})
	})
	g.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, domain.HealthStatus{Status: "healthy", Database: "connected", RAGService: "not_initialized"})
	})

	admin := g.Group("/admin", func(c *gin.Context) {
		u, ok := b.user(c)
		if !ok {
			return
		}
		if roleOf(u) != domain.RoleAdmin {
			b.detail(c, http.StatusForbidden, "Not enough permissions")
		}
	})
	admin.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, domain.AdminStats{TotalUsers: 2, TotalDocuments: 3, TotalChats: 4})
	})
	admin.GET("/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, []domain.AdminUser{
			{ID: 1, Username: "root", Role: domain.RoleAdmin},
			{ID: 2, Username: "bob", Role: domain.RoleUser},
		})
	})
	admin.GET("/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, []domain.Document{{ID: "d1", Filename: "handbook.pdf", IsIndexed: true}})
	})
	admin.DELETE("/users/:username", func(c *gin.Context) {
		if c.Param("username") == "ghost" {
			b.detail(c, http.StatusNotFound, "User not found")
			return
		}
		b.mu.Lock()
		b.deleted = append(b.deleted, "user:"+c.Param("username"))
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"message": "deleted"})
	})
	admin.DELETE("/documents/:id", func(c *gin.Context) {
		b.mu.Lock()
		b.deleted = append(b.deleted, "document:"+c.Param("id"))
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"message": "deleted"})
	})
	return r
}

func (b *backend) setChatDown(v bool) {
	b.mu.Lock()
	b.chatDown = v
	b.mu.Unlock()
}

// ---------- in-memory collaborators ----------

type memStore struct {
	mu    sync.Mutex
	token string
}

func (s *memStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memStore) Save(_ context.Context, token, _ string, _ *time.Time) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// heldScheduler keeps deferred tasks until run() is called.
type heldScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *heldScheduler) After(_ time.Duration, task func()) (func(), error) {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	return func() {}, nil
}

func (s *heldScheduler) run() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, t := range tasks {
		t()
	}
}

// ---------- harness ----------

type harness struct {
	t       *testing.T
	r       *gin.Engine
	be      *backend
	app     *services.App
	store   *memStore
	sched   *heldScheduler
	handler *Handlers
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	be := &backend{}
	srv := httptest.NewServer(be.engine())
	t.Cleanup(srv.Close)

	store := &memStore{}
	sched := &heldScheduler{}
	app := services.NewApp(api.New(srv.URL, 5*time.Second), store, sched, nil, services.Options{MaxFiles: 2})
	h := New(app)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		c.Next()
	})
	mount(r.Group("/ui/v1"), h)

	return &harness{t: t, r: r, be: be, app: app, store: store, sched: sched, handler: h}
}

// mount registers the routes the way the server router does.
func mount(g *gin.RouterGroup, h *Handlers) {
	g.GET("/auth", h.GetAuth)
	g.POST("/auth/login", h.Login)
	g.POST("/auth/google", h.LoginExternal)
	g.POST("/auth/register", h.Register)
	g.POST("/auth/logout", h.Logout)

	g.GET("/nav", h.GetNav)
	g.PUT("/nav/panel", h.ActivatePanel)
	g.POST("/nav/open-chat", h.OpenChat)

	g.GET("/documents", h.GetDocuments)
	g.POST("/documents/reload", h.ReloadDocuments)
	g.PUT("/documents/selection/:id", h.ToggleDocument)
	g.DELETE("/documents/selection", h.ClearSelection)
	g.POST("/documents/session", h.StartSession)

	g.GET("/chat", h.GetChat)
	g.POST("/chat/messages", h.SendMessage)
	g.POST("/chat/suggestions/:index", h.AskSuggested)
	g.PUT("/chat/draft", h.SetDraft)

	g.GET("/upload", h.GetUpload)
	g.POST("/upload/files", h.AddFiles)
	g.DELETE("/upload/files/:index", h.RemoveFile)
	g.POST("/upload/submit", h.SubmitUpload)

	g.GET("/profile", h.GetProfile)
	g.POST("/profile/reload", h.ReloadProfile)

	g.GET("/admin", h.GetAdmin)
	g.POST("/admin/reload", h.ReloadAdmin)
	g.PUT("/admin/tab", h.SwitchTab)
	g.POST("/admin/users/:username/delete", h.RequestDeleteUser)
	g.POST("/admin/documents/:id/delete", h.RequestDeleteDocument)
	g.POST("/admin/confirmations/:id/confirm", h.ConfirmDeletion)
	g.DELETE("/admin/confirmations/:id", h.CancelDeletion)
}

func (h *harness) do(method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			rdr = strings.NewReader(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				h.t.Fatalf("marshal: %v", err)
			}
			rdr = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, "/ui/v1"+path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func (h *harness) login(username string) {
	h.t.Helper()
	w := h.do(http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: "pw"})
	if w.Code != http.StatusOK {
		h.t.Fatalf("login %s: status=%d body=%s", username, w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code=%q want %q (message=%q)", er.Code, code, er.Message)
	}
	if er.RequestID != "rid-test" {
		t.Fatalf("request_id=%q", er.RequestID)
	}
	return er
}
