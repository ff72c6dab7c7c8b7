package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-docchat-client/internal/services"
)

func TestGetAuth_ETagRevalidation(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/auth", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"auth:`) {
		t.Fatalf("etag=%q", etag)
	}
	if st := decode[services.AuthState](t, w); st.Authenticated {
		t.Fatal("fresh session must not be authenticated")
	}

	w = h.do(http.MethodGet, "/auth", nil, "If-None-Match", etag)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("want 304 with empty body, got %d %q", w.Code, w.Body.String())
	}

	h.login("alice")
	w = h.do(http.MethodGet, "/auth", nil, "If-None-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("stale etag must return 200, got %d", w.Code)
	}
	st := decode[services.AuthState](t, w)
	if !st.Authenticated || st.Identity == nil || st.Identity.Username != "alice" {
		t.Fatalf("state=%+v", st)
	}
	if w.Header().Get("ETag") == etag {
		t.Fatal("etag must change with the state")
	}
}

func TestLogin_Errors(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/login", "{not json")
	wantError(t, w, http.StatusBadRequest, ErrCodeBadRequest)

	w = h.do(http.MethodPost, "/auth/login", LoginRequest{Username: "alice"})
	wantError(t, w, http.StatusBadRequest, ErrCodeValidation)

	w = h.do(http.MethodPost, "/auth/login", LoginRequest{Username: "alice", Password: "nope"})
	er := wantError(t, w, http.StatusUnauthorized, ErrCodeAuthFailed)
	if er.Message != "Incorrect username or password" {
		t.Fatalf("backend message must be kept, got %q", er.Message)
	}
	if h.store.token != "" {
		t.Fatal("rejected login must not persist a credential")
	}
}

func TestLogin_ShowsChatDashboard(t *testing.T) {
	h := newHarness(t)
	h.login("alice")

	if h.store.token != "tok-alice" {
		t.Fatalf("stored token=%q", h.store.token)
	}
	nav := decode[services.NavState](t, h.do(http.MethodGet, "/nav", nil))
	if nav.View != services.ViewDashboard || nav.Active != "chat" {
		t.Fatalf("nav=%+v", nav)
	}
	for _, p := range nav.Panels {
		if p == "admin" {
			t.Fatal("admin panel must be hidden for a regular user")
		}
	}
	docs := decode[services.DocumentsState](t, h.do(http.MethodGet, "/documents", nil))
	if !docs.Loaded || len(docs.Indexed) != 2 {
		t.Fatalf("documents=%+v", docs)
	}
}

func TestLoginExternal_Rejected(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/google", ExternalLoginRequest{})
	wantError(t, w, http.StatusBadRequest, ErrCodeValidation)

	w = h.do(http.MethodPost, "/auth/google", ExternalLoginRequest{Token: "bogus"})
	er := wantError(t, w, http.StatusUnauthorized, ErrCodeAuthFailed)
	if er.Message != "Invalid Google token" {
		t.Fatalf("message=%q", er.Message)
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/register", RegisterRequest{Username: "carol", Email: "c@example.com", Password: "pw"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if st := h.app.Auth.State(); st.Authenticated {
		t.Fatal("registration must not sign in")
	}

	w = h.do(http.MethodPost, "/auth/register", RegisterRequest{Username: "taken", Email: "t@example.com", Password: "pw"})
	er := wantError(t, w, http.StatusConflict, ErrCodeConflict)
	if er.Message != "Username already registered" {
		t.Fatalf("message=%q", er.Message)
	}

	w = h.do(http.MethodPost, "/auth/register", RegisterRequest{Username: "x"})
	wantError(t, w, http.StatusBadRequest, ErrCodeValidation)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login("alice")

	w := h.do(http.MethodPost, "/auth/logout", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
	if h.store.token != "" {
		t.Fatal("logout must clear the stored credential")
	}
	nav := decode[services.NavState](t, h.do(http.MethodGet, "/nav", nil))
	if nav.View != services.ViewAuth {
		t.Fatalf("nav=%+v", nav)
	}
	docs := decode[services.DocumentsState](t, h.do(http.MethodGet, "/documents", nil))
	if docs.Loaded || len(docs.Documents) != 0 {
		t.Fatalf("documents must be reset, got %+v", docs)
	}
}
