package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// TokenResponse is the answer of the credential exchanges.
type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Role        domain.Role `json:"role,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID   string   `json:"session_id"`
	Message     string   `json:"message"`
	DocumentIDs []string `json:"document_ids"`
}

// ChatResponse is the assistant reply to a ChatRequest.
type ChatResponse struct {
	Response string `json:"response"`
}

// Login exchanges username/password (form-encoded) for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	var out TokenResponse
	err := c.do(ctx, call{
		op:          "auth.token",
		method:      http.MethodPost,
		path:        "/auth/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginGoogle exchanges a third-party identity token for a bearer token.
func (c *Client) LoginGoogle(ctx context.Context, idToken string) (*TokenResponse, error) {
	body, err := jsonBody(map[string]string{"token": idToken})
	if err != nil {
		return nil, err
	}
	var out TokenResponse
	if err := c.do(ctx, call{
		op:          "auth.google",
		method:      http.MethodPost,
		path:        "/auth/google",
		body:        body,
		contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*domain.Identity, error) {
	body, err := jsonBody(in)
	if err != nil {
		return nil, err
	}
	var out domain.Identity
	if err := c.do(ctx, call{
		op:          "auth.register",
		method:      http.MethodPost,
		path:        "/auth/register",
		body:        body,
		contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the identity bound to the current token.
func (c *Client) Profile(ctx context.Context) (*domain.Identity, error) {
	var out domain.Identity
	if err := c.do(ctx, call{op: "auth.profile", method: http.MethodGet, path: "/auth/profile", auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Documents lists the signed-in user's documents.
func (c *Client) Documents(ctx context.Context) ([]domain.Document, error) {
	var out []domain.Document
	if err := c.do(ctx, call{op: "documents.list", method: http.MethodGet, path: "/documents/documents", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload sends files as one multipart request, each under the "files" field.
func (c *Client) Upload(ctx context.Context, files []domain.PendingFile) (*domain.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(f.Name)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out domain.UploadResult
	if err := c.do(ctx, call{
		op:          "documents.upload",
		method:      http.MethodPost,
		path:        "/documents/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		auth:        true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the stored transcript of a chat session. An unknown
// session yields an empty transcript.
func (c *Client) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var out []domain.Message
	if err := c.do(ctx, call{
		op:     "chat.history",
		method: http.MethodGet,
		path:   "/chat/history/" + url.PathEscape(sessionID),
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Message{}
	}
	return out, nil
}

// Chat sends one user message and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	if in.DocumentIDs == nil {
		in.DocumentIDs = []string{}
	}
	body, err := jsonBody(in)
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := c.do(ctx, call{
		op:          "chat.send",
		method:      http.MethodPost,
		path:        "/chat",
		body:        body,
		contentType: "application/json",
		auth:        true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the backend system status.
func (c *Client) Health(ctx context.Context) (*domain.HealthStatus, error) {
	var out domain.HealthStatus
	if err := c.do(ctx, call{op: "health", method: http.MethodGet, path: "/health"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminStats returns the aggregate counters of the admin dashboard.
func (c *Client) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	var out domain.AdminStats
	if err := c.do(ctx, call{op: "admin.stats", method: http.MethodGet, path: "/admin/stats", auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUsers lists every account.
func (c *Client) AdminUsers(ctx context.Context) ([]domain.AdminUser, error) {
	var out []domain.AdminUser
	if err := c.do(ctx, call{op: "admin.users", method: http.MethodGet, path: "/admin/users", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminDocuments lists every document of every user.
func (c *Client) AdminDocuments(ctx context.Context) ([]domain.Document, error) {
	var out []domain.Document
	if err := c.do(ctx, call{op: "admin.documents", method: http.MethodGet, path: "/admin/documents", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes an account and its data.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, call{
		op:     "admin.delete_user",
		method: http.MethodDelete,
		path:   "/admin/users/" + url.PathEscape(username),
		auth:   true,
	}, nil)
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, call{
		op:     "admin.delete_document",
		method: http.MethodDelete,
		path:   "/admin/documents/" + url.PathEscape(id),
		auth:   true,
	}, nil)
}
