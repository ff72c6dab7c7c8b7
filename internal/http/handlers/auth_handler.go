// Session endpoints.
//
//   - GET  /auth            (session state, ETag)
//   - POST /auth/login      (username + password)
//   - POST /auth/google     (external identity token)
//   - POST /auth/register   (create account, never signs in)
//   - POST /auth/logout
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/services"
)

// LoginRequest is the password login payload.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"s3cret"`
}

// ExternalLoginRequest carries a third-party identity token.
type ExternalLoginRequest struct {
	Token string `json:"token" example:"eyJhbGciOiJSUzI1NiIs..."`
}

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"s3cret"`
}

// GetAuth godoc
// @ID          getAuth
// @Summary     Session state
// @Tags        Auth
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  services.AuthState
// @Success     304  {string}  string  "Not Modified"
// @Router      /auth [get]
func (h *Handlers) GetAuth(c *gin.Context) {
	st := h.auth.State()
	state(c, services.ComponentAuth, st.Version, st)
}

// Login godoc
// @ID          login
// @Summary     Sign in with username and password
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  domain.Identity
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     401   {object}  handlers.ErrorResponse  "Rejected credentials"
// @Failure     502   {object}  handlers.ErrorResponse  "Backend unavailable"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, id)
}

// LoginExternal godoc
// @ID          loginExternal
// @Summary     Sign in with a Google identity token
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ExternalLoginRequest  true  "Identity token"
// @Success     200   {object}  domain.Identity
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Router      /auth/google [post]
func (h *Handlers) LoginExternal(c *gin.Context) {
	var req ExternalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id, err := h.auth.LoginWithExternalCredential(c.Request.Context(), req.Token)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, id)
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Tags        Auth
// @Accept      json
// @Param       body  body  handlers.RegisterRequest  true  "Account"
// @Success     204
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Username or email taken"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// Logout godoc
// @ID          logout
// @Summary     Sign out
// @Tags        Auth
// @Success     204
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	h.auth.Logout()
	noContent(c)
}
