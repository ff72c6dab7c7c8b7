// Admin panel endpoints. Every action requires the admin role.
//
//   - GET    /admin                               (stats, tab, lists, pending confirmations)
//   - POST   /admin/reload                        (stats + users tab)
//   - PUT    /admin/tab                           (switch tab, optional load)
//   - POST   /admin/users/{username}/delete       (ask for confirmation)
//   - POST   /admin/documents/{id}/delete         (ask for confirmation)
//   - POST   /admin/confirmations/{id}/confirm    (run the deletion)
//   - DELETE /admin/confirmations/{id}            (dismiss)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
)

// SwitchTabRequest selects an admin tab.
type SwitchTabRequest struct {
	Tab       string `json:"tab" example:"documents"`
	ForceLoad bool   `json:"force_load" example:"true"`
}

// DeleteDocumentRequest carries the label shown in the confirmation.
type DeleteDocumentRequest struct {
	Filename string `json:"filename" example:"handbook.pdf"`
}

// GetAdmin godoc
// @ID          getAdmin
// @Summary     Admin dashboard
// @Tags        Admin
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  services.AdminState
// @Success     304  {string}  string  "Not Modified"
// @Router      /admin [get]
func (h *Handlers) GetAdmin(c *gin.Context) {
	st := h.admin.State()
	state(c, services.ComponentAdmin, st.Version, st)
}

// ReloadAdmin godoc
// @ID          reloadAdmin
// @Summary     Reload the dashboard
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  services.AdminState
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /admin/reload [post]
func (h *Handlers) ReloadAdmin(c *gin.Context) {
	if err := h.admin.LoadDashboard(c.Request.Context()); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.admin.State())
}

// SwitchTab godoc
// @ID          switchAdminTab
// @Summary     Switch the admin tab
// @Description Each tab loads at most once per dashboard visit, and only when force_load is set.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SwitchTabRequest  true  "Tab"
// @Success     200   {object}  services.AdminState
// @Failure     400   {object}  handlers.ErrorResponse  "Unknown tab"
// @Failure     403   {object}  handlers.ErrorResponse
// @Router      /admin/tab [put]
func (h *Handlers) SwitchTab(c *gin.Context) {
	var req SwitchTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	tab, known := domain.ParseAdminTab(req.Tab)
	if !known {
		failErr(c, services.ErrUnknownTab)
		return
	}
	if err := h.admin.SwitchTab(c.Request.Context(), tab, req.ForceLoad); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.admin.State())
}

// RequestDeleteUser godoc
// @ID          requestDeleteUser
// @Summary     Ask to delete a user
// @Tags        Admin
// @Produce     json
// @Param       username  path      string  true  "Username"
// @Success     201       {object}  domain.PendingConfirmation
// @Failure     400       {object}  handlers.ErrorResponse  "Own account"
// @Failure     403       {object}  handlers.ErrorResponse
// @Router      /admin/users/{username}/delete [post]
func (h *Handlers) RequestDeleteUser(c *gin.Context) {
	p, err := h.admin.RequestDeleteUser(c.Param("username"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// RequestDeleteDocument godoc
// @ID          requestDeleteDocument
// @Summary     Ask to delete a document
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       id    path      string                          true   "Document ID"
// @Param       body  body      handlers.DeleteDocumentRequest  false  "Display name"
// @Success     201   {object}  domain.PendingConfirmation
// @Failure     403   {object}  handlers.ErrorResponse
// @Router      /admin/documents/{id}/delete [post]
func (h *Handlers) RequestDeleteDocument(c *gin.Context) {
	var req DeleteDocumentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	p, err := h.admin.RequestDeleteDocument(c.Param("id"), req.Filename)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ConfirmDeletion godoc
// @ID          confirmDeletion
// @Summary     Run a pending deletion
// @Tags        Admin
// @Param       id  path  string  true  "Confirmation ID"
// @Success     204
// @Failure     404  {object}  handlers.ErrorResponse  "No such confirmation"
// @Failure     422  {object}  handlers.ErrorResponse  "Rejected by the backend"
// @Router      /admin/confirmations/{id}/confirm [post]
func (h *Handlers) ConfirmDeletion(c *gin.Context) {
	if err := h.admin.Confirm(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// CancelDeletion godoc
// @ID          cancelDeletion
// @Summary     Dismiss a pending deletion
// @Tags        Admin
// @Param       id  path  string  true  "Confirmation ID"
// @Success     204
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/confirmations/{id} [delete]
func (h *Handlers) CancelDeletion(c *gin.Context) {
	if err := h.admin.Cancel(c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
