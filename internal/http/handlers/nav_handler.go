// Navigation endpoints.
//
//   - GET  /nav             (view, active panel, visible panels)
//   - PUT  /nav/panel       (activate a panel, runs its loader)
//   - POST /nav/open-chat   (chat panel with one document pre-selected)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
)

// ActivatePanelRequest names the panel to show.
type ActivatePanelRequest struct {
	Panel string `json:"panel" example:"documents"`
}

// OpenChatRequest names the document to chat about.
type OpenChatRequest struct {
	DocumentID string `json:"document_id" example:"3f1c2a"`
}

// GetNav godoc
// @ID          getNav
// @Summary     Navigation state
// @Tags        Navigation
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  services.NavState
// @Success     304  {string}  string  "Not Modified"
// @Router      /nav [get]
func (h *Handlers) GetNav(c *gin.Context) {
	st := h.nav.State()
	state(c, services.ComponentNav, st.Version, st)
}

// ActivatePanel godoc
// @ID          activatePanel
// @Summary     Activate a panel
// @Description Makes the panel active and runs its load routine. Load failures are reported as notices; the switch itself succeeds.
// @Tags        Navigation
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ActivatePanelRequest  true  "Panel"
// @Success     200   {object}  services.NavState
// @Failure     400   {object}  handlers.ErrorResponse  "Unknown panel"
// @Failure     401   {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     403   {object}  handlers.ErrorResponse  "Admin only"
// @Router      /nav/panel [put]
func (h *Handlers) ActivatePanel(c *gin.Context) {
	var req ActivatePanelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, known := domain.ParsePanel(req.Panel)
	if !known {
		failErr(c, services.ErrUnknownPanel)
		return
	}
	if err := h.nav.Activate(c.Request.Context(), p); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.nav.State())
}

// OpenChat godoc
// @ID          openChat
// @Summary     Chat about one document
// @Tags        Navigation
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.OpenChatRequest  true  "Document"
// @Success     200   {object}  services.NavState
// @Failure     400   {object}  handlers.ErrorResponse  "Document not selectable"
// @Router      /nav/open-chat [post]
func (h *Handlers) OpenChat(c *gin.Context) {
	var req OpenChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.nav.OpenChatFor(c.Request.Context(), req.DocumentID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.nav.State())
}
