// Document list and selection endpoints.
//
//   - GET    /documents                  (list + selection, ETag)
//   - POST   /documents/reload
//   - PUT    /documents/selection/{id}   (check / uncheck)
//   - DELETE /documents/selection
//   - POST   /documents/session          (start a chat session)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
)

// ToggleRequest sets the checked state of one document.
type ToggleRequest struct {
	Checked bool `json:"checked" example:"true"`
}

// StartSessionRequest lists the documents to chat about. When empty, the
// current selection is used.
type StartSessionRequest struct {
	DocumentIDs []string `json:"document_ids" example:"a1,b2"`
}

// GetDocuments godoc
// @ID          getDocuments
// @Summary     Document list and selection
// @Tags        Documents
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  services.DocumentsState
// @Success     304  {string}  string  "Not Modified"
// @Router      /documents [get]
func (h *Handlers) GetDocuments(c *gin.Context) {
	st := h.docs.State()
	state(c, services.ComponentDocuments, st.Version, st)
}

// ReloadDocuments godoc
// @ID          reloadDocuments
// @Summary     Fetch the document list again
// @Tags        Documents
// @Produce     json
// @Success     200  {object}  services.DocumentsState
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     502  {object}  handlers.ErrorResponse
// @Router      /documents/reload [post]
func (h *Handlers) ReloadDocuments(c *gin.Context) {
	if err := h.docs.LoadDocuments(c.Request.Context()); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.docs.State())
}

// ToggleDocument godoc
// @ID          toggleDocument
// @Summary     Check or uncheck a document for chat
// @Tags        Documents
// @Accept      json
// @Produce     json
// @Param       id    path      string                  true  "Document ID"
// @Param       body  body      handlers.ToggleRequest  true  "Checked state"
// @Success     200   {object}  services.DocumentsState
// @Failure     400   {object}  handlers.ErrorResponse  "Unknown or not indexed"
// @Router      /documents/selection/{id} [put]
func (h *Handlers) ToggleDocument(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.docs.Toggle(c.Param("id"), req.Checked); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.docs.State())
}

// ClearSelection godoc
// @ID          clearSelection
// @Summary     Uncheck every document
// @Tags        Documents
// @Success     204
// @Router      /documents/selection [delete]
func (h *Handlers) ClearSelection(c *gin.Context) {
	h.docs.ClearSelection()
	noContent(c)
}

// StartSession godoc
// @ID          startSession
// @Summary     Start the chat session of a document set
// @Description Derives the session id from the set, fetches its stored history and makes it the active conversation.
// @Tags        Documents
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.StartSessionRequest  false  "Documents (defaults to the selection)"
// @Success     200   {object}  domain.ChatSession
// @Failure     400   {object}  handlers.ErrorResponse  "Empty selection"
// @Failure     502   {object}  handlers.ErrorResponse
// @Router      /documents/session [post]
func (h *Handlers) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	var (
		sess *domain.ChatSession
		err  error
	)
	if len(req.DocumentIDs) == 0 {
		sess, err = h.docs.StartSelected(c.Request.Context())
	} else {
		sess, err = h.docs.StartSession(c.Request.Context(), req.DocumentIDs)
	}
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}
