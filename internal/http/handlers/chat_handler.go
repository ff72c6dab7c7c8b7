// Chat HTTP handlers.
//
// This file exposes REST endpoints for the active conversation:
//   - GET  /chat                       (messages, draft, suggestions, ETag)
//   - POST /chat/messages              (send a question)
//   - POST /chat/suggestions/{index}   (send a suggested question)
//   - PUT  /chat/draft                 (replace the input draft)
//
// A send without an active session, or with blank content, is a no-op and
// answers 204.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
	"github.com/tbourn/go-docchat-client/internal/utils"
)

// SendMessageRequest is the question to send.
type SendMessageRequest struct {
	Content string `json:"content" example:"What is the refund policy?"`
}

// DraftRequest replaces the input draft.
type DraftRequest struct {
	Text string `json:"text" example:"Summarize sec"`
}

// GetChat godoc
// @ID          getChat
// @Summary     Active conversation
// @Tags        Chat
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  services.ChatState
// @Success     304  {string}  string  "Not Modified"
// @Router      /chat [get]
func (h *Handlers) GetChat(c *gin.Context) {
	st := h.chat.State()
	state(c, services.ComponentChat, st.Version, st)
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Ask a question in the active session
// @Description Appends the question immediately, waits for the assistant and returns its reply. A failed send keeps the question and restores the draft.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SendMessageRequest  true  "Question"
// @Success     200   {object}  domain.Message
// @Success     204   "Nothing to send"
// @Failure     409   {object}  handlers.ErrorResponse  "A send is already in progress"
// @Failure     422   {object}  handlers.ErrorResponse  "Rejected by the backend"
// @Failure     502   {object}  handlers.ErrorResponse
// @Router      /chat/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	msg, err := h.chat.Send(c.Request.Context(), req.Content)
	reply(c, msg, err)
}

// AskSuggested godoc
// @ID          askSuggested
// @Summary     Send one of the suggested questions
// @Tags        Chat
// @Produce     json
// @Param       index  path      int  true  "Suggestion position (0-based)"
// @Success     200    {object}  domain.Message
// @Success     204    "Nothing to send"
// @Failure     400    {object}  handlers.ErrorResponse  "No suggestion at that position"
// @Router      /chat/suggestions/{index} [post]
func (h *Handlers) AskSuggested(c *gin.Context) {
	idx := utils.ParseIndex(c.Param("index"))
	msg, err := h.chat.AskSuggested(c.Request.Context(), idx)
	reply(c, msg, err)
}

// SetDraft godoc
// @ID          setDraft
// @Summary     Replace the input draft
// @Tags        Chat
// @Accept      json
// @Param       body  body  handlers.DraftRequest  true  "Draft"
// @Success     204
// @Router      /chat/draft [put]
func (h *Handlers) SetDraft(c *gin.Context) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	h.chat.SetDraft(req.Text)
	noContent(c)
}

func reply(c *gin.Context, msg *domain.Message, err error) {
	switch {
	case err != nil:
		failErr(c, err)
	case msg == nil:
		noContent(c)
	default:
		ok(c, http.StatusOK, msg)
	}
}
