// Package services – ChatService
//
// ChatService holds the active chat session and keeps it consistent with the
// backend transcript. Activation fetches the stored history; sending appends
// the user's message optimistically, allows at most one send in flight, and
// appends the assistant reply with a client timestamp on success. On failure
// the user message stays in the transcript and the draft is restored so the
// user can retry.
//
// Every activation bumps a generation counter. Completions that belong to an
// older generation (the user started another session or signed out while the
// call was in flight) are dropped instead of being applied.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/domain"
)

// SuggestedQuestions are offered once a session is active. Choosing one is
// the same as typing and sending it.
var SuggestedQuestions = []string{
	"Summarize this document.",
	"What are the main points discussed?",
	"Explain the research methodology used.",
	"What is the conclusion of this document?",
}

// ChatState is the renderable snapshot of the chat panel.
type ChatState struct {
	Version     uint64           `json:"version"`
	Active      bool             `json:"active"`
	SessionID   string           `json:"session_id,omitempty"`
	DocumentIDs []string         `json:"document_ids"`
	Messages    []domain.Message `json:"messages"`
	Loading     bool             `json:"loading"`
	Sending     bool             `json:"sending"`
	CanSend     bool             `json:"can_send"`
	Draft       string           `json:"draft"`
	Placeholder string           `json:"placeholder"`
	Suggestions []string         `json:"suggestions"`
}

// ChatService owns the active chat session.
type ChatService struct {
	API ChatAPI
	// Now stamps locally created messages.
	Now func() time.Time

	out    Notifier
	logger zerolog.Logger

	mu         sync.Mutex
	session    *domain.ChatSession
	generation uint64
	activating bool
	sending    bool
	draft      string
	version    uint64
}

// NewChatService wires the chat synchronizer.
func NewChatService(a ChatAPI, out Notifier) *ChatService {
	return &ChatService{
		API:    a,
		Now:    time.Now,
		out:    orNop(out),
		logger: log.With().Str("component", string(ComponentChat)).Logger(),
	}
}

// State returns a snapshot for rendering.
func (s *ChatService) State() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := ChatState{
		Version:     s.version,
		DocumentIDs: []string{},
		Messages:    []domain.Message{},
		Loading:     s.activating,
		Sending:     s.sending,
		Draft:       s.draft,
		Placeholder: "Select documents and start a session...",
		Suggestions: []string{},
	}
	if s.session != nil {
		st.Active = true
		st.SessionID = s.session.SessionID
		st.DocumentIDs = append(st.DocumentIDs, s.session.DocumentIDs...)
		st.Messages = append(st.Messages, s.session.Messages...)
		st.CanSend = !s.sending
		st.Suggestions = append(st.Suggestions, SuggestedQuestions...)
		if n := len(s.session.DocumentIDs); n > 1 {
			st.Placeholder = fmt.Sprintf("Ask about %d documents...", n)
		} else {
			st.Placeholder = "Ask about the selected document..."
		}
	}
	return st
}

// Session returns a copy of the active session, if any.
func (s *ChatService) Session() (*domain.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, false
	}
	cp := copySession(s.session)
	return &cp, true
}

// Activate fetches the history of sessionID and installs it as the active
// session. An empty history is valid.
func (s *ChatService) Activate(ctx context.Context, sessionID string, documentIDs []string) (*domain.ChatSession, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.session = nil
	s.activating = true
	s.draft = ""
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentChat)

	msgs, err := s.API.History(ctx, sessionID)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ErrStale
	}
	s.activating = false
	s.version++
	if err != nil {
		s.mu.Unlock()
		s.out.Render(ComponentChat)
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("load chat history")
		notice(s.out, domain.NoticeError, "Failed to start chat session: "+err.Error())
		return nil, err
	}
	s.session = &domain.ChatSession{
		SessionID:   sessionID,
		DocumentIDs: append([]string{}, documentIDs...),
		Messages:    append([]domain.Message{}, msgs...),
	}
	cp := copySession(s.session)
	s.mu.Unlock()
	s.out.Render(ComponentChat)
	return &cp, nil
}

// Send submits content to the active session and returns the assistant
// reply. Without an active session, or with blank content, it does nothing.
func (s *ChatService) Send(ctx context.Context, content string) (*domain.Message, error) {
	text := strings.TrimSpace(content)

	s.mu.Lock()
	if s.session == nil || text == "" {
		s.mu.Unlock()
		return nil, nil
	}
	if s.sending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.sending = true
	gen := s.generation
	req := api.ChatRequest{
		SessionID:   s.session.SessionID,
		Message:     text,
		DocumentIDs: append([]string{}, s.session.DocumentIDs...),
	}
	s.session.Messages = append(s.session.Messages, domain.Message{
		Content:   text,
		Sender:    domain.SenderUser,
		Timestamp: domain.NewTimestamp(s.Now().UTC()),
	})
	s.draft = ""
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentChat)

	resp, err := s.API.Chat(context.WithoutCancel(ctx), req)

	s.mu.Lock()
	s.sending = false
	if gen != s.generation {
		s.version++
		s.mu.Unlock()
		s.out.Render(ComponentChat)
		s.logger.Debug().Str("session_id", req.SessionID).Msg("dropping reply for inactive session")
		if err != nil {
			return nil, err
		}
		return nil, ErrStale
	}
	s.version++
	if err != nil {
		s.draft = text
		s.mu.Unlock()
		s.out.Render(ComponentChat)
		s.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("send chat message")
		notice(s.out, domain.NoticeError, "Chat error: "+err.Error())
		return nil, err
	}
	reply := domain.Message{
		Content:   resp.Response,
		Sender:    domain.SenderAssistant,
		Timestamp: domain.NewTimestamp(s.Now().UTC()),
	}
	s.session.Messages = append(s.session.Messages, reply)
	s.mu.Unlock()
	s.out.Render(ComponentChat)
	return &reply, nil
}

// AskSuggested sends the suggested question at index.
func (s *ChatService) AskSuggested(ctx context.Context, index int) (*domain.Message, error) {
	if index < 0 || index >= len(SuggestedQuestions) {
		return nil, ErrSuggestionIndex
	}
	return s.Send(ctx, SuggestedQuestions[index])
}

// SetDraft stores the text of the message being composed.
func (s *ChatService) SetDraft(text string) {
	s.mu.Lock()
	if s.draft == text {
		s.mu.Unlock()
		return
	}
	s.draft = text
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentChat)
}

// Reset drops the active session. In-flight completions are discarded; the
// send slot stays taken until the outstanding reply returns.
func (s *ChatService) Reset() {
	s.mu.Lock()
	s.generation++
	s.session = nil
	s.activating = false
	s.draft = ""
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentChat)
}

func copySession(in *domain.ChatSession) domain.ChatSession {
	return domain.ChatSession{
		SessionID:   in.SessionID,
		DocumentIDs: append([]string{}, in.DocumentIDs...),
		Messages:    append([]domain.Message{}, in.Messages...),
	}
}
