// Package services – DocumentService
//
// DocumentService lists the user's documents, keeps the chat selection (an
// insertion-ordered, duplicate-free set of indexed document ids), and derives
// the chat-session identity from a set of ids. Starting a session delegates
// the history fetch and installation to ChatService.
package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// ComputeSessionID derives the chat-session id of a document set.
//
// The empty set maps to the per-user global session. Otherwise the distinct
// ids are sorted lexicographically and joined with "_", so the result does not
// depend on selection order.
func ComputeSessionID(ids []string, username string) string {
	set := distinct(ids)
	if len(set) == 0 {
		return domain.GlobalSessionPrefix + username
	}
	sort.Strings(set)
	return strings.Join(set, "_")
}

// distinct returns the non-blank ids of in, first occurrence wins.
func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SessionActivator installs chat sessions.
type SessionActivator interface {
	Activate(ctx context.Context, sessionID string, documentIDs []string) (*domain.ChatSession, error)
	Reset()
}

// DocumentsState is the renderable snapshot of the document list and selection.
type DocumentsState struct {
	Version   uint64            `json:"version"`
	Loading   bool              `json:"loading"`
	Loaded    bool              `json:"loaded"`
	Documents []domain.Document `json:"documents"`
	Indexed   []domain.Document `json:"indexed"`
	Selection []string          `json:"selection"`
	CanStart  bool              `json:"can_start"`
}

// DocumentService owns the document list and the selection.
type DocumentService struct {
	API  DocumentsAPI
	Chat SessionActivator

	auth   IdentitySource
	out    Notifier
	logger zerolog.Logger
	group  singleflight.Group

	mu        sync.Mutex
	docs      []domain.Document
	selection []string
	loading   int
	loaded    bool
	epoch     uint64
	version   uint64
}

// NewDocumentService wires the document list.
func NewDocumentService(a DocumentsAPI, chat SessionActivator, auth IdentitySource, out Notifier) *DocumentService {
	return &DocumentService{
		API:    a,
		Chat:   chat,
		auth:   auth,
		out:    orNop(out),
		logger: log.With().Str("component", string(ComponentDocuments)).Logger(),
	}
}

// State returns a snapshot for rendering.
func (s *DocumentService) State() DocumentsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := append([]domain.Document{}, s.docs...)
	indexed := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if d.IsIndexed {
			indexed = append(indexed, d)
		}
	}
	return DocumentsState{
		Version:   s.version,
		Loading:   s.loading > 0,
		Loaded:    s.loaded,
		Documents: docs,
		Indexed:   indexed,
		Selection: append([]string{}, s.selection...),
		CanStart:  len(s.selection) > 0,
	}
}

// Selected returns the current selection in insertion order.
func (s *DocumentService) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.selection...)
}

// SessionID derives the session id of ids for the signed-in user.
func (s *DocumentService) SessionID(ids []string) (string, error) {
	id, err := requireIdentity(s.auth)
	if err != nil {
		return "", err
	}
	return ComputeSessionID(ids, id.Username), nil
}

// LoadDocuments refreshes the document list (documents panel, and the
// deferred refresh after an upload).
func (s *DocumentService) LoadDocuments(ctx context.Context) error {
	_, err := s.fetch(ctx, "Failed to load your documents: ")
	return err
}

// LoadForChat refreshes the list for the chat panel and resets the chat
// session and the selection.
func (s *DocumentService) LoadForChat(ctx context.Context) error {
	epoch, err := s.fetch(ctx, "Failed to load documents for chat: ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrStale
	}
	s.selection = nil
	s.version++
	s.mu.Unlock()
	if s.Chat != nil {
		s.Chat.Reset()
	}
	s.out.Render(ComponentDocuments)
	return nil
}

// fetch loads the list, deduplicating concurrent calls, and applies it unless
// a teardown happened meanwhile. It returns the epoch the result belongs to.
func (s *DocumentService) fetch(ctx context.Context, failPrefix string) (uint64, error) {
	if _, err := requireIdentity(s.auth); err != nil {
		return 0, err
	}
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	epoch := s.epoch
	s.loading++
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentDocuments)

	v, err, _ := s.group.Do("documents", func() (any, error) {
		return s.API.Documents(ctx)
	})

	s.mu.Lock()
	s.loading--
	s.version++
	if s.epoch != epoch {
		s.mu.Unlock()
		s.out.Render(ComponentDocuments)
		if err != nil {
			return epoch, err
		}
		return epoch, ErrStale
	}
	if err == nil {
		docs, _ := v.([]domain.Document)
		s.docs = append([]domain.Document{}, docs...)
		s.loaded = true
		s.selection = s.keepSelectable(s.selection)
	}
	s.mu.Unlock()
	s.out.Render(ComponentDocuments)

	if err != nil {
		s.logger.Warn().Err(err).Msg("list documents")
		notice(s.out, domain.NoticeError, failPrefix+err.Error())
		return epoch, err
	}
	return epoch, nil
}

// keepSelectable drops ids that are no longer listed as indexed. Caller holds mu.
func (s *DocumentService) keepSelectable(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := ids[:0:0]
	for _, id := range ids {
		if s.selectable(id) {
			out = append(out, id)
		}
	}
	return out
}

// selectable reports whether id is a listed, indexed document. Caller holds mu.
func (s *DocumentService) selectable(id string) bool {
	for _, d := range s.docs {
		if d.ID == id {
			return d.IsIndexed
		}
	}
	return false
}

// Toggle adds (checked) or removes id from the selection. Only listed,
// indexed documents can be added.
func (s *DocumentService) Toggle(id string, checked bool) error {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	if checked && !s.selectable(id) {
		s.mu.Unlock()
		return ErrNotSelectable
	}
	idx := -1
	for i, sel := range s.selection {
		if sel == id {
			idx = i
			break
		}
	}
	changed := false
	switch {
	case checked && idx < 0:
		s.selection = append(s.selection, id)
		changed = true
	case !checked && idx >= 0:
		s.selection = append(s.selection[:idx:idx], s.selection[idx+1:]...)
		changed = true
	}
	if changed {
		s.version++
	}
	s.mu.Unlock()
	if changed {
		s.out.Render(ComponentDocuments)
	}
	return nil
}

// ClearSelection empties the selection.
func (s *DocumentService) ClearSelection() {
	s.mu.Lock()
	s.selection = nil
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentDocuments)
}

// StartSession activates the chat session of ids. The set must be non-empty.
// Starting the same set again reproduces the same session id and re-fetches
// its history.
func (s *DocumentService) StartSession(ctx context.Context, ids []string) (*domain.ChatSession, error) {
	set := distinct(ids)
	if len(set) == 0 {
		return nil, ErrEmptySelection
	}
	sid, err := s.SessionID(set)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("session_id", sid).Int("documents", len(set)).Msg("start chat session")
	return s.Chat.Activate(ctx, sid, set)
}

// StartSelected starts the session of the current selection.
func (s *DocumentService) StartSelected(ctx context.Context) (*domain.ChatSession, error) {
	return s.StartSession(ctx, s.Selected())
}

// Reset drops the list and the selection (session teardown).
func (s *DocumentService) Reset() {
	s.mu.Lock()
	s.epoch++
	s.docs = nil
	s.selection = nil
	s.loaded = false
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentDocuments)
}
