// Package services – AdminService
//
// AdminService drives the admin panel: aggregate counters plus three mutually
// exclusive tabs (users, documents, activity). Each opening of the panel
// starts a new visit; within a visit a tab's list is fetched only the first
// time it is switched to with forceLoad. The backend offers no activity log
// endpoint, so that tab resolves locally to an empty list marked unavailable.
//
// Deletions are two-step: a request creates a PendingConfirmation and only
// Confirm issues the DELETE. On success the affected list and the counters
// are both fetched again instead of being adjusted locally.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// AdminState is the renderable snapshot of the admin panel.
type AdminState struct {
	Version             uint64                       `json:"version"`
	Stats               *domain.AdminStats           `json:"stats,omitempty"`
	Tab                 domain.AdminTab              `json:"tab,omitempty"`
	Loading             bool                         `json:"loading"`
	Users               []domain.AdminUser           `json:"users"`
	Documents           []domain.Document            `json:"documents"`
	Activity            []domain.ActivityEntry       `json:"activity"`
	ActivityUnavailable bool                         `json:"activity_unavailable"`
	CurrentUser         string                       `json:"current_user,omitempty"`
	Pending             []domain.PendingConfirmation `json:"pending"`
}

// AdminService owns the admin snapshot.
type AdminService struct {
	API AdminAPI

	auth   IdentitySource
	out    Notifier
	logger zerolog.Logger

	mu                  sync.Mutex
	visit               uint64
	stats               *domain.AdminStats
	tab                 domain.AdminTab
	loaded              map[domain.AdminTab]bool
	loading             int
	users               []domain.AdminUser
	documents           []domain.Document
	activity            []domain.ActivityEntry
	activityUnavailable bool
	pending             map[string]domain.PendingConfirmation
	version             uint64
}

// NewAdminService wires the admin panel controller.
func NewAdminService(a AdminAPI, auth IdentitySource, out Notifier) *AdminService {
	return &AdminService{
		API:     a,
		auth:    auth,
		out:     orNop(out),
		logger:  log.With().Str("component", string(ComponentAdmin)).Logger(),
		loaded:  make(map[domain.AdminTab]bool),
		pending: make(map[string]domain.PendingConfirmation),
	}
}

// State returns a snapshot for rendering.
func (s *AdminService) State() AdminState {
	current := ""
	if id, ok := s.auth.CurrentIdentity(); ok {
		current = id.Username
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := AdminState{
		Version:             s.version,
		Tab:                 s.tab,
		Loading:             s.loading > 0,
		Users:               append([]domain.AdminUser{}, s.users...),
		Documents:           append([]domain.Document{}, s.documents...),
		Activity:            append([]domain.ActivityEntry{}, s.activity...),
		ActivityUnavailable: s.activityUnavailable,
		CurrentUser:         current,
		Pending:             make([]domain.PendingConfirmation, 0, len(s.pending)),
	}
	if s.stats != nil {
		stats := *s.stats
		st.Stats = &stats
	}
	for _, p := range s.pending {
		st.Pending = append(st.Pending, p)
	}
	sort.Slice(st.Pending, func(i, j int) bool { return st.Pending[i].ID < st.Pending[j].ID })
	return st
}

// LoadDashboard starts a new visit: it fetches the counters, then activates
// the users tab with forceLoad.
func (s *AdminService) LoadDashboard(ctx context.Context) error {
	if _, err := requireAdmin(s.auth); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	s.visit++
	visit := s.visit
	s.tab = ""
	s.loaded = make(map[domain.AdminTab]bool)
	s.users, s.documents, s.activity = nil, nil, nil
	s.activityUnavailable = false
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)

	if err := s.refreshStats(ctx, visit); err != nil {
		return err
	}
	return s.SwitchTab(ctx, domain.AdminTabUsers, true)
}

// SwitchTab activates tab. Switching to the active tab is a no-op. The tab's
// list is fetched only with forceLoad and only once per visit.
func (s *AdminService) SwitchTab(ctx context.Context, tab domain.AdminTab, forceLoad bool) error {
	if _, ok := domain.ParseAdminTab(string(tab)); !ok {
		return ErrUnknownTab
	}
	if _, err := requireAdmin(s.auth); err != nil {
		return err
	}

	s.mu.Lock()
	if s.tab == tab {
		s.mu.Unlock()
		return nil
	}
	s.tab = tab
	load := forceLoad && !s.loaded[tab]
	if load {
		s.loaded[tab] = true
	}
	visit := s.visit
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)

	if !load {
		return nil
	}
	return s.loadTab(context.WithoutCancel(ctx), tab, visit)
}

// loadTab fetches the list behind tab and applies it if visit is current.
func (s *AdminService) loadTab(ctx context.Context, tab domain.AdminTab, visit uint64) error {
	if tab == domain.AdminTabActivity {
		s.mu.Lock()
		if s.visit == visit {
			s.activity = []domain.ActivityEntry{}
			s.activityUnavailable = true
			s.version++
		}
		s.mu.Unlock()
		s.out.Render(ComponentAdmin)
		return nil
	}

	s.mu.Lock()
	s.loading++
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)

	var (
		users []domain.AdminUser
		docs  []domain.Document
		err   error
	)
	switch tab {
	case domain.AdminTabUsers:
		users, err = s.API.AdminUsers(ctx)
	case domain.AdminTabDocuments:
		docs, err = s.API.AdminDocuments(ctx)
	}

	s.mu.Lock()
	s.loading--
	s.version++
	if s.visit != visit {
		s.mu.Unlock()
		s.out.Render(ComponentAdmin)
		if err != nil {
			return err
		}
		return ErrStale
	}
	if err != nil {
		s.loaded[tab] = false
		s.mu.Unlock()
		s.out.Render(ComponentAdmin)
		s.logger.Warn().Err(err).Str("tab", string(tab)).Msg("load admin list")
		notice(s.out, domain.NoticeError, fmt.Sprintf("Failed to load %s: %s", tab, err.Error()))
		return err
	}
	switch tab {
	case domain.AdminTabUsers:
		s.users = append([]domain.AdminUser{}, users...)
	case domain.AdminTabDocuments:
		s.documents = append([]domain.Document{}, docs...)
	}
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)
	return nil
}

// refreshStats fetches the counters and applies them if visit is current.
func (s *AdminService) refreshStats(ctx context.Context, visit uint64) error {
	stats, err := s.API.AdminStats(ctx)

	s.mu.Lock()
	if s.visit != visit {
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrStale
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn().Err(err).Msg("load admin stats")
		notice(s.out, domain.NoticeError, "Failed to load admin dashboard: "+err.Error())
		return err
	}
	cp := *stats
	s.stats = &cp
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)
	return nil
}

// RequestDeleteUser creates the confirmation step for deleting username.
// Deleting one's own account is refused.
func (s *AdminService) RequestDeleteUser(username string) (*domain.PendingConfirmation, error) {
	self, err := requireAdmin(s.auth)
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyTarget
	}
	if username == self.Username {
		return nil, ErrSelfDelete
	}
	return s.request(domain.PendingConfirmation{
		Kind:    domain.ConfirmDeleteUser,
		Target:  username,
		Label:   username,
		Title:   "Delete user",
		Message: fmt.Sprintf("Are you sure you want to delete user %q? All of their documents and chat history will be removed permanently.", username),
	}), nil
}

// RequestDeleteDocument creates the confirmation step for deleting document id.
func (s *AdminService) RequestDeleteDocument(id, filename string) (*domain.PendingConfirmation, error) {
	if _, err := requireAdmin(s.auth); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyTarget
	}
	label := strings.TrimSpace(filename)
	if label == "" {
		label = id
	}
	return s.request(domain.PendingConfirmation{
		Kind:    domain.ConfirmDeleteDocument,
		Target:  id,
		Label:   label,
		Title:   "Delete document",
		Message: fmt.Sprintf("Are you sure you want to delete document %q? This cannot be undone.", label),
	}), nil
}

func (s *AdminService) request(p domain.PendingConfirmation) *domain.PendingConfirmation {
	p.ID = uuid.NewString()
	s.mu.Lock()
	s.pending[p.ID] = p
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)
	return &p
}

// Cancel discards a pending confirmation.
func (s *AdminService) Cancel(id string) error {
	s.mu.Lock()
	if _, ok := s.pending[id]; !ok {
		s.mu.Unlock()
		return ErrConfirmationNotFound
	}
	delete(s.pending, id)
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)
	return nil
}

// Confirm acknowledges a pending confirmation and issues the deletion. On
// success the affected list and the counters are fetched again.
func (s *AdminService) Confirm(ctx context.Context, id string) error {
	if _, err := requireAdmin(s.auth); err != nil {
		return err
	}
	s.mu.Lock()
	p, ok := s.pending[id]
	if !ok {
		s.mu.Unlock()
		return ErrConfirmationNotFound
	}
	delete(s.pending, id)
	visit := s.visit
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)

	ctx = context.WithoutCancel(ctx)
	var (
		err error
		tab domain.AdminTab
		done string
	)
	switch p.Kind {
	case domain.ConfirmDeleteUser:
		tab = domain.AdminTabUsers
		err = s.API.DeleteUser(ctx, p.Target)
		done = fmt.Sprintf("User %q deleted.", p.Label)
	case domain.ConfirmDeleteDocument:
		tab = domain.AdminTabDocuments
		err = s.API.DeleteDocument(ctx, p.Target)
		done = fmt.Sprintf("Document %q deleted.", p.Label)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(p.Kind)).Str("target", p.Target).Msg("admin delete")
		notice(s.out, domain.NoticeError, "Delete failed: "+err.Error())
		return err
	}
	s.logger.Info().Str("kind", string(p.Kind)).Str("target", p.Target).Msg("admin delete")
	notice(s.out, domain.NoticeSuccess, done)

	// Refresh failures raise their own notices; the deletion itself succeeded.
	_ = s.loadTab(ctx, tab, visit)
	_ = s.refreshStats(ctx, visit)
	return nil
}

// Reset drops the snapshot (session teardown).
func (s *AdminService) Reset() {
	s.mu.Lock()
	s.visit++
	s.stats = nil
	s.tab = ""
	s.loaded = make(map[domain.AdminTab]bool)
	s.users, s.documents, s.activity = nil, nil, nil
	s.activityUnavailable = false
	s.pending = make(map[string]domain.PendingConfirmation)
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentAdmin)
}
