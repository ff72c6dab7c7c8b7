// Package services – Navigator
//
// Navigator decides between the unauthenticated view and the dashboard, and
// within the dashboard keeps exactly one panel active. Activating a panel runs
// its registered loader; loaders report their own failures as notices, so a
// failed load never blocks switching again.
package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// View is the top-level view of the client.
type View string

const (
	ViewAuth      View = "auth"
	ViewDashboard View = "dashboard"
)

// PanelLoader is the load routine run when a panel becomes active.
type PanelLoader func(ctx context.Context) error

// Selector pre-selects a document for chat.
type Selector interface {
	Toggle(id string, checked bool) error
}

// NavState is the renderable snapshot of navigation.
type NavState struct {
	Version uint64         `json:"version"`
	View    View           `json:"view"`
	Active  domain.Panel   `json:"active,omitempty"`
	Loading bool           `json:"loading"`
	Panels  []domain.Panel `json:"panels"`
}

// Navigator orchestrates the panels.
type Navigator struct {
	auth      IdentitySource
	out       Notifier
	logger    zerolog.Logger
	selection Selector

	mu      sync.Mutex
	loaders map[domain.Panel]PanelLoader
	view    View
	active  domain.Panel
	loading bool
	seq     uint64
	version uint64
}

// NewNavigator starts on the unauthenticated view.
func NewNavigator(auth IdentitySource, out Notifier) *Navigator {
	return &Navigator{
		auth:    auth,
		out:     orNop(out),
		logger:  log.With().Str("component", string(ComponentNav)).Logger(),
		loaders: make(map[domain.Panel]PanelLoader),
		view:    ViewAuth,
	}
}

// Register installs the loader of panel p.
func (n *Navigator) Register(p domain.Panel, l PanelLoader) {
	n.mu.Lock()
	n.loaders[p] = l
	n.mu.Unlock()
}

// SetSelector installs the document selector used by OpenChatFor.
func (n *Navigator) SetSelector(s Selector) {
	n.mu.Lock()
	n.selection = s
	n.mu.Unlock()
}

// State returns a snapshot for rendering.
func (n *Navigator) State() NavState {
	panels := n.VisiblePanels()
	n.mu.Lock()
	defer n.mu.Unlock()
	return NavState{
		Version: n.version,
		View:    n.view,
		Active:  n.active,
		Loading: n.loading,
		Panels:  panels,
	}
}

// VisiblePanels lists the panels the current user may open. The admin panel
// is hidden from non-admins; nothing is visible when signed out.
func (n *Navigator) VisiblePanels() []domain.Panel {
	id, ok := n.auth.CurrentIdentity()
	if !ok {
		return []domain.Panel{}
	}
	out := make([]domain.Panel, 0, len(domain.Panels))
	for _, p := range domain.Panels {
		if p == domain.PanelAdmin && !id.IsAdmin() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Activate makes p the active panel and runs its loader. Re-activating the
// active panel is a no-op.
func (n *Navigator) Activate(ctx context.Context, p domain.Panel) error {
	if _, ok := domain.ParsePanel(string(p)); !ok {
		return ErrUnknownPanel
	}
	id, ok := n.auth.CurrentIdentity()
	if !ok {
		return ErrNotAuthenticated
	}
	if p == domain.PanelAdmin && !id.IsAdmin() {
		return ErrForbidden
	}

	n.mu.Lock()
	if n.view == ViewDashboard && n.active == p {
		n.mu.Unlock()
		return nil
	}
	n.view = ViewDashboard
	n.active = p
	loader := n.loaders[p]
	n.seq++
	seq := n.seq
	n.loading = loader != nil
	n.version++
	n.mu.Unlock()
	n.out.Render(ComponentNav)

	if loader == nil {
		return nil
	}

	err := loader(context.WithoutCancel(ctx))
	if err != nil {
		n.logger.Warn().Err(err).Str("panel", string(p)).Msg("panel load failed")
	}

	n.mu.Lock()
	if n.seq == seq {
		n.loading = false
		n.version++
	}
	n.mu.Unlock()
	n.out.Render(ComponentNav)
	return nil
}

// ShowDashboard switches to the authenticated view with the chat panel active.
func (n *Navigator) ShowDashboard(ctx context.Context) error {
	if _, ok := n.auth.CurrentIdentity(); !ok {
		return ErrNotAuthenticated
	}
	n.mu.Lock()
	n.view = ViewDashboard
	n.active = ""
	n.version++
	n.mu.Unlock()
	return n.Activate(ctx, domain.PanelChat)
}

// ShowAuth switches to the unauthenticated view.
func (n *Navigator) ShowAuth() {
	n.mu.Lock()
	n.view = ViewAuth
	n.active = ""
	n.loading = false
	n.seq++
	n.version++
	n.mu.Unlock()
	n.out.Render(ComponentNav)
}

// OpenChatFor opens the chat panel with documentID pre-selected.
func (n *Navigator) OpenChatFor(ctx context.Context, documentID string) error {
	if err := n.Activate(ctx, domain.PanelChat); err != nil {
		return err
	}
	n.mu.Lock()
	sel := n.selection
	n.mu.Unlock()
	if sel == nil {
		return nil
	}
	return sel.Toggle(documentID, true)
}
