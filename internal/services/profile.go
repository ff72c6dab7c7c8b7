package services

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// statusUnknown is shown when the backend omits a status field.
const statusUnknown = "unknown"

// StatusLabel is one backend subsystem status as displayed on the profile panel.
type StatusLabel struct {
	Name      string `json:"name"`
	Raw       string `json:"raw"`
	Label     string `json:"label"`
	Connected bool   `json:"connected"`
}

// ProfileState is the renderable snapshot of the profile panel.
type ProfileState struct {
	Version  uint64           `json:"version"`
	Identity *domain.Identity `json:"identity,omitempty"`
	Loading  bool             `json:"loading"`
	Loaded   bool             `json:"loaded"`
	Statuses []StatusLabel    `json:"statuses"`
}

// ProfileService shows the signed-in identity and the backend system status.
type ProfileService struct {
	API HealthAPI

	auth   IdentitySource
	out    Notifier
	logger zerolog.Logger
	title  cases.Caser

	mu       sync.Mutex
	statuses []StatusLabel
	loading  bool
	loaded   bool
	epoch    uint64
	version  uint64
}

// NewProfileService wires the profile panel.
func NewProfileService(a HealthAPI, auth IdentitySource, out Notifier) *ProfileService {
	return &ProfileService{
		API:    a,
		auth:   auth,
		out:    orNop(out),
		logger: log.With().Str("component", string(ComponentProfile)).Logger(),
		title:  cases.Title(language.English),
	}
}

// State returns a snapshot for rendering.
func (s *ProfileService) State() ProfileState {
	st := ProfileState{Statuses: []StatusLabel{}}
	if id, ok := s.auth.CurrentIdentity(); ok {
		st.Identity = &id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.Version = s.version
	st.Loading = s.loading
	st.Loaded = s.loaded
	st.Statuses = append(st.Statuses, s.statuses...)
	return st
}

// Load fetches the backend status.
func (s *ProfileService) Load(ctx context.Context) error {
	if _, err := requireIdentity(s.auth); err != nil {
		return err
	}
	s.mu.Lock()
	epoch := s.epoch
	s.loading = true
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentProfile)

	h, err := s.API.Health(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrStale
	}
	s.loading = false
	s.version++
	if err != nil {
		s.mu.Unlock()
		s.out.Render(ComponentProfile)
		s.logger.Warn().Err(err).Msg("load system status")
		notice(s.out, domain.NoticeError, "Failed to load system status: "+err.Error())
		return err
	}
	s.statuses = []StatusLabel{
		s.label("database", h.Database),
		s.label("rag_service", h.RAGService),
	}
	s.loaded = true
	s.mu.Unlock()
	s.out.Render(ComponentProfile)
	return nil
}

func (s *ProfileService) label(name, raw string) StatusLabel {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		raw = statusUnknown
	}
	return StatusLabel{
		Name:      name,
		Raw:       raw,
		Label:     s.title.String(strings.ReplaceAll(raw, "_", " ")),
		Connected: raw == "connected",
	}
}

// Reset drops the loaded status (session teardown).
func (s *ProfileService) Reset() {
	s.mu.Lock()
	s.epoch++
	s.statuses = nil
	s.loading = false
	s.loaded = false
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentProfile)
}
