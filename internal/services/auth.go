// Package services – AuthService
//
// AuthService is the single writer of the session: the confirmed Identity and
// the persisted bearer credential. A credential alone never establishes a
// session; every successful exchange (password login, external credential,
// startup restore) is followed by a profile fetch, and only its success
// installs the Identity. A failed profile fetch tears the session down again.
//
// Teardown (logout, failed confirmation, any 401 from the backend) clears the
// in-memory identity, detaches the token from the backend client, deletes the
// stored credential, and runs every registered teardown hook so the other
// panels drop their state.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/domain"
)

// AuthState is the renderable snapshot of the session.
type AuthState struct {
	Version       uint64           `json:"version"`
	Authenticated bool             `json:"authenticated"`
	Identity      *domain.Identity `json:"identity,omitempty"`
	Pending       bool             `json:"pending"`
}

// AuthService owns the session.
type AuthService struct {
	API   AuthAPI
	Store TokenStore
	// Now is the clock used for token expiry checks.
	Now func() time.Time

	out    Notifier
	logger zerolog.Logger

	mu         sync.RWMutex
	identity   *domain.Identity
	hasToken   bool
	pending    int
	epoch      uint64
	version    uint64
	onSignedIn []func(ctx context.Context, id domain.Identity)
	onTeardown []func()
}

// NewAuthService wires the session controller.
func NewAuthService(a AuthAPI, store TokenStore, out Notifier) *AuthService {
	return &AuthService{
		API:    a,
		Store:  store,
		Now:    time.Now,
		out:    orNop(out),
		logger: log.With().Str("component", string(ComponentAuth)).Logger(),
	}
}

// OnSignedIn registers fn to run after an Identity has been confirmed.
func (s *AuthService) OnSignedIn(fn func(ctx context.Context, id domain.Identity)) {
	s.mu.Lock()
	s.onSignedIn = append(s.onSignedIn, fn)
	s.mu.Unlock()
}

// OnTeardown registers fn to run whenever the session is torn down.
func (s *AuthService) OnTeardown(fn func()) {
	s.mu.Lock()
	s.onTeardown = append(s.onTeardown, fn)
	s.mu.Unlock()
}

// CurrentIdentity returns the confirmed identity, if any.
func (s *AuthService) CurrentIdentity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// State returns a snapshot for rendering.
func (s *AuthService) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := AuthState{Version: s.version, Authenticated: s.identity != nil, Pending: s.pending > 0}
	if s.identity != nil {
		id := *s.identity
		st.Identity = &id
	}
	return st
}

// Login exchanges username and password for a credential and confirms it.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	ctx = context.WithoutCancel(ctx)

	epoch, done := s.begin()
	defer done()

	tr, err := s.API.Login(ctx, username, password)
	if err != nil {
		s.logger.Info().Err(err).Str("username", username).Msg("login rejected")
		notice(s.out, domain.NoticeError, "Login failed: "+err.Error())
		return nil, classify(ErrAuth, err)
	}
	return s.establish(ctx, epoch, tr.AccessToken, true)
}

// LoginWithExternalCredential exchanges a third-party identity token (Google
// sign-in) for a credential and confirms it.
func (s *AuthService) LoginWithExternalCredential(ctx context.Context, idToken string) (*domain.Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrEmptyToken
	}
	ctx = context.WithoutCancel(ctx)

	epoch, done := s.begin()
	defer done()

	tr, err := s.API.LoginGoogle(ctx, idToken)
	if err != nil {
		s.logger.Info().Err(err).Msg("external login rejected")
		notice(s.out, domain.NoticeError, "Google sign-in failed: "+err.Error())
		return nil, classify(ErrAuth, err)
	}
	return s.establish(ctx, epoch, tr.AccessToken, true)
}

// Register creates an account. It never signs the user in.
func (s *AuthService) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return ErrMissingRegistration
	}
	ctx = context.WithoutCancel(ctx)

	_, done := s.begin()
	defer done()

	if _, err := s.API.Register(ctx, api.RegisterRequest{Username: username, Email: email, Password: password}); err != nil {
		notice(s.out, domain.NoticeError, "Registration failed: "+err.Error())
		if errors.Is(err, api.ErrRejected) {
			return classify(ErrConflict, err)
		}
		return err
	}
	s.logger.Info().Str("username", username).Msg("account registered")
	notice(s.out, domain.NoticeSuccess, "Registration successful. Please sign in.")
	return nil
}

// Restore validates a persisted credential at startup. It returns (nil, nil)
// when there is nothing to restore.
func (s *AuthService) Restore(ctx context.Context) (*domain.Identity, error) {
	ctx = context.WithoutCancel(ctx)
	tok, err := s.Store.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("read stored credential")
		return nil, nil
	}
	if tok == "" {
		return nil, nil
	}
	if _, exp := inspectToken(tok); exp != nil && !exp.After(s.Now()) {
		s.logger.Info().Time("expired_at", *exp).Msg("stored credential expired")
		if err := s.Store.Clear(ctx); err != nil {
			s.logger.Error().Err(err).Msg("clear stored credential")
		}
		notice(s.out, domain.NoticeInfo, "Your session has expired. Please sign in again.")
		return nil, nil
	}

	epoch, done := s.begin()
	defer done()
	return s.establish(ctx, epoch, tok, false)
}

// Logout ends the session unconditionally.
func (s *AuthService) Logout() {
	s.teardown()
	s.logger.Info().Msg("signed out")
	notice(s.out, domain.NoticeInfo, "You have been signed out.")
}

// HandleUnauthorized is invoked for every 401 answer of the backend.
func (s *AuthService) HandleUnauthorized() {
	if s.teardown() {
		s.logger.Warn().Msg("credential rejected by backend")
		notice(s.out, domain.NoticeError, "Your session has expired. Please sign in again.")
	}
}

// establish persists token (when asked), attaches it, and confirms it with a
// profile fetch. epoch is the value observed when the exchange began; a
// teardown since then makes the token stale and nothing is stored.
func (s *AuthService) establish(ctx context.Context, epoch uint64, token string, persist bool) (*domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		notice(s.out, domain.NoticeError, "Login failed: the server returned no credential.")
		return nil, classify(ErrAuth, errors.New("empty access token"))
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Info().Msg("credential exchange superseded by sign-out")
		return nil, ErrStale
	}
	s.epoch++
	epoch = s.epoch
	s.hasToken = true
	s.mu.Unlock()

	if persist {
		sub, exp := inspectToken(token)
		if err := s.Store.Save(ctx, token, sub, exp); err != nil {
			s.logger.Error().Err(err).Msg("persist credential")
		}
	}
	s.API.SetToken(token)

	if !s.current(epoch) {
		s.dropLate(ctx)
		return nil, ErrStale
	}

	id, err := s.API.Profile(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("profile confirmation failed")
		s.teardown()
		// A 401 has already been announced by HandleUnauthorized.
		if !errors.Is(err, api.ErrUnauthorized) {
			notice(s.out, domain.NoticeError, "Could not load your profile: "+err.Error())
		}
		return nil, classify(ErrAuth, err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil, ErrStale
	}
	confirmed := *id
	s.identity = &confirmed
	s.version++
	hooks := append([]func(context.Context, domain.Identity){}, s.onSignedIn...)
	s.mu.Unlock()

	s.logger.Info().Str("username", confirmed.Username).Str("role", string(confirmed.Role)).Msg("signed in")
	s.out.Render(ComponentAuth)
	for _, fn := range hooks {
		fn(ctx, confirmed)
	}
	return &confirmed, nil
}

// teardown clears the session and reports whether one existed.
func (s *AuthService) teardown() bool {
	s.mu.Lock()
	had := s.identity != nil || s.hasToken
	s.epoch++
	s.identity = nil
	s.hasToken = false
	s.version++
	hooks := append([]func(){}, s.onTeardown...)
	s.mu.Unlock()

	s.API.SetToken("")
	if err := s.Store.Clear(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("clear stored credential")
	}
	for _, fn := range hooks {
		fn()
	}
	s.out.Render(ComponentAuth)
	return had
}

func (s *AuthService) current(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch == epoch
}

// dropLate removes a credential that was persisted while a teardown ran,
// unless a newer session already holds one.
func (s *AuthService) dropLate(ctx context.Context) {
	s.mu.RLock()
	live := s.hasToken
	s.mu.RUnlock()
	if live {
		return
	}
	s.API.SetToken("")
	if err := s.Store.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("clear stored credential")
	}
}

// begin marks a credential exchange in progress and returns the session
// epoch it started under.
func (s *AuthService) begin() (uint64, func()) {
	s.mu.Lock()
	s.pending++
	s.version++
	epoch := s.epoch
	s.mu.Unlock()
	s.out.Render(ComponentAuth)
	return epoch, func() {
		s.mu.Lock()
		s.pending--
		s.version++
		s.mu.Unlock()
		s.out.Render(ComponentAuth)
	}
}

// inspectToken reads subject and expiry from a JWT without verifying it.
// Opaque tokens yield zero values.
func inspectToken(token string) (subject string, expiresAt *time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", nil
	}
	if sub, err := claims.GetSubject(); err == nil {
		subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		expiresAt = &t
	}
	return subject, expiresAt
}
