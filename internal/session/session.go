package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zombor/ai-accountant/internal/api"
	"github.com/zombor/ai-accountant/internal/store"
)

// Backend is the part of the gateway the session store drives
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Signup(ctx context.Context, signup api.SignupRequest) (*api.AuthResponse, error)
	UpdateMe(ctx context.Context, patch api.IdentityPatch) (*api.Identity, error)
	Arm(token string)
	Disarm()
}

// Session is the credential and identity held for the current login.
// Token is empty exactly when Identity is nil.
type Session struct {
	Token    string
	Identity *api.Identity
}

// Authenticated reports whether the session carries a credential
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Identity != nil
}

// SignupParams are the fields collected by the signup form
type SignupParams struct {
	Email            string
	Password         string
	DisplayName      string
	AccountMode      api.AccountMode
	OrganizationName string
}

// ErrNotAuthenticated is returned by operations that need a session
var ErrNotAuthenticated = &api.ValidationError{Reason: "Please login first"}

// Store owns the session state and its persisted copy, and keeps the gateway's
// credential in step with it.
type Store struct {
	prefs   store.Preferences
	backend Backend

	mu       sync.RWMutex
	token    string
	identity *api.Identity
	loading  bool
}

// NewStore creates a Store. It reports Loading until Restore has run.
func NewStore(prefs store.Preferences, backend Backend) *Store {
	return &Store{
		prefs:   prefs,
		backend: backend,
		loading: true,
	}
}

// Restore reads the persisted session. The token is trusted as-is and not
// validated against the backend.
func (s *Store) Restore() error {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	token, err := s.prefs.Get(store.KeyToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	rawUser, err := s.prefs.Get(store.KeyUser)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading identity: %w", err)
	}

	var identity api.Identity
	if err := json.Unmarshal([]byte(rawUser), &identity); err != nil {
		slog.Warn("Discarding unreadable persisted identity", "error", err)
		return nil
	}
	if token == "" {
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.identity = &identity
	s.backend.Arm(token)
	s.mu.Unlock()

	slog.Debug("Session restored", "identity", identity.ID)
	return nil
}

// Loading is true until Restore completes
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsAuthenticated reports whether a session is held
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Current returns a copy of the session
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Session{}
	}
	identity := *s.identity
	return Session{Token: s.token, Identity: &identity}
}

// Login exchanges credentials for a session. Failures carry the server's reason and are not retried.
func (s *Store) Login(ctx context.Context, email, password string) (Session, error) {
	resp, err := s.backend.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return Session{}, err
	}
	if err := s.establish(resp); err != nil {
		return Session{}, err
	}
	return s.Current(), nil
}

// Signup registers an account and establishes its session
func (s *Store) Signup(ctx context.Context, params SignupParams) (Session, error) {
	req := api.SignupRequest{
		Email:       strings.TrimSpace(params.Email),
		Password:    params.Password,
		DisplayName: params.DisplayName,
		AccountMode: params.AccountMode,
	}
	if req.AccountMode == "" {
		req.AccountMode = api.AccountModeIndividual
	}
	if req.AccountMode == api.AccountModeOrganization && params.OrganizationName != "" {
		org := params.OrganizationName
		req.OrganizationName = &org
	}

	resp, err := s.backend.Signup(ctx, req)
	if err != nil {
		return Session{}, err
	}
	if err := s.establish(resp); err != nil {
		return Session{}, err
	}
	return s.Current(), nil
}

// establish persists the new session, then swaps it in and arms the gateway
// before returning.
func (s *Store) establish(resp *api.AuthResponse) error {
	if resp.AccessToken == "" {
		return &api.AuthError{Detail: "server returned no access token"}
	}
	identity := resp.User

	rawUser, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshaling identity: %w", err)
	}
	// The token is written last so a stored token never pairs with another
	// session's identity.
	if err := s.prefs.Set(store.KeyUser, string(rawUser)); err != nil {
		return fmt.Errorf("persisting identity: %w", err)
	}
	if err := s.prefs.Set(store.KeyToken, resp.AccessToken); err != nil {
		s.discardPersisted()
		return fmt.Errorf("persisting token: %w", err)
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	s.identity = &identity
	s.backend.Arm(resp.AccessToken)
	s.mu.Unlock()
	return nil
}

// discardPersisted drops a half-written session so Restore finds nothing to pair
func (s *Store) discardPersisted() {
	if err := s.prefs.Delete(store.KeyToken); err != nil {
		slog.Warn("Failed to clear stale token", "error", err)
	}
	if err := s.prefs.Delete(store.KeyUser); err != nil {
		slog.Warn("Failed to clear stale identity", "error", err)
	}
}

// Logout clears the session in memory and on disk and disarms the gateway.
// Calling it without a session is a no-op.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.backend.Disarm()
	s.mu.Unlock()

	if err := s.prefs.Delete(store.KeyToken); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	if err := s.prefs.Delete(store.KeyUser); err != nil {
		return fmt.Errorf("clearing identity: %w", err)
	}
	return nil
}

// UpdateIdentity sends a partial update and replaces the persisted identity.
// The credential is left untouched.
func (s *Store) UpdateIdentity(ctx context.Context, patch api.IdentityPatch) (*api.Identity, error) {
	if !s.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	updated, err := s.backend.UpdateMe(ctx, patch)
	if err != nil {
		return nil, err
	}

	rawUser, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("marshaling identity: %w", err)
	}
	if err := s.prefs.Set(store.KeyUser, string(rawUser)); err != nil {
		return nil, fmt.Errorf("persisting identity: %w", err)
	}

	s.mu.Lock()
	identity := *updated
	s.identity = &identity
	s.mu.Unlock()

	return updated, nil
}
