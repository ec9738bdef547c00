package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// SessionState is the authentication state of the remote-mode session
type SessionState string

const (
	SessionUnknown       SessionState = "unknown"
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

// Session tracks who is signed in and keeps the task store scoped to them.
type Session struct {
	auth   ports.Authenticator
	store  *TaskStore
	logger *logger.Logger

	mu        sync.Mutex
	state     SessionState
	identity  *entities.Identity
	sessionID uuid.UUID
}

// NewSession creates a session in the unknown state
func NewSession(auth ports.Authenticator, store *TaskStore, logger *logger.Logger) *Session {
	return &Session{
		auth:   auth,
		store:  store,
		logger: logger.WithComponent("session"),
		state:  SessionUnknown,
	}
}

// Start resolves the boot-time identity. Nothing is remembered across
// restarts, so the session becomes anonymous.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionUnknown {
		s.state = SessionAnonymous
		s.store.Clear()
	}
}

// ObserveIdentity applies an identity change. nil signs the session out
// locally; a new identity loads that user's list.
func (s *Session) ObserveIdentity(ctx context.Context, identity *entities.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observe(ctx, identity, uuid.Nil)
}

// ObserveClaims is ObserveIdentity for a validated token; it also remembers
// the auth session the token belongs to so SignOut can revoke it.
func (s *Session) ObserveClaims(ctx context.Context, claims *ports.Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if claims == nil {
		s.observe(ctx, nil, uuid.Nil)
		return
	}
	identity := claims.Identity()
	s.observe(ctx, &identity, claims.SessionID)
}

func (s *Session) SignUp(ctx context.Context, email, password string) (*ports.AuthResponse, error) {
	resp, err := s.auth.SignUp(ctx, ports.SignUpRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Infow("Sign-up failed", "error", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe(ctx, &resp.Identity, resp.SessionID)

	return resp, nil
}

func (s *Session) SignIn(ctx context.Context, email, password string) (*ports.AuthResponse, error) {
	resp, err := s.auth.SignIn(ctx, ports.SignInRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Infow("Sign-in failed", "error", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe(ctx, &resp.Identity, resp.SessionID)

	return resp, nil
}

// SignOut revokes the current auth session and clears the task store. When
// the revoke fails the session stays authenticated.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionAuthenticated {
		return nil
	}
	return s.endSession(ctx, s.sessionID)
}

// signOutSession is SignOut for a specific auth session, as named by the
// token of the request that asked for it. The revoke is attempted even when
// the session never finished authenticating.
func (s *Session) signOutSession(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endSession(ctx, sessionID)
}

// endSession callers hold s.mu.
func (s *Session) endSession(ctx context.Context, sessionID uuid.UUID) error {
	if sessionID != uuid.Nil {
		if err := s.auth.SignOut(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to sign out: %w", err)
		}
	}

	s.observe(ctx, nil, uuid.Nil)
	return nil
}

// Store is the task store this session keeps scoped to its identity.
func (s *Session) Store() *TaskStore {
	return s.store
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns a copy of the signed-in identity, or nil.
func (s *Session) Identity() *entities.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// observe performs the transition. Callers hold s.mu.
func (s *Session) observe(ctx context.Context, identity *entities.Identity, sessionID uuid.UUID) {
	if identity == nil {
		if s.state != SessionAnonymous {
			s.logger.Infow("Session signed out", "previous_state", s.state)
		}
		s.state = SessionAnonymous
		s.identity = nil
		s.sessionID = uuid.Nil
		s.store.Clear()
		return
	}

	if s.state == SessionAuthenticated && s.identity != nil && s.identity.UserID == identity.UserID {
		if sessionID != uuid.Nil {
			s.sessionID = sessionID
		}
		return
	}

	current := *identity
	s.state = SessionAuthenticated
	s.identity = &current
	s.sessionID = sessionID

	s.logger.Infow("Session authenticated", "user_id", current.UserID)
	s.store.Activate(ctx, current.Scope())
}
