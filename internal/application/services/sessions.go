package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// Sessions keeps one Session, each with its own TaskStore, per signed-in
// user. Requests only ever reach the store of the user their token names.
type Sessions struct {
	auth     ports.Authenticator
	newStore func() *TaskStore
	logger   *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*trackedSession
}

type trackedSession struct {
	session  *Session
	lastSeen time.Time
}

// NewSessions creates an empty registry. newStore builds the store of each
// new session and must return a store with no active scope.
func NewSessions(auth ports.Authenticator, newStore func() *TaskStore, logger *logger.Logger) *Sessions {
	return &Sessions{
		auth:     auth,
		newStore: newStore,
		logger:   logger.WithComponent("sessions"),
		now:      time.Now,
		sessions: map[uuid.UUID]*trackedSession{},
	}
}

// Resolve returns the session of the user a validated token belongs to,
// loading their list on first use.
func (r *Sessions) Resolve(ctx context.Context, claims *ports.Claims) *Session {
	r.mu.Lock()
	tracked, ok := r.sessions[claims.UserID]
	if !ok {
		tracked = &trackedSession{session: r.open(ctx, claims.UserID)}
		r.sessions[claims.UserID] = tracked
	}
	tracked.lastSeen = r.now()
	session := tracked.session
	r.mu.Unlock()

	session.ObserveClaims(ctx, claims)
	return session
}

func (r *Sessions) SignUp(ctx context.Context, email, password string) (*ports.AuthResponse, error) {
	session := r.open(ctx, uuid.Nil)

	resp, err := session.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	r.adopt(ctx, session, resp)
	return resp, nil
}

func (r *Sessions) SignIn(ctx context.Context, email, password string) (*ports.AuthResponse, error) {
	session := r.open(ctx, uuid.Nil)

	resp, err := session.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	r.adopt(ctx, session, resp)
	return resp, nil
}

// SignOut revokes the auth session named by claims and drops the user's
// session once its pending writes have finished. On failure nothing changes.
func (r *Sessions) SignOut(ctx context.Context, claims *ports.Claims) error {
	r.mu.Lock()
	tracked, ok := r.sessions[claims.UserID]
	r.mu.Unlock()

	if !ok {
		if err := r.auth.SignOut(ctx, claims.SessionID); err != nil {
			return fmt.Errorf("failed to sign out: %w", err)
		}
		return nil
	}

	if err := tracked.session.signOutSession(ctx, claims.SessionID); err != nil {
		return err
	}

	r.mu.Lock()
	if r.sessions[claims.UserID] == tracked {
		delete(r.sessions, claims.UserID)
	}
	r.mu.Unlock()

	tracked.session.Store().Wait()
	return nil
}

// Evict drops sessions that have not been used for idle. Their lists are
// already persisted; the next request of that user loads them again.
func (r *Sessions) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var evicted []*trackedSession
	for userID, tracked := range r.sessions {
		if tracked.lastSeen.Before(cutoff) {
			evicted = append(evicted, tracked)
			delete(r.sessions, userID)
		}
	}
	r.mu.Unlock()

	for _, tracked := range evicted {
		tracked.session.Store().Wait()
	}
	if len(evicted) > 0 {
		r.logger.Infow("Idle sessions evicted", "count", len(evicted))
	}
	return len(evicted)
}

// Len returns the number of users with a live session.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot merges the lists of every live session. It feeds the aggregate
// task gauges; the title is meaningless.
func (r *Sessions) Snapshot() entities.TaskList {
	merged := entities.NewTaskList()
	for _, session := range r.live() {
		merged.Tasks = append(merged.Tasks, session.Store().Snapshot().Tasks...)
	}
	return merged
}

// Wait blocks until the pending writes of every live session have finished.
func (r *Sessions) Wait() {
	for _, session := range r.live() {
		session.Store().Wait()
	}
}

func (r *Sessions) live() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := make([]*Session, 0, len(r.sessions))
	for _, tracked := range r.sessions {
		live = append(live, tracked.session)
	}
	return live
}

func (r *Sessions) open(ctx context.Context, userID uuid.UUID) *Session {
	log := r.logger
	if userID != uuid.Nil {
		log = log.WithUserID(userID.String())
	}

	session := NewSession(r.auth, r.newStore(), log)
	session.Start(ctx)
	return session
}

// adopt registers a freshly signed-in session. A user who already has one
// keeps it, so the list other requests are working on is not replaced.
func (r *Sessions) adopt(ctx context.Context, session *Session, resp *ports.AuthResponse) {
	claims := &ports.Claims{
		UserID:    resp.Identity.UserID,
		Email:     resp.Identity.Email,
		SessionID: resp.SessionID,
	}

	r.mu.Lock()
	tracked, ok := r.sessions[claims.UserID]
	if !ok {
		tracked = &trackedSession{session: session}
		r.sessions[claims.UserID] = tracked
	}
	tracked.lastSeen = r.now()
	existing := tracked.session
	r.mu.Unlock()

	if existing != session {
		existing.ObserveClaims(ctx, claims)
	}
}
