package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/ports"
)

// persistCall records one Persist invocation
type persistCall struct {
	scope string
	list  entities.TaskList
}

// fakeRepository is an in-memory ports.TaskListRepository keyed by scope
type fakeRepository struct {
	mu      sync.Mutex
	stored  map[string]entities.TaskList
	calls   []persistCall
	loadErr error
	saveErr error
	// block, when set, holds every Persist until it is closed.
	block chan struct{}
	// started receives the scope of each Persist as it begins.
	started chan string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{stored: map[string]entities.TaskList{}}
}

func (f *fakeRepository) Backend() string { return "fake" }

func (f *fakeRepository) LoadInitialState(ctx context.Context, scope string) (*entities.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return nil, f.loadErr
	}
	list, ok := f.stored[scope]
	if !ok {
		empty := entities.NewTaskList()
		return &empty, nil
	}
	clone := list.Clone()
	return &clone, nil
}

func (f *fakeRepository) Persist(ctx context.Context, scope string, list entities.TaskList) error {
	if f.started != nil {
		f.started <- scope
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, persistCall{scope: scope, list: list.Clone()})
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored[scope] = list.Clone()
	return nil
}

func (f *fakeRepository) persistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRepository) lastCall() persistCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeRepository) storedList(scope string) (entities.TaskList, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.stored[scope]
	return list, ok
}

// fakeObserver counts persist outcomes
type fakeObserver struct {
	mu       sync.Mutex
	ok       int
	failures int
}

func (o *fakeObserver) ObservePersist(backend string, duration time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failures++
		return
	}
	o.ok++
}

// fakeAuthenticator is a scripted ports.Authenticator
type fakeAuthenticator struct {
	mu         sync.Mutex
	users      map[string]entities.Identity
	passwords  map[string]string
	revoked    []uuid.UUID
	signOutErr error
}

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{
		users:     map[string]entities.Identity{},
		passwords: map[string]string{},
	}
}

func (a *fakeAuthenticator) SignUp(ctx context.Context, req ports.SignUpRequest) (*ports.AuthResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.users[req.Email]; ok {
		return nil, entities.ErrEmailInUse
	}
	identity := entities.Identity{UserID: uuid.New(), Email: req.Email}
	a.users[req.Email] = identity
	a.passwords[req.Email] = req.Password
	return &ports.AuthResponse{AccessToken: "token", SessionID: uuid.New(), Identity: identity}, nil
}

func (a *fakeAuthenticator) SignIn(ctx context.Context, req ports.SignInRequest) (*ports.AuthResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	identity, ok := a.users[req.Email]
	if !ok || a.passwords[req.Email] != req.Password {
		return nil, entities.ErrInvalidCredentials
	}
	return &ports.AuthResponse{AccessToken: "token", SessionID: uuid.New(), Identity: identity}, nil
}

func (a *fakeAuthenticator) SignOut(ctx context.Context, sessionID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.signOutErr != nil {
		return a.signOutErr
	}
	a.revoked = append(a.revoked, sessionID)
	return nil
}

func (a *fakeAuthenticator) ValidateToken(ctx context.Context, token string) (*ports.Claims, error) {
	return nil, errors.New("not implemented")
}
