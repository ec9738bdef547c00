package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/todo/internal/domain/entities"
)

// TaskListRepository is the persistence adapter behind the task store. A
// scope is the device in local mode or a user id in remote mode.
type TaskListRepository interface {
	// LoadInitialState returns the stored list for scope, or an empty list
	// with the default title when nothing is stored.
	LoadInitialState(ctx context.Context, scope string) (*entities.TaskList, error)
	// Persist replaces everything stored for scope with list.
	Persist(ctx context.Context, scope string, list entities.TaskList) error
	// Backend names the backend for logs and metrics.
	Backend() string
}

// KeyValueStore is the device-local storage the local backend writes its two
// entries into.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AuthRepository defines the interface for auth session operations
type AuthRepository interface {
	CreateSession(ctx context.Context, session *entities.AuthSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*entities.AuthSession, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error
	CleanupExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PersistenceObserver receives the outcome of every persist call.
type PersistenceObserver interface {
	ObservePersist(backend string, duration time.Duration, err error)
}
