package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskmaster/todo/internal/domain/entities"
)

var (
	insertUser     = regexp.QuoteMeta(`INSERT INTO users (id, email, password_hash)`)
	selectUser     = regexp.QuoteMeta(`SELECT id, email, password_hash, created_at, last_login_at FROM users`)
	updateLastSeen = regexp.QuoteMeta(`UPDATE users SET last_login_at = $2 WHERE id = $1`)
)

func TestUserCreate(t *testing.T) {
	created := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		result  func(q *sqlmock.ExpectedQuery)
		wantErr error
	}{
		{
			name: "created",
			result: func(q *sqlmock.ExpectedQuery) {
				q.WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
			},
		},
		{
			name: "duplicate email",
			result: func(q *sqlmock.ExpectedQuery) {
				q.WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
			},
			wantErr: entities.ErrEmailInUse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewUserRepository(db)

			tt.result(mock.ExpectQuery(insertUser).
				WithArgs(sqlmock.AnyArg(), "ada@example.com", "hash"))

			user := &entities.User{Email: "  Ada@Example.com ", PasswordHash: "hash"}
			err := repo.Create(context.Background(), user)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if user.ID == uuid.Nil || !user.CreatedAt.Equal(created) {
					t.Errorf("user = %+v", user)
				}
			}
			expectationsMet(t, mock)
		})
	}
}

func TestUserCreateOtherErrorsAreWrapped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(insertUser).WillReturnError(&pq.Error{Code: "23502"})

	err := repo.Create(context.Background(), &entities.User{Email: "ada@example.com", PasswordHash: "hash"})
	if err == nil || errors.Is(err, entities.ErrEmailInUse) {
		t.Fatalf("Create() error = %v", err)
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		t.Errorf("cause lost: %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserGetByEmail(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(selectUser).WithArgs("ada@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "last_login_at"}).
				AddRow(id.String(), "ada@example.com", "hash", created, nil))

		user, err := repo.GetByEmail(context.Background(), "ADA@example.com")
		if err != nil {
			t.Fatalf("GetByEmail() error = %v", err)
		}
		if user.ID != id || user.PasswordHash != "hash" || user.LastLoginAt != nil {
			t.Errorf("user = %+v", user)
		}
		expectationsMet(t, mock)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(selectUser).WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "last_login_at"}))

		if _, err := repo.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, entities.ErrUserNotFound) {
			t.Errorf("GetByEmail() error = %v, want %v", err, entities.ErrUserNotFound)
		}
		expectationsMet(t, mock)
	})
}

func TestUserGetByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery(selectUser).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "last_login_at"}))

	if _, err := repo.GetByID(context.Background(), id); !errors.Is(err, entities.ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want %v", err, entities.ErrUserNotFound)
	}
	expectationsMet(t, mock)
}

func TestUserUpdateLastLogin(t *testing.T) {
	at := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"updated", 1, nil},
		{"unknown user", 0, entities.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewUserRepository(db)
			id := uuid.New()

			mock.ExpectExec(updateLastSeen).WithArgs(id, at).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			if err := repo.UpdateLastLogin(context.Background(), id, at); !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateLastLogin() error = %v, want %v", err, tt.wantErr)
			}
			expectationsMet(t, mock)
		})
	}
}
