package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
)

var (
	insertAuthSession = regexp.QuoteMeta(`INSERT INTO auth_sessions (id, user_id, expires_at)`)
	selectAuthSession = regexp.QuoteMeta(`SELECT id, user_id, expires_at, created_at, revoked_at FROM auth_sessions WHERE id = $1`)
	revokeAuthSession = regexp.QuoteMeta(`UPDATE auth_sessions SET revoked_at = CURRENT_TIMESTAMP WHERE id = $1 AND revoked_at IS NULL`)
	cleanupSessions   = regexp.QuoteMeta(`DELETE FROM auth_sessions WHERE expires_at < $1 OR revoked_at < $1`)
)

var authSessionColumns = []string{"id", "user_id", "expires_at", "created_at", "revoked_at"}

func TestAuthCreateSession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthRepository(db)
	userID := uuid.New()
	expires := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	created := expires.Add(-24 * time.Hour)

	mock.ExpectQuery(insertAuthSession).WithArgs(sqlmock.AnyArg(), userID, expires).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	session := &entities.AuthSession{UserID: userID, ExpiresAt: expires}
	if err := repo.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID == uuid.Nil || !session.CreatedAt.Equal(created) {
		t.Errorf("session = %+v", session)
	}
	expectationsMet(t, mock)
}

func TestAuthGetSession(t *testing.T) {
	id := uuid.New()
	userID := uuid.New()
	expires := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	revoked := expires.Add(-time.Hour)

	tests := []struct {
		name        string
		rows        *sqlmock.Rows
		wantErr     error
		wantRevoked bool
	}{
		{
			name: "active",
			rows: sqlmock.NewRows(authSessionColumns).
				AddRow(id.String(), userID.String(), expires, expires.Add(-24*time.Hour), nil),
		},
		{
			name: "revoked",
			rows: sqlmock.NewRows(authSessionColumns).
				AddRow(id.String(), userID.String(), expires, expires.Add(-24*time.Hour), revoked),
			wantRevoked: true,
		},
		{
			name:    "missing",
			rows:    sqlmock.NewRows(authSessionColumns),
			wantErr: entities.ErrAuthSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewAuthRepository(db)

			mock.ExpectQuery(selectAuthSession).WithArgs(id).WillReturnRows(tt.rows)

			session, err := repo.GetSession(context.Background(), id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetSession() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if session.UserID != userID {
					t.Errorf("UserID = %s, want %s", session.UserID, userID)
				}
				if (session.RevokedAt != nil) != tt.wantRevoked {
					t.Errorf("RevokedAt = %v, want revoked=%t", session.RevokedAt, tt.wantRevoked)
				}
			}
			expectationsMet(t, mock)
		})
	}
}

func TestAuthRevokeSession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthRepository(db)
	id := uuid.New()

	mock.ExpectExec(revokeAuthSession).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(revokeAuthSession).WithArgs(id).WillReturnError(errors.New("connection reset"))

	if err := repo.RevokeSession(context.Background(), id); err != nil {
		t.Fatalf("RevokeSession() error = %v", err)
	}
	if err := repo.RevokeSession(context.Background(), id); err == nil {
		t.Fatal("expected error")
	}
	expectationsMet(t, mock)
}

func TestAuthCleanupExpiredSessions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthRepository(db)
	before := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(cleanupSessions).WithArgs(before).WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.CleanupExpiredSessions(context.Background(), before)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions() error = %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}
	expectationsMet(t, mock)
}
