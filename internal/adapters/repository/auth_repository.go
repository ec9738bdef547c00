package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/ports"
)

// AuthRepositoryImpl implements the AuthRepository interface
type AuthRepositoryImpl struct {
	db *sqlx.DB
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(db *sqlx.DB) ports.AuthRepository {
	return &AuthRepositoryImpl{db: db}
}

func (r *AuthRepositoryImpl) CreateSession(ctx context.Context, session *entities.AuthSession) error {
	query := `
		INSERT INTO auth_sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query, session.ID, session.UserID, session.ExpiresAt).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("create auth session: %w", err)
	}

	return nil
}

func (r *AuthRepositoryImpl) GetSession(ctx context.Context, id uuid.UUID) (*entities.AuthSession, error) {
	query := `
		SELECT id, user_id, expires_at, created_at, revoked_at
		FROM auth_sessions
		WHERE id = $1`

	var session entities.AuthSession
	err := r.db.GetContext(ctx, &session, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrAuthSessionNotFound
		}
		return nil, fmt.Errorf("get auth session: %w", err)
	}

	return &session, nil
}

func (r *AuthRepositoryImpl) RevokeSession(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE auth_sessions
		SET revoked_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke auth session: %w", err)
	}

	return nil
}

func (r *AuthRepositoryImpl) CleanupExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM auth_sessions WHERE expires_at < $1 OR revoked_at < $1`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}
