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
	"github.com/taskmaster/todo/internal/infrastructure/database"
)

// RemoteTaskListRepository stores each user's list in postgres: the title in
// user_settings and the tasks in user_tasks, keyed by the scope.
type RemoteTaskListRepository struct {
	db *database.DB
}

// NewRemoteTaskListRepository creates a new remote task list repository
func NewRemoteTaskListRepository(db *database.DB) *RemoteTaskListRepository {
	return &RemoteTaskListRepository{db: db}
}

// taskRow is a user_tasks row.
type taskRow struct {
	ID        uuid.UUID `db:"id"`
	Position  int       `db:"position"`
	Text      string    `db:"text"`
	Completed bool      `db:"completed"`
	CreatedAt time.Time `db:"created_at"`
	DueDate   *string   `db:"due_date"`
	DueTime   *string   `db:"due_time"`
	Priority  string    `db:"priority"`
	ClassName *string   `db:"class_name"`
}

func (row taskRow) toTask() entities.Task {
	return entities.Task{
		ID:        row.ID,
		Text:      row.Text,
		Completed: row.Completed,
		CreatedAt: row.CreatedAt,
		DueDate:   row.DueDate,
		DueTime:   row.DueTime,
		Priority:  entities.Priority(row.Priority),
		ClassName: row.ClassName,
	}
}

func (r *RemoteTaskListRepository) Backend() string {
	return "remote"
}

func (r *RemoteTaskListRepository) LoadInitialState(ctx context.Context, scope string) (*entities.TaskList, error) {
	list := entities.NewTaskList()

	var title string
	err := r.db.DB.GetContext(ctx, &title,
		`SELECT list_title FROM user_settings WHERE user_id = $1`, scope)
	switch {
	case err == nil:
		list.Title = title
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("load list title: %w", err)
	}

	query := `
		SELECT id, position, text, completed, created_at, due_date, due_time, priority, class_name
		FROM user_tasks
		WHERE user_id = $1
		ORDER BY position ASC`

	var rows []taskRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, scope); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	for _, row := range rows {
		list.Tasks = append(list.Tasks, row.toTask())
	}

	list = list.Normalize()
	return &list, nil
}

// Persist rewrites the scope's settings row and every task row in one
// transaction.
func (r *RemoteTaskListRepository) Persist(ctx context.Context, scope string, list entities.TaskList) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_settings (user_id, list_title, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id) DO UPDATE
			SET list_title = EXCLUDED.list_title, updated_at = EXCLUDED.updated_at`,
			scope, list.Title)
		if err != nil {
			return fmt.Errorf("save list title: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM user_tasks WHERE user_id = $1`, scope); err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}

		insert := `
			INSERT INTO user_tasks (
				id, user_id, position, text, completed, created_at,
				due_date, due_time, priority, class_name
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

		for i, task := range list.Tasks {
			_, err := tx.ExecContext(ctx, insert,
				task.ID, scope, i, task.Text, task.Completed, task.CreatedAt,
				task.DueDate, task.DueTime, string(entities.NormalizePriority(string(task.Priority))), task.ClassName,
			)
			if err != nil {
				return fmt.Errorf("insert task %s: %w", task.ID, err)
			}
		}

		return nil
	})
}
