package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// Keys of the two local entries.
const (
	TasksKey = "todos"
	TitleKey = "listTitle"
)

// LocalTaskListRepository stores the list in a key-value store under two
// entries. It has a single implicit scope, so the scope argument only shows
// up in logs.
type LocalTaskListRepository struct {
	store   ports.KeyValueStore
	prefix  string
	backend string
	logger  *logger.Logger
}

// NewLocalTaskListRepository creates a local repository; backend names the
// underlying store ("file", "redis") for logs and metrics.
func NewLocalTaskListRepository(store ports.KeyValueStore, prefix, backend string, log *logger.Logger) *LocalTaskListRepository {
	return &LocalTaskListRepository{
		store:   store,
		prefix:  prefix,
		backend: backend,
		logger:  log.WithComponent("local_repository"),
	}
}

func (r *LocalTaskListRepository) Backend() string {
	return "local_" + r.backend
}

func (r *LocalTaskListRepository) LoadInitialState(ctx context.Context, scope string) (*entities.TaskList, error) {
	list := entities.NewTaskList()

	rawTasks, found, err := r.store.Get(ctx, r.key(TasksKey))
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if found && strings.TrimSpace(rawTasks) != "" {
		var tasks []entities.Task
		if err := json.Unmarshal([]byte(rawTasks), &tasks); err != nil {
			r.logger.Warnw("Stored tasks are unreadable, starting empty", "scope", scope, "error", err)
		} else if tasks != nil {
			list.Tasks = tasks
		}
	}

	title, found, err := r.store.Get(ctx, r.key(TitleKey))
	if err != nil {
		return nil, fmt.Errorf("load title: %w", err)
	}
	if found {
		list.Title = title
	}

	list = list.Normalize()
	return &list, nil
}

func (r *LocalTaskListRepository) Persist(ctx context.Context, scope string, list entities.TaskList) error {
	tasks := list.Tasks
	if tasks == nil {
		tasks = []entities.Task{}
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	if err := r.store.Set(ctx, r.key(TasksKey), string(data)); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	if err := r.store.Set(ctx, r.key(TitleKey), list.Title); err != nil {
		return fmt.Errorf("save title: %w", err)
	}

	return nil
}

func (r *LocalTaskListRepository) key(name string) string {
	return r.prefix + name
}
