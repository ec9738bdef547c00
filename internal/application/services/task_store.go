package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// AddTaskInput is the raw add-form input; blank optional fields are dropped.
type AddTaskInput struct {
	Text      string
	DueDate   string
	DueTime   string
	Priority  string
	ClassName string
}

// TaskStore owns the in-memory task list of the active scope and pushes a
// full snapshot to the repository after every successful mutation.
type TaskStore struct {
	repo         ports.TaskListRepository
	observer     ports.PersistenceObserver
	logger       *logger.Logger
	async        bool
	writeTimeout time.Duration

	now   func() time.Time
	newID func() uuid.UUID

	mu    sync.Mutex
	scope string
	list  entities.TaskList
	// loaded is false while the active scope failed to load. Nothing is
	// persisted until a load succeeds, so the stored list is never replaced
	// by the empty placeholder.
	loaded bool

	writes sync.WaitGroup
}

// NewTaskStore creates an empty store with no active scope. observer may be nil.
func NewTaskStore(repo ports.TaskListRepository, observer ports.PersistenceObserver, cfg config.StorageConfig, logger *logger.Logger) *TaskStore {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &TaskStore{
		repo:         repo,
		observer:     observer,
		logger:       logger.WithComponent("task_store"),
		async:        cfg.AsyncWrites,
		writeTimeout: timeout,
		now:          time.Now,
		newID:        uuid.New,
		list:         entities.NewTaskList(),
	}
}

// Activate loads scope from the repository and makes it the active scope.
// A failed load is logged and leaves an empty, unpersisted list under the new
// scope; the load is retried by EnsureLoaded and by the next mutation.
func (s *TaskStore) Activate(ctx context.Context, scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scope = scope
	s.list = entities.NewTaskList()
	s.loaded = false
	s.load(ctx)
}

// EnsureLoaded retries the load of the active scope if it failed before.
func (s *TaskStore) EnsureLoaded(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
}

// Loaded reports whether the active scope was read from the repository.
func (s *TaskStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// ensureLoaded callers hold s.mu.
func (s *TaskStore) ensureLoaded(ctx context.Context) {
	if s.scope == "" || s.loaded {
		return
	}
	s.load(ctx)
}

// load callers hold s.mu.
func (s *TaskStore) load(ctx context.Context) {
	list, err := s.repo.LoadInitialState(ctx, s.scope)
	if err != nil {
		s.logger.Errorw("Failed to load task list, persistence paused",
			"scope", s.scope,
			"backend", s.repo.Backend(),
			"error", err,
		)
		return
	}

	s.list = list.Normalize()
	s.loaded = true

	s.logger.Infow("Task list activated", "scope", s.scope, "tasks", len(s.list.Tasks))
}

// Clear drops the in-memory list and the active scope without persisting.
func (s *TaskStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scope = ""
	s.list = entities.NewTaskList()
	s.loaded = false
}

// Scope returns the active scope, or "" when none is active.
func (s *TaskStore) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Snapshot returns a deep copy of the current list.
func (s *TaskStore) Snapshot() entities.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Clone()
}

// Business logic methods for TaskStore

func (s *TaskStore) Add(ctx context.Context, in AddTaskInput) entities.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return s.list.Clone()
	}

	task := entities.Task{
		ID:        s.newID(),
		Text:      text,
		Completed: false,
		CreatedAt: s.now(),
		DueDate:   entities.OptionalString(in.DueDate),
		DueTime:   entities.OptionalString(in.DueTime),
		Priority:  entities.NormalizePriority(in.Priority),
		ClassName: entities.OptionalString(in.ClassName),
	}
	s.list.Tasks = append(s.list.Tasks, task)

	return s.commit(ctx, "task_added", map[string]interface{}{"task_id": task.ID})
}

func (s *TaskStore) Remove(ctx context.Context, id uuid.UUID) entities.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	i := s.list.IndexOf(id)
	if i < 0 {
		return s.list.Clone()
	}

	s.list.Tasks = append(s.list.Tasks[:i:i], s.list.Tasks[i+1:]...)

	return s.commit(ctx, "task_removed", map[string]interface{}{"task_id": id})
}

func (s *TaskStore) ToggleComplete(ctx context.Context, id uuid.UUID) entities.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	i := s.list.IndexOf(id)
	if i < 0 {
		return s.list.Clone()
	}

	s.list.Tasks[i].Completed = !s.list.Tasks[i].Completed

	return s.commit(ctx, "task_toggled", map[string]interface{}{
		"task_id":   id,
		"completed": s.list.Tasks[i].Completed,
	})
}

func (s *TaskStore) EditText(ctx context.Context, id uuid.UUID, text string) entities.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	text = strings.TrimSpace(text)
	i := s.list.IndexOf(id)
	if text == "" || i < 0 {
		return s.list.Clone()
	}

	s.list.Tasks[i].Text = text

	return s.commit(ctx, "task_edited", map[string]interface{}{"task_id": id})
}

func (s *TaskStore) CyclePriority(ctx context.Context, id uuid.UUID) entities.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	i := s.list.IndexOf(id)
	if i < 0 {
		return s.list.Clone()
	}

	s.list.Tasks[i].Priority = s.list.Tasks[i].Priority.Next()

	return s.commit(ctx, "priority_changed", map[string]interface{}{
		"task_id":  id,
		"priority": s.list.Tasks[i].Priority,
	})
}

func (s *TaskStore) RenameList(ctx context.Context, title string) entities.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	title = strings.TrimSpace(title)
	if title == "" {
		return s.list.Clone()
	}

	s.list.Title = title

	return s.commit(ctx, "list_renamed", map[string]interface{}{"title": title})
}

// Wait blocks until every in-flight asynchronous write has finished.
func (s *TaskStore) Wait() {
	s.writes.Wait()
}

// commit persists the current list and returns a copy of it. Callers hold s.mu.
func (s *TaskStore) commit(ctx context.Context, action string, metadata map[string]interface{}) entities.TaskList {
	snapshot := s.list.Clone()
	scope := s.scope

	s.logger.LogUserAction(scope, action, metadata)

	if scope == "" {
		s.logger.Debugw("No active scope, skipping persistence", "action", action)
		return snapshot
	}
	if !s.loaded {
		s.logger.Warnw("Task list not loaded, skipping persistence", "scope", scope, "action", action)
		return snapshot
	}

	if s.async {
		s.writes.Add(1)
		go func(ctx context.Context) {
			defer s.writes.Done()
			s.persist(ctx, scope, snapshot.Clone())
		}(context.WithoutCancel(ctx))
		return snapshot
	}

	s.persist(ctx, scope, snapshot.Clone())
	return snapshot
}

func (s *TaskStore) persist(ctx context.Context, scope string, list entities.TaskList) {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	start := time.Now()
	err := s.repo.Persist(ctx, scope, list)
	duration := time.Since(start)

	if s.observer != nil {
		s.observer.ObservePersist(s.repo.Backend(), duration, err)
	}

	if err != nil {
		s.logger.Errorw("Failed to persist task list",
			"scope", scope,
			"backend", s.repo.Backend(),
			"tasks", len(list.Tasks),
			"error", err,
		)
		return
	}

	s.logger.Debugw("Task list persisted", "scope", scope, "backend", s.repo.Backend(), "duration", duration)
}
