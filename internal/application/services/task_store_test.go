package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
)

var fixedNow = time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC)

func newTestStore(repo *fakeRepository) *TaskStore {
	store := NewTaskStore(repo, nil, config.StorageConfig{WriteTimeout: time.Second}, logger.NewNop())
	store.now = func() time.Time { return fixedNow }
	return store
}

func activeStore(t *testing.T) (*TaskStore, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	store := newTestStore(repo)
	store.Activate(context.Background(), entities.DeviceScope)
	return store, repo
}

func TestTaskStoreAdd(t *testing.T) {
	store, repo := activeStore(t)
	ctx := context.Background()

	list := store.Add(ctx, AddTaskInput{
		Text:      "  Read chapter 4  ",
		DueDate:   "2026-10-20",
		DueTime:   "",
		Priority:  "HIGH",
		ClassName: "  History ",
	})

	if len(list.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list.Tasks))
	}
	task := list.Tasks[0]
	if task.ID == uuid.Nil {
		t.Error("expected a fresh id")
	}
	if task.Text != "Read chapter 4" {
		t.Errorf("Text = %q", task.Text)
	}
	if task.Completed {
		t.Error("new task must not be completed")
	}
	if !task.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", task.CreatedAt, fixedNow)
	}
	if task.DueDate == nil || *task.DueDate != "2026-10-20" {
		t.Errorf("DueDate = %v", task.DueDate)
	}
	if task.DueTime != nil {
		t.Errorf("DueTime = %v, want nil", *task.DueTime)
	}
	if task.Priority != entities.PriorityHigh {
		t.Errorf("Priority = %q, want high", task.Priority)
	}
	if task.ClassName == nil || *task.ClassName != "History" {
		t.Errorf("ClassName = %v", task.ClassName)
	}

	if repo.persistCount() != 1 {
		t.Fatalf("expected 1 persist, got %d", repo.persistCount())
	}
	call := repo.lastCall()
	if call.scope != entities.DeviceScope || len(call.list.Tasks) != 1 {
		t.Errorf("persisted %+v", call)
	}
}

func TestTaskStoreAddDefaults(t *testing.T) {
	store, _ := activeStore(t)

	list := store.Add(context.Background(), AddTaskInput{Text: "Plain", Priority: "urgent"})

	task := list.Tasks[0]
	if task.Priority != entities.PriorityMedium {
		t.Errorf("Priority = %q, want medium", task.Priority)
	}
	if task.DueDate != nil || task.DueTime != nil || task.ClassName != nil {
		t.Errorf("optional fields should be nil: %+v", task)
	}
}

func TestTaskStoreAddGrowsByOne(t *testing.T) {
	store, _ := activeStore(t)
	ctx := context.Background()

	for i, text := range []string{"a", "b", " c ", "d\t"} {
		list := store.Add(ctx, AddTaskInput{Text: text})
		if len(list.Tasks) != i+1 {
			t.Fatalf("after %d adds got %d tasks", i+1, len(list.Tasks))
		}
		if list.Tasks[i].Completed {
			t.Errorf("task %d should be incomplete", i)
		}
	}

	list := store.Snapshot()
	seen := map[uuid.UUID]bool{}
	for _, task := range list.Tasks {
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestTaskStoreWhitespaceIsNoOp(t *testing.T) {
	store, repo := activeStore(t)
	ctx := context.Background()

	added := store.Add(ctx, AddTaskInput{Text: "Keep me"})
	id := added.Tasks[0].ID
	before := repo.persistCount()

	for _, text := range []string{"", "   ", "\t\n"} {
		if list := store.Add(ctx, AddTaskInput{Text: text}); len(list.Tasks) != 1 {
			t.Errorf("Add(%q) changed the list: %d tasks", text, len(list.Tasks))
		}
		if list := store.EditText(ctx, id, text); list.Tasks[0].Text != "Keep me" {
			t.Errorf("EditText(%q) changed text to %q", text, list.Tasks[0].Text)
		}
	}

	if list := store.RenameList(ctx, "  "); list.Title != entities.DefaultListTitle {
		t.Errorf("RenameList(blank) changed title to %q", list.Title)
	}

	if repo.persistCount() != before {
		t.Errorf("no-op mutations persisted: %d -> %d", before, repo.persistCount())
	}
}

func TestTaskStoreUnknownIDIsNoOp(t *testing.T) {
	store, repo := activeStore(t)
	ctx := context.Background()

	store.Add(ctx, AddTaskInput{Text: "Only task"})
	before := repo.persistCount()
	missing := uuid.New()

	store.Remove(ctx, missing)
	store.ToggleComplete(ctx, missing)
	store.EditText(ctx, missing, "new text")
	list := store.CyclePriority(ctx, missing)

	if len(list.Tasks) != 1 || list.Tasks[0].Text != "Only task" || list.Tasks[0].Completed {
		t.Errorf("list changed: %+v", list.Tasks)
	}
	if repo.persistCount() != before {
		t.Errorf("unknown-id mutations persisted")
	}
}

func TestTaskStoreRemove(t *testing.T) {
	store, repo := activeStore(t)
	ctx := context.Background()

	store.Add(ctx, AddTaskInput{Text: "first"})
	store.Add(ctx, AddTaskInput{Text: "second"})
	list := store.Add(ctx, AddTaskInput{Text: "third"})

	list = store.Remove(ctx, list.Tasks[1].ID)

	if len(list.Tasks) != 2 || list.Tasks[0].Text != "first" || list.Tasks[1].Text != "third" {
		t.Errorf("after remove: %+v", list.Tasks)
	}
	stored, _ := repo.storedList(entities.DeviceScope)
	if len(stored.Tasks) != 2 {
		t.Errorf("stored %d tasks, want 2", len(stored.Tasks))
	}
}

func TestTaskStoreToggleTwiceRestores(t *testing.T) {
	store, _ := activeStore(t)
	ctx := context.Background()

	id := store.Add(ctx, AddTaskInput{Text: "Toggle me"}).Tasks[0].ID

	if list := store.ToggleComplete(ctx, id); !list.Tasks[0].Completed {
		t.Fatal("first toggle should complete the task")
	}
	if list := store.ToggleComplete(ctx, id); list.Tasks[0].Completed {
		t.Fatal("second toggle should restore the task")
	}
}

func TestTaskStoreCyclePriorityIsThreeCycle(t *testing.T) {
	tests := []struct {
		name  string
		start entities.Priority
		want  entities.Priority
	}{
		{"low", entities.PriorityLow, entities.PriorityLow},
		{"medium", entities.PriorityMedium, entities.PriorityMedium},
		{"high", entities.PriorityHigh, entities.PriorityHigh},
		{"unknown", entities.Priority("urgent"), entities.PriorityMedium},
		{"empty", entities.Priority(""), entities.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			id := uuid.New()
			repo.stored[entities.DeviceScope] = entities.TaskList{
				Title: "Loaded",
				Tasks: []entities.Task{{ID: id, Text: "task", Priority: tt.start}},
			}
			store := newTestStore(repo)
			store.Activate(context.Background(), entities.DeviceScope)

			var list entities.TaskList
			for i := 0; i < 3; i++ {
				list = store.CyclePriority(context.Background(), id)
			}
			if got := list.Tasks[0].Priority; got != tt.want {
				t.Errorf("after 3 cycles priority = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTaskStoreEditAndRename(t *testing.T) {
	store, repo := activeStore(t)
	ctx := context.Background()

	id := store.Add(ctx, AddTaskInput{Text: "draft"}).Tasks[0].ID

	list := store.EditText(ctx, id, "  final  ")
	if list.Tasks[0].Text != "final" {
		t.Errorf("Text = %q, want final", list.Tasks[0].Text)
	}

	list = store.RenameList(ctx, "  Weekend  ")
	if list.Title != "Weekend" {
		t.Errorf("Title = %q, want Weekend", list.Title)
	}

	stored, _ := repo.storedList(entities.DeviceScope)
	if stored.Title != "Weekend" || stored.Tasks[0].Text != "final" {
		t.Errorf("stored %+v", stored)
	}
}

func TestTaskStoreSnapshotIsACopy(t *testing.T) {
	store, _ := activeStore(t)
	ctx := context.Background()

	store.Add(ctx, AddTaskInput{Text: "original", ClassName: "Art"})

	snapshot := store.Snapshot()
	snapshot.Tasks[0].Text = "mutated"
	*snapshot.Tasks[0].ClassName = "mutated"
	snapshot.Title = "mutated"

	current := store.Snapshot()
	if current.Tasks[0].Text != "original" || *current.Tasks[0].ClassName != "Art" || current.Title == "mutated" {
		t.Errorf("snapshot aliased store state: %+v", current)
	}
}

func TestTaskStorePersistFailureKeepsMemory(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	repo := newFakeRepository()
	repo.saveErr = errors.New("backend unreachable")
	obs := &fakeObserver{}

	store := NewTaskStore(repo, obs, config.StorageConfig{}, logger.NewFromZap(zap.New(core)))
	store.Activate(context.Background(), entities.DeviceScope)

	list := store.Add(context.Background(), AddTaskInput{Text: "optimistic"})

	if len(list.Tasks) != 1 || len(store.Snapshot().Tasks) != 1 {
		t.Fatal("in-memory state must survive a failed persist")
	}
	if got := logs.FilterMessage("Failed to persist task list").Len(); got != 1 {
		t.Errorf("expected 1 persist failure log, got %d", got)
	}
	if obs.failures != 1 || obs.ok != 0 {
		t.Errorf("observer = %+v, want 1 failure", obs)
	}
}

func TestTaskStoreLoadFailureStartsEmpty(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	repo := newFakeRepository()
	repo.loadErr = errors.New("corrupt")

	store := NewTaskStore(repo, nil, config.StorageConfig{}, logger.NewFromZap(zap.New(core)))
	store.Activate(context.Background(), "user-1")

	list := store.Snapshot()
	if list.Title != entities.DefaultListTitle || len(list.Tasks) != 0 {
		t.Errorf("expected empty default list, got %+v", list)
	}
	if store.Scope() != "user-1" {
		t.Errorf("Scope() = %q, want user-1", store.Scope())
	}
	if logs.Len() != 1 {
		t.Errorf("expected one error log, got %d", logs.Len())
	}
}

func TestTaskStoreWithoutScopeSkipsPersistence(t *testing.T) {
	repo := newFakeRepository()
	store := newTestStore(repo)

	list := store.Add(context.Background(), AddTaskInput{Text: "in memory"})

	if len(list.Tasks) != 1 {
		t.Fatalf("expected the add to apply in memory")
	}
	if repo.persistCount() != 0 {
		t.Errorf("persisted without a scope")
	}
}

func TestTaskStoreClearDoesNotPersist(t *testing.T) {
	store, repo := activeStore(t)
	ctx := context.Background()

	store.Add(ctx, AddTaskInput{Text: "keep in backend"})
	before := repo.persistCount()

	store.Clear()

	if got := store.Snapshot(); got.Title != entities.DefaultListTitle || len(got.Tasks) != 0 {
		t.Errorf("Clear() left %+v", got)
	}
	if store.Scope() != "" {
		t.Errorf("Scope() = %q after Clear", store.Scope())
	}
	if repo.persistCount() != before {
		t.Error("Clear() persisted")
	}
	stored, _ := repo.storedList(entities.DeviceScope)
	if len(stored.Tasks) != 1 {
		t.Errorf("backend lost data on Clear: %+v", stored)
	}
}

func TestTaskStoreAsyncWrites(t *testing.T) {
	repo := newFakeRepository()
	obs := &fakeObserver{}
	store := NewTaskStore(repo, obs, config.StorageConfig{AsyncWrites: true, WriteTimeout: time.Second}, logger.NewNop())
	store.Activate(context.Background(), "user-1")

	ctx, cancel := context.WithCancel(context.Background())
	store.Add(ctx, AddTaskInput{Text: "one"})
	store.Add(ctx, AddTaskInput{Text: "two"})
	cancel()
	store.Wait()

	if repo.persistCount() != 2 {
		t.Fatalf("expected 2 persists, got %d", repo.persistCount())
	}
	stored, ok := repo.storedList("user-1")
	if !ok || len(stored.Tasks) == 0 {
		t.Errorf("nothing stored for user-1")
	}
	if obs.ok != 2 {
		t.Errorf("observer ok = %d, want 2", obs.ok)
	}
}

func semesterList() entities.TaskList {
	return entities.TaskList{
		Title: "Semester",
		Tasks: []entities.Task{
			{ID: uuid.New(), Text: "essay", Priority: entities.PriorityHigh},
			{ID: uuid.New(), Text: "lab report", Priority: entities.PriorityMedium},
			{ID: uuid.New(), Text: "reading", Priority: entities.PriorityLow},
		},
	}
}

func TestTaskStoreLoadFailureNeverOverwritesBackend(t *testing.T) {
	repo := newFakeRepository()
	repo.stored["user-1"] = semesterList()
	repo.loadErr = errors.New("connection refused")

	store := newTestStore(repo)
	ctx := context.Background()
	store.Activate(ctx, "user-1")

	if store.Loaded() {
		t.Fatal("Loaded() = true after a failed load")
	}

	list := store.Add(ctx, AddTaskInput{Text: "while offline"})
	if len(list.Tasks) != 1 {
		t.Errorf("the add should still apply in memory, got %+v", list.Tasks)
	}
	store.RenameList(ctx, "Scratch")

	if repo.persistCount() != 0 {
		t.Fatalf("persisted %d times while the scope was not loaded", repo.persistCount())
	}
	stored, _ := repo.storedList("user-1")
	if stored.Title != "Semester" || len(stored.Tasks) != 3 {
		t.Errorf("backend changed: %+v", stored)
	}
}

func TestTaskStoreRetriesLoadBeforeMutating(t *testing.T) {
	repo := newFakeRepository()
	repo.stored["user-1"] = semesterList()
	repo.loadErr = errors.New("connection refused")

	store := newTestStore(repo)
	ctx := context.Background()
	store.Activate(ctx, "user-1")

	repo.mu.Lock()
	repo.loadErr = nil
	repo.mu.Unlock()

	list := store.Add(ctx, AddTaskInput{Text: "new"})

	if list.Title != "Semester" || len(list.Tasks) != 4 || list.Tasks[3].Text != "new" {
		t.Errorf("in-memory list after retry = %+v", list)
	}
	stored, _ := repo.storedList("user-1")
	if stored.Title != "Semester" || len(stored.Tasks) != 4 {
		t.Errorf("stored after one add: title=%q tasks=%d", stored.Title, len(stored.Tasks))
	}
	if !store.Loaded() {
		t.Error("Loaded() = false after a successful retry")
	}
}

func TestTaskStoreEnsureLoaded(t *testing.T) {
	repo := newFakeRepository()
	repo.stored["user-1"] = semesterList()
	repo.loadErr = errors.New("timeout")

	store := newTestStore(repo)
	ctx := context.Background()
	store.Activate(ctx, "user-1")

	store.EnsureLoaded(ctx)
	if store.Loaded() || len(store.Snapshot().Tasks) != 0 {
		t.Fatal("EnsureLoaded() succeeded against a failing backend")
	}

	repo.mu.Lock()
	repo.loadErr = nil
	repo.mu.Unlock()

	store.EnsureLoaded(ctx)
	if got := store.Snapshot(); got.Title != "Semester" || len(got.Tasks) != 3 {
		t.Errorf("after EnsureLoaded: %+v", got)
	}
}
