package entities

import (
	"testing"

	"github.com/google/uuid"
)

func task(text string, mutate func(*Task)) Task {
	t := Task{ID: uuid.New(), Text: text, Priority: PriorityMedium}
	if mutate != nil {
		mutate(&t)
	}
	return t
}

func texts(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}

func assertOrder(t *testing.T, got []Task, want ...string) {
	t.Helper()
	names := texts(got)
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestSortTasksPriority(t *testing.T) {
	tasks := []Task{
		task("low", func(t *Task) { t.Priority = PriorityLow }),
		task("high", func(t *Task) { t.Priority = PriorityHigh }),
		task("medium", func(t *Task) { t.Priority = PriorityMedium }),
	}

	assertOrder(t, SortTasks(tasks, SortPriority), "high", "medium", "low")
}

func TestSortTasksPriorityUnknownCountsAsMedium(t *testing.T) {
	tasks := []Task{
		task("low", func(t *Task) { t.Priority = PriorityLow }),
		task("odd", func(t *Task) { t.Priority = "urgent" }),
		task("medium", func(t *Task) { t.Priority = PriorityMedium }),
		task("high", func(t *Task) { t.Priority = PriorityHigh }),
	}

	assertOrder(t, SortTasks(tasks, SortPriority), "high", "odd", "medium", "low")
}

func TestSortTasksDueDate(t *testing.T) {
	tasks := []Task{
		task("none-1", nil),
		task("march", func(t *Task) { t.DueDate = strPtr("2026-03-01") }),
		task("none-2", nil),
		task("january", func(t *Task) { t.DueDate = strPtr("2026-01-09") }),
		task("january-late", func(t *Task) {
			t.DueDate = strPtr("2026-01-09")
			t.DueTime = strPtr("23:00")
		}),
	}

	got := SortTasks(tasks, SortDueDate)
	assertOrder(t, got, "january", "january-late", "march", "none-1", "none-2")

	seenUndated := false
	for _, task := range got {
		if task.DueDate == nil {
			seenUndated = true
			continue
		}
		if seenUndated {
			t.Fatalf("dated task %q sorted after an undated one", task.Text)
		}
	}
}

func TestSortTasksClassName(t *testing.T) {
	tasks := []Task{
		task("none", nil),
		task("math", func(t *Task) { t.ClassName = strPtr("math") }),
		task("English", func(t *Task) { t.ClassName = strPtr("English") }),
		task("art", func(t *Task) { t.ClassName = strPtr("Art") }),
		task("blank", func(t *Task) { t.ClassName = strPtr("") }),
	}

	assertOrder(t, SortTasks(tasks, SortClassName), "art", "English", "math", "none", "blank")
}

func TestSortTasksCompleted(t *testing.T) {
	tasks := []Task{
		task("done-1", func(t *Task) { t.Completed = true }),
		task("open-1", nil),
		task("done-2", func(t *Task) { t.Completed = true }),
		task("open-2", nil),
	}

	assertOrder(t, SortTasks(tasks, SortCompleted), "open-1", "open-2", "done-1", "done-2")
}

func TestSortTasksNoneKeepsOrder(t *testing.T) {
	tasks := []Task{
		task("b", func(t *Task) { t.Priority = PriorityLow }),
		task("a", func(t *Task) { t.Priority = PriorityHigh }),
	}

	assertOrder(t, SortTasks(tasks, SortNone), "b", "a")
	assertOrder(t, SortTasks(tasks, ParseSortKey("bogus")), "b", "a")
}

func TestSortTasksDoesNotMutateInput(t *testing.T) {
	tasks := []Task{
		task("low", func(t *Task) { t.Priority = PriorityLow }),
		task("high", func(t *Task) { t.Priority = PriorityHigh }),
	}

	_ = SortTasks(tasks, SortPriority)
	assertOrder(t, tasks, "low", "high")
}

func TestSortTasksIdempotent(t *testing.T) {
	tasks := []Task{
		task("a", func(t *Task) { t.Priority = PriorityLow; t.DueDate = strPtr("2026-05-01"); t.ClassName = strPtr("b") }),
		task("b", func(t *Task) { t.Completed = true; t.ClassName = strPtr("a") }),
		task("c", func(t *Task) { t.Priority = PriorityHigh; t.DueDate = strPtr("2026-01-01") }),
		task("d", func(t *Task) { t.Priority = PriorityHigh; t.Completed = true }),
		task("e", func(t *Task) { t.DueDate = strPtr("2026-05-01"); t.ClassName = strPtr("a") }),
	}

	for _, key := range SortKeys {
		t.Run(string(key), func(t *testing.T) {
			once := SortTasks(tasks, key)
			twice := SortTasks(once, key)
			assertOrder(t, twice, texts(once)...)
		})
	}
}

func TestParseSortKey(t *testing.T) {
	for _, key := range SortKeys {
		if got := ParseSortKey(string(key)); got != key {
			t.Errorf("ParseSortKey(%q) = %q", key, got)
		}
	}
	if got := ParseSortKey(""); got != SortNone {
		t.Errorf("ParseSortKey(\"\") = %q, want none", got)
	}
}
