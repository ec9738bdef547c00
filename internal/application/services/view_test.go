package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
)

func TestBuildView(t *testing.T) {
	now := time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC)
	yesterday := "2026-10-16"
	nextYear := "2027-01-05"
	at := "00:05"

	list := entities.TaskList{
		Title: "Chores",
		Tasks: []entities.Task{
			{ID: uuid.New(), Text: "low", Priority: entities.PriorityLow},
			{ID: uuid.New(), Text: "overdue", Priority: entities.PriorityHigh, DueDate: &yesterday, Completed: true},
			{ID: uuid.New(), Text: "later", Priority: entities.PriorityMedium, DueDate: &nextYear, DueTime: &at},
		},
	}

	view := BuildView(list, entities.SortPriority, now)

	if view.Title != "Chores" || view.Sort != entities.SortPriority {
		t.Errorf("header = %q/%q", view.Title, view.Sort)
	}
	if view.Stats.Completed != 1 || view.Stats.Total != 3 {
		t.Errorf("stats = %+v, want 1 of 3", view.Stats)
	}

	wantOrder := []string{"overdue", "later", "low"}
	for i, text := range wantOrder {
		if view.Tasks[i].Text != text {
			t.Fatalf("position %d = %q, want %q", i, view.Tasks[i].Text, text)
		}
	}

	overdue := view.Tasks[0]
	if !overdue.Overdue {
		t.Error("completed task past its due date still reports overdue")
	}
	if overdue.DueDisplay == nil || *overdue.DueDisplay != "Oct 16" {
		t.Errorf("DueDisplay = %v, want Oct 16", overdue.DueDisplay)
	}
	if overdue.PriorityLabel != "High" || overdue.PriorityColor != "#dc3545" {
		t.Errorf("badge = %s %s", overdue.PriorityLabel, overdue.PriorityColor)
	}

	later := view.Tasks[1]
	if later.Overdue {
		t.Error("future task reported overdue")
	}
	if later.DueDisplay == nil || *later.DueDisplay != "Jan 5, 2027 at 12:05 AM" {
		t.Errorf("DueDisplay = %v", later.DueDisplay)
	}

	if view.Tasks[2].DueDisplay != nil {
		t.Errorf("undated task has a display %q", *view.Tasks[2].DueDisplay)
	}

	if list.Tasks[0].Text != "low" {
		t.Error("BuildView reordered the stored list")
	}
}

func TestBuildViewEmpty(t *testing.T) {
	view := BuildView(entities.NewTaskList(), entities.SortNone, time.Now())

	if view.Tasks == nil || len(view.Tasks) != 0 {
		t.Errorf("Tasks = %#v, want empty non-nil", view.Tasks)
	}
	if view.Stats.Total != 0 || view.Title != entities.DefaultListTitle {
		t.Errorf("view = %+v", view)
	}
}
