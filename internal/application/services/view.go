package services

import (
	"time"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/ports"
)

// BuildView projects list into the sorted, formatted view the client renders.
// Due displays and overdue flags are computed against now on every call.
func BuildView(list entities.TaskList, key entities.SortKey, now time.Time) ports.ListView {
	sorted := entities.SortTasks(list.Tasks, key)

	tasks := make([]ports.TaskView, 0, len(sorted))
	for _, task := range sorted {
		tasks = append(tasks, ports.TaskView{
			Task:          task,
			DueDisplay:    entities.FormatDueDisplay(task.DueDate, task.DueTime, now),
			Overdue:       task.IsOverdue(now),
			PriorityLabel: task.Priority.Label(),
			PriorityColor: task.Priority.Color(),
		})
	}

	return ports.ListView{
		Title: list.Title,
		Sort:  key,
		Tasks: tasks,
		Stats: ports.ListStats{
			Completed: list.CompletedCount(),
			Total:     len(list.Tasks),
		},
	}
}
