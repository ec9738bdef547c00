package entities

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the display order of a list.
type SortKey string

const (
	SortNone      SortKey = "none"
	SortPriority  SortKey = "priority"
	SortDueDate   SortKey = "dueDate"
	SortClassName SortKey = "className"
	SortCompleted SortKey = "completed"
)

// SortKeys lists every supported key in selector order.
var SortKeys = []SortKey{SortNone, SortPriority, SortDueDate, SortClassName, SortCompleted}

// ParseSortKey maps a selector value to a key; anything unknown means none.
func ParseSortKey(value string) SortKey {
	for _, key := range SortKeys {
		if string(key) == value {
			return key
		}
	}
	return SortNone
}

// SortTasks returns a new slice ordered by key. The sort is stable, so tasks
// the key considers equal keep their input order, and the input slice is
// never reordered.
func SortTasks(tasks []Task, key SortKey) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)

	var less func(a, b Task) bool
	switch key {
	case SortPriority:
		less = func(a, b Task) bool {
			return a.Priority.Weight() > b.Priority.Weight()
		}
	case SortDueDate:
		less = dueDateLess
	case SortClassName:
		less = classNameLess(collate.New(language.English))
	case SortCompleted:
		less = func(a, b Task) bool {
			return !a.Completed && b.Completed
		}
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

// dueDateLess orders by calendar date only; undated tasks go last.
func dueDateLess(a, b Task) bool {
	da, okA := sortableDate(a.DueDate)
	db, okB := sortableDate(b.DueDate)
	switch {
	case !okA:
		return false
	case !okB:
		return true
	default:
		return da.Before(db)
	}
}

func sortableDate(value *string) (time.Time, bool) {
	if value == nil || *value == "" {
		return time.Time{}, false
	}
	d, err := ParseDueDate(*value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// classNameLess compares with the English collator; tasks without a class go last.
func classNameLess(c *collate.Collator) func(a, b Task) bool {
	return func(a, b Task) bool {
		ca, cb := className(a), className(b)
		switch {
		case ca == "":
			return false
		case cb == "":
			return true
		default:
			return c.CompareString(ca, cb) < 0
		}
	}
}

func className(t Task) string {
	if t.ClassName == nil {
		return ""
	}
	return strings.TrimSpace(*t.ClassName)
}
