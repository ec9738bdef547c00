package entities

import (
	"fmt"
	"time"
)

// Stored layouts for the optional due fields.
const (
	DueDateLayout = "2006-01-02"
	DueTimeLayout = "15:04"
)

// Draft holds the values the add form starts with.
type Draft struct {
	DueDate   string   `json:"dueDate"`
	DueTime   string   `json:"dueTime"`
	Priority  Priority `json:"priority"`
	ClassName string   `json:"className"`
}

// NewDraft returns add-form defaults: due tomorrow at midnight, medium priority.
func NewDraft(now time.Time) Draft {
	return Draft{
		DueDate:  now.AddDate(0, 0, 1).Format(DueDateLayout),
		DueTime:  "00:00",
		Priority: PriorityMedium,
	}
}

// ParseDueDate parses a stored calendar date as midnight in loc.
func ParseDueDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DueDateLayout, value, loc)
}

// ParseDueTime returns the hour and minute of a stored time of day. A
// trailing seconds component is accepted.
func ParseDueTime(value string) (hour, minute int, err error) {
	t, err := time.Parse(DueTimeLayout, value)
	if err != nil {
		t, err = time.Parse("15:04:05", value)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid due time %q: %w", value, err)
		}
	}
	return t.Hour(), t.Minute(), nil
}

// DueInstant combines the due fields into the instant the task is due, using
// now's location as the calendar. ok is false when there is no usable date.
func DueInstant(dueDate, dueTime *string, loc *time.Location) (due time.Time, ok bool) {
	if dueDate == nil || *dueDate == "" {
		return time.Time{}, false
	}
	day, err := ParseDueDate(*dueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	if dueTime == nil || *dueTime == "" {
		return day, true
	}
	hour, minute, err := ParseDueTime(*dueTime)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

// IsOverdue reports whether the due instant is strictly before now. Tasks
// without a date, or with a date or time that cannot be read, are never
// overdue.
func IsOverdue(dueDate, dueTime *string, now time.Time) bool {
	due, ok := DueInstant(dueDate, dueTime, now.Location())
	if !ok {
		return false
	}
	return due.Before(now)
}

// FormatDueDisplay renders the due fields for display, e.g. "Mar 4",
// "Mar 4, 2027" or "Mar 4 at 9:05 PM". It returns nil when there is no
// readable date.
func FormatDueDisplay(dueDate, dueTime *string, now time.Time) *string {
	if dueDate == nil || *dueDate == "" {
		return nil
	}
	day, err := ParseDueDate(*dueDate, now.Location())
	if err != nil {
		return nil
	}

	layout := "Jan 2"
	if day.Year() != now.Year() {
		layout = "Jan 2, 2006"
	}
	out := day.Format(layout)

	if dueTime != nil && *dueTime != "" {
		hour, minute, err := ParseDueTime(*dueTime)
		if err == nil {
			out = fmt.Sprintf("%s at %s", out, clock12(hour, minute))
		}
	}
	return &out
}

func clock12(hour, minute int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}
