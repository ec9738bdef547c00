package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailInUse          = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrSessionRevoked      = errors.New("session has been revoked")
	ErrSessionExpired      = errors.New("session has expired")
	ErrAuthSessionNotFound = errors.New("auth session not found")
)

// DefaultListTitle is the title of a list nobody has renamed yet.
const DefaultListTitle = "My Todo List"

// DeviceScope is the only persistence scope in local mode.
const DeviceScope = "device"

// Enums and types
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// priorityCycle is the order CyclePriority walks through.
var priorityCycle = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Task represents one todo item
type Task struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Text      string    `json:"text" db:"text"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	DueDate   *string   `json:"dueDate" db:"due_date"`
	DueTime   *string   `json:"dueTime" db:"due_time"`
	Priority  Priority  `json:"priority" db:"priority"`
	ClassName *string   `json:"className" db:"class_name"`
}

// TaskList is the stored aggregate for one scope: tasks in insertion order
// plus the list title.
type TaskList struct {
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// Identity is an authenticated user as seen by the session.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// User represents an account in the remote variant
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// AuthSession is one signed-in session; the JWT carries its ID so sign-out
// can revoke it.
type AuthSession struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// NewTaskList returns an empty list with the default title.
func NewTaskList() TaskList {
	return TaskList{Title: DefaultListTitle, Tasks: []Task{}}
}

// Business logic methods for TaskList

// Clone returns a deep copy so callers can hand snapshots to other goroutines.
func (l TaskList) Clone() TaskList {
	tasks := make([]Task, len(l.Tasks))
	for i, t := range l.Tasks {
		tasks[i] = t.Clone()
	}
	return TaskList{Title: l.Title, Tasks: tasks}
}

// IndexOf returns the position of the task with the given id, or -1.
func (l TaskList) IndexOf(id uuid.UUID) int {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// CompletedCount returns how many tasks are done.
func (l TaskList) CompletedCount() int {
	n := 0
	for _, t := range l.Tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// Normalize repairs data read back from storage: blank title becomes the
// default, nil task slice becomes empty and priorities are normalized.
func (l TaskList) Normalize() TaskList {
	if strings.TrimSpace(l.Title) == "" {
		l.Title = DefaultListTitle
	}
	if l.Tasks == nil {
		l.Tasks = []Task{}
	}
	for i := range l.Tasks {
		l.Tasks[i].Priority = NormalizePriority(string(l.Tasks[i].Priority))
	}
	return l
}

// Business logic methods for Task

func (t Task) Clone() Task {
	t.DueDate = cloneString(t.DueDate)
	t.DueTime = cloneString(t.DueTime)
	t.ClassName = cloneString(t.ClassName)
	return t
}

// IsOverdue reports whether the task's due instant has passed at now.
// Completion does not affect the result.
func (t Task) IsOverdue(now time.Time) bool {
	return IsOverdue(t.DueDate, t.DueTime, now)
}

// Scope returns the persistence scope owned by this identity.
func (i Identity) Scope() string {
	return i.UserID.String()
}

// IsRevoked reports whether the session was signed out.
func (s *AuthSession) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsExpired reports whether the session is past its expiry.
func (s *AuthSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Utility methods

// NormalizePriority maps anything that is not low, medium or high to medium.
func NormalizePriority(value string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(value))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityMedium
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Next advances low -> medium -> high -> low. Unknown values count as medium.
func (p Priority) Next() Priority {
	current := NormalizePriority(string(p))
	for i, candidate := range priorityCycle {
		if candidate == current {
			return priorityCycle[(i+1)%len(priorityCycle)]
		}
	}
	return PriorityHigh
}

// Weight is the priority sort weight: high=3, medium=2, low=1, unknown=2.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// Color is the badge colour the list view shows next to a priority.
func (p Priority) Color() string {
	switch p {
	case PriorityHigh:
		return "#dc3545"
	case PriorityMedium:
		return "#ffc107"
	case PriorityLow:
		return "#28a745"
	default:
		return "#6c757d"
	}
}

// OptionalString trims value and returns nil when nothing is left.
func OptionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
