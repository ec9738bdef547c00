package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskmaster/todo/internal/domain/entities"
)

// Authenticator is the sign-up / sign-in collaborator consumed by the session
type Authenticator interface {
	SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error)
	SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error)
	SignOut(ctx context.Context, sessionID uuid.UUID) error
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Request/Response Types

// Auth related types
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresIn   int64             `json:"expires_in"`
	SessionID   uuid.UUID         `json:"-"`
	Identity    entities.Identity `json:"identity"`
}

type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	SessionID uuid.UUID `json:"session_id"`
}

// Identity returns the user the claims were issued for.
func (c *Claims) Identity() entities.Identity {
	return entities.Identity{UserID: c.UserID, Email: c.Email}
}

type SessionResponse struct {
	State    string             `json:"state"`
	Identity *entities.Identity `json:"identity,omitempty"`
}

// Task related types
type AddTaskRequest struct {
	Text      string `json:"text"`
	DueDate   string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	DueTime   string `json:"dueTime" validate:"omitempty,datetime=15:04"`
	Priority  string `json:"priority"`
	ClassName string `json:"className"`
}

type EditTextRequest struct {
	Text string `json:"text"`
}

type RenameListRequest struct {
	Title string `json:"title"`
}

// View types
type TaskView struct {
	entities.Task
	DueDisplay    *string `json:"dueDisplay"`
	Overdue       bool    `json:"overdue"`
	PriorityLabel string  `json:"priorityLabel"`
	PriorityColor string  `json:"priorityColor"`
}

type ListStats struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type ListView struct {
	Title string           `json:"title"`
	Sort  entities.SortKey `json:"sort"`
	Tasks []TaskView       `json:"tasks"`
	Stats ListStats        `json:"stats"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
