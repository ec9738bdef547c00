package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// Context keys set by the auth middleware for the handlers below.
const (
	StoreKey  = "task_store"
	ClaimsKey = "claims"
	LoggerKey = "request_logger"
)

// TaskHandler serves the list view and every task mutation
type TaskHandler struct {
	store  *services.TaskStore
	now    func() time.Time
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler. store serves every request
// unless the auth middleware put the caller's own store in the context; it
// is nil in remote mode. Due dates are read as calendar dates in loc.
func NewTaskHandler(store *services.TaskStore, loc *time.Location, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		store:  store,
		now:    func() time.Time { return time.Now().In(loc) },
		logger: logger,
	}
}

// GetList returns the current list
// @Summary Get the task list
// @Description Returns the list sorted by the given key with due displays, overdue flags and completion stats
// @Tags list
// @Produce json
// @Param sort query string false "Sort key" Enums(none, priority, dueDate, className, completed)
// @Success 200 {object} ports.ListView
// @Failure 401 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /list [get]
func (h *TaskHandler) GetList(c echo.Context) error {
	store, err := h.storeFor(c)
	if err != nil {
		return err
	}

	store.EnsureLoaded(c.Request().Context())
	return h.respond(c, store.Snapshot())
}

// RenameList changes the list title
// @Summary Rename the list
// @Tags list
// @Accept json
// @Produce json
// @Param request body ports.RenameListRequest true "New title"
// @Param sort query string false "Sort key"
// @Success 200 {object} ports.ListView
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /list/title [put]
func (h *TaskHandler) RenameList(c echo.Context) error {
	var req ports.RenameListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	store, err := h.storeFor(c)
	if err != nil {
		return err
	}

	return h.respond(c, store.RenameList(c.Request().Context(), req.Title))
}

// GetDraft returns the add-form defaults
// @Summary Add-form defaults
// @Tags tasks
// @Produce json
// @Success 200 {object} entities.Draft
// @Security BearerAuth
// @Router /tasks/draft [get]
func (h *TaskHandler) GetDraft(c echo.Context) error {
	return c.JSON(http.StatusOK, entities.NewDraft(h.now()))
}

// AddTask appends a task
// @Summary Add a task
// @Description Blank text is ignored and the unchanged list is returned
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.AddTaskRequest true "Task data"
// @Param sort query string false "Sort key"
// @Success 200 {object} ports.ListView
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) AddTask(c echo.Context) error {
	var req ports.AddTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	store, err := h.storeFor(c)
	if err != nil {
		return err
	}

	list := store.Add(c.Request().Context(), services.AddTaskInput{
		Text:      req.Text,
		DueDate:   req.DueDate,
		DueTime:   req.DueTime,
		Priority:  req.Priority,
		ClassName: req.ClassName,
	})

	return h.respond(c, list)
}

// DeleteTask removes a task
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param sort query string false "Sort key"
// @Success 200 {object} ports.ListView
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	store, err := h.storeFor(c)
	if err != nil {
		return err
	}

	id, ok := taskID(c)
	if !ok {
		return h.respond(c, store.Snapshot())
	}

	return h.respond(c, store.Remove(c.Request().Context(), id))
}

// ToggleTask flips the completed flag
// @Summary Toggle completion
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param sort query string false "Sort key"
// @Success 200 {object} ports.ListView
// @Security BearerAuth
// @Router /tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	store, err := h.storeFor(c)
	if err != nil {
		return err
	}

	id, ok := taskID(c)
	if !ok {
		return h.respond(c, store.Snapshot())
	}

	return h.respond(c, store.ToggleComplete(c.Request().Context(), id))
}

// EditTaskText replaces the text of a task
// @Summary Edit task text
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.EditTextRequest true "New text"
// @Param sort query string false "Sort key"
// @Success 200 {object} ports.ListView
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/text [put]
func (h *TaskHandler) EditTaskText(c echo.Context) error {
	var req ports.EditTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	store, err := h.storeFor(c)
	if err != nil {
		return err
	}

	id, ok := taskID(c)
	if !ok {
		return h.respond(c, store.Snapshot())
	}

	return h.respond(c, store.EditText(c.Request().Context(), id, req.Text))
}

// CycleTaskPriority advances the priority low, medium, high and back to low
// @Summary Cycle priority
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param sort query string false "Sort key"
// @Success 200 {object} ports.ListView
// @Security BearerAuth
// @Router /tasks/{id}/priority [post]
func (h *TaskHandler) CycleTaskPriority(c echo.Context) error {
	store, err := h.storeFor(c)
	if err != nil {
		return err
	}

	id, ok := taskID(c)
	if !ok {
		return h.respond(c, store.Snapshot())
	}

	return h.respond(c, store.CyclePriority(c.Request().Context(), id))
}

// storeFor returns the store of the caller.
func (h *TaskHandler) storeFor(c echo.Context) (*services.TaskStore, error) {
	if store, ok := c.Get(StoreKey).(*services.TaskStore); ok {
		return store, nil
	}
	if h.store != nil {
		return h.store, nil
	}

	requestLogger(c, h.logger).Errorw("No task store for request", "path", c.Path())
	return nil, echo.NewHTTPError(http.StatusInternalServerError, "Task list unavailable")
}

func (h *TaskHandler) respond(c echo.Context, list entities.TaskList) error {
	key := entities.ParseSortKey(c.QueryParam("sort"))
	return c.JSON(http.StatusOK, services.BuildView(list, key, h.now()))
}

// taskID parses the :id path parameter. A malformed id cannot match any
// task, so callers treat it like an unknown one.
func taskID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
