package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dimitrije/teamtasks-api/internal/apierror"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/dimitrije/teamtasks-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type TaskHandler struct {
	taskService   TaskServiceInterface
	accessService AccessServiceInterface
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewTaskHandler(taskService TaskServiceInterface, accessService AccessServiceInterface, log logrus.FieldLogger) *TaskHandler {
	return &TaskHandler{
		taskService:   taskService,
		accessService: accessService,
		log:           log,
		now:           time.Now,
	}
}

func (h *TaskHandler) Create(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if !bind(c, &req) {
		return
	}

	var errs []string
	switch {
	case req.IsPersonal && req.TeamID != nil:
		errs = append(errs, "teamId must be empty for personal tasks")
	case !req.IsPersonal && req.TeamID == nil:
		errs = append(errs, "teamId is required for team tasks")
	}
	if req.DueDate != nil && !req.DueDate.After(h.now()) {
		errs = append(errs, "dueDate must be in the future")
	}
	if len(errs) > 0 {
		apierror.Validation(c, errs)
		return
	}

	if req.TeamID != nil {
		if !requireTeam(c, h.accessService, h.log, *req.TeamID) ||
			!requireTeamAccess(c, h.accessService, h.log, *req.TeamID, userID) {
			return
		}
	}

	task, err := h.taskService.Create(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		IsPersonal:  req.IsPersonal,
		TeamID:      req.TeamID,
		StatusID:    req.StatusID,
		AssignedTo:  req.AssignedToUserID,
	}, userID)
	if err != nil {
		h.writeTaskError(c, err, logrus.Fields{"user_id": userID})
		return
	}

	_ = c.JSON(http.StatusCreated, toTaskResponse(task))
}

// List returns the caller's personal tasks and those of their teams, narrowed
// by ?teamId= and ?isPersonal= when given.
func (h *TaskHandler) List(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var filter services.TaskFilter
	if filter.TeamID, ok = queryID(c, "teamId"); !ok {
		return
	}
	if raw := c.QueryParam("isPersonal"); raw != "" {
		personal, err := strconv.ParseBool(raw)
		if err != nil {
			apierror.BadRequest(c, "invalid isPersonal")
			return
		}
		filter.IsPersonal = &personal
	}

	page := pageParams(c, tasksPageSize)
	tasks, total, err := h.taskService.List(c.Request.Context(), userID, filter, page)
	if err != nil {
		internalError(c, h.log, err, "failed to list tasks", logrus.Fields{"user_id": userID})
		return
	}

	response := make([]dto.TaskResponse, len(tasks))
	for i := range tasks {
		response[i] = toTaskResponse(&tasks[i])
	}

	setPageHeaders(c, page, total)
	_ = c.JSON(http.StatusOK, response)
}

func (h *TaskHandler) Get(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	allowed, err := h.accessService.CanViewTask(c.Request.Context(), task, userID)
	if err != nil {
		internalError(c, h.log, err, "failed to check task access", logrus.Fields{"task_id": task.ID})
		return
	}
	if !allowed {
		apierror.Forbidden(c, "you do not have access to this task")
		return
	}

	_ = c.JSON(http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Update(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if !h.requireModify(c, task, userID) {
		return
	}

	var req dto.UpdateTaskRequest
	if !bind(c, &req) {
		return
	}

	updated, err := h.taskService.Update(c.Request.Context(), task.ID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		StatusID:    req.StatusID,
		AssignedTo:  req.AssignedToUserID,
		Unassign:    req.Unassign,
		Version:     req.Version,
	})
	if err != nil {
		h.writeTaskError(c, err, logrus.Fields{"task_id": task.ID})
		return
	}

	_ = c.JSON(http.StatusOK, toTaskResponse(updated))
}

// Delete treats a missing task as already deleted.
func (h *TaskHandler) Delete(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "task")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	task, err := h.taskService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			noContent(c)
			return
		}
		internalError(c, h.log, err, "failed to get task", logrus.Fields{"task_id": id})
		return
	}
	if !h.requireModify(c, task, userID) {
		return
	}

	if err := h.taskService.Delete(ctx, id); err != nil && !errors.Is(err, services.ErrTaskNotFound) {
		internalError(c, h.log, err, "failed to delete task", logrus.Fields{"task_id": id})
		return
	}

	noContent(c)
}

func (h *TaskHandler) loadTask(c *drift.Context) (*models.Task, bool) {
	id, ok := pathID(c, "id", "task")
	if !ok {
		return nil, false
	}

	task, err := h.taskService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			apierror.NotFound(c, "task not found")
			return nil, false
		}
		internalError(c, h.log, err, "failed to get task", logrus.Fields{"task_id": id})
		return nil, false
	}
	return task, true
}

func (h *TaskHandler) requireModify(c *drift.Context, task *models.Task, userID uuid.UUID) bool {
	allowed, err := h.accessService.HasTaskAccess(c.Request.Context(), task, userID)
	if err != nil {
		internalError(c, h.log, err, "failed to check task access", logrus.Fields{"task_id": task.ID})
		return false
	}
	if !allowed {
		apierror.Forbidden(c, "you do not have permission to modify this task")
		return false
	}
	return true
}

func (h *TaskHandler) writeTaskError(c *drift.Context, err error, fields logrus.Fields) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierror.NotFound(c, "task not found")
	case errors.Is(err, services.ErrStatusNotFound):
		apierror.NotFound(c, "Status not found")
	case errors.Is(err, services.ErrStatusOutOfScope):
		apierror.BadRequest(c, "Status is not available for this task")
	case errors.Is(err, services.ErrInvalidAssignment):
		apierror.BadRequest(c, "Invalid user assignment")
	case errors.Is(err, services.ErrDueDateInPast):
		apierror.Validation(c, []string{"dueDate must be in the future"})
	case errors.Is(err, services.ErrVersionConflict):
		apierror.Conflict(c, dto.CodeConflict, "Task was modified by another user, refresh")
	default:
		internalError(c, h.log, err, "failed to save task", fields)
	}
}
