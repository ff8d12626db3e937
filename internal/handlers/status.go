package handlers

import (
	"errors"
	"net/http"

	"github.com/dimitrije/teamtasks-api/internal/apierror"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/dimitrije/teamtasks-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type StatusHandler struct {
	statusService StatusServiceInterface
	accessService AccessServiceInterface
	log           logrus.FieldLogger
}

func NewStatusHandler(statusService StatusServiceInterface, accessService AccessServiceInterface, log logrus.FieldLogger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		accessService: accessService,
		log:           log,
	}
}

// List returns the statuses of ?teamId= or, without it, the caller's personal ones.
func (h *StatusHandler) List(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := queryID(c, "teamId")
	if !ok {
		return
	}
	if teamID != nil && !h.requireTeamScope(c, *teamID, userID) {
		return
	}

	page := pageParams(c, statusesPageSize)
	statuses, total, err := h.statusService.List(c.Request.Context(), teamID, userID, page)
	if err != nil {
		internalError(c, h.log, err, "failed to list statuses", logrus.Fields{"user_id": userID})
		return
	}

	response := make([]dto.StatusResponse, len(statuses))
	for i := range statuses {
		response[i] = toStatusResponse(&statuses[i])
	}

	setPageHeaders(c, page, total)
	_ = c.JSON(http.StatusOK, response)
}

func (h *StatusHandler) Get(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	status, ok := h.loadAccessible(c, userID)
	if !ok {
		return
	}
	_ = c.JSON(http.StatusOK, toStatusResponse(status))
}

func (h *StatusHandler) Create(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateStatusRequest
	if !bind(c, &req) {
		return
	}
	if req.TeamID != nil && !h.requireTeamScope(c, *req.TeamID, userID) {
		return
	}

	status, err := h.statusService.Create(c.Request.Context(), req.Name, req.TeamID, userID)
	if err != nil {
		if errors.Is(err, services.ErrStatusNameTaken) {
			apierror.Conflict(c, dto.CodeConflict, "a status with this name already exists")
			return
		}
		internalError(c, h.log, err, "failed to create status", logrus.Fields{"user_id": userID})
		return
	}

	_ = c.JSON(http.StatusCreated, toStatusResponse(status))
}

func (h *StatusHandler) Update(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	status, ok := h.loadAccessible(c, userID)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !bind(c, &req) {
		return
	}

	updated, err := h.statusService.Update(c.Request.Context(), status.ID, req.Name, req.Version)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStatusNotFound):
			apierror.NotFound(c, "Status not found")
		case errors.Is(err, services.ErrStatusNameTaken):
			apierror.Conflict(c, dto.CodeConflict, "a status with this name already exists")
		case errors.Is(err, services.ErrVersionConflict):
			apierror.Conflict(c, dto.CodeConflict, "Status was modified by another user, refresh")
		default:
			internalError(c, h.log, err, "failed to update status", logrus.Fields{"status_id": status.ID})
		}
		return
	}

	_ = c.JSON(http.StatusOK, toStatusResponse(updated))
}

// Delete moves any tasks still using the status to a fallback before removing
// it. A missing status counts as already deleted.
func (h *StatusHandler) Delete(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "status")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	status, err := h.statusService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrStatusNotFound) {
			noContent(c)
			return
		}
		internalError(c, h.log, err, "failed to get status", logrus.Fields{"status_id": id})
		return
	}
	if !h.requireAccess(c, status, userID) {
		return
	}

	if err := h.statusService.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, services.ErrStatusNotFound):
			noContent(c)
		case errors.Is(err, services.ErrNoFallbackStatus):
			apierror.BadRequest(c, "Cannot delete status - no fallback status available")
		default:
			internalError(c, h.log, err, "failed to delete status", logrus.Fields{"status_id": id})
		}
		return
	}

	h.log.WithFields(logrus.Fields{"status_id": id, "user_id": userID}).Info("status deleted")
	noContent(c)
}

func (h *StatusHandler) requireTeamScope(c *drift.Context, teamID, userID uuid.UUID) bool {
	return requireTeam(c, h.accessService, h.log, teamID) &&
		requireTeamAccess(c, h.accessService, h.log, teamID, userID)
}

func (h *StatusHandler) loadAccessible(c *drift.Context, userID uuid.UUID) (*models.Status, bool) {
	id, ok := pathID(c, "id", "status")
	if !ok {
		return nil, false
	}

	status, err := h.statusService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrStatusNotFound) {
			apierror.NotFound(c, "Status not found")
			return nil, false
		}
		internalError(c, h.log, err, "failed to get status", logrus.Fields{"status_id": id})
		return nil, false
	}
	if !h.requireAccess(c, status, userID) {
		return nil, false
	}
	return status, true
}

func (h *StatusHandler) requireAccess(c *drift.Context, status *models.Status, userID uuid.UUID) bool {
	allowed, err := h.accessService.HasStatusAccess(c.Request.Context(), status, userID)
	if err != nil {
		internalError(c, h.log, err, "failed to check status access", logrus.Fields{"status_id": status.ID})
		return false
	}
	if !allowed {
		apierror.Forbidden(c, "you do not have access to this status")
		return false
	}
	return true
}
