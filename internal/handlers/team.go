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

type TeamHandler struct {
	teamService   TeamServiceInterface
	accessService AccessServiceInterface
	log           logrus.FieldLogger
}

func NewTeamHandler(teamService TeamServiceInterface, accessService AccessServiceInterface, log logrus.FieldLogger) *TeamHandler {
	return &TeamHandler{
		teamService:   teamService,
		accessService: accessService,
		log:           log,
	}
}

func (h *TeamHandler) Create(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateTeamRequest
	if !bind(c, &req) {
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), req.Name, req.Description, userID)
	if err != nil {
		internalError(c, h.log, err, "failed to create team", logrus.Fields{"user_id": userID})
		return
	}

	_ = c.JSON(http.StatusCreated, toTeamResponse(team, models.RoleAdmin))
}

func (h *TeamHandler) List(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page := pageParams(c, teamsPageSize)
	teams, total, err := h.teamService.ListForUser(c.Request.Context(), userID, page)
	if err != nil {
		internalError(c, h.log, err, "failed to list teams", logrus.Fields{"user_id": userID})
		return
	}

	response := make([]dto.TeamResponse, len(teams))
	for i := range teams {
		response[i] = toTeamResponse(&teams[i].Team, teams[i].Role)
	}

	setPageHeaders(c, page, total)
	_ = c.JSON(http.StatusOK, response)
}

func (h *TeamHandler) Get(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, ok := h.loadTeam(c, "id")
	if !ok {
		return
	}

	if !requireTeamAccess(c, h.accessService, h.log, team.ID, userID) {
		return
	}

	var role models.Role
	member, err := h.teamService.GetMember(c.Request.Context(), team.ID, userID)
	switch {
	case err == nil:
		role = member.Role
	case !errors.Is(err, services.ErrMemberNotFound):
		internalError(c, h.log, err, "failed to get membership", logrus.Fields{"team_id": team.ID})
		return
	}

	_ = c.JSON(http.StatusOK, toTeamResponse(team, role))
}

func (h *TeamHandler) Update(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	team, ok := h.loadTeam(c, "id")
	if !ok {
		return
	}
	if !h.requireManage(c, team, userID) {
		return
	}

	var req dto.UpdateTeamRequest
	if !bind(c, &req) {
		return
	}

	updated, err := h.teamService.Update(c.Request.Context(), team.ID, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrTeamNotFound) {
			apierror.NotFound(c, "team not found")
			return
		}
		internalError(c, h.log, err, "failed to update team", logrus.Fields{"team_id": team.ID})
		return
	}

	_ = c.JSON(http.StatusOK, toTeamResponse(updated, ""))
}

// Delete is idempotent: deleting a team that does not exist succeeds.
func (h *TeamHandler) Delete(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id", "team")
	if !ok {
		return
	}

	team, err := h.teamService.GetByID(c.Request.Context(), teamID)
	if err != nil {
		if errors.Is(err, services.ErrTeamNotFound) {
			noContent(c)
			return
		}
		internalError(c, h.log, err, "failed to get team", logrus.Fields{"team_id": teamID})
		return
	}
	if !h.requireManage(c, team, userID) {
		return
	}

	if err := h.teamService.Delete(c.Request.Context(), teamID); err != nil && !errors.Is(err, services.ErrTeamNotFound) {
		internalError(c, h.log, err, "failed to delete team", logrus.Fields{"team_id": teamID})
		return
	}

	h.log.WithFields(logrus.Fields{"team_id": teamID, "user_id": userID}).Info("team deleted")
	noContent(c)
}

// Leave drops the caller's own membership.
func (h *TeamHandler) Leave(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "teamId", "team")
	if !ok {
		return
	}
	if !requireTeam(c, h.accessService, h.log, teamID) {
		return
	}

	if err := h.teamService.LeaveTeam(c.Request.Context(), teamID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotMember):
			apierror.Forbidden(c, "you are not a member of this team")
		case errors.Is(err, services.ErrLastAdmin):
			apierror.BadRequest(c, "Cannot leave as the last admin")
		default:
			internalError(c, h.log, err, "failed to leave team", logrus.Fields{"team_id": teamID, "user_id": userID})
		}
		return
	}

	noContent(c)
}

func (h *TeamHandler) loadTeam(c *drift.Context, param string) (*models.Team, bool) {
	teamID, ok := pathID(c, param, "team")
	if !ok {
		return nil, false
	}
	team, err := h.teamService.GetByID(c.Request.Context(), teamID)
	if err != nil {
		if errors.Is(err, services.ErrTeamNotFound) {
			apierror.NotFound(c, "team not found")
			return nil, false
		}
		internalError(c, h.log, err, "failed to get team", logrus.Fields{"team_id": teamID})
		return nil, false
	}
	return team, true
}

func (h *TeamHandler) requireManage(c *drift.Context, team *models.Team, userID uuid.UUID) bool {
	allowed, err := h.accessService.CanManageTeam(c.Request.Context(), team, userID)
	if err != nil {
		internalError(c, h.log, err, "failed to check team permissions", logrus.Fields{"team_id": team.ID})
		return false
	}
	if !allowed {
		apierror.Forbidden(c, "only team admins can manage this team")
		return false
	}
	return true
}

// requireTeam writes a 404 when teamID does not exist.
func requireTeam(c *drift.Context, access AccessServiceInterface, log logrus.FieldLogger, teamID uuid.UUID) bool {
	exists, err := access.TeamExists(c.Request.Context(), teamID)
	if err != nil {
		internalError(c, log, err, "failed to check team", logrus.Fields{"team_id": teamID})
		return false
	}
	if !exists {
		apierror.NotFound(c, "team not found")
		return false
	}
	return true
}

// requireTeamAccess writes a 403 unless userID is a member or the creator.
func requireTeamAccess(c *drift.Context, access AccessServiceInterface, log logrus.FieldLogger, teamID, userID uuid.UUID) bool {
	allowed, err := access.HasTeamAccess(c.Request.Context(), teamID, userID)
	if err != nil {
		internalError(c, log, err, "failed to check team access", logrus.Fields{"team_id": teamID})
		return false
	}
	if !allowed {
		apierror.Forbidden(c, "you do not have access to this team")
		return false
	}
	return true
}

// requireTeamAdmin writes a 403 unless userID holds the admin role.
func requireTeamAdmin(c *drift.Context, access AccessServiceInterface, log logrus.FieldLogger, teamID, userID uuid.UUID) bool {
	admin, err := access.IsTeamAdmin(c.Request.Context(), teamID, userID)
	if err != nil {
		internalError(c, log, err, "failed to check team role", logrus.Fields{"team_id": teamID})
		return false
	}
	if !admin {
		apierror.Forbidden(c, "only team admins can do this")
		return false
	}
	return true
}
