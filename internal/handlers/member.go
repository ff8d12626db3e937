package handlers

import (
	"context"
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

type MemberHandler struct {
	teamService   TeamServiceInterface
	accessService AccessServiceInterface
	log           logrus.FieldLogger
}

func NewMemberHandler(teamService TeamServiceInterface, accessService AccessServiceInterface, log logrus.FieldLogger) *MemberHandler {
	return &MemberHandler{
		teamService:   teamService,
		accessService: accessService,
		log:           log,
	}
}

func (h *MemberHandler) List(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id", "team")
	if !ok {
		return
	}
	if !requireTeam(c, h.accessService, h.log, teamID) ||
		!requireTeamAccess(c, h.accessService, h.log, teamID, userID) {
		return
	}

	page := pageParams(c, membersPageSize)
	members, total, err := h.teamService.ListMembers(c.Request.Context(), teamID, page)
	if err != nil {
		internalError(c, h.log, err, "failed to list members", logrus.Fields{"team_id": teamID})
		return
	}

	response := make([]dto.MemberResponse, len(members))
	for i := range members {
		response[i] = toMemberResponse(&members[i])
	}

	setPageHeaders(c, page, total)
	_ = c.JSON(http.StatusOK, response)
}

// ListMine lists the memberships of every team the caller belongs to.
func (h *MemberHandler) ListMine(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page := pageParams(c, membersPageSize)
	members, total, err := h.teamService.ListMembershipsForUser(c.Request.Context(), userID, page)
	if err != nil {
		internalError(c, h.log, err, "failed to list memberships", logrus.Fields{"user_id": userID})
		return
	}

	response := make([]dto.MemberResponse, len(members))
	for i := range members {
		response[i] = toMemberResponse(&members[i])
	}

	setPageHeaders(c, page, total)
	_ = c.JSON(http.StatusOK, response)
}

func (h *MemberHandler) IsAdmin(c *drift.Context) {
	h.membershipCheck(c, h.accessService.IsTeamAdmin)
}

func (h *MemberHandler) IsMember(c *drift.Context) {
	h.membershipCheck(c, h.accessService.IsTeamMember)
}

func (h *MemberHandler) membershipCheck(c *drift.Context, check func(ctx context.Context, teamID, userID uuid.UUID) (bool, error)) {
	callerID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id", "team")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId", "user")
	if !ok {
		return
	}
	if !requireTeam(c, h.accessService, h.log, teamID) ||
		!requireTeamAccess(c, h.accessService, h.log, teamID, callerID) {
		return
	}

	result, err := check(c.Request.Context(), teamID, targetID)
	if err != nil {
		internalError(c, h.log, err, "failed to check membership", logrus.Fields{"team_id": teamID, "user_id": targetID})
		return
	}

	_ = c.JSON(http.StatusOK, result)
}

func (h *MemberHandler) UpdateRole(c *drift.Context) {
	actorID, teamID, targetID, ok := h.adminTarget(c)
	if !ok {
		return
	}

	var req dto.UpdateMemberRoleRequest
	if !bind(c, &req) {
		return
	}

	err := h.teamService.UpdateMemberRole(c.Request.Context(), teamID, actorID, targetID, models.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			apierror.NotFound(c, "member not found")
		case errors.Is(err, services.ErrCannotModifySelf):
			apierror.BadRequest(c, "Cannot modify your own role")
		case errors.Is(err, services.ErrLastAdmin):
			apierror.BadRequest(c, "Cannot demote the last admin")
		default:
			internalError(c, h.log, err, "failed to update member role", logrus.Fields{"team_id": teamID, "user_id": targetID})
		}
		return
	}

	h.log.WithFields(logrus.Fields{"team_id": teamID, "user_id": targetID, "role": req.Role}).Info("member role updated")
	noContent(c)
}

// Remove is idempotent: removing someone who is not a member succeeds.
func (h *MemberHandler) Remove(c *drift.Context) {
	actorID, teamID, targetID, ok := h.adminTarget(c)
	if !ok {
		return
	}

	err := h.teamService.RemoveMember(c.Request.Context(), teamID, actorID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			noContent(c)
		case errors.Is(err, services.ErrCannotModifySelf):
			apierror.BadRequest(c, "Cannot remove yourself, leave the team instead")
		case errors.Is(err, services.ErrLastAdmin):
			apierror.BadRequest(c, "Cannot remove last admin")
		default:
			internalError(c, h.log, err, "failed to remove member", logrus.Fields{"team_id": teamID, "user_id": targetID})
		}
		return
	}

	h.log.WithFields(logrus.Fields{"team_id": teamID, "user_id": targetID}).Info("member removed")
	noContent(c)
}

// adminTarget resolves /members/:teamId/:userId for an operation only team
// admins may perform.
func (h *MemberHandler) adminTarget(c *drift.Context) (actorID, teamID, targetID uuid.UUID, ok bool) {
	if actorID, ok = currentUser(c); !ok {
		return
	}
	if teamID, ok = pathID(c, "teamId", "team"); !ok {
		return
	}
	if targetID, ok = pathID(c, "userId", "user"); !ok {
		return
	}
	ok = requireTeam(c, h.accessService, h.log, teamID) &&
		requireTeamAdmin(c, h.accessService, h.log, teamID, actorID)
	return
}
