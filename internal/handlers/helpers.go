package handlers

import (
	"net/http"
	"strconv"

	"github.com/dimitrije/teamtasks-api/internal/apierror"
	"github.com/dimitrije/teamtasks-api/internal/middleware"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// Default page sizes per listing.
const (
	teamsPageSize       = 10
	invitationsPageSize = 10
	membersPageSize     = 20
	statusesPageSize    = 20
	tasksPageSize       = 20
)

// currentUser returns the authenticated user id, writing a 401 when the auth
// middleware did not run.
func currentUser(c *drift.Context) (uuid.UUID, bool) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		apierror.Unauthorized(c, "not authenticated")
		return uuid.Nil, false
	}
	return userID, true
}

func pathID(c *drift.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apierror.BadRequest(c, "invalid "+label+" id")
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter. A missing value yields nil.
func queryID(c *drift.Context, name string) (*uuid.UUID, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		apierror.BadRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

func pageParams(c *drift.Context, defaultSize int) pagination.Params {
	return pagination.Parse(c.QueryParam("page"), c.QueryParam("pageSize"), defaultSize)
}

func setPageHeaders(c *drift.Context, page pagination.Params, total int) {
	h := c.Response.Header()
	h.Set("X-Total-Count", strconv.Itoa(total))
	h.Set("X-Page", strconv.Itoa(page.Page))
	h.Set("X-Page-Size", strconv.Itoa(page.PageSize))
}

func noContent(c *drift.Context) {
	c.Response.WriteHeader(http.StatusNoContent)
}

// internalError logs err with fields and answers with a generic 500.
func internalError(c *drift.Context, log logrus.FieldLogger, err error, msg string, fields logrus.Fields) {
	log.WithError(err).WithFields(fields).Error(msg)
	apierror.Internal(c)
}
