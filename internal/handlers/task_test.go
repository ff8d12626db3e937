package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/dimitrije/teamtasks-api/pkg/dto"
	"github.com/dimitrije/teamtasks-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var taskTestNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTaskTest(t *testing.T) (*testutil.MockTaskService, *testutil.MockAccessService, *TaskHandler) {
	t.Helper()
	tasks := new(testutil.MockTaskService)
	access := new(testutil.MockAccessService)
	handler := NewTaskHandler(tasks, access, testLogger())
	handler.now = func() time.Time { return taskTestNow }
	return tasks, access, handler
}

func testTask(creatorID uuid.UUID, teamID *uuid.UUID) *models.Task {
	statusID := uuid.New()
	return &models.Task{
		ID:         uuid.New(),
		Title:      "Write release notes",
		IsPersonal: teamID == nil,
		TeamID:     teamID,
		StatusID:   statusID,
		CreatedBy:  &creatorID,
		Version:    1,
		CreatedAt:  taskTestNow,
		UpdatedAt:  taskTestNow,
		Status:     &models.Status{ID: statusID, Name: "Todo", TeamID: teamID, Version: 1},
	}
}

func TestTaskHandler_Create_Personal(t *testing.T) {
	tasks, _, handler := setupTaskTest(t)

	userID := uuid.New()
	task := testTask(userID, nil)
	due := taskTestNow.Add(48 * time.Hour)

	tasks.On("Create", mock.Anything, services.CreateTaskInput{
		Title:      task.Title,
		DueDate:    &due,
		IsPersonal: true,
		StatusID:   task.StatusID,
	}, userID).Return(task, nil)

	app := newApp(http.MethodPost, "/tasks", handler.Create)
	rec := doRequest(t, app, http.MethodPost, "/tasks", dto.CreateTaskRequest{
		Title:      task.Title,
		DueDate:    &due,
		IsPersonal: true,
		StatusID:   task.StatusID,
	}, generateTestToken(t, userID, "alice"))

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, task.ID, response.ID)
	assert.True(t, response.IsPersonal)
	require.NotNil(t, response.Status)
	assert.Equal(t, "Todo", response.Status.Name)
	tasks.AssertExpectations(t)
}

func TestTaskHandler_Create_Validation(t *testing.T) {
	userID := uuid.New()
	teamID := uuid.New()
	statusID := uuid.New()
	past := taskTestNow.Add(-time.Hour)
	token := generateTestToken(t, userID, "alice")

	tests := []struct {
		name    string
		req     dto.CreateTaskRequest
		wantErr string
	}{
		{
			name:    "personal task with team",
			req:     dto.CreateTaskRequest{Title: "Task", IsPersonal: true, TeamID: &teamID, StatusID: statusID},
			wantErr: "teamId must be empty for personal tasks",
		},
		{
			name:    "team task without team",
			req:     dto.CreateTaskRequest{Title: "Task", StatusID: statusID},
			wantErr: "teamId is required for team tasks",
		},
		{
			name:    "due date in the past",
			req:     dto.CreateTaskRequest{Title: "Task", IsPersonal: true, StatusID: statusID, DueDate: &past},
			wantErr: "dueDate must be in the future",
		},
		{
			name:    "short title",
			req:     dto.CreateTaskRequest{Title: "T", IsPersonal: true, StatusID: statusID},
			wantErr: "title must be at least 2 characters",
		},
		{
			name:    "missing status",
			req:     dto.CreateTaskRequest{Title: "Task", IsPersonal: true},
			wantErr: "statusId is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, _, handler := setupTaskTest(t)

			app := newApp(http.MethodPost, "/tasks", handler.Create)
			rec := doRequest(t, app, http.MethodPost, "/tasks", tt.req, token)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, dto.CodeValidation, body.ErrorCode)
			assert.Contains(t, body.Errors, tt.wantErr)
			tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTaskHandler_Create_TeamTask(t *testing.T) {
	userID := uuid.New()
	teamID := uuid.New()
	statusID := uuid.New()
	assignee := uuid.New()
	token := generateTestToken(t, userID, "alice")
	req := dto.CreateTaskRequest{Title: "Task", TeamID: &teamID, StatusID: statusID, AssignedToUserID: &assignee}
	input := services.CreateTaskInput{Title: "Task", TeamID: &teamID, StatusID: statusID, AssignedTo: &assignee}

	t.Run("not a member", func(t *testing.T) {
		_, access, handler := setupTaskTest(t)
		access.On("TeamExists", mock.Anything, teamID).Return(true, nil)
		access.On("HasTeamAccess", mock.Anything, teamID, userID).Return(false, nil)

		app := newApp(http.MethodPost, "/tasks", handler.Create)
		rec := doRequest(t, app, http.MethodPost, "/tasks", req, token)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("team missing", func(t *testing.T) {
		_, access, handler := setupTaskTest(t)
		access.On("TeamExists", mock.Anything, teamID).Return(false, nil)

		app := newApp(http.MethodPost, "/tasks", handler.Create)
		rec := doRequest(t, app, http.MethodPost, "/tasks", req, token)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	errorCases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"assignee outside team", services.ErrInvalidAssignment, http.StatusBadRequest, "Invalid user assignment"},
		{"status missing", services.ErrStatusNotFound, http.StatusNotFound, "Status not found"},
		{"status from another scope", services.ErrStatusOutOfScope, http.StatusBadRequest, "Status is not available for this task"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			tasks, access, handler := setupTaskTest(t)
			access.On("TeamExists", mock.Anything, teamID).Return(true, nil)
			access.On("HasTeamAccess", mock.Anything, teamID, userID).Return(true, nil)
			tasks.On("Create", mock.Anything, input, userID).Return(nil, tt.err)

			app := newApp(http.MethodPost, "/tasks", handler.Create)
			rec := doRequest(t, app, http.MethodPost, "/tasks", req, token)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec).Message)
		})
	}
}

func TestTaskHandler_List_Filters(t *testing.T) {
	userID := uuid.New()
	teamID := uuid.New()
	token := generateTestToken(t, userID, "alice")
	personal := false

	t.Run("team and personal flags", func(t *testing.T) {
		tasks, _, handler := setupTaskTest(t)
		filter := services.TaskFilter{TeamID: &teamID, IsPersonal: &personal}
		tasks.On("List", mock.Anything, userID, filter, pagination.Params{Page: 2, PageSize: 5}).
			Return([]models.Task{*testTask(userID, &teamID)}, 6, nil)

		app := newApp(http.MethodGet, "/tasks", handler.List)
		rec := doRequest(t, app, http.MethodGet,
			"/tasks?teamId="+teamID.String()+"&isPersonal=false&page=2&pageSize=5", nil, token)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "6", rec.Header().Get("X-Total-Count"))
		assert.Equal(t, "2", rec.Header().Get("X-Page"))
		assert.Equal(t, "5", rec.Header().Get("X-Page-Size"))
		tasks.AssertExpectations(t)
	})

	t.Run("no filters", func(t *testing.T) {
		tasks, _, handler := setupTaskTest(t)
		tasks.On("List", mock.Anything, userID, services.TaskFilter{}, pagination.Params{Page: 1, PageSize: 20}).
			Return([]models.Task{}, 0, nil)

		app := newApp(http.MethodGet, "/tasks", handler.List)
		rec := doRequest(t, app, http.MethodGet, "/tasks", nil, token)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("bad isPersonal", func(t *testing.T) {
		_, _, handler := setupTaskTest(t)

		app := newApp(http.MethodGet, "/tasks", handler.List)
		rec := doRequest(t, app, http.MethodGet, "/tasks?isPersonal=maybe", nil, token)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_Get(t *testing.T) {
	userID := uuid.New()
	token := generateTestToken(t, userID, "alice")

	t.Run("not found", func(t *testing.T) {
		tasks, _, handler := setupTaskTest(t)
		id := uuid.New()
		tasks.On("GetByID", mock.Anything, id).Return(nil, services.ErrTaskNotFound)

		app := newApp(http.MethodGet, "/tasks/:id", handler.Get)
		rec := doRequest(t, app, http.MethodGet, "/tasks/"+id.String(), nil, token)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("someone else's personal task", func(t *testing.T) {
		tasks, access, handler := setupTaskTest(t)
		task := testTask(uuid.New(), nil)
		tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		access.On("CanViewTask", mock.Anything, task, userID).Return(false, nil)

		app := newApp(http.MethodGet, "/tasks/:id", handler.Get)
		rec := doRequest(t, app, http.MethodGet, "/tasks/"+task.ID.String(), nil, token)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("visible", func(t *testing.T) {
		tasks, access, handler := setupTaskTest(t)
		task := testTask(userID, nil)
		tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		access.On("CanViewTask", mock.Anything, task, userID).Return(true, nil)

		app := newApp(http.MethodGet, "/tasks/:id", handler.Get)
		rec := doRequest(t, app, http.MethodGet, "/tasks/"+task.ID.String(), nil, token)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTaskHandler_Update(t *testing.T) {
	userID := uuid.New()
	token := generateTestToken(t, userID, "alice")

	t.Run("stale version", func(t *testing.T) {
		tasks, access, handler := setupTaskTest(t)
		task := testTask(userID, nil)
		tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		access.On("HasTaskAccess", mock.Anything, task, userID).Return(true, nil)
		tasks.On("Update", mock.Anything, task.ID, services.UpdateTaskInput{Title: strPtr("Renamed"), Version: 1}).
			Return(nil, services.ErrVersionConflict)

		app := newApp(http.MethodPut, "/tasks/:id", handler.Update)
		rec := doRequest(t, app, http.MethodPut, "/tasks/"+task.ID.String(),
			dto.UpdateTaskRequest{Title: strPtr("Renamed"), Version: 1}, token)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Task was modified by another user, refresh", decodeError(t, rec).Message)
	})

	t.Run("unassign", func(t *testing.T) {
		tasks, access, handler := setupTaskTest(t)
		task := testTask(userID, nil)
		updated := *task
		updated.Version = 2

		tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		access.On("HasTaskAccess", mock.Anything, task, userID).Return(true, nil)
		tasks.On("Update", mock.Anything, task.ID, services.UpdateTaskInput{Unassign: true, Version: 1}).Return(&updated, nil)

		app := newApp(http.MethodPut, "/tasks/:id", handler.Update)
		rec := doRequest(t, app, http.MethodPut, "/tasks/"+task.ID.String(),
			dto.UpdateTaskRequest{Unassign: true, Version: 1}, token)

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, 2, response.Version)
		assert.Nil(t, response.AssignedToUserID)
	})

	t.Run("no permission", func(t *testing.T) {
		tasks, access, handler := setupTaskTest(t)
		teamID := uuid.New()
		task := testTask(uuid.New(), &teamID)
		tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		access.On("HasTaskAccess", mock.Anything, task, userID).Return(false, nil)

		app := newApp(http.MethodPut, "/tasks/:id", handler.Update)
		rec := doRequest(t, app, http.MethodPut, "/tasks/"+task.ID.String(),
			dto.UpdateTaskRequest{Title: strPtr("Mine now"), Version: 1}, token)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	userID := uuid.New()
	token := generateTestToken(t, userID, "alice")

	t.Run("missing task", func(t *testing.T) {
		tasks, _, handler := setupTaskTest(t)
		id := uuid.New()
		tasks.On("GetByID", mock.Anything, id).Return(nil, services.ErrTaskNotFound)

		app := newApp(http.MethodDelete, "/tasks/:id", handler.Delete)
		rec := doRequest(t, app, http.MethodDelete, "/tasks/"+id.String(), nil, token)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("owner deletes", func(t *testing.T) {
		tasks, access, handler := setupTaskTest(t)
		task := testTask(userID, nil)
		tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		access.On("HasTaskAccess", mock.Anything, task, userID).Return(true, nil)
		tasks.On("Delete", mock.Anything, task.ID).Return(nil)

		app := newApp(http.MethodDelete, "/tasks/:id", handler.Delete)
		rec := doRequest(t, app, http.MethodDelete, "/tasks/"+task.ID.String(), nil, token)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		tasks.AssertExpectations(t)
	})
}
