package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/middleware"
	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/response"
)

type notificationServiceMock struct {
	createCalled  bool
	lastTeacherID int64
	lastReq       service.CreateNotificationRequest
	lastFilter    models.NotificationFilter
	redispatched  int64
}

func (m *notificationServiceMock) Create(ctx context.Context, teacherID int64, req service.CreateNotificationRequest) (*models.NotificationReceipt, error) {
	m.createCalled = true
	m.lastTeacherID = teacherID
	m.lastReq = req
	return &models.NotificationReceipt{
		Notification:  models.Notification{ID: 3, TeacherID: teacherID, Title: req.Title, Content: req.Content},
		DispatchJobID: "job-1",
	}, nil
}

func (m *notificationServiceMock) Redispatch(ctx context.Context, id int64) (*models.NotificationReceipt, error) {
	m.redispatched = id
	return &models.NotificationReceipt{Notification: models.Notification{ID: id}, DispatchJobID: "job-2"}, nil
}

func (m *notificationServiceMock) Get(ctx context.Context, id int64) (*models.Notification, error) {
	return &models.Notification{ID: id}, nil
}

func (m *notificationServiceMock) ListByTeacher(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Notification{{ID: 1, TeacherID: filter.TeacherID}},
		&models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func TestNotificationHandlerSendUsesAuthenticatedTeacher(t *testing.T) {
	mock := &notificationServiceMock{}
	h := NewNotificationHandler(mock)

	c, w := newRosterTestContext(http.MethodPost, "/api/admin/notifications", `{"title":"Trip","content":"Bring lunch @studentagnes@gmail.com"}`)
	c.Set(middleware.ContextTeacherKey, &models.JWTClaims{TeacherID: 9, Email: "teacherken@gmail.com"})
	h.Send(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, int64(9), mock.lastTeacherID)
	assert.Equal(t, "Trip", mock.lastReq.Title)

	var env struct {
		Data models.NotificationReceipt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "job-1", env.Data.DispatchJobID)
	assert.Equal(t, int64(3), env.Data.ID)
}

func TestNotificationHandlerSendWithoutClaims(t *testing.T) {
	mock := &notificationServiceMock{}
	h := NewNotificationHandler(mock)

	c, w := newRosterTestContext(http.MethodPost, "/api/admin/notifications", `{"title":"Trip","content":"x"}`)
	h.Send(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, mock.createCalled)
}

func TestNotificationHandlerListByTeacherPaging(t *testing.T) {
	mock := &notificationServiceMock{}
	h := NewNotificationHandler(mock)

	c, w := newRosterTestContext(http.MethodGet, "/api/admin/teachers/4/notifications?page=2&page_size=5", "")
	c.Params = append(c.Params, ginParam("id", "4"))
	h.ListByTeacher(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.NotificationFilter{TeacherID: 4, Page: 2, PageSize: 5}, mock.lastFilter)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestNotificationHandlerRedispatch(t *testing.T) {
	mock := &notificationServiceMock{}
	h := NewNotificationHandler(mock)

	c, w := newRosterTestContext(http.MethodPost, "/api/admin/notifications/12/dispatch", "")
	c.Params = append(c.Params, ginParam("id", "12"))
	h.Redispatch(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, int64(12), mock.redispatched)
}
