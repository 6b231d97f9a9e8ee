package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmaulana/school-notify-api/internal/middleware"
	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/service"
)

type fakeNotificationRepo struct {
	created   []*models.Notification
	withOwner map[int64]*models.NotificationWithOwner
	byParent  []models.NotificationDetail
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	n.ID = int64(len(f.created) + 1)
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) FindWithOwner(ctx context.Context, id int64) (*models.NotificationWithOwner, error) {
	row, ok := f.withOwner[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) (int64, error) {
	row := f.withOwner[id]
	if row == nil || row.IsRead {
		return 0, nil
	}
	row.IsRead = true
	row.ReadAt = &readAt
	return 1, nil
}

func (f *fakeNotificationRepo) MarkAllReadByParent(ctx context.Context, parentID string, readAt time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationRepo) ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.NotificationDetail, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) CountByCreator(ctx context.Context, createdBy string) (int, error) {
	return 0, nil
}

func (f *fakeNotificationRepo) ListAll(ctx context.Context, limit int) ([]models.NotificationDetail, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) CountAll(ctx context.Context) (int, error) {
	return 0, nil
}

func (f *fakeNotificationRepo) ListByParent(ctx context.Context, parentID string) ([]models.NotificationDetail, error) {
	return f.byParent, nil
}

type fakeStudentLookup struct{}

func (fakeStudentLookup) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	if id != 1 {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: models.Student{ID: 1, Name: "Ali Ahmed", Grade: "Grade 1", ParentID: "parent-1"}}, nil
}

func newNotificationHandler(repo *fakeNotificationRepo) *NotificationHandler {
	notifications := service.NewNotificationService(repo, fakeStudentLookup{}, nil, nil)
	dashboards := service.NewDashboardService(nil, nil, nil, nil, service.DashboardServiceConfig{})
	return NewNotificationHandler(notifications, dashboards)
}

func setClaims(c *gin.Context, id string, role models.UserRole, name string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: role, FullName: name})
}

func TestNotificationHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeNotificationRepo{}
	h := newNotificationHandler(repo)

	body, _ := json.Marshal(map[string]interface{}{
		"student_id": 1,
		"title":      "Attendance - Present Today",
		"message":    "Present and on time.",
		"type":       "Attendance",
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader(body))
	setClaims(c, "teacher-1", models.RoleTeacher, "Ahmed Hassan")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Ahmed Hassan", repo.created[0].CreatedBy)
}

func TestNotificationHandlerCreateDisallowedType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newNotificationHandler(&fakeNotificationRepo{})

	body, _ := json.Marshal(map[string]interface{}{
		"student_id": 1,
		"title":      "Eid Break",
		"message":    "School closed.",
		"type":       "Administrative",
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader(body))
	setClaims(c, "teacher-1", models.RoleTeacher, "Ahmed Hassan")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationHandlerCreateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newNotificationHandler(&fakeNotificationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader([]byte(`{}`)))

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeNotificationRepo{withOwner: map[int64]*models.NotificationWithOwner{
		7: {Notification: models.Notification{ID: 7, StudentID: 1}, ParentID: "parent-1"},
	}}
	h := newNotificationHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/notifications/7/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	setClaims(c, "parent-1", models.RoleParent, "Mohammed Ahmed")

	h.MarkRead(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, repo.withOwner[7].IsRead)
}

func TestNotificationHandlerMarkReadBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newNotificationHandler(&fakeNotificationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/notifications/abc/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	setClaims(c, "parent-1", models.RoleParent, "Mohammed Ahmed")

	h.MarkRead(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationHandlerMarkReadOtherParent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeNotificationRepo{withOwner: map[int64]*models.NotificationWithOwner{
		7: {Notification: models.Notification{ID: 7, StudentID: 1}, ParentID: "parent-2"},
	}}
	h := newNotificationHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/notifications/7/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	setClaims(c, "parent-1", models.RoleParent, "Mohammed Ahmed")

	h.MarkRead(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotificationHandlerListForParent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeNotificationRepo{byParent: []models.NotificationDetail{
		{Notification: models.Notification{ID: 2, Priority: models.NotificationPriorityUrgent}},
		{Notification: models.Notification{ID: 1, IsRead: true}},
	}}
	h := newNotificationHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/notifications/parent", nil)
	setClaims(c, "parent-1", models.RoleParent, "Mohammed Ahmed")

	h.ListForParent(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			Stats models.NotificationStats `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Stats.Total)
	assert.Equal(t, 1, envelope.Data.Stats.Unread)
	assert.Equal(t, 1, envelope.Data.Stats.UrgentUnread)
}
