package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmaulana/school-notify-api/internal/models"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
)

type mockDashStudents struct {
	byParent    []models.StudentDetail
	totalAll    int
	totalGrades int
}

func (m *mockDashStudents) ListByParent(ctx context.Context, parentID string) ([]models.StudentDetail, error) {
	return m.byParent, nil
}

func (m *mockDashStudents) CountAll(ctx context.Context) (int, error) {
	return m.totalAll, nil
}

func (m *mockDashStudents) CountGrades(ctx context.Context) (int, error) {
	return m.totalGrades, nil
}

func TestDashboardTeacher(t *testing.T) {
	repo := &mockNotificationRepo{
		byCreator:      []models.NotificationDetail{{Notification: models.Notification{ID: 2}}},
		byCreatorTotal: 7,
	}
	svc := NewDashboardService(repo, &mockDashStudents{}, nil, nil, DashboardServiceConfig{RecentLimit: 5})

	summary, cached, err := svc.Teacher(context.Background(), teacherActor)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "Ahmed Hassan", summary.TeacherName)
	assert.Len(t, summary.Recent, 1)
	assert.Equal(t, 7, summary.TotalNotifications)
	assert.Equal(t, 5, repo.lastLimit)
}

func TestDashboardTeacherForbiddenForParent(t *testing.T) {
	svc := NewDashboardService(&mockNotificationRepo{}, &mockDashStudents{}, nil, nil, DashboardServiceConfig{})

	_, _, err := svc.Teacher(context.Background(), parentActor)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestDashboardOffice(t *testing.T) {
	repo := &mockNotificationRepo{
		all:      []models.NotificationDetail{{Notification: models.Notification{ID: 3}}, {Notification: models.Notification{ID: 1}}},
		allTotal: 9,
	}
	students := &mockDashStudents{totalAll: 4, totalGrades: 3}
	svc := NewDashboardService(repo, students, nil, nil, DashboardServiceConfig{})

	summary, cached, err := svc.Office(context.Background(), officeActor)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, summary.Recent, 2)
	assert.Equal(t, 9, summary.TotalNotifications)
	assert.Equal(t, 4, summary.TotalStudents)
	assert.Equal(t, 3, summary.TotalGrades)
}

func TestDashboardOfficeForbiddenForTeacher(t *testing.T) {
	svc := NewDashboardService(&mockNotificationRepo{}, &mockDashStudents{}, nil, nil, DashboardServiceConfig{})

	_, _, err := svc.Office(context.Background(), teacherActor)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestDashboardParent(t *testing.T) {
	now := time.Now()
	repo := &mockNotificationRepo{byParent: []models.NotificationDetail{
		{Notification: models.Notification{ID: 2, Priority: models.NotificationPriorityUrgent}},
		{Notification: models.Notification{ID: 1, IsRead: true, ReadAt: &now}},
	}}
	students := &mockDashStudents{byParent: []models.StudentDetail{
		{Student: models.Student{ID: 1, Name: "Ali Ahmed", Grade: "Grade 1", ParentID: "parent-1"}},
	}}
	svc := NewDashboardService(repo, students, nil, nil, DashboardServiceConfig{})

	summary, err := svc.Parent(context.Background(), parentActor)
	require.NoError(t, err)
	assert.Len(t, summary.Children, 1)
	assert.Len(t, summary.Notifications, 2)
	assert.Equal(t, 2, summary.Stats.Total)
	assert.Equal(t, 1, summary.Stats.Unread)
	assert.Equal(t, 1, summary.Stats.UrgentUnread)
}

func TestDashboardParentForbiddenForOffice(t *testing.T) {
	svc := NewDashboardService(&mockNotificationRepo{}, &mockDashStudents{}, nil, nil, DashboardServiceConfig{})

	_, err := svc.Parent(context.Background(), officeActor)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
