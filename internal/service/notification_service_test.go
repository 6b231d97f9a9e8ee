package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmaulana/school-notify-api/internal/models"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
)

type mockNotificationRepo struct {
	created          []*models.Notification
	createErr        error
	withOwner        map[int64]*models.NotificationWithOwner
	markReadCalls    int
	markAllReadCalls int
	markAllReadRows  int64
	markAllReadOwner string
	byCreator        []models.NotificationDetail
	byCreatorTotal   int
	all              []models.NotificationDetail
	allTotal         int
	byParent         []models.NotificationDetail
	lastLimit        int
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) FindWithOwner(ctx context.Context, id int64) (*models.NotificationWithOwner, error) {
	row, ok := m.withOwner[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) (int64, error) {
	m.markReadCalls++
	row, ok := m.withOwner[id]
	if !ok || row.IsRead {
		return 0, nil
	}
	row.IsRead = true
	row.ReadAt = &readAt
	return 1, nil
}

func (m *mockNotificationRepo) MarkAllReadByParent(ctx context.Context, parentID string, readAt time.Time) (int64, error) {
	m.markAllReadCalls++
	m.markAllReadOwner = parentID
	return m.markAllReadRows, nil
}

func (m *mockNotificationRepo) ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.NotificationDetail, error) {
	m.lastLimit = limit
	return m.byCreator, nil
}

func (m *mockNotificationRepo) CountByCreator(ctx context.Context, createdBy string) (int, error) {
	return m.byCreatorTotal, nil
}

func (m *mockNotificationRepo) ListAll(ctx context.Context, limit int) ([]models.NotificationDetail, error) {
	m.lastLimit = limit
	return m.all, nil
}

func (m *mockNotificationRepo) CountAll(ctx context.Context) (int, error) {
	return m.allTotal, nil
}

func (m *mockNotificationRepo) ListByParent(ctx context.Context, parentID string) ([]models.NotificationDetail, error) {
	return m.byParent, nil
}

type mockStudentLookup struct {
	students map[int64]*models.StudentDetail
}

func (m *mockStudentLookup) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	detail, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return detail, nil
}

func knownStudents() *mockStudentLookup {
	return &mockStudentLookup{students: map[int64]*models.StudentDetail{
		1: {Student: models.Student{ID: 1, Name: "Ali Ahmed", Grade: "Grade 1", ParentID: "parent-1"}},
	}}
}

var (
	teacherActor = models.Actor{ID: "teacher-1", Role: models.RoleTeacher, FullName: "Ahmed Hassan"}
	officeActor  = models.Actor{ID: "office-1", Role: models.RoleOffice, FullName: "Fatima Ali"}
	parentActor  = models.Actor{ID: "parent-1", Role: models.RoleParent, FullName: "Mohammed Ahmed"}
)

func TestNotificationCreateTeacherAllowedType(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	notification, err := svc.Create(context.Background(), teacherActor, CreateNotificationRequest{
		StudentID: 1,
		Title:     "Attendance - Present Today",
		Message:   "Present and on time.",
		Type:      models.NotificationTypeAttendance,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), notification.ID)
	assert.Equal(t, "Ahmed Hassan", notification.CreatedBy)
	assert.Equal(t, models.NotificationPriorityNormal, notification.Priority)
	assert.False(t, notification.IsRead)
	assert.Nil(t, notification.ReadAt)
}

func TestNotificationCreateTeacherForbiddenType(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	for _, typ := range []models.NotificationType{models.NotificationTypeAdministrative, models.NotificationTypeHealth} {
		_, err := svc.Create(context.Background(), teacherActor, CreateNotificationRequest{
			StudentID: 1,
			Title:     "Title",
			Message:   "Message",
			Type:      typ,
		})
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	}
	assert.Empty(t, repo.created)
}

func TestNotificationCreateOfficeAllowedType(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	notification, err := svc.Create(context.Background(), officeActor, CreateNotificationRequest{
		StudentID: 1,
		Title:     "Vaccination Day",
		Message:   "Bring the vaccination card.",
		Type:      models.NotificationTypeHealth,
		Priority:  models.NotificationPriorityUrgent,
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPriorityUrgent, notification.Priority)
}

func TestNotificationCreateParentForbidden(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, knownStudents(), nil, nil)

	_, err := svc.Create(context.Background(), parentActor, CreateNotificationRequest{
		StudentID: 1,
		Title:     "Title",
		Message:   "Message",
		Type:      models.NotificationTypeAttendance,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestNotificationCreateUnknownStudent(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, knownStudents(), nil, nil)

	_, err := svc.Create(context.Background(), teacherActor, CreateNotificationRequest{
		StudentID: 99,
		Title:     "Title",
		Message:   "Message",
		Type:      models.NotificationTypeAcademic,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestNotificationCreateUnknownPriority(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, knownStudents(), nil, nil)

	_, err := svc.Create(context.Background(), teacherActor, CreateNotificationRequest{
		StudentID: 1,
		Title:     "Title",
		Message:   "Message",
		Type:      models.NotificationTypeAcademic,
		Priority:  models.NotificationPriority("Critical"),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestNotificationMarkReadTransitionsOnce(t *testing.T) {
	repo := &mockNotificationRepo{withOwner: map[int64]*models.NotificationWithOwner{
		7: {Notification: models.Notification{ID: 7, StudentID: 1}, ParentID: "parent-1"},
	}}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	require.NoError(t, svc.MarkRead(context.Background(), parentActor, 7))
	assert.Equal(t, 1, repo.markReadCalls)
	require.True(t, repo.withOwner[7].IsRead)
	first := *repo.withOwner[7].ReadAt

	require.NoError(t, svc.MarkRead(context.Background(), parentActor, 7))
	assert.Equal(t, 1, repo.markReadCalls)
	assert.Equal(t, first, *repo.withOwner[7].ReadAt)
}

func TestNotificationMarkReadOtherParent(t *testing.T) {
	repo := &mockNotificationRepo{withOwner: map[int64]*models.NotificationWithOwner{
		7: {Notification: models.Notification{ID: 7, StudentID: 1}, ParentID: "parent-2"},
	}}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	err := svc.MarkRead(context.Background(), parentActor, 7)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Zero(t, repo.markReadCalls)
}

func TestNotificationMarkReadUnknown(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, knownStudents(), nil, nil)

	err := svc.MarkRead(context.Background(), parentActor, 404)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestNotificationMarkAllRead(t *testing.T) {
	repo := &mockNotificationRepo{markAllReadRows: 3}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	result, err := svc.MarkAllRead(context.Background(), parentActor)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Marked)
	assert.Equal(t, "parent-1", repo.markAllReadOwner)
}

func TestNotificationMarkAllReadForbiddenForTeacher(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	_, err := svc.MarkAllRead(context.Background(), teacherActor)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Zero(t, repo.markAllReadCalls)
}

func TestNotificationListForTeacher(t *testing.T) {
	repo := &mockNotificationRepo{
		byCreator:      []models.NotificationDetail{{Notification: models.Notification{ID: 2}}, {Notification: models.Notification{ID: 1}}},
		byCreatorTotal: 12,
	}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	result, err := svc.ListForTeacher(context.Background(), teacherActor, 2)
	require.NoError(t, err)
	assert.Len(t, result.Notifications, 2)
	assert.Equal(t, 12, result.Total)
	assert.Equal(t, 2, repo.lastLimit)
}

func TestNotificationListForOfficeDeniedForTeacher(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, knownStudents(), nil, nil)

	_, err := svc.ListForOffice(context.Background(), teacherActor, 0)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestNotificationListForParentStats(t *testing.T) {
	now := time.Now()
	repo := &mockNotificationRepo{byParent: []models.NotificationDetail{
		{Notification: models.Notification{ID: 3, IsRead: false, Priority: models.NotificationPriorityUrgent}},
		{Notification: models.Notification{ID: 2, IsRead: false, Priority: models.NotificationPriorityNormal}},
		{Notification: models.Notification{ID: 1, IsRead: true, ReadAt: &now, Priority: models.NotificationPriorityUrgent}},
	}}
	svc := NewNotificationService(repo, knownStudents(), nil, nil)

	result, err := svc.ListForParent(context.Background(), parentActor)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Stats.Total)
	assert.Equal(t, 2, result.Stats.Unread)
	assert.Equal(t, 1, result.Stats.UrgentUnread)
}
