package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmaulana/school-notify-api/internal/models"
)

func newNotificationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNotificationRepositoryCreateForcesUnread(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(int64(1), "Title", "Message", models.NotificationTypeAttendance, models.NotificationPriorityNormal, "Ahmed Hassan", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	readAt := time.Now()
	n := &models.Notification{
		StudentID: 1,
		Title:     "Title",
		Message:   "Message",
		Type:      models.NotificationTypeAttendance,
		Priority:  models.NotificationPriorityNormal,
		CreatedBy: "Ahmed Hassan",
		IsRead:    true,
		ReadAt:    &readAt,
	}
	require.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, int64(42), n.ID)
	assert.False(t, n.IsRead)
	assert.Nil(t, n.ReadAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadGuardsOnUnread(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	readAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE, read_at = \$2 WHERE id = \$1 AND is_read = FALSE`).
		WithArgs(int64(7), readAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.MarkRead(context.Background(), 7, readAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadAlreadyRead(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	readAt := time.Now().UTC()
	mock.ExpectExec("UPDATE notifications SET is_read = TRUE").
		WithArgs(int64(7), readAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.MarkRead(context.Background(), 7, readAt)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkAllReadByParent(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	readAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE notifications n SET is_read = TRUE, read_at = \$2`).
		WithArgs("parent-1", readAt).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.MarkAllReadByParent(context.Background(), "parent-1", readAt)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByParentOrdering(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "title", "message", "type", "priority", "is_read", "read_at", "created_by", "created_at", "student_name", "student_grade"}).
		AddRow(int64(2), int64(1), "Second", "msg", "Academic", "Normal", false, nil, "Ahmed Hassan", now, "Ali Ahmed", "Grade 1").
		AddRow(int64(1), int64(1), "First", "msg", "Attendance", "Normal", true, now, "Ahmed Hassan", now.Add(-time.Hour), "Ali Ahmed", "Grade 1")
	mock.ExpectQuery(`ORDER BY n\.created_at DESC, n\.id DESC`).
		WithArgs("parent-1").
		WillReturnRows(rows)

	list, err := repo.ListByParent(context.Background(), "parent-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, "Ali Ahmed", list[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByCreatorAppliesLimit(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "title", "message", "type", "priority", "is_read", "read_at", "created_by", "created_at", "student_name", "student_grade"})
	mock.ExpectQuery(`WHERE n\.created_by = \$1 ORDER BY n\.created_at DESC, n\.id DESC LIMIT 5`).
		WithArgs("Ahmed Hassan").
		WillReturnRows(rows)

	list, err := repo.ListByCreator(context.Background(), "Ahmed Hassan", 5)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
