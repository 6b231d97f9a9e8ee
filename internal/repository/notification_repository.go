package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rmaulana/school-notify-api/internal/models"
)

const notificationColumns = `n.id, n.student_id, n.title, n.message, n.type, n.priority, n.is_read, n.read_at, n.created_by, n.created_at`

// NotificationRepository provides persistence for notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification and fills in the store-assigned id.
// New rows always start unread with a null read timestamp.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsRead = false
	n.ReadAt = nil
	const query = `INSERT INTO notifications (student_id, title, message, type, priority, is_read, read_at, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, NULL, $6, $7) RETURNING id`
	if err := r.db.GetContext(ctx, &n.ID, query, n.StudentID, n.Title, n.Message, n.Type, n.Priority, n.CreatedBy, n.CreatedAt); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindWithOwner returns a notification along with the parent id owning the
// referenced student.
func (r *NotificationRepository) FindWithOwner(ctx context.Context, id int64) (*models.NotificationWithOwner, error) {
	query := fmt.Sprintf(`SELECT %s, s.parent_id FROM notifications n JOIN students s ON s.id = n.student_id WHERE n.id = $1`, notificationColumns)
	var row models.NotificationWithOwner
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkRead performs the one-way unread to read transition. The is_read
// guard keeps the statement idempotent: a second call matches zero rows
// and the original read timestamp survives.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, readAt time.Time) (int64, error) {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE id = $1 AND is_read = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, readAt)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notification read rows: %w", err)
	}
	return affected, nil
}

// MarkAllReadByParent transitions every unread notification belonging to
// the parent's students in a single atomic statement. Rows created after
// the statement snapshot stay unread.
func (r *NotificationRepository) MarkAllReadByParent(ctx context.Context, parentID string, readAt time.Time) (int64, error) {
	const query = `UPDATE notifications n SET is_read = TRUE, read_at = $2
FROM students s WHERE s.id = n.student_id AND s.parent_id = $1 AND n.is_read = FALSE`
	res, err := r.db.ExecContext(ctx, query, parentID, readAt)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read rows: %w", err)
	}
	return affected, nil
}

// ListByCreator returns notifications created by the given display name,
// newest first. A limit of zero means no cap.
func (r *NotificationRepository) ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.NotificationDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.name AS student_name, s.grade AS student_grade
FROM notifications n JOIN students s ON s.id = n.student_id
WHERE n.created_by = $1 ORDER BY n.created_at DESC, n.id DESC`, notificationColumns)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	var rows []models.NotificationDetail
	if err := r.db.SelectContext(ctx, &rows, query, createdBy); err != nil {
		return nil, fmt.Errorf("list notifications by creator: %w", err)
	}
	return rows, nil
}

// CountByCreator returns the total created by the given display name.
func (r *NotificationRepository) CountByCreator(ctx context.Context, createdBy string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE created_by = $1`, createdBy); err != nil {
		return 0, fmt.Errorf("count notifications by creator: %w", err)
	}
	return total, nil
}

// ListAll returns notifications across all students, newest first.
// A limit of zero means no cap.
func (r *NotificationRepository) ListAll(ctx context.Context, limit int) ([]models.NotificationDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.name AS student_name, s.grade AS student_grade
FROM notifications n JOIN students s ON s.id = n.student_id
ORDER BY n.created_at DESC, n.id DESC`, notificationColumns)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	var rows []models.NotificationDetail
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

// CountAll returns the total number of notifications.
func (r *NotificationRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications`); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return total, nil
}

// ListByParent returns every notification for the parent's students,
// newest first with id as the deterministic tie-break.
func (r *NotificationRepository) ListByParent(ctx context.Context, parentID string) ([]models.NotificationDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.name AS student_name, s.grade AS student_grade
FROM notifications n JOIN students s ON s.id = n.student_id
WHERE s.parent_id = $1 ORDER BY n.created_at DESC, n.id DESC`, notificationColumns)
	var rows []models.NotificationDetail
	if err := r.db.SelectContext(ctx, &rows, query, parentID); err != nil {
		return nil, fmt.Errorf("list notifications by parent: %w", err)
	}
	return rows, nil
}
