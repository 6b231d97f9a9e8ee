package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rmaulana/school-notify-api/internal/models"
)

const studentDetailColumns = `s.id, s.name, s.grade, s.parent_id, s.created_at,
        u.full_name AS parent_name, u.email AS parent_email`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student and fills in the store-assigned id.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (name, grade, parent_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &student.ID, query, student.Name, student.Grade, student.ParentID, student.CreatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// CreateWithParent inserts a parent identity and its first student in one
// transaction, so registration never leaves an identity without a student.
func (r *StudentRepository) CreateWithParent(ctx context.Context, parent *models.User, student *models.Student) error {
	if parent.ID == "" {
		parent.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if parent.CreatedAt.IsZero() {
		parent.CreatedAt = now
	}
	parent.UpdatedAt = now
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.ParentID = parent.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const userQuery = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, parent); err != nil {
		return fmt.Errorf("create parent identity: %w", err)
	}

	const studentQuery = `INSERT INTO students (name, grade, parent_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.GetContext(ctx, &student.ID, studentQuery, student.Name, student.Grade, student.ParentID, student.CreatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}
	return nil
}

// FindByID fetches a student with its parent's display fields.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.parent_id WHERE s.id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update overwrites name and grade only. The parent reference is immutable
// after creation and is deliberately absent from the statement.
func (r *StudentRepository) Update(ctx context.Context, id int64, name, grade string) (int64, error) {
	const query = `UPDATE students SET name = $2, grade = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name, grade)
	if err != nil {
		return 0, fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update student rows: %w", err)
	}
	return affected, nil
}

// Delete removes a student and all notifications referencing it in one
// transaction. Deleting an unknown id is a no-op.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student notifications: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	return nil
}

// ListAll returns every student with parent fields, ordered by grade label
// then name. Grade enumeration ordering is applied by the caller.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.parent_id ORDER BY s.grade ASC, s.name ASC`, studentDetailColumns)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListByParent returns the students owned by a parent, ordered by name.
func (r *StudentRepository) ListByParent(ctx context.Context, parentID string) ([]models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.parent_id WHERE s.parent_id = $1 ORDER BY s.name ASC`, studentDetailColumns)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, parentID); err != nil {
		return nil, fmt.Errorf("list students by parent: %w", err)
	}
	return students, nil
}

// Search matches the term case-insensitively against student name, parent
// name and parent email, optionally narrowed to an exact grade. An empty
// term matches every student.
func (r *StudentRepository) Search(ctx context.Context, filter models.StudentSearchFilter) ([]models.StudentDetail, error) {
	base := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.parent_id`, studentDetailColumns)
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Term != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Term)+"%")
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY s.name ASC", base, strings.Join(conditions, " AND "))
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return students, nil
}

// CountAll returns the number of student records.
func (r *StudentRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CountGrades returns the number of distinct grades that have at least
// one student.
func (r *StudentRepository) CountGrades(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(DISTINCT grade) FROM students`); err != nil {
		return 0, fmt.Errorf("count grades: %w", err)
	}
	return total, nil
}
