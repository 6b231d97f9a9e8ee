package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/repository"
)

// Seeder loads development fixtures covering one account per role plus
// sample students and notifications. Every step is idempotent so
// restarting the server never duplicates rows.
type Seeder struct {
	users         *repository.UserRepository
	students      *repository.StudentRepository
	notifications *repository.NotificationRepository
	logger        *zap.Logger
}

// New constructs a Seeder.
func New(users *repository.UserRepository, students *repository.StudentRepository, notifications *repository.NotificationRepository, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{users: users, students: students, notifications: notifications, logger: logger}
}

type parentFixture struct {
	Email       string
	Name        string
	Password    string
	StudentName string
	Grade       string
}

// Run inserts the fixtures that are not present yet.
func (s *Seeder) Run(ctx context.Context) error {
	teacher, err := s.ensureUser(ctx, "teacher@school.com", "Ahmed Hassan (Teacher)", "Teacher@123", models.RoleTeacher)
	if err != nil {
		return err
	}
	if _, err := s.ensureUser(ctx, "office@school.com", "Fatima Ali (Office Admin)", "Office@123", models.RoleOffice); err != nil {
		return err
	}

	parents := []parentFixture{
		{Email: "parent1@gmail.com", Name: "Mohammed Ahmed", Password: "Parent@123", StudentName: "Ali Ahmed", Grade: "Grade 1"},
		{Email: "parent2@gmail.com", Name: "Aisha Mohammed", Password: "Parent@123", StudentName: "Sara Mohammed", Grade: "Grade 2"},
		{Email: "parent3@gmail.com", Name: "Hassan Ibrahim", Password: "Parent@123", StudentName: "Omar Hassan", Grade: "Grade 3"},
	}

	var students []models.Student
	for _, p := range parents {
		student, err := s.ensureParentWithStudent(ctx, p)
		if err != nil {
			return err
		}
		if student != nil {
			students = append(students, *student)
		}
	}

	if len(students) >= 2 {
		if err := s.ensureNotifications(ctx, teacher, students); err != nil {
			return err
		}
	}

	s.logger.Info("seed fixtures loaded")
	return nil
}

func (s *Seeder) ensureUser(ctx context.Context, email, fullName, password string, role models.UserRole) (*models.User, error) {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("seed check %s: %w", email, err)
	}
	if exists {
		return s.users.FindByEmail(ctx, email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed hash %s: %w", email, err)
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}
	return user, nil
}

func (s *Seeder) ensureParentWithStudent(ctx context.Context, fixture parentFixture) (*models.Student, error) {
	exists, err := s.users.ExistsByEmail(ctx, fixture.Email)
	if err != nil {
		return nil, fmt.Errorf("seed check %s: %w", fixture.Email, err)
	}
	if exists {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(fixture.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed hash %s: %w", fixture.Email, err)
	}
	parent := &models.User{
		Email:        fixture.Email,
		PasswordHash: string(hash),
		FullName:     fixture.Name,
		Role:         models.RoleParent,
		Active:       true,
	}
	student := &models.Student{
		Name:  fixture.StudentName,
		Grade: fixture.Grade,
	}
	if err := s.students.CreateWithParent(ctx, parent, student); err != nil {
		return nil, fmt.Errorf("seed parent %s: %w", fixture.Email, err)
	}
	return student, nil
}

func (s *Seeder) ensureNotifications(ctx context.Context, teacher *models.User, students []models.Student) error {
	total, err := s.notifications.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("seed count notifications: %w", err)
	}
	if total > 0 {
		return nil
	}

	now := time.Now().UTC()
	fixtures := []models.Notification{
		{
			StudentID: students[0].ID,
			Title:     "Attendance - Present Today",
			Message:   "Your child Ali Ahmed was present and participated well in class activities today.",
			Type:      models.NotificationTypeAttendance,
			Priority:  models.NotificationPriorityNormal,
			CreatedBy: teacher.FullName,
			CreatedAt: now.AddDate(0, 0, -2),
		},
		{
			StudentID: students[0].ID,
			Title:     "Monthly Exam Results",
			Message:   "Total Marks: 450/500. Average: 90%. Excellent performance!",
			Type:      models.NotificationTypeAcademic,
			Priority:  models.NotificationPriorityNormal,
			CreatedBy: teacher.FullName,
			CreatedAt: now.AddDate(0, 0, -1),
		},
		{
			StudentID: students[1].ID,
			Title:     "School Holiday - Eid Break",
			Message:   "School will be closed from 15th to 20th for Eid holidays. Classes resume on 21st.",
			Type:      models.NotificationTypeAdministrative,
			Priority:  models.NotificationPriorityInfo,
			CreatedBy: "School Office",
			CreatedAt: now,
		},
	}
	for i := range fixtures {
		if err := s.notifications.Create(ctx, &fixtures[i]); err != nil {
			return fmt.Errorf("seed notification %q: %w", fixtures[i].Title, err)
		}
	}
	return nil
}
