package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/policy"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
	"github.com/rmaulana/school-notify-api/pkg/export"
)

type directoryUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type directoryStudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	CreateWithParent(ctx context.Context, parent *models.User, student *models.Student) error
	FindByID(ctx context.Context, id int64) (*models.StudentDetail, error)
	Update(ctx context.Context, id int64, name, grade string) (int64, error)
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]models.StudentDetail, error)
	Search(ctx context.Context, filter models.StudentSearchFilter) ([]models.StudentDetail, error)
}

// RegisterParentStudentRequest holds the combined registration payload.
type RegisterParentStudentRequest struct {
	ParentFullName string `json:"parent_full_name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6,max=100"`
	StudentName    string `json:"student_name" validate:"required,max=100"`
	Grade          string `json:"grade" validate:"required,grade"`
}

// RegisterParentStudentResponse returns the created identifiers.
type RegisterParentStudentResponse struct {
	ParentID  string `json:"parent_id"`
	StudentID int64  `json:"student_id"`
}

// AddChildRequest attaches a new student to an existing parent, resolved
// by email or identity id.
type AddChildRequest struct {
	Parent      string `json:"parent" validate:"required"`
	StudentName string `json:"student_name" validate:"required,max=100"`
	Grade       string `json:"grade" validate:"required,grade"`
}

// UpdateStudentRequest overwrites name and grade only.
type UpdateStudentRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Grade string `json:"grade" validate:"required,grade"`
}

// ManageStudentsResult is the grouped roster view for office staff.
type ManageStudentsResult struct {
	Groups        []models.GradeGroup `json:"groups"`
	TotalStudents int                 `json:"total_students"`
	TotalGrades   int                 `json:"total_grades"`
}

// DirectoryService handles student directory use-cases. Every mutation is
// office-only; the policy engine is consulted before any store access.
type DirectoryService struct {
	users     directoryUserRepository
	students  directoryStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectoryService constructs the directory service.
func NewDirectoryService(users directoryUserRepository, students directoryStudentRepository, validate *validator.Validate, logger *zap.Logger) *DirectoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DirectoryService{users: users, students: students, validator: validate, logger: logger}
	svc.validator.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
		return models.ValidGrade(fl.Field().String())
	})
	return svc
}

// RegisterParentStudent creates a parent identity and its first student in
// one atomic store operation. The identity's role is fixed to Parent.
func (s *DirectoryService) RegisterParentStudent(ctx context.Context, actor models.Actor, req RegisterParentStudentRequest) (*RegisterParentStudentResponse, error) {
	if policy.Decide(actor.Role, policy.ActionRegisterParentStudent) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only office staff may register parents")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateIdentity, fmt.Sprintf("email %s already registered", req.Email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	parent := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.ParentFullName,
		Role:         models.RoleParent,
		Active:       true,
	}
	student := &models.Student{
		Name:  req.StudentName,
		Grade: req.Grade,
	}
	if err := s.students.CreateWithParent(ctx, parent, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to register parent and student")
	}

	s.logger.Info("parent registered",
		zap.String("parent_id", parent.ID),
		zap.Int64("student_id", student.ID),
		zap.String("grade", student.Grade),
	)
	return &RegisterParentStudentResponse{ParentID: parent.ID, StudentID: student.ID}, nil
}

// AddChild creates a student under an existing parent identity.
func (s *DirectoryService) AddChild(ctx context.Context, actor models.Actor, req AddChildRequest) (*models.Student, error) {
	if policy.Decide(actor.Role, policy.ActionAddChild) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only office staff may add children")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}

	parent, err := s.resolveParent(ctx, req.Parent)
	if err != nil {
		return nil, err
	}
	if parent.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch, fmt.Sprintf("identity %s is not a parent", req.Parent))
	}

	student := &models.Student{
		Name:     req.StudentName,
		Grade:    req.Grade,
		ParentID: parent.ID,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create student")
	}
	return student, nil
}

// Get returns a student with its parent's display fields.
func (s *DirectoryService) Get(ctx context.Context, actor models.Actor, id int64) (*models.StudentDetail, error) {
	if policy.Decide(actor.Role, policy.ActionManageStudents) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only office staff may view the directory")
	}
	detail, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load student")
	}
	return detail, nil
}

// Update overwrites a student's name and grade. The parent reference
// cannot be changed here; re-parenting goes through delete and recreate.
func (s *DirectoryService) Update(ctx context.Context, actor models.Actor, id int64, req UpdateStudentRequest) error {
	if policy.Decide(actor.Role, policy.ActionManageStudents) == policy.Deny {
		return appErrors.Clone(appErrors.ErrForbidden, "only office staff may update students")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	affected, err := s.students.Update(ctx, id, req.Name, req.Grade)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update student")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

// Delete removes a student and, by cascade, all of its notifications.
// Deleting an unknown id succeeds without effect.
func (s *DirectoryService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	if policy.Decide(actor.Role, policy.ActionManageStudents) == policy.Deny {
		return appErrors.Clone(appErrors.ErrForbidden, "only office staff may delete students")
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete student")
	}
	return nil
}

// ListByGrade returns all students grouped by grade in enumeration order,
// students within a grade ordered by name.
func (s *DirectoryService) ListByGrade(ctx context.Context, actor models.Actor) (*ManageStudentsResult, error) {
	if policy.Decide(actor.Role, policy.ActionManageStudents) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only office staff may view the directory")
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list students")
	}

	byGrade := make(map[string][]models.StudentDetail)
	for _, st := range students {
		byGrade[st.Grade] = append(byGrade[st.Grade], st)
	}

	groups := make([]models.GradeGroup, 0, len(byGrade))
	for _, grade := range models.Grades {
		if members, ok := byGrade[grade]; ok {
			groups = append(groups, models.GradeGroup{Grade: grade, Students: members})
		}
	}
	return &ManageStudentsResult{
		Groups:        groups,
		TotalStudents: len(students),
		TotalGrades:   len(groups),
	}, nil
}

// Search filters the directory by term and optional grade.
func (s *DirectoryService) Search(ctx context.Context, actor models.Actor, filter models.StudentSearchFilter) ([]models.StudentDetail, error) {
	if policy.Decide(actor.Role, policy.ActionManageStudents) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only office staff may search the directory")
	}
	filter.Term = strings.TrimSpace(filter.Term)
	if filter.Grade != "" && !models.ValidGrade(filter.Grade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown grade %q", filter.Grade))
	}
	students, err := s.students.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to search students")
	}
	return students, nil
}

// ExportRoster renders the grouped roster as CSV or PDF bytes.
func (s *DirectoryService) ExportRoster(ctx context.Context, actor models.Actor, format string) ([]byte, string, error) {
	result, err := s.ListByGrade(ctx, actor)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{Headers: []string{"Grade", "Student", "Parent", "Parent Email"}}
	for _, group := range result.Groups {
		for _, st := range group.Students {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Grade":        st.Grade,
				"Student":      st.Name,
				"Parent":       st.ParentName,
				"Parent Email": st.ParentEmail,
			})
		}
	}

	switch strings.ToLower(format) {
	case "", "csv":
		data, err := export.RenderCSV(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", nil
	case "pdf":
		data, err := export.RenderPDF(dataset, "Student Roster")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *DirectoryService) resolveParent(ctx context.Context, emailOrID string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(emailOrID, "@") {
		user, err = s.users.FindByEmail(ctx, emailOrID)
	} else {
		user, err = s.users.FindByID(ctx, emailOrID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("parent %s not found", emailOrID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to resolve parent")
	}
	return user, nil
}
