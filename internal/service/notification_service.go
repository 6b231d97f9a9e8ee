package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/policy"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindWithOwner(ctx context.Context, id int64) (*models.NotificationWithOwner, error)
	MarkRead(ctx context.Context, id int64, readAt time.Time) (int64, error)
	MarkAllReadByParent(ctx context.Context, parentID string, readAt time.Time) (int64, error)
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.NotificationDetail, error)
	CountByCreator(ctx context.Context, createdBy string) (int, error)
	ListAll(ctx context.Context, limit int) ([]models.NotificationDetail, error)
	CountAll(ctx context.Context) (int, error)
	ListByParent(ctx context.Context, parentID string) ([]models.NotificationDetail, error)
}

type notificationStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.StudentDetail, error)
}

// CreateNotificationRequest describes the creation payload. Creator name
// and timestamp are taken from the authenticated actor, never the client.
type CreateNotificationRequest struct {
	StudentID int64                       `json:"student_id" validate:"required"`
	Title     string                      `json:"title" validate:"required,max=200"`
	Message   string                      `json:"message" validate:"required,max=1000"`
	Type      models.NotificationType     `json:"type" validate:"required"`
	Priority  models.NotificationPriority `json:"priority"`
}

// ParentNotificationsResult is the parent listing with derived statistics.
type ParentNotificationsResult struct {
	Notifications []models.NotificationDetail `json:"notifications"`
	Stats         models.NotificationStats    `json:"stats"`
}

// CreatorNotificationsResult is the teacher/office listing with its
// unlimited total alongside the capped recent items.
type CreatorNotificationsResult struct {
	Notifications []models.NotificationDetail `json:"notifications"`
	Total         int                         `json:"total"`
}

// MarkAllReadResult reports how many rows the batch transitioned.
type MarkAllReadResult struct {
	Marked int64 `json:"marked"`
}

// NotificationService drives the notification lifecycle from role-scoped
// creation through the one-way read transition.
type NotificationService struct {
	repo      notificationRepository
	students  notificationStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, students notificationStudentRepository, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, students: students, validator: validate, logger: logger, now: time.Now}
}

// Create persists a notification about a student. The type must belong to
// the set the actor's role may produce.
func (s *NotificationService) Create(ctx context.Context, actor models.Actor, req CreateNotificationRequest) (*models.Notification, error) {
	if policy.Decide(actor.Role, policy.ActionCreateNotification) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not create notifications")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	if !policy.TypeAllowed(actor.Role, req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("type %s is not permitted for role %s", req.Type, actor.Role))
	}
	priority := req.Priority
	if priority == "" {
		priority = models.NotificationPriorityNormal
	}
	if !models.ValidPriority(priority) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", priority))
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load student")
	}

	notification := &models.Notification{
		StudentID: req.StudentID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		Priority:  priority,
		CreatedBy: actor.FullName,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create notification")
	}

	s.logger.Info("notification created",
		zap.Int64("notification_id", notification.ID),
		zap.Int64("student_id", notification.StudentID),
		zap.String("type", string(notification.Type)),
	)
	return notification, nil
}

// MarkRead transitions a notification to read on behalf of the owning
// parent. Marking an already-read notification is a no-op; the original
// read timestamp is preserved.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id int64) error {
	row, err := s.repo.FindWithOwner(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load notification")
	}
	if policy.DecideOwned(actor.Role, policy.ActionMarkRead, actor.ID, row.ParentID) == policy.Deny {
		return appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another parent")
	}
	if row.IsRead {
		return nil
	}
	if _, err := s.repo.MarkRead(ctx, id, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead transitions every unread notification of the parent's
// students as one atomic batch.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (*MarkAllReadResult, error) {
	if policy.DecideOwned(actor.Role, policy.ActionMarkRead, actor.ID, actor.ID) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only parents may mark notifications read")
	}
	marked, err := s.repo.MarkAllReadByParent(ctx, actor.ID, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to mark notifications read")
	}
	return &MarkAllReadResult{Marked: marked}, nil
}

// ListForTeacher returns notifications created by the teacher, newest
// first, capped to limit when positive, plus the unlimited total.
func (s *NotificationService) ListForTeacher(ctx context.Context, actor models.Actor, limit int) (*CreatorNotificationsResult, error) {
	if policy.Decide(actor.Role, policy.ActionViewOwnCreated) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not view this listing")
	}
	rows, err := s.repo.ListByCreator(ctx, actor.FullName, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}
	total, err := s.repo.CountByCreator(ctx, actor.FullName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count notifications")
	}
	return &CreatorNotificationsResult{Notifications: rows, Total: total}, nil
}

// ListForOffice returns notifications across all students, newest first.
func (s *NotificationService) ListForOffice(ctx context.Context, actor models.Actor, limit int) (*CreatorNotificationsResult, error) {
	if policy.Decide(actor.Role, policy.ActionViewAllNotifications) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not view this listing")
	}
	rows, err := s.repo.ListAll(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count notifications")
	}
	return &CreatorNotificationsResult{Notifications: rows, Total: total}, nil
}

// ListForParent returns all notifications for the parent's students,
// newest first, with derived statistics.
func (s *NotificationService) ListForParent(ctx context.Context, actor models.Actor) (*ParentNotificationsResult, error) {
	if policy.DecideOwned(actor.Role, policy.ActionViewChildNotifications, actor.ID, actor.ID) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not view this listing")
	}
	rows, err := s.repo.ListByParent(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}

	stats := models.NotificationStats{Total: len(rows)}
	for _, n := range rows {
		if !n.IsRead {
			stats.Unread++
			if n.Priority == models.NotificationPriorityUrgent {
				stats.UrgentUnread++
			}
		}
	}
	return &ParentNotificationsResult{Notifications: rows, Stats: stats}, nil
}
