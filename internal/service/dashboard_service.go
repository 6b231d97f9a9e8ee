package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rmaulana/school-notify-api/internal/dto"
	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/policy"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
)

type dashboardNotificationRepository interface {
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.NotificationDetail, error)
	CountByCreator(ctx context.Context, createdBy string) (int, error)
	ListAll(ctx context.Context, limit int) ([]models.NotificationDetail, error)
	CountAll(ctx context.Context) (int, error)
	ListByParent(ctx context.Context, parentID string) ([]models.NotificationDetail, error)
}

type dashboardStudentRepository interface {
	ListByParent(ctx context.Context, parentID string) ([]models.StudentDetail, error)
	CountAll(ctx context.Context) (int, error)
	CountGrades(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	RecentLimit int
}

// DashboardService composes the per-role landing payloads. Teacher and
// office views are cacheable; the parent view carries read state and is
// always computed fresh.
type DashboardService struct {
	notifications dashboardNotificationRepository
	students      dashboardStudentRepository
	cache         *CacheService
	logger        *zap.Logger
	cfg           DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(notifications dashboardNotificationRepository, students dashboardStudentRepository, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		notifications: notifications,
		students:      students,
		cache:         cache,
		logger:        logger,
		cfg:           cfg,
	}
}

// Teacher returns the teacher dashboard and whether it came from cache.
func (s *DashboardService) Teacher(ctx context.Context, actor models.Actor) (*dto.TeacherDashboardResponse, bool, error) {
	if policy.Decide(actor.Role, policy.ActionViewOwnCreated) == policy.Deny {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "role has no teacher dashboard")
	}
	cacheKey := fmt.Sprintf("dash:teacher:%s", actor.ID)
	if s.cache.Enabled() {
		var cached dto.TeacherDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	recent, err := s.notifications.ListByCreator(ctx, actor.FullName, s.cfg.RecentLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}
	total, err := s.notifications.CountByCreator(ctx, actor.FullName)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count notifications")
	}

	summary := &dto.TeacherDashboardResponse{
		TeacherName:        actor.FullName,
		Recent:             recent,
		TotalNotifications: total,
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Office returns the office dashboard and whether it came from cache.
func (s *DashboardService) Office(ctx context.Context, actor models.Actor) (*dto.OfficeDashboardResponse, bool, error) {
	if policy.Decide(actor.Role, policy.ActionViewAllNotifications) == policy.Deny {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "role has no office dashboard")
	}
	const cacheKey = "dash:office"
	if s.cache.Enabled() {
		var cached dto.OfficeDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	recent, err := s.notifications.ListAll(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}
	totalNotifications, err := s.notifications.CountAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count notifications")
	}
	totalStudents, err := s.students.CountAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count students")
	}
	totalGrades, err := s.students.CountGrades(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count grades")
	}

	summary := &dto.OfficeDashboardResponse{
		Recent:             recent,
		TotalNotifications: totalNotifications,
		TotalStudents:      totalStudents,
		TotalGrades:        totalGrades,
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Parent returns the parent dashboard. It is never cached: the unread
// counters must reflect the latest read transitions.
func (s *DashboardService) Parent(ctx context.Context, actor models.Actor) (*dto.ParentDashboardResponse, error) {
	if policy.DecideOwned(actor.Role, policy.ActionViewChildNotifications, actor.ID, actor.ID) == policy.Deny {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role has no parent dashboard")
	}

	children, err := s.students.ListByParent(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list children")
	}
	notifications, err := s.notifications.ListByParent(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}

	stats := models.NotificationStats{Total: len(notifications)}
	for _, n := range notifications {
		if !n.IsRead {
			stats.Unread++
			if n.Priority == models.NotificationPriorityUrgent {
				stats.UrgentUnread++
			}
		}
	}

	return &dto.ParentDashboardResponse{
		Children:      children,
		Notifications: notifications,
		Stats:         stats,
	}, nil
}

// Invalidate drops every cached dashboard. Callers invoke it after any
// write that changes what a dashboard would show.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
