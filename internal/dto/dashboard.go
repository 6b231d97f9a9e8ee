package dto

import "github.com/rmaulana/school-notify-api/internal/models"

// TeacherDashboardResponse captures the teacher landing view: the
// notifications the teacher authored, newest first.
type TeacherDashboardResponse struct {
	TeacherName        string                      `json:"teacherName"`
	Recent             []models.NotificationDetail `json:"recent"`
	TotalNotifications int                         `json:"totalNotifications"`
}

// OfficeDashboardResponse captures the office landing view across the
// whole school.
type OfficeDashboardResponse struct {
	Recent             []models.NotificationDetail `json:"recent"`
	TotalNotifications int                         `json:"totalNotifications"`
	TotalStudents      int                         `json:"totalStudents"`
	TotalGrades        int                         `json:"totalGrades"`
}

// ParentDashboardResponse captures the parent landing view: children and
// their notification feed with unread statistics.
type ParentDashboardResponse struct {
	Children      []models.StudentDetail      `json:"children"`
	Notifications []models.NotificationDetail `json:"notifications"`
	Stats         models.NotificationStats    `json:"stats"`
}
