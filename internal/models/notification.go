package models

import "time"

// NotificationType classifies a notification. Which types an actor may
// produce depends on their role; see the policy package.
type NotificationType string

const (
	NotificationTypeAttendance     NotificationType = "Attendance"
	NotificationTypeAcademic       NotificationType = "Academic"
	NotificationTypeAdministrative NotificationType = "Administrative"
	NotificationTypeHealth         NotificationType = "Health"
)

// NotificationPriority tags the urgency of a notification.
type NotificationPriority string

const (
	NotificationPriorityNormal NotificationPriority = "Normal"
	NotificationPriorityUrgent NotificationPriority = "Urgent"
	NotificationPriorityInfo   NotificationPriority = "Info"
)

// ValidPriority reports whether the label is a known priority.
func ValidPriority(p NotificationPriority) bool {
	switch p {
	case NotificationPriorityNormal, NotificationPriorityUrgent, NotificationPriorityInfo:
		return true
	}
	return false
}

// Notification is a persisted message about a single student. The read
// lifecycle is one-way: ReadAt is set exactly once, on the unread to read
// transition, and is non-nil iff IsRead is true.
type Notification struct {
	ID        int64                `db:"id" json:"id"`
	StudentID int64                `db:"student_id" json:"student_id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Type      NotificationType     `db:"type" json:"type"`
	Priority  NotificationPriority `db:"priority" json:"priority"`
	IsRead    bool                 `db:"is_read" json:"is_read"`
	ReadAt    *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedBy string               `db:"created_by" json:"created_by"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationDetail joins a notification with its student's display fields.
type NotificationDetail struct {
	Notification
	StudentName  string `db:"student_name" json:"student_name"`
	StudentGrade string `db:"student_grade" json:"student_grade"`
}

// NotificationWithOwner carries the parent identity owning the referenced
// student, for ownership checks on the read transition.
type NotificationWithOwner struct {
	Notification
	ParentID string `db:"parent_id" json:"-"`
}

// NotificationStats are the derived counters shown on the parent listing.
type NotificationStats struct {
	Total        int `json:"total"`
	Unread       int `json:"unread"`
	UrgentUnread int `json:"urgent_unread"`
}
