// Package policy is the single source of truth for role-based access
// decisions. It is a pure decision table: no I/O, no state, and exactly
// one row applies per (role, action) pair. Anything not listed is denied.
package policy

import "github.com/rmaulana/school-notify-api/internal/models"

// Action enumerates the operations subject to authorization.
type Action string

const (
	ActionRegisterParentStudent  Action = "student.register"
	ActionManageStudents         Action = "student.manage"
	ActionAddChild               Action = "student.add_child"
	ActionCreateNotification     Action = "notification.create"
	ActionViewOwnCreated         Action = "notification.view_own_created"
	ActionViewAllNotifications   Action = "notification.view_all"
	ActionViewChildNotifications Action = "notification.view_children"
	ActionMarkRead               Action = "notification.mark_read"
)

// Decision is the outcome of an access check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

var table = map[models.UserRole]map[Action]struct{}{
	models.RoleOffice: {
		ActionRegisterParentStudent: {},
		ActionManageStudents:        {},
		ActionAddChild:              {},
		ActionCreateNotification:    {},
		ActionViewAllNotifications:  {},
	},
	models.RoleTeacher: {
		ActionCreateNotification: {},
		ActionViewOwnCreated:     {},
	},
	models.RoleParent: {
		ActionViewChildNotifications: {},
		ActionMarkRead:               {},
	},
}

// Decide returns Allow when the role may perform the action. It is total
// and deterministic: unknown roles and unlisted actions are denied.
func Decide(role models.UserRole, action Action) Decision {
	actions, ok := table[role]
	if !ok {
		return Deny
	}
	if _, ok := actions[action]; !ok {
		return Deny
	}
	return Allow
}

// DecideOwned applies the ownership-scoped rules: actions on records owned
// by a parent are allowed only to that parent.
func DecideOwned(role models.UserRole, action Action, actorID, ownerID string) Decision {
	if Decide(role, action) == Deny {
		return Deny
	}
	switch action {
	case ActionViewChildNotifications, ActionMarkRead:
		if actorID == "" || actorID != ownerID {
			return Deny
		}
	}
	return Allow
}

// AllowedTypes returns the notification types the role may produce.
// Roles that cannot create notifications get an empty set.
func AllowedTypes(role models.UserRole) []models.NotificationType {
	switch role {
	case models.RoleTeacher:
		return []models.NotificationType{
			models.NotificationTypeAttendance,
			models.NotificationTypeAcademic,
		}
	case models.RoleOffice:
		return []models.NotificationType{
			models.NotificationTypeAdministrative,
			models.NotificationTypeHealth,
		}
	}
	return nil
}

// TypeAllowed reports whether the role may produce the given type.
func TypeAllowed(role models.UserRole, t models.NotificationType) bool {
	for _, allowed := range AllowedTypes(role) {
		if allowed == t {
			return true
		}
	}
	return false
}
