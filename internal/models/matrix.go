package models

import "fmt"

// The permission matrix: per-tier default action grants for each role.
// Fixed at deploy time. Every (role, action) pair must be present;
// a missing entry is a configuration error, not an implicit deny.

var teamMatrix = map[TeamRole]map[PermissionAction]bool{
	TeamOwner: {
		ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: true,
		ActionAssign: true, ActionComment: true, ActionComplete: true, ActionManagePermissions: true,
	},
	TeamAdmin: {
		ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: true,
		ActionAssign: true, ActionComment: true, ActionComplete: true, ActionManagePermissions: true,
	},
	TeamEditor: {
		ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: false,
		ActionAssign: true, ActionComment: true, ActionComplete: true, ActionManagePermissions: false,
	},
	TeamViewer: {
		ActionCreate: false, ActionRead: true, ActionUpdate: false, ActionDelete: false,
		ActionAssign: false, ActionComment: true, ActionComplete: false, ActionManagePermissions: false,
	},
}

var projectMatrix = map[ProjectRole]map[PermissionAction]bool{
	ProjectManager: {
		ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: true,
		ActionAssign: true, ActionComment: true, ActionComplete: true, ActionManagePermissions: true,
	},
	ProjectLead: {
		ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: false,
		ActionAssign: true, ActionComment: true, ActionComplete: true, ActionManagePermissions: false,
	},
	ProjectContributor: {
		ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: false,
		ActionAssign: false, ActionComment: true, ActionComplete: true, ActionManagePermissions: false,
	},
	ProjectObserver: {
		ActionCreate: false, ActionRead: true, ActionUpdate: false, ActionDelete: false,
		ActionAssign: false, ActionComment: true, ActionComplete: false, ActionManagePermissions: false,
	},
}

var taskMatrix = map[TaskRole]map[PermissionAction]bool{
	TaskAssignee: {
		ActionCreate: false, ActionRead: true, ActionUpdate: true, ActionDelete: false,
		ActionAssign: false, ActionComment: true, ActionComplete: true, ActionManagePermissions: false,
	},
	TaskReviewer: {
		ActionCreate: false, ActionRead: true, ActionUpdate: false, ActionDelete: false,
		ActionAssign: false, ActionComment: true, ActionComplete: true, ActionManagePermissions: false,
	},
	TaskCollaborator: {
		ActionCreate: false, ActionRead: true, ActionUpdate: true, ActionDelete: false,
		ActionAssign: false, ActionComment: true, ActionComplete: false, ActionManagePermissions: false,
	},
	TaskWatcher: {
		ActionCreate: false, ActionRead: true, ActionUpdate: false, ActionDelete: false,
		ActionAssign: false, ActionComment: false, ActionComplete: false, ActionManagePermissions: false,
	},
}

// TeamDefault reports the team-tier default for role and action.
func TeamDefault(role TeamRole, action PermissionAction) (bool, error) {
	actions, ok := teamMatrix[role]
	if !ok {
		return false, fmt.Errorf("no team matrix entry for role %q", role)
	}
	granted, ok := actions[action]
	if !ok {
		return false, fmt.Errorf("no team matrix entry for role %q action %q", role, action)
	}
	return granted, nil
}

// ProjectDefault reports the project-tier default for role and action.
func ProjectDefault(role ProjectRole, action PermissionAction) (bool, error) {
	actions, ok := projectMatrix[role]
	if !ok {
		return false, fmt.Errorf("no project matrix entry for role %q", role)
	}
	granted, ok := actions[action]
	if !ok {
		return false, fmt.Errorf("no project matrix entry for role %q action %q", role, action)
	}
	return granted, nil
}

// TaskDefault reports the task-tier default for role and action.
func TaskDefault(role TaskRole, action PermissionAction) (bool, error) {
	actions, ok := taskMatrix[role]
	if !ok {
		return false, fmt.Errorf("no task matrix entry for role %q", role)
	}
	granted, ok := actions[action]
	if !ok {
		return false, fmt.Errorf("no task matrix entry for role %q action %q", role, action)
	}
	return granted, nil
}

// TierDefault reports the default for a grant's tier role. The role
// string comes off a stored grant, so it is re-validated against the
// tier vocabulary here.
func TierDefault(resourceType ResourceType, role string, action PermissionAction) (bool, error) {
	switch resourceType {
	case ResourceProject:
		return ProjectDefault(ProjectRole(role), action)
	case ResourceTask:
		return TaskDefault(TaskRole(role), action)
	case ResourceTeam:
		return TeamDefault(TeamRole(role), action)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownResourceType, resourceType)
	}
}

// ValidateMatrix verifies that every (role, action) pair in every tier
// has an entry. Run at startup; an incomplete matrix is fatal.
func ValidateMatrix() error {
	for _, role := range TeamRoles {
		for _, action := range AllActions {
			if _, err := TeamDefault(role, action); err != nil {
				return err
			}
		}
	}
	for _, role := range ProjectRoles {
		for _, action := range AllActions {
			if _, err := ProjectDefault(role, action); err != nil {
				return err
			}
		}
	}
	for _, role := range TaskRoles {
		for _, action := range AllActions {
			if _, err := TaskDefault(role, action); err != nil {
				return err
			}
		}
	}
	return nil
}
