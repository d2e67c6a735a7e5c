package models

import "fmt"

// ResourceType is the tier a permission check applies to.
type ResourceType string

const (
	ResourceTeam    ResourceType = "team"
	ResourceProject ResourceType = "project"
	ResourceTask    ResourceType = "task"
)

func (rt ResourceType) Valid() bool {
	switch rt {
	case ResourceTeam, ResourceProject, ResourceTask:
		return true
	}
	return false
}

// PermissionAction is the closed set of actions the matrix covers.
type PermissionAction string

const (
	ActionCreate            PermissionAction = "create"
	ActionRead              PermissionAction = "read"
	ActionUpdate            PermissionAction = "update"
	ActionDelete            PermissionAction = "delete"
	ActionAssign            PermissionAction = "assign"
	ActionComment           PermissionAction = "comment"
	ActionComplete          PermissionAction = "complete"
	ActionManagePermissions PermissionAction = "manage_permissions"
)

// AllActions lists every action the matrix has to map for every role.
var AllActions = []PermissionAction{
	ActionCreate,
	ActionRead,
	ActionUpdate,
	ActionDelete,
	ActionAssign,
	ActionComment,
	ActionComplete,
	ActionManagePermissions,
}

// TeamRole is the team-tier role vocabulary, owner highest.
type TeamRole string

const (
	TeamOwner  TeamRole = "owner"
	TeamAdmin  TeamRole = "admin"
	TeamEditor TeamRole = "editor"
	TeamViewer TeamRole = "viewer"
)

// ProjectRole is the project-tier role vocabulary.
type ProjectRole string

const (
	ProjectManager     ProjectRole = "project_manager"
	ProjectLead        ProjectRole = "project_lead"
	ProjectContributor ProjectRole = "contributor"
	ProjectObserver    ProjectRole = "observer"
)

// TaskRole is the task-tier role vocabulary. Assignee is the singleton
// role: at most one active assignee grant may exist per task.
type TaskRole string

const (
	TaskAssignee     TaskRole = "assignee"
	TaskReviewer     TaskRole = "reviewer"
	TaskCollaborator TaskRole = "collaborator"
	TaskWatcher      TaskRole = "watcher"
)

var (
	TeamRoles    = []TeamRole{TeamOwner, TeamAdmin, TeamEditor, TeamViewer}
	ProjectRoles = []ProjectRole{ProjectManager, ProjectLead, ProjectContributor, ProjectObserver}
	TaskRoles    = []TaskRole{TaskAssignee, TaskReviewer, TaskCollaborator, TaskWatcher}
)

// ValidRoleForTier checks that role belongs to the tier's vocabulary.
// The team tier has no explicit grants, so only project and task roles
// are grantable.
func ValidRoleForTier(resourceType ResourceType, role string) error {
	switch resourceType {
	case ResourceProject:
		for _, r := range ProjectRoles {
			if string(r) == role {
				return nil
			}
		}
	case ResourceTask:
		for _, r := range TaskRoles {
			if string(r) == role {
				return nil
			}
		}
	case ResourceTeam:
		return fmt.Errorf("team roles are assigned through team membership, not grants")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResourceType, resourceType)
	}
	return fmt.Errorf("role %q is not valid for %s resources", role, resourceType)
}
