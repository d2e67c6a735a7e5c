package models

import (
	"testing"
)

func TestValidateMatrix(t *testing.T) {
	if err := ValidateMatrix(); err != nil {
		t.Fatalf("Expected complete matrix, got error: %v", err)
	}
}

func TestTeamDefault(t *testing.T) {
	testCases := []struct {
		name    string
		role    TeamRole
		action  PermissionAction
		granted bool
	}{
		{"owner manages permissions", TeamOwner, ActionManagePermissions, true},
		{"admin deletes", TeamAdmin, ActionDelete, true},
		{"editor cannot delete", TeamEditor, ActionDelete, false},
		{"editor assigns", TeamEditor, ActionAssign, true},
		{"viewer reads", TeamViewer, ActionRead, true},
		{"viewer comments", TeamViewer, ActionComment, true},
		{"viewer cannot update", TeamViewer, ActionUpdate, false},
		{"viewer cannot create", TeamViewer, ActionCreate, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			granted, err := TeamDefault(tc.role, tc.action)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if granted != tc.granted {
				t.Errorf("Expected %v for %s/%s, got %v", tc.granted, tc.role, tc.action, granted)
			}
		})
	}
}

func TestTeamDefaultUnknownRole(t *testing.T) {
	if _, err := TeamDefault(TeamRole("superuser"), ActionRead); err == nil {
		t.Error("Expected error for unknown team role, got nil")
	}
}

func TestProjectDefault(t *testing.T) {
	testCases := []struct {
		name    string
		role    ProjectRole
		action  PermissionAction
		granted bool
	}{
		{"manager manages permissions", ProjectManager, ActionManagePermissions, true},
		{"lead cannot manage permissions", ProjectLead, ActionManagePermissions, false},
		{"lead assigns", ProjectLead, ActionAssign, true},
		{"contributor updates", ProjectContributor, ActionUpdate, true},
		{"contributor completes", ProjectContributor, ActionComplete, true},
		{"contributor cannot assign", ProjectContributor, ActionAssign, false},
		{"observer reads", ProjectObserver, ActionRead, true},
		{"observer cannot update", ProjectObserver, ActionUpdate, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			granted, err := ProjectDefault(tc.role, tc.action)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if granted != tc.granted {
				t.Errorf("Expected %v for %s/%s, got %v", tc.granted, tc.role, tc.action, granted)
			}
		})
	}
}

func TestTaskDefault(t *testing.T) {
	testCases := []struct {
		name    string
		role    TaskRole
		action  PermissionAction
		granted bool
	}{
		{"assignee updates", TaskAssignee, ActionUpdate, true},
		{"assignee completes", TaskAssignee, ActionComplete, true},
		{"reviewer completes", TaskReviewer, ActionComplete, true},
		{"reviewer cannot update", TaskReviewer, ActionUpdate, false},
		{"collaborator updates", TaskCollaborator, ActionUpdate, true},
		{"collaborator cannot complete", TaskCollaborator, ActionComplete, false},
		{"watcher reads", TaskWatcher, ActionRead, true},
		{"watcher cannot comment", TaskWatcher, ActionComment, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			granted, err := TaskDefault(tc.role, tc.action)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if granted != tc.granted {
				t.Errorf("Expected %v for %s/%s, got %v", tc.granted, tc.role, tc.action, granted)
			}
		})
	}
}

func TestTierDefault(t *testing.T) {
	granted, err := TierDefault(ResourceProject, string(ProjectContributor), ActionUpdate)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !granted {
		t.Error("Expected project contributor to update by default")
	}

	if _, err := TierDefault(ResourceType("folder"), "whatever", ActionRead); err == nil {
		t.Error("Expected error for unknown resource type, got nil")
	}

	// A role from the wrong tier's vocabulary must not resolve.
	if _, err := TierDefault(ResourceTask, string(ProjectContributor), ActionRead); err == nil {
		t.Error("Expected error for project role on task tier, got nil")
	}
}

func TestValidRoleForTier(t *testing.T) {
	testCases := []struct {
		name         string
		resourceType ResourceType
		role         string
		wantErr      bool
	}{
		{"project role on project", ResourceProject, string(ProjectContributor), false},
		{"task role on task", ResourceTask, string(TaskAssignee), false},
		{"task role on project", ResourceProject, string(TaskAssignee), true},
		{"project role on task", ResourceTask, string(ProjectObserver), true},
		{"team tier takes no grants", ResourceTeam, string(TeamViewer), true},
		{"unknown role", ResourceTask, "ghost", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidRoleForTier(tc.resourceType, tc.role)
			if tc.wantErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
