package service

import (
	"collab_service/internal/models"
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type resolverFixture struct {
	svc      *PermissionService
	grants   *fakeGrantStore
	teams    *fakeTeamDirectory
	projects *fakeProjectFinder
	tasks    *fakeTaskFinder

	teamID    bson.ObjectID
	projectID bson.ObjectID
	taskID    bson.ObjectID
	actorID   bson.ObjectID
}

func newResolverFixture() *resolverFixture {
	f := &resolverFixture{
		grants:    &fakeGrantStore{},
		teams:     &fakeTeamDirectory{members: make(map[string]models.TeamRole)},
		projects:  &fakeProjectFinder{projects: make(map[bson.ObjectID]*models.Project)},
		tasks:     &fakeTaskFinder{tasks: make(map[bson.ObjectID]*models.Task)},
		teamID:    bson.NewObjectID(),
		projectID: bson.NewObjectID(),
		taskID:    bson.NewObjectID(),
		actorID:   bson.NewObjectID(),
	}
	f.projects.projects[f.projectID] = &models.Project{ID: f.projectID, TeamID: f.teamID}
	f.tasks.tasks[f.taskID] = &models.Task{ID: f.taskID, ProjectID: f.projectID}
	f.svc = NewPermissionService(f.grants, f.teams, f.projects, f.tasks, nil)
	return f
}

func (f *resolverFixture) addTeamRole(role models.TeamRole) {
	f.teams.members[memberKey(f.actorID, f.teamID)] = role
}

func (f *resolverFixture) addGrant(resourceType models.ResourceType, resourceID bson.ObjectID, role string, expiresAt int64, overrides ...models.ExplicitPermission) *models.Grant {
	grant := &models.Grant{
		ID:                  bson.NewObjectID(),
		ResourceType:        resourceType,
		ResourceID:          resourceID,
		ActorID:             f.actorID,
		Role:                role,
		ExplicitPermissions: overrides,
		ExpiresAt:           expiresAt,
		IsActive:            true,
	}
	f.grants.grants = append(f.grants.grants, grant)
	return grant
}

func (f *resolverFixture) check(t *testing.T, resourceType models.ResourceType, resourceID bson.ObjectID, action models.PermissionAction) bool {
	t.Helper()
	granted, err := f.svc.HasPermission(context.Background(), f.actorID, resourceType, resourceID, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return granted
}

func TestHasPermissionTeamRoleShortCircuit(t *testing.T) {
	// A permissive team role allows even when a restrictive project
	// grant would deny the same action.
	f := newResolverFixture()
	f.addTeamRole(models.TeamAdmin)
	f.addGrant(models.ResourceProject, f.projectID, string(models.ProjectObserver), 0)

	if !f.check(t, models.ResourceProject, f.projectID, models.ActionDelete) {
		t.Error("Expected team admin to delete despite observer grant")
	}
}

func TestHasPermissionTeamRoleDoesNotBlockGrant(t *testing.T) {
	// A restrictive team role falls through to the project grant; team
	// roles only ever widen access.
	f := newResolverFixture()
	f.addTeamRole(models.TeamViewer)
	f.addGrant(models.ResourceProject, f.projectID, string(models.ProjectContributor), 0)

	if !f.check(t, models.ResourceProject, f.projectID, models.ActionUpdate) {
		t.Error("Expected contributor grant to allow update past the viewer team role")
	}
	if f.check(t, models.ResourceProject, f.projectID, models.ActionAssign) {
		t.Error("Expected assign to stay denied for viewer + contributor")
	}
}

func TestHasPermissionNoRoleNoGrant(t *testing.T) {
	f := newResolverFixture()

	if f.check(t, models.ResourceProject, f.projectID, models.ActionRead) {
		t.Error("Expected deny without membership or grant")
	}
}

func TestHasPermissionExpiredGrant(t *testing.T) {
	// An expired grant behaves exactly like no grant, even while its
	// stored IsActive flag is still true.
	f := newResolverFixture()
	f.addTeamRole(models.TeamViewer)
	grant := f.addGrant(models.ResourceProject, f.projectID, string(models.ProjectContributor), time.Now().Unix()-60)

	if f.check(t, models.ResourceProject, f.projectID, models.ActionUpdate) {
		t.Error("Expected expired contributor grant to deny update")
	}
	if !grant.IsActive {
		t.Error("Expected the expired grant to remain stored active")
	}
	// The viewer team role still carries read.
	if !f.check(t, models.ResourceProject, f.projectID, models.ActionRead) {
		t.Error("Expected team viewer read to survive grant expiry")
	}
}

func TestHasPermissionExplicitOverrideGrants(t *testing.T) {
	f := newResolverFixture()
	f.addGrant(models.ResourceProject, f.projectID, string(models.ProjectObserver), 0,
		models.ExplicitPermission{ResourceType: models.ResourceProject, Action: models.ActionUpdate, Granted: true})

	if !f.check(t, models.ResourceProject, f.projectID, models.ActionUpdate) {
		t.Error("Expected explicit override to allow update for observer")
	}
}

func TestHasPermissionExplicitOverrideDenies(t *testing.T) {
	// An explicit deny is authoritative: it withdraws an action the role
	// default would grant, but cannot reach below a permissive team role.
	f := newResolverFixture()
	f.addGrant(models.ResourceProject, f.projectID, string(models.ProjectContributor), 0,
		models.ExplicitPermission{ResourceType: models.ResourceProject, Action: models.ActionUpdate, Granted: false})

	if f.check(t, models.ResourceProject, f.projectID, models.ActionUpdate) {
		t.Error("Expected explicit deny to beat the contributor role default")
	}
	// Actions without an override still follow the role default.
	if !f.check(t, models.ResourceProject, f.projectID, models.ActionComment) {
		t.Error("Expected comment to keep following the role default")
	}
	// A permissive team role short-circuits before the grant is read.
	f.addTeamRole(models.TeamOwner)
	if !f.check(t, models.ResourceProject, f.projectID, models.ActionUpdate) {
		t.Error("Expected the team role to allow despite the deny override")
	}

	// For an action the role denies, a deny override keeps it denied.
	f2 := newResolverFixture()
	f2.addGrant(models.ResourceProject, f2.projectID, string(models.ProjectObserver), 0,
		models.ExplicitPermission{ResourceType: models.ResourceProject, Action: models.ActionDelete, Granted: false})
	if f2.check(t, models.ResourceProject, f2.projectID, models.ActionDelete) {
		t.Error("Expected delete to stay denied")
	}
}

func TestHasPermissionTaskTier(t *testing.T) {
	f := newResolverFixture()
	f.addGrant(models.ResourceTask, f.taskID, string(models.TaskWatcher), 0)

	if !f.check(t, models.ResourceTask, f.taskID, models.ActionRead) {
		t.Error("Expected watcher to read the task")
	}
	if f.check(t, models.ResourceTask, f.taskID, models.ActionComment) {
		t.Error("Expected watcher comment to be denied")
	}
}

func TestHasPermissionTeamTierStopsAtMembership(t *testing.T) {
	// Team resources have no grants beneath them; a non-member is
	// denied outright.
	f := newResolverFixture()

	if f.check(t, models.ResourceTeam, f.teamID, models.ActionRead) {
		t.Error("Expected non-member team read to be denied")
	}

	f.addTeamRole(models.TeamViewer)
	if !f.check(t, models.ResourceTeam, f.teamID, models.ActionRead) {
		t.Error("Expected viewer team read to be allowed")
	}
}

func TestHasPermissionUnknownResourceType(t *testing.T) {
	f := newResolverFixture()

	_, err := f.svc.HasPermission(context.Background(), f.actorID, models.ResourceType("folder"), f.projectID, models.ActionRead)
	if err == nil {
		t.Fatal("Expected error for unknown resource type, got nil")
	}
	if !errors.Is(err, models.ErrUnknownResourceType) {
		t.Errorf("Expected ErrUnknownResourceType, got %v", err)
	}
}

func TestHasPermissionZeroActor(t *testing.T) {
	f := newResolverFixture()
	f.addTeamRole(models.TeamOwner)

	granted, err := f.svc.HasPermission(context.Background(), bson.NilObjectID, models.ResourceProject, f.projectID, models.ActionRead)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if granted {
		t.Error("Expected zero actor to be denied")
	}
}

func TestHasPermissionFailsClosed(t *testing.T) {
	testCases := []struct {
		name   string
		induce func(*resolverFixture)
	}{
		{"team lookup down", func(f *resolverFixture) {
			f.addTeamRole(models.TeamOwner)
			f.teams.fail = true
		}},
		{"project lookup down", func(f *resolverFixture) {
			f.addTeamRole(models.TeamOwner)
			f.projects.fail = true
		}},
		{"grant lookup down", func(f *resolverFixture) {
			// No team role, so resolution has to reach the grant store.
			f.addGrant(models.ResourceProject, f.projectID, string(models.ProjectContributor), 0)
			f.grants.failAll = true
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newResolverFixture()
			tc.induce(f)

			granted, err := f.svc.HasPermission(context.Background(), f.actorID, models.ResourceProject, f.projectID, models.ActionRead)
			if err != nil {
				t.Fatalf("Expected denial without error, got %v", err)
			}
			if granted {
				t.Error("Expected fail-closed deny when a lookup fails")
			}
		})
	}
}

func TestHasPermissionUsesCache(t *testing.T) {
	cache := &fakeDecisionCache{}
	f := newResolverFixture()
	f.svc = NewPermissionService(f.grants, f.teams, f.projects, f.tasks, cache)
	f.addTeamRole(models.TeamOwner)

	if !f.check(t, models.ResourceProject, f.projectID, models.ActionRead) {
		t.Fatal("Expected owner read to be allowed")
	}
	if cache.sets != 1 {
		t.Errorf("Expected 1 cache set, got %d", cache.sets)
	}

	// Remove the membership; the cached decision still answers.
	delete(f.teams.members, memberKey(f.actorID, f.teamID))
	if !f.check(t, models.ResourceProject, f.projectID, models.ActionRead) {
		t.Error("Expected the cached decision to be served")
	}
	if cache.sets != 1 {
		t.Errorf("Expected no further cache set, got %d", cache.sets)
	}
}

func TestGetUserRoles(t *testing.T) {
	f := newResolverFixture()
	f.addTeamRole(models.TeamEditor)
	f.addGrant(models.ResourceProject, f.projectID, string(models.ProjectLead), 0)
	f.addGrant(models.ResourceTask, f.taskID, string(models.TaskReviewer), 0)

	teamRole, err := f.svc.GetUserTeamRole(context.Background(), f.actorID, f.teamID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if teamRole != models.TeamEditor {
		t.Errorf("Expected team role %q, got %q", models.TeamEditor, teamRole)
	}

	projectRole, err := f.svc.GetUserProjectRole(context.Background(), f.actorID, f.projectID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if projectRole != models.ProjectLead {
		t.Errorf("Expected project role %q, got %q", models.ProjectLead, projectRole)
	}

	taskRole, err := f.svc.GetUserTaskRole(context.Background(), f.actorID, f.taskID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if taskRole != models.TaskReviewer {
		t.Errorf("Expected task role %q, got %q", models.TaskReviewer, taskRole)
	}

	// An outsider has none of the three.
	outsider := bson.NewObjectID()
	if role, _ := f.svc.GetUserTeamRole(context.Background(), outsider, f.teamID); role != "" {
		t.Errorf("Expected empty team role for outsider, got %q", role)
	}
	if role, _ := f.svc.GetUserProjectRole(context.Background(), outsider, f.projectID); role != "" {
		t.Errorf("Expected empty project role for outsider, got %q", role)
	}
}
