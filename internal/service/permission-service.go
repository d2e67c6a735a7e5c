package service

import (
	"collab_service/internal/models"
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TeamDirectory resolves an actor's team role. A missing membership is
// (nil, nil); an error means the lookup itself failed.
type TeamDirectory interface {
	FindMemberRole(ctx context.Context, actorID, teamID bson.ObjectID) (*models.TeamMember, error)
}

type ProjectFinder interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Project, error)
}

type TaskFinder interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Task, error)
}

// DecisionCache holds resolved decisions between propagation events.
// Get reports (decision, found); a miss or cache failure falls through
// to a live evaluation.
type DecisionCache interface {
	Get(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, action models.PermissionAction) (bool, bool)
	Set(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, action models.PermissionAction, granted bool) error
}

// PermissionService computes effective permissions across the three
// tiers. Decisions combine the actor's team role, the tier role from
// the single effective grant, and that grant's explicit overrides.
type PermissionService struct {
	grantRepo   GrantStore
	teamRepo    TeamDirectory
	projectRepo ProjectFinder
	taskRepo    TaskFinder
	cache       DecisionCache
	now         func() time.Time
}

// NewPermissionService builds a resolver. cache may be nil, in which
// case every check is evaluated live.
func NewPermissionService(grantRepo GrantStore, teamRepo TeamDirectory, projectRepo ProjectFinder, taskRepo TaskFinder, cache DecisionCache) *PermissionService {
	return &PermissionService{
		grantRepo:   grantRepo,
		teamRepo:    teamRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		cache:       cache,
		now:         time.Now,
	}
}

// HasPermission decides whether the actor may perform action on the
// resource. The order is:
//
//  1. Team role of the team owning the resource: a role whose matrix
//     default grants the action allows immediately, regardless of any
//     tier-level restriction. Team roles are a ceiling of trust, not a
//     floor.
//  2. The single active, non-expired grant for (actor, resource): an
//     explicit override matching (resourceType, action) is authoritative
//     in both directions and decides first.
//  3. The same grant's tier-role matrix default.
//  4. Otherwise deny.
//
// Absence of permission is a false result, never an error. Upstream
// lookup failures are logged and deny (fail closed). The only error
// returned is a malformed resource type.
func (s *PermissionService) HasPermission(ctx context.Context, actorID bson.ObjectID, resourceType models.ResourceType, resourceID bson.ObjectID, action models.PermissionAction) (bool, error) {
	if !resourceType.Valid() {
		return false, fmt.Errorf("%w: %q", models.ErrUnknownResourceType, resourceType)
	}
	if actorID.IsZero() {
		return false, nil
	}

	if s.cache != nil {
		if granted, found := s.cache.Get(ctx, actorID.Hex(), resourceType, resourceID.Hex(), action); found {
			return granted, nil
		}
	}

	granted := s.resolve(ctx, actorID, resourceType, resourceID, action)

	if s.cache != nil {
		if err := s.cache.Set(ctx, actorID.Hex(), resourceType, resourceID.Hex(), action, granted); err != nil {
			log.Printf("Warning: failed to cache permission decision: %v", err)
		}
	}

	return granted, nil
}

func (s *PermissionService) resolve(ctx context.Context, actorID bson.ObjectID, resourceType models.ResourceType, resourceID bson.ObjectID, action models.PermissionAction) bool {
	teamID, err := s.owningTeam(ctx, resourceType, resourceID)
	if err != nil {
		log.Printf("Permission denied (fail closed): cannot resolve owning team of %s %s: %v",
			resourceType, resourceID.Hex(), err)
		return false
	}

	member, err := s.teamRepo.FindMemberRole(ctx, actorID, teamID)
	if err != nil {
		log.Printf("Permission denied (fail closed): team role lookup for actor %s failed: %v",
			actorID.Hex(), err)
		return false
	}
	if member != nil {
		allowed, err := models.TeamDefault(member.Role, action)
		if err != nil {
			log.Printf("Permission denied (fail closed): %v", err)
			return false
		}
		if allowed {
			return true
		}
	}

	// The team tier has no grants beneath it.
	if resourceType == models.ResourceTeam {
		return false
	}

	grant, err := s.grantRepo.FindEffectiveByActorAndResource(ctx, actorID, resourceID, s.now())
	if err != nil {
		log.Printf("Permission denied (fail closed): grant lookup for actor %s failed: %v",
			actorID.Hex(), err)
		return false
	}
	if grant == nil || !grant.IsEffective(s.now()) {
		return false
	}

	// An explicit override is authoritative in both directions, so a
	// matching entry decides before the role default is consulted.
	if override := grant.FindOverride(resourceType, action); override != nil {
		return override.Granted
	}

	allowed, err := models.TierDefault(resourceType, grant.Role, action)
	if err != nil {
		log.Printf("Permission denied (fail closed): %v", err)
		return false
	}
	return allowed
}

// owningTeam walks a resource up to the team that owns it.
func (s *PermissionService) owningTeam(ctx context.Context, resourceType models.ResourceType, resourceID bson.ObjectID) (bson.ObjectID, error) {
	switch resourceType {
	case models.ResourceTeam:
		return resourceID, nil
	case models.ResourceProject:
		project, err := s.projectRepo.FindByID(ctx, resourceID)
		if err != nil {
			return bson.NilObjectID, fmt.Errorf("%w: %v", models.ErrUpstreamLookup, err)
		}
		return project.TeamID, nil
	case models.ResourceTask:
		task, err := s.taskRepo.FindByID(ctx, resourceID)
		if err != nil {
			return bson.NilObjectID, fmt.Errorf("%w: %v", models.ErrUpstreamLookup, err)
		}
		project, err := s.projectRepo.FindByID(ctx, task.ProjectID)
		if err != nil {
			return bson.NilObjectID, fmt.Errorf("%w: %v", models.ErrUpstreamLookup, err)
		}
		return project.TeamID, nil
	default:
		return bson.NilObjectID, fmt.Errorf("%w: %q", models.ErrUnknownResourceType, resourceType)
	}
}

// GetUserTeamRole returns the actor's team role, or "" when the actor
// is not a member.
func (s *PermissionService) GetUserTeamRole(ctx context.Context, actorID, teamID bson.ObjectID) (models.TeamRole, error) {
	member, err := s.teamRepo.FindMemberRole(ctx, actorID, teamID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUpstreamLookup, err)
	}
	if member == nil {
		return "", nil
	}
	return member.Role, nil
}

// GetUserProjectRole returns the project role from the actor's
// effective grant, or "" when there is none.
func (s *PermissionService) GetUserProjectRole(ctx context.Context, actorID, projectID bson.ObjectID) (models.ProjectRole, error) {
	grant, err := s.grantRepo.FindEffectiveByActorAndResource(ctx, actorID, projectID, s.now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUpstreamLookup, err)
	}
	if grant == nil || grant.ResourceType != models.ResourceProject {
		return "", nil
	}
	return models.ProjectRole(grant.Role), nil
}

// GetUserTaskRole returns the task role from the actor's effective
// grant, or "" when there is none.
func (s *PermissionService) GetUserTaskRole(ctx context.Context, actorID, taskID bson.ObjectID) (models.TaskRole, error) {
	grant, err := s.grantRepo.FindEffectiveByActorAndResource(ctx, actorID, taskID, s.now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUpstreamLookup, err)
	}
	if grant == nil || grant.ResourceType != models.ResourceTask {
		return "", nil
	}
	return models.TaskRole(grant.Role), nil
}

func (s *PermissionService) CanManageProjectPermissions(ctx context.Context, actorID, projectID bson.ObjectID) (bool, error) {
	return s.HasPermission(ctx, actorID, models.ResourceProject, projectID, models.ActionManagePermissions)
}

func (s *PermissionService) CanManageTaskPermissions(ctx context.Context, actorID, taskID bson.ObjectID) (bool, error) {
	return s.HasPermission(ctx, actorID, models.ResourceTask, taskID, models.ActionManagePermissions)
}
