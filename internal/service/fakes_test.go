package service

import (
	"collab_service/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// In-memory collaborators backing the service tests.

var errUpstreamDown = errors.New("upstream unavailable")

type fakeGrantStore struct {
	grants  []*models.Grant
	failAll bool
}

func (f *fakeGrantStore) Create(ctx context.Context, grant *models.Grant) (*models.Grant, error) {
	if f.failAll {
		return nil, errUpstreamDown
	}
	now := time.Now()
	for _, g := range f.grants {
		if g.ActorID == grant.ActorID && g.ResourceID == grant.ResourceID && g.IsEffective(now) {
			return nil, fmt.Errorf("%w: actor %s already holds a grant on %s",
				models.ErrDuplicateGrant, grant.ActorID.Hex(), grant.ResourceID.Hex())
		}
	}
	stored := *grant
	stored.ID = bson.NewObjectID()
	stored.GrantedAt = now.Unix()
	stored.CreatedAt = now.Unix()
	stored.UpdatedAt = now.Unix()
	f.grants = append(f.grants, &stored)
	return &stored, nil
}

func (f *fakeGrantStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Grant, error) {
	if f.failAll {
		return nil, errUpstreamDown
	}
	for _, g := range f.grants {
		if g.ID == id {
			found := *g
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrGrantNotFound, id.Hex())
}

func (f *fakeGrantStore) FindEffectiveByActorAndResource(ctx context.Context, actorID, resourceID bson.ObjectID, now time.Time) (*models.Grant, error) {
	if f.failAll {
		return nil, errUpstreamDown
	}
	for _, g := range f.grants {
		if g.ActorID == actorID && g.ResourceID == resourceID && g.IsEffective(now) {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeGrantStore) FindByResource(ctx context.Context, resourceID bson.ObjectID) ([]*models.Grant, error) {
	if f.failAll {
		return nil, errUpstreamDown
	}
	var out []*models.Grant
	for _, g := range f.grants {
		if g.ResourceID == resourceID && g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantStore) FindByActor(ctx context.Context, actorID bson.ObjectID) ([]*models.Grant, error) {
	if f.failAll {
		return nil, errUpstreamDown
	}
	var out []*models.Grant
	for _, g := range f.grants {
		if g.ActorID == actorID && g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantStore) Update(ctx context.Context, id bson.ObjectID, role *string, expiresAt *int64) error {
	if f.failAll {
		return errUpstreamDown
	}
	for _, g := range f.grants {
		if g.ID == id && g.IsActive {
			if role != nil {
				g.Role = *role
			}
			if expiresAt != nil {
				g.ExpiresAt = *expiresAt
			}
			g.UpdatedAt = time.Now().Unix()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", models.ErrGrantNotFound, id.Hex())
}

func (f *fakeGrantStore) Deactivate(ctx context.Context, id bson.ObjectID) error {
	if f.failAll {
		return errUpstreamDown
	}
	for _, g := range f.grants {
		if g.ID == id {
			g.IsActive = false
			return nil
		}
	}
	return fmt.Errorf("%w: %s", models.ErrGrantNotFound, id.Hex())
}

func (f *fakeGrantStore) DeactivateByResourceAndRole(ctx context.Context, resourceID bson.ObjectID, role string) ([]*models.Grant, error) {
	if f.failAll {
		return nil, errUpstreamDown
	}
	var prior []*models.Grant
	for _, g := range f.grants {
		if g.ResourceID == resourceID && g.Role == role && g.IsActive {
			snapshot := *g
			prior = append(prior, &snapshot)
			g.IsActive = false
		}
	}
	return prior, nil
}

func (f *fakeGrantStore) DeactivateExpired(ctx context.Context) (int64, error) {
	if f.failAll {
		return 0, errUpstreamDown
	}
	now := time.Now().Unix()
	var swept int64
	for _, g := range f.grants {
		if g.IsActive && g.ExpiresAt > 0 && g.ExpiresAt < now {
			g.IsActive = false
			swept++
		}
	}
	return swept, nil
}

func (f *fakeGrantStore) activeCount(resourceID bson.ObjectID, role string) int {
	count := 0
	for _, g := range f.grants {
		if g.ResourceID == resourceID && g.Role == role && g.IsActive {
			count++
		}
	}
	return count
}

type fakeTeamDirectory struct {
	members map[string]models.TeamRole // actorHex|teamHex -> role
	fail    bool
}

func memberKey(actorID, teamID bson.ObjectID) string {
	return actorID.Hex() + "|" + teamID.Hex()
}

func (f *fakeTeamDirectory) FindMemberRole(ctx context.Context, actorID, teamID bson.ObjectID) (*models.TeamMember, error) {
	if f.fail {
		return nil, errUpstreamDown
	}
	role, ok := f.members[memberKey(actorID, teamID)]
	if !ok {
		return nil, nil
	}
	return &models.TeamMember{TeamID: teamID, ActorID: actorID, Role: role, IsActive: true}, nil
}

type fakeProjectFinder struct {
	projects map[bson.ObjectID]*models.Project
	fail     bool
}

func (f *fakeProjectFinder) FindByID(ctx context.Context, id bson.ObjectID) (*models.Project, error) {
	if f.fail {
		return nil, errUpstreamDown
	}
	project, ok := f.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s not found", id.Hex())
	}
	return project, nil
}

type fakeTaskFinder struct {
	tasks map[bson.ObjectID]*models.Task
	fail  bool
}

func (f *fakeTaskFinder) FindByID(ctx context.Context, id bson.ObjectID) (*models.Task, error) {
	if f.fail {
		return nil, errUpstreamDown
	}
	task, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id.Hex())
	}
	return task, nil
}

type fakeDecisionCache struct {
	entries map[string]bool
	gets    int
	sets    int
}

func cacheKey(actorID string, resourceType models.ResourceType, resourceID string, action models.PermissionAction) string {
	return actorID + "|" + string(resourceType) + "|" + resourceID + "|" + string(action)
}

func (f *fakeDecisionCache) Get(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, action models.PermissionAction) (bool, bool) {
	f.gets++
	granted, found := f.entries[cacheKey(actorID, resourceType, resourceID, action)]
	return granted, found
}

func (f *fakeDecisionCache) Set(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, action models.PermissionAction, granted bool) error {
	f.sets++
	if f.entries == nil {
		f.entries = make(map[string]bool)
	}
	f.entries[cacheKey(actorID, resourceType, resourceID, action)] = granted
	return nil
}

type fakeAuditWriter struct {
	entries []*models.AuditLogEntry
	fail    bool
}

func (f *fakeAuditWriter) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	if f.fail {
		return errUpstreamDown
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditWriter) countByAction(action models.AuditAction) int {
	count := 0
	for _, e := range f.entries {
		if e.Action == action {
			count++
		}
	}
	return count
}

type fakePublisher struct {
	created int
	updated int
	revoked int
}

func (f *fakePublisher) PublishGrantCreated(ctx context.Context, grant *models.Grant) error {
	f.created++
	return nil
}

func (f *fakePublisher) PublishGrantUpdated(ctx context.Context, grant *models.Grant) error {
	f.updated++
	return nil
}

func (f *fakePublisher) PublishGrantRevoked(ctx context.Context, grant *models.Grant) error {
	f.revoked++
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeChecker struct {
	decide func(check Check) (bool, error)
}

func (f *fakeChecker) HasPermission(ctx context.Context, actorID bson.ObjectID, resourceType models.ResourceType, resourceID bson.ObjectID, action models.PermissionAction) (bool, error) {
	return f.decide(Check{ResourceType: resourceType, ResourceID: resourceID, Action: action})
}

type fakeNotifier struct {
	denials []Check
}

func (f *fakeNotifier) NotifyDenied(ctx context.Context, actorID bson.ObjectID, check Check) {
	f.denials = append(f.denials, check)
}
