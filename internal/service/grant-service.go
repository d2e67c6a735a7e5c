package service

import (
	"collab_service/internal/events"
	"collab_service/internal/models"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// GrantStore is the persistence surface the grant service mutates. The
// Mongo-backed implementation lives in the repository package.
type GrantStore interface {
	Create(ctx context.Context, grant *models.Grant) (*models.Grant, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Grant, error)
	FindEffectiveByActorAndResource(ctx context.Context, actorID, resourceID bson.ObjectID, now time.Time) (*models.Grant, error)
	FindByResource(ctx context.Context, resourceID bson.ObjectID) ([]*models.Grant, error)
	FindByActor(ctx context.Context, actorID bson.ObjectID) ([]*models.Grant, error)
	Update(ctx context.Context, id bson.ObjectID, role *string, expiresAt *int64) error
	Deactivate(ctx context.Context, id bson.ObjectID) error
	DeactivateByResourceAndRole(ctx context.Context, resourceID bson.ObjectID, role string) ([]*models.Grant, error)
	DeactivateExpired(ctx context.Context) (int64, error)
}

// AuditWriter appends grant mutation records. Failures here never roll
// back the mutation that triggered them.
type AuditWriter interface {
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
}

type GrantService struct {
	grantRepo GrantStore
	auditRepo AuditWriter
	publisher events.Publisher
}

func NewGrantService(grantRepo GrantStore, auditRepo AuditWriter, publisher events.Publisher) *GrantService {
	return &GrantService{
		grantRepo: grantRepo,
		auditRepo: auditRepo,
		publisher: publisher,
	}
}

type GrantInput struct {
	ResourceType        models.ResourceType
	ResourceID          bson.ObjectID
	ActorID             bson.ObjectID
	Role                string
	ExplicitPermissions []models.ExplicitPermission
	GrantedBy           bson.ObjectID
	ExpiresAt           int64
	Reason              string
}

// Grant creates an explicit permission grant. A second active,
// non-expired grant for the same actor and resource is a conflict,
// except for the task assignee role: assigning a new assignee revokes
// any existing assignee grants on the task first, so that at most one
// active assignee exists afterward. The revoke is issued before the
// new grant is created; the two are sequenced, not storage-atomic.
func (s *GrantService) Grant(ctx context.Context, input GrantInput) (*models.Grant, error) {
	if err := models.ValidRoleForTier(input.ResourceType, input.Role); err != nil {
		return nil, err
	}
	if input.ActorID.IsZero() || input.ResourceID.IsZero() {
		return nil, fmt.Errorf("grant requires both an actor and a resource")
	}

	if input.ResourceType == models.ResourceTask && input.Role == string(models.TaskAssignee) {
		superseded, err := s.grantRepo.DeactivateByResourceAndRole(ctx, input.ResourceID, string(models.TaskAssignee))
		if err != nil {
			return nil, fmt.Errorf("failed to supersede existing assignee: %w", err)
		}
		for _, old := range superseded {
			s.recordAudit(ctx, &models.AuditLogEntry{
				Action:       models.AuditRevoked,
				ResourceType: old.ResourceType,
				ResourceID:   old.ResourceID,
				ActorID:      old.ActorID,
				GrantedBy:    input.GrantedBy,
				Previous:     old.Snapshot(),
				Reason:       "superseded by new assignee",
			})
			s.publish(ctx, events.GrantRevoked, old)
		}
	}

	grant := &models.Grant{
		ResourceType:        input.ResourceType,
		ResourceID:          input.ResourceID,
		ActorID:             input.ActorID,
		Role:                input.Role,
		ExplicitPermissions: input.ExplicitPermissions,
		GrantedBy:           input.GrantedBy,
		ExpiresAt:           input.ExpiresAt,
		IsActive:            true,
	}

	created, err := s.grantRepo.Create(ctx, grant)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &models.AuditLogEntry{
		Action:       models.AuditGranted,
		ResourceType: created.ResourceType,
		ResourceID:   created.ResourceID,
		ActorID:      created.ActorID,
		GrantedBy:    created.GrantedBy,
		New:          created.Snapshot(),
		Reason:       input.Reason,
	})
	s.publish(ctx, events.GrantCreated, created)

	return created, nil
}

// Update changes role and/or expiration of an active grant in place.
// GrantedBy and GrantedAt are untouched.
func (s *GrantService) Update(ctx context.Context, grantID bson.ObjectID, role *string, expiresAt *int64, updatedBy bson.ObjectID, reason string) error {
	existing, err := s.grantRepo.FindByID(ctx, grantID)
	if err != nil {
		return err
	}
	if !existing.IsActive {
		return fmt.Errorf("%w: %s is inactive", models.ErrGrantNotFound, grantID.Hex())
	}

	if role != nil {
		if err := models.ValidRoleForTier(existing.ResourceType, *role); err != nil {
			return err
		}
	}

	if err := s.grantRepo.Update(ctx, grantID, role, expiresAt); err != nil {
		return err
	}

	updated := *existing
	if role != nil {
		updated.Role = *role
	}
	if expiresAt != nil {
		updated.ExpiresAt = *expiresAt
	}

	s.recordAudit(ctx, &models.AuditLogEntry{
		Action:       models.AuditModified,
		ResourceType: existing.ResourceType,
		ResourceID:   existing.ResourceID,
		ActorID:      existing.ActorID,
		GrantedBy:    updatedBy,
		Previous:     existing.Snapshot(),
		New:          updated.Snapshot(),
		Reason:       reason,
	})
	s.publish(ctx, events.GrantUpdated, &updated)

	return nil
}

// Revoke soft-deletes a grant. Revoking an already-inactive grant is a
// no-op success; an unknown id is ErrGrantNotFound.
func (s *GrantService) Revoke(ctx context.Context, grantID, revokedBy bson.ObjectID, reason string) error {
	existing, err := s.grantRepo.FindByID(ctx, grantID)
	if err != nil {
		return err
	}
	if !existing.IsActive {
		return nil
	}

	if err := s.grantRepo.Deactivate(ctx, grantID); err != nil {
		return err
	}

	s.recordAudit(ctx, &models.AuditLogEntry{
		Action:       models.AuditRevoked,
		ResourceType: existing.ResourceType,
		ResourceID:   existing.ResourceID,
		ActorID:      existing.ActorID,
		GrantedBy:    revokedBy,
		Previous:     existing.Snapshot(),
		Reason:       reason,
	})
	s.publish(ctx, events.GrantRevoked, existing)

	return nil
}

func (s *GrantService) ListByResource(ctx context.Context, resourceID bson.ObjectID) ([]*models.Grant, error) {
	return s.grantRepo.FindByResource(ctx, resourceID)
}

func (s *GrantService) ListByActor(ctx context.Context, actorID bson.ObjectID) ([]*models.Grant, error) {
	return s.grantRepo.FindByActor(ctx, actorID)
}

func (s *GrantService) GetGrant(ctx context.Context, grantID bson.ObjectID) (*models.Grant, error) {
	return s.grantRepo.FindByID(ctx, grantID)
}

// SweepExpired flips logically expired grants inactive. Run
// periodically from main.
func (s *GrantService) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := s.grantRepo.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		log.Printf("Deactivated %d expired grants", swept)
	}
	return swept, nil
}

// IsNotFound reports whether err is the grant-not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrGrantNotFound)
}

// IsDuplicate reports whether err is the duplicate-grant conflict.
func IsDuplicate(err error) bool {
	return errors.Is(err, models.ErrDuplicateGrant)
}

// recordAudit is fire-and-forget relative to the grant mutation: audit
// continuity is best-effort and must never fail the primary write.
func (s *GrantService) recordAudit(ctx context.Context, entry *models.AuditLogEntry) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.Insert(ctx, entry); err != nil {
		log.Printf("Warning: failed to write audit entry (%s %s on %s): %v",
			entry.Action, entry.ActorID.Hex(), entry.ResourceID.Hex(), err)
	}
}

// publish pushes a grant event to propagation. Consumers fail closed
// and cache entries carry a TTL, so a failed publish is logged rather
// than failing the mutation.
func (s *GrantService) publish(ctx context.Context, eventType events.EventType, grant *models.Grant) {
	if s.publisher == nil {
		return
	}

	var err error
	switch eventType {
	case events.GrantCreated:
		err = s.publisher.PublishGrantCreated(ctx, grant)
	case events.GrantUpdated:
		err = s.publisher.PublishGrantUpdated(ctx, grant)
	case events.GrantRevoked:
		err = s.publisher.PublishGrantRevoked(ctx, grant)
	}
	if err != nil {
		log.Printf("Warning: failed to publish %s for grant %s: %v", eventType, grant.ID.Hex(), err)
	}
}
