package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ExplicitPermission overrides a role default for one action on one
// tier. Granted is authoritative in both directions: it can deny an
// action the role would allow and allow one it would deny.
type ExplicitPermission struct {
	ResourceType ResourceType     `bson:"resourceType" json:"resourceType"`
	Action       PermissionAction `bson:"action" json:"action"`
	Granted      bool             `bson:"granted" json:"granted"`
}

// Grant is an explicit assignment of a tier role to an actor on a
// project or task. Grants are soft-deleted: revocation flips IsActive
// instead of removing the document, so the audit trail stays intact.
type Grant struct {
	ID                  bson.ObjectID        `bson:"_id,omitempty" json:"id"`
	ResourceType        ResourceType         `bson:"resourceType" json:"resourceType"`
	ResourceID          bson.ObjectID        `bson:"resourceId" json:"resourceId"`
	ActorID             bson.ObjectID        `bson:"actorId" json:"actorId"`
	Role                string               `bson:"role" json:"role"`
	ExplicitPermissions []ExplicitPermission `bson:"explicitPermissions,omitempty" json:"explicitPermissions,omitempty"`
	GrantedBy           bson.ObjectID        `bson:"grantedBy" json:"grantedBy"`
	GrantedAt           int64                `bson:"grantedAt" json:"grantedAt"`
	ExpiresAt           int64                `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	IsActive            bool                 `bson:"isActive" json:"isActive"`
	CreatedAt           int64                `bson:"createdAt" json:"createdAt"`
	UpdatedAt           int64                `bson:"updatedAt" json:"updatedAt"`
}

// IsEffective is the single place that decides whether a grant counts.
// A grant with ExpiresAt in the past is logically expired even while
// IsActive is still true; expiry stays a computed state until a revoke
// or sweep flips the flag.
func (g *Grant) IsEffective(now time.Time) bool {
	if g == nil || !g.IsActive {
		return false
	}
	if g.ExpiresAt == 0 {
		return true
	}
	return now.Unix() <= g.ExpiresAt
}

// FindOverride returns the explicit override matching the tier and
// action, or nil when the grant carries none.
func (g *Grant) FindOverride(resourceType ResourceType, action PermissionAction) *ExplicitPermission {
	for i := range g.ExplicitPermissions {
		ep := &g.ExplicitPermissions[i]
		if ep.ResourceType == resourceType && ep.Action == action {
			return ep
		}
	}
	return nil
}

// Snapshot captures the mutable permission state of a grant for audit
// entries.
func (g *Grant) Snapshot() *GrantSnapshot {
	return &GrantSnapshot{
		Role:                g.Role,
		ExpiresAt:           g.ExpiresAt,
		ExplicitPermissions: g.ExplicitPermissions,
	}
}

type AuditAction string

const (
	AuditGranted  AuditAction = "granted"
	AuditRevoked  AuditAction = "revoked"
	AuditModified AuditAction = "modified"
)

// GrantSnapshot is the before/after permission state recorded on audit
// entries.
type GrantSnapshot struct {
	Role                string               `bson:"role" json:"role"`
	ExpiresAt           int64                `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	ExplicitPermissions []ExplicitPermission `bson:"explicitPermissions,omitempty" json:"explicitPermissions,omitempty"`
}

// AuditLogEntry is an append-only record of a grant store mutation.
// Entries are never updated or deleted.
type AuditLogEntry struct {
	ID           bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Action       AuditAction    `bson:"action" json:"action"`
	ResourceType ResourceType   `bson:"resourceType" json:"resourceType"`
	ResourceID   bson.ObjectID  `bson:"resourceId" json:"resourceId"`
	ActorID      bson.ObjectID  `bson:"actorId" json:"actorId"`
	GrantedBy    bson.ObjectID  `bson:"grantedBy" json:"grantedBy"`
	Previous     *GrantSnapshot `bson:"previousPermissions,omitempty" json:"previousPermissions,omitempty"`
	New          *GrantSnapshot `bson:"newPermissions,omitempty" json:"newPermissions,omitempty"`
	Reason       string         `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt    int64          `bson:"createdAt" json:"createdAt"`
}
