package service

import (
	"collab_service/internal/models"
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PermissionChecker is what the gate needs from the resolver.
type PermissionChecker interface {
	HasPermission(ctx context.Context, actorID bson.ObjectID, resourceType models.ResourceType, resourceID bson.ObjectID, action models.PermissionAction) (bool, error)
}

// Notifier emits user-facing denial notices. The concrete delivery
// (toasts, websocket pushes) is a collaborator; the default just logs.
type Notifier interface {
	NotifyDenied(ctx context.Context, actorID bson.ObjectID, check Check)
}

type LogNotifier struct{}

func (LogNotifier) NotifyDenied(ctx context.Context, actorID bson.ObjectID, check Check) {
	log.Printf("Denied: actor %s may not %s %s %s",
		actorID.Hex(), check.Action, check.ResourceType, check.ResourceID.Hex())
}

// Check names one protected action on one resource.
type Check struct {
	ResourceType models.ResourceType     `json:"resourceType"`
	ResourceID   bson.ObjectID           `json:"resourceId"`
	Action       models.PermissionAction `json:"action"`
}

type CombineMode string

const (
	// CombineAll requires every check to pass.
	CombineAll CombineMode = "all"
	// CombineAny requires at least one check to pass.
	CombineAny CombineMode = "any"
)

// AccessGate is the reusable decision point in front of protected
// operations. It never surfaces resolver failures to its callers: a
// check that cannot be evaluated is a deny, and the caller cannot tell
// the two apart.
type AccessGate struct {
	resolver PermissionChecker
	notifier Notifier
}

func NewAccessGate(resolver PermissionChecker, notifier Notifier) *AccessGate {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &AccessGate{
		resolver: resolver,
		notifier: notifier,
	}
}

// Allow evaluates a single check.
func (g *AccessGate) Allow(ctx context.Context, actorID bson.ObjectID, check Check) bool {
	granted, err := g.resolver.HasPermission(ctx, actorID, check.ResourceType, check.ResourceID, check.Action)
	if err != nil {
		log.Printf("Gate denied (fail closed): %v", err)
		return false
	}
	return granted
}

// Evaluate combines several checks with AND/OR semantics. inverse
// flips the combined decision; it backs "restricted" banners that show
// only when the actor does have the permission.
func (g *AccessGate) Evaluate(ctx context.Context, actorID bson.ObjectID, checks []Check, mode CombineMode, inverse bool) bool {
	if len(checks) == 0 {
		return false
	}

	var result bool
	switch mode {
	case CombineAny:
		result = false
		for _, check := range checks {
			if g.Allow(ctx, actorID, check) {
				result = true
				break
			}
		}
	default:
		result = true
		for _, check := range checks {
			if !g.Allow(ctx, actorID, check) {
				result = false
				break
			}
		}
	}

	if inverse {
		return !result
	}
	return result
}

// Require is Allow for callers that fail instead of hiding the
// protected branch. Denials notify the actor and come back as
// ErrPermissionDenied.
func (g *AccessGate) Require(ctx context.Context, actorID bson.ObjectID, check Check) error {
	if g.Allow(ctx, actorID, check) {
		return nil
	}
	g.notifier.NotifyDenied(ctx, actorID, check)
	return fmt.Errorf("%w: %s on %s %s", models.ErrPermissionDenied,
		check.Action, check.ResourceType, check.ResourceID.Hex())
}
