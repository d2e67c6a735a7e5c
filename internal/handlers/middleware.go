package handlers

import (
	"collab_service/internal/models"
	"collab_service/internal/service"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const actorLocal = "actorID"

// Identity resolves the acting user for every protected route. It
// accepts a bearer token from the identity provider or the gateway's
// X-User-ID header. No identity means no permission for anything.
func Identity(jwtService *service.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		if auth := c.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			claims, err := jwtService.VerifyToken(strings.TrimPrefix(auth, "Bearer "))
			if err == nil {
				var actorID bson.ObjectID
				if actorID, err = jwtService.ActorID(claims); err == nil {
					c.Locals(actorLocal, actorID)
					return c.Next()
				}
			}
			log.Printf("Rejected bearer token from %s: %v", c.IP(), err)
		}

		if header := c.Get("X-User-ID"); header != "" {
			actorID, err := bson.ObjectIDFromHex(header)
			if err == nil {
				c.Locals(actorLocal, actorID)
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
}

func actorFromContext(c fiber.Ctx) (bson.ObjectID, bool) {
	actorID, ok := c.Locals(actorLocal).(bson.ObjectID)
	if !ok || actorID.IsZero() {
		return bson.NilObjectID, false
	}
	return actorID, true
}

// RequirePermission guards a route with an access-gate check. The
// resource id comes from the named route parameter. A deny and an
// upstream failure produce the same response on purpose: callers
// cannot distinguish "no permission" from "lookup failed".
func RequirePermission(gate *service.AccessGate, resourceType models.ResourceType, action models.PermissionAction, param string) fiber.Handler {
	return func(c fiber.Ctx) error {
		actorID, ok := actorFromContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		resourceID, err := bson.ObjectIDFromHex(c.Params(param))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid resource ID format",
			})
		}

		allowed := gate.Allow(c.Context(), actorID, service.Check{
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Action:       action,
		})
		if !allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to perform this action",
			})
		}

		return c.Next()
	}
}
