package handlers

import (
	"collab_service/internal/models"
	"collab_service/internal/service"
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// Counter for grant store mutations
	grantMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_grant_mutations_total",
			Help: "Total number of grant store mutations",
		},
		[]string{"operation", "status"}, // operation: grant/update/revoke, status: success/conflict/not_found/failure
	)
)

type GrantHandler struct {
	grantService *service.GrantService
	auditRepo    AuditReader
	gate         *service.AccessGate
}

// AuditReader exposes the audit trail to the management UI.
type AuditReader interface {
	FindByResource(ctx context.Context, resourceID bson.ObjectID, page, limit int) ([]*models.AuditLogEntry, error)
}

func NewGrantHandler(grantService *service.GrantService, auditRepo AuditReader, gate *service.AccessGate) *GrantHandler {
	return &GrantHandler{
		grantService: grantService,
		auditRepo:    auditRepo,
		gate:         gate,
	}
}

func (h *GrantHandler) RegisterRoutes(app *fiber.App) {
	projectGrants := app.Group("/protected/collab/projects/:projectId/grants")
	projectGrants.Post("/", h.CreateProjectGrant,
		RequirePermission(h.gate, models.ResourceProject, models.ActionManagePermissions, "projectId"))
	projectGrants.Get("/", h.ListProjectGrants,
		RequirePermission(h.gate, models.ResourceProject, models.ActionManagePermissions, "projectId"))

	taskGrants := app.Group("/protected/collab/tasks/:taskId/grants")
	taskGrants.Post("/", h.CreateTaskGrant,
		RequirePermission(h.gate, models.ResourceTask, models.ActionManagePermissions, "taskId"))
	taskGrants.Get("/", h.ListTaskGrants,
		RequirePermission(h.gate, models.ResourceTask, models.ActionManagePermissions, "taskId"))

	grants := app.Group("/protected/collab/grants")
	grants.Put("/:id", h.UpdateGrant)
	grants.Delete("/:id", h.RevokeGrant)

	app.Get("/protected/collab/me/grants", h.ListMyGrants)
	app.Get("/protected/collab/resources/:resourceId/audit", h.GetAuditTrail)
}

type grantRequest struct {
	ActorID             string                      `json:"actorId"`
	Role                string                      `json:"role"`
	ExpiresAt           int64                       `json:"expiresAt"`
	ExplicitPermissions []models.ExplicitPermission `json:"explicitPermissions"`
	Reason              string                      `json:"reason"`
}

func (h *GrantHandler) CreateProjectGrant(c fiber.Ctx) error {
	return h.createGrant(c, models.ResourceProject, "projectId")
}

func (h *GrantHandler) CreateTaskGrant(c fiber.Ctx) error {
	return h.createGrant(c, models.ResourceTask, "taskId")
}

func (h *GrantHandler) createGrant(c fiber.Ctx, resourceType models.ResourceType, param string) error {
	grantedBy, ok := actorFromContext(c)
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

	var req grantRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	actorID, err := bson.ObjectIDFromHex(req.ActorID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid actor ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grant, err := h.grantService.Grant(ctx, service.GrantInput{
		ResourceType:        resourceType,
		ResourceID:          resourceID,
		ActorID:             actorID,
		Role:                req.Role,
		ExplicitPermissions: req.ExplicitPermissions,
		GrantedBy:           grantedBy,
		ExpiresAt:           req.ExpiresAt,
		Reason:              req.Reason,
	})
	if err != nil {
		if service.IsDuplicate(err) {
			grantMutations.WithLabelValues("grant", "conflict").Inc()
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		grantMutations.WithLabelValues("grant", "failure").Inc()
		log.Printf("Failed to create grant on %s %s: %v", resourceType, resourceID.Hex(), err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	grantMutations.WithLabelValues("grant", "success").Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": grant,
	})
}

type grantUpdateRequest struct {
	Role      *string `json:"role"`
	ExpiresAt *int64  `json:"expiresAt"`
	Reason    string  `json:"reason"`
}

func (h *GrantHandler) UpdateGrant(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	grantID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid grant ID format",
		})
	}

	var req grantUpdateRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if status := h.authorizeGrantManagement(ctx, actorID, grantID); status != 0 {
		return status.respond(c)
	}

	if err := h.grantService.Update(ctx, grantID, req.Role, req.ExpiresAt, actorID, req.Reason); err != nil {
		if service.IsNotFound(err) {
			grantMutations.WithLabelValues("update", "not_found").Inc()
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		grantMutations.WithLabelValues("update", "failure").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	grantMutations.WithLabelValues("update", "success").Inc()
	return c.JSON(fiber.Map{
		"message": "Grant updated",
	})
}

func (h *GrantHandler) RevokeGrant(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	grantID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid grant ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if status := h.authorizeGrantManagement(ctx, actorID, grantID); status != 0 {
		return status.respond(c)
	}

	reason := c.Query("reason")
	if err := h.grantService.Revoke(ctx, grantID, actorID, reason); err != nil {
		if service.IsNotFound(err) {
			grantMutations.WithLabelValues("revoke", "not_found").Inc()
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		grantMutations.WithLabelValues("revoke", "failure").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	grantMutations.WithLabelValues("revoke", "success").Inc()
	return c.JSON(fiber.Map{
		"message": "Grant revoked",
	})
}

type denialStatus int

func (d denialStatus) respond(c fiber.Ctx) error {
	switch d {
	case fiber.StatusNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Grant not found",
		})
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to manage grants on this resource",
		})
	}
}

// authorizeGrantManagement verifies the caller may manage permissions
// on the resource the grant targets. Returns 0 when allowed.
func (h *GrantHandler) authorizeGrantManagement(ctx context.Context, actorID, grantID bson.ObjectID) denialStatus {
	grant, err := h.grantService.GetGrant(ctx, grantID)
	if err != nil {
		return fiber.StatusNotFound
	}

	allowed := h.gate.Allow(ctx, actorID, service.Check{
		ResourceType: grant.ResourceType,
		ResourceID:   grant.ResourceID,
		Action:       models.ActionManagePermissions,
	})
	if !allowed {
		return fiber.StatusForbidden
	}
	return 0
}

func (h *GrantHandler) ListProjectGrants(c fiber.Ctx) error {
	return h.listGrants(c, "projectId")
}

func (h *GrantHandler) ListTaskGrants(c fiber.Ctx) error {
	return h.listGrants(c, "taskId")
}

func (h *GrantHandler) listGrants(c fiber.Ctx, param string) error {
	resourceID, err := bson.ObjectIDFromHex(c.Params(param))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource ID format",
		})
	}

	grants, err := h.grantService.ListByResource(c.Context(), resourceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": grants,
	})
}

func (h *GrantHandler) ListMyGrants(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	grants, err := h.grantService.ListByActor(c.Context(), actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": grants,
	})
}

func (h *GrantHandler) GetAuditTrail(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	resourceID, err := bson.ObjectIDFromHex(c.Params("resourceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource ID format",
		})
	}

	page := fiber.Query(c, "page", 1)
	limit := fiber.Query(c, "limit", 20)

	// The audit trail is as sensitive as the grants themselves; only a
	// permission manager of either tier may read it.
	allowed := h.gate.Evaluate(c.Context(), actorID, []service.Check{
		{ResourceType: models.ResourceProject, ResourceID: resourceID, Action: models.ActionManagePermissions},
		{ResourceType: models.ResourceTask, ResourceID: resourceID, Action: models.ActionManagePermissions},
	}, service.CombineAny, false)
	if !allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to view the audit trail",
		})
	}

	entries, err := h.auditRepo.FindByResource(c.Context(), resourceID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": entries,
	})
}
