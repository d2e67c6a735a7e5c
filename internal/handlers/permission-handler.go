package handlers

import (
	"collab_service/internal/models"
	"collab_service/internal/service"
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// Counter for permission checks
	permissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"resource_type", "result"}, // result: allowed/denied
	)

	// Histogram for permission resolution duration
	permissionCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collab_permission_check_duration_seconds",
			Help:    "Duration of permission resolution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource_type"},
	)
)

type PermissionHandler struct {
	permissionService *service.PermissionService
	gate              *service.AccessGate
	checkTimeout      time.Duration
}

func NewPermissionHandler(permissionService *service.PermissionService, gate *service.AccessGate, checkTimeout time.Duration) *PermissionHandler {
	return &PermissionHandler{
		permissionService: permissionService,
		gate:              gate,
		checkTimeout:      checkTimeout,
	}
}

func (h *PermissionHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	permissions := app.Group("/protected/collab/permissions")
	permissions.Get("/check", h.CheckPermission)
	permissions.Post("/check-batch", h.CheckBatch)

	app.Get("/protected/collab/teams/:teamId/my-role", h.GetMyTeamRole)
	app.Get("/protected/collab/projects/:projectId/my-role", h.GetMyProjectRole)
	app.Get("/protected/collab/tasks/:taskId/my-role", h.GetMyTaskRole)
}

func (h *PermissionHandler) CheckPermission(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	resourceType := models.ResourceType(c.Query("resourceType"))
	if !resourceType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown resource type",
		})
	}

	resourceID, err := bson.ObjectIDFromHex(c.Query("resourceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource ID format",
		})
	}

	action := models.PermissionAction(c.Query("action"))
	if action == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Action is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.checkTimeout)
	defer cancel()

	start := time.Now()
	allowed := h.gate.Allow(ctx, actorID, service.Check{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
	})
	permissionCheckDuration.WithLabelValues(string(resourceType)).Observe(time.Since(start).Seconds())
	permissionChecks.WithLabelValues(string(resourceType), checkResult(allowed)).Inc()

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"allowed": allowed,
		},
	})
}

type checkRequestItem struct {
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Action       string `json:"action"`
}

type checkBatchRequest struct {
	Checks  []checkRequestItem `json:"checks"`
	Mode    string             `json:"mode"`
	Inverse bool               `json:"inverse"`
}

func (h *PermissionHandler) CheckBatch(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req checkBatchRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	mode := service.CombineMode(req.Mode)
	if mode != service.CombineAll && mode != service.CombineAny {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mode must be 'all' or 'any'",
		})
	}

	checks := make([]service.Check, 0, len(req.Checks))
	for _, item := range req.Checks {
		resourceType := models.ResourceType(item.ResourceType)
		if !resourceType.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown resource type",
			})
		}
		resourceID, err := bson.ObjectIDFromHex(item.ResourceID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid resource ID format",
			})
		}
		checks = append(checks, service.Check{
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Action:       models.PermissionAction(item.Action),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.checkTimeout)
	defer cancel()

	allowed := h.gate.Evaluate(ctx, actorID, checks, mode, req.Inverse)
	permissionChecks.WithLabelValues("batch", checkResult(allowed)).Inc()

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"allowed": allowed,
		},
	})
}

func (h *PermissionHandler) GetMyTeamRole(c fiber.Ctx) error {
	return h.myRole(c, "teamId", func(ctx context.Context, actorID, resourceID bson.ObjectID) (string, error) {
		role, err := h.permissionService.GetUserTeamRole(ctx, actorID, resourceID)
		return string(role), err
	})
}

func (h *PermissionHandler) GetMyProjectRole(c fiber.Ctx) error {
	return h.myRole(c, "projectId", func(ctx context.Context, actorID, resourceID bson.ObjectID) (string, error) {
		role, err := h.permissionService.GetUserProjectRole(ctx, actorID, resourceID)
		return string(role), err
	})
}

func (h *PermissionHandler) GetMyTaskRole(c fiber.Ctx) error {
	return h.myRole(c, "taskId", func(ctx context.Context, actorID, resourceID bson.ObjectID) (string, error) {
		role, err := h.permissionService.GetUserTaskRole(ctx, actorID, resourceID)
		return string(role), err
	})
}

func (h *PermissionHandler) myRole(c fiber.Ctx, param string, lookup func(context.Context, bson.ObjectID, bson.ObjectID) (string, error)) error {
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

	role, err := lookup(c.Context(), actorID, resourceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"role": role,
		},
	})
}

func checkResult(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}
