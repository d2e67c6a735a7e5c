package handlers

import (
	"collab_service/internal/models"
	"collab_service/internal/service"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	gate           *service.AccessGate
}

func NewProjectHandler(projectService *service.ProjectService, gate *service.AccessGate) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		gate:           gate,
	}
}

func (h *ProjectHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/protected/collab/teams/:teamId/projects", h.CreateProject,
		RequirePermission(h.gate, models.ResourceTeam, models.ActionCreate, "teamId"))
	app.Get("/protected/collab/teams/:teamId/projects", h.ListProjects,
		RequirePermission(h.gate, models.ResourceTeam, models.ActionRead, "teamId"))

	projects := app.Group("/protected/collab/projects")
	projects.Get("/:projectId", h.GetProject,
		RequirePermission(h.gate, models.ResourceProject, models.ActionRead, "projectId"))
	projects.Put("/:projectId", h.UpdateProject,
		RequirePermission(h.gate, models.ResourceProject, models.ActionUpdate, "projectId"))
	projects.Delete("/:projectId", h.ArchiveProject,
		RequirePermission(h.gate, models.ResourceProject, models.ActionDelete, "projectId"))
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *ProjectHandler) CreateProject(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	teamID, err := bson.ObjectIDFromHex(c.Params("teamId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid team ID format",
		})
	}

	var req projectRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Project name is required",
		})
	}

	project, err := h.projectService.CreateProject(c.Context(), teamID, req.Name, req.Description, actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": project,
	})
}

func (h *ProjectHandler) GetProject(c fiber.Ctx) error {
	projectID, err := bson.ObjectIDFromHex(c.Params("projectId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project ID format",
		})
	}

	project, err := h.projectService.GetProject(c.Context(), projectID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}

	return c.JSON(fiber.Map{
		"data": project,
	})
}

func (h *ProjectHandler) ListProjects(c fiber.Ctx) error {
	teamID, err := bson.ObjectIDFromHex(c.Params("teamId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid team ID format",
		})
	}

	projects, err := h.projectService.ListByTeam(c.Context(), teamID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": projects,
	})
}

func (h *ProjectHandler) UpdateProject(c fiber.Ctx) error {
	projectID, err := bson.ObjectIDFromHex(c.Params("projectId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project ID format",
		})
	}

	var req projectRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.projectService.UpdateProject(c.Context(), projectID, req.Name, req.Description); err != nil {
		if service.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Project updated",
	})
}

func (h *ProjectHandler) ArchiveProject(c fiber.Ctx) error {
	projectID, err := bson.ObjectIDFromHex(c.Params("projectId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project ID format",
		})
	}

	if err := h.projectService.ArchiveProject(c.Context(), projectID); err != nil {
		if service.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Project archived",
	})
}
