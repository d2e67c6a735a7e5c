package handlers

import (
	"collab_service/internal/models"
	"collab_service/internal/service"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type TeamHandler struct {
	teamService *service.TeamService
	gate        *service.AccessGate
}

func NewTeamHandler(teamService *service.TeamService, gate *service.AccessGate) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		gate:        gate,
	}
}

func (h *TeamHandler) RegisterRoutes(app *fiber.App) {
	teams := app.Group("/protected/collab/teams")
	teams.Post("/", h.CreateTeam)
	teams.Get("/:teamId", h.GetTeam,
		RequirePermission(h.gate, models.ResourceTeam, models.ActionRead, "teamId"))
	teams.Get("/:teamId/members", h.ListMembers,
		RequirePermission(h.gate, models.ResourceTeam, models.ActionRead, "teamId"))
	teams.Post("/:teamId/members", h.AddMember,
		RequirePermission(h.gate, models.ResourceTeam, models.ActionManagePermissions, "teamId"))
	teams.Put("/:teamId/members/:actorId", h.UpdateMemberRole,
		RequirePermission(h.gate, models.ResourceTeam, models.ActionManagePermissions, "teamId"))
	teams.Delete("/:teamId/members/:actorId", h.RemoveMember,
		RequirePermission(h.gate, models.ResourceTeam, models.ActionManagePermissions, "teamId"))
}

type createTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *TeamHandler) CreateTeam(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req createTeamRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Team name is required",
		})
	}

	team, err := h.teamService.CreateTeam(c.Context(), req.Name, req.Description, actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": team,
	})
}

func (h *TeamHandler) GetTeam(c fiber.Ctx) error {
	teamID, err := bson.ObjectIDFromHex(c.Params("teamId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid team ID format",
		})
	}

	team, err := h.teamService.GetTeam(c.Context(), teamID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	return c.JSON(fiber.Map{
		"data": team,
	})
}

type memberRequest struct {
	ActorID string `json:"actorId"`
	Role    string `json:"role"`
}

func (h *TeamHandler) AddMember(c fiber.Ctx) error {
	addedBy, ok := actorFromContext(c)
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

	var req memberRequest
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

	member, err := h.teamService.AddMember(c.Context(), teamID, actorID, models.TeamRole(req.Role), addedBy)
	if err != nil {
		if service.IsDuplicate(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": member,
	})
}

func (h *TeamHandler) UpdateMemberRole(c fiber.Ctx) error {
	teamID, err := bson.ObjectIDFromHex(c.Params("teamId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid team ID format",
		})
	}
	actorID, err := bson.ObjectIDFromHex(c.Params("actorId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid actor ID format",
		})
	}

	var req memberRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.teamService.UpdateMemberRole(c.Context(), teamID, actorID, models.TeamRole(req.Role)); err != nil {
		if service.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Member role updated",
	})
}

func (h *TeamHandler) RemoveMember(c fiber.Ctx) error {
	teamID, err := bson.ObjectIDFromHex(c.Params("teamId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid team ID format",
		})
	}
	actorID, err := bson.ObjectIDFromHex(c.Params("actorId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid actor ID format",
		})
	}

	if err := h.teamService.RemoveMember(c.Context(), teamID, actorID); err != nil {
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
		"message": "Member removed",
	})
}

func (h *TeamHandler) ListMembers(c fiber.Ctx) error {
	teamID, err := bson.ObjectIDFromHex(c.Params("teamId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid team ID format",
		})
	}

	members, err := h.teamService.ListMembers(c.Context(), teamID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": members,
	})
}
