package handlers

import (
	"collab_service/internal/models"
	"collab_service/internal/service"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type TaskHandler struct {
	taskService *service.TaskService
	gate        *service.AccessGate
}

func NewTaskHandler(taskService *service.TaskService, gate *service.AccessGate) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		gate:        gate,
	}
}

func (h *TaskHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/protected/collab/projects/:projectId/tasks", h.CreateTask,
		RequirePermission(h.gate, models.ResourceProject, models.ActionCreate, "projectId"))
	app.Get("/protected/collab/projects/:projectId/tasks", h.ListTasks,
		RequirePermission(h.gate, models.ResourceProject, models.ActionRead, "projectId"))

	tasks := app.Group("/protected/collab/tasks")
	tasks.Get("/:taskId", h.GetTask,
		RequirePermission(h.gate, models.ResourceTask, models.ActionRead, "taskId"))
	tasks.Put("/:taskId", h.UpdateTask,
		RequirePermission(h.gate, models.ResourceTask, models.ActionUpdate, "taskId"))
	tasks.Post("/:taskId/assign", h.AssignTask,
		RequirePermission(h.gate, models.ResourceTask, models.ActionAssign, "taskId"))
	tasks.Post("/:taskId/complete", h.CompleteTask,
		RequirePermission(h.gate, models.ResourceTask, models.ActionComplete, "taskId"))
	tasks.Post("/:taskId/comments", h.AddComment,
		RequirePermission(h.gate, models.ResourceTask, models.ActionComment, "taskId"))
	tasks.Get("/:taskId/comments", h.ListComments,
		RequirePermission(h.gate, models.ResourceTask, models.ActionRead, "taskId"))
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (h *TaskHandler) CreateTask(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	projectID, err := bson.ObjectIDFromHex(c.Params("projectId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project ID format",
		})
	}

	var req taskRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Task title is required",
		})
	}

	task, err := h.taskService.CreateTask(c.Context(), projectID, req.Title, req.Description, actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": task,
	})
}

func (h *TaskHandler) GetTask(c fiber.Ctx) error {
	taskID, err := bson.ObjectIDFromHex(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	task, err := h.taskService.GetTask(c.Context(), taskID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	return c.JSON(fiber.Map{
		"data": task,
	})
}

func (h *TaskHandler) ListTasks(c fiber.Ctx) error {
	projectID, err := bson.ObjectIDFromHex(c.Params("projectId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project ID format",
		})
	}

	tasks, err := h.taskService.ListByProject(c.Context(), projectID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": tasks,
	})
}

func (h *TaskHandler) UpdateTask(c fiber.Ctx) error {
	taskID, err := bson.ObjectIDFromHex(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	var req taskRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.taskService.UpdateTask(c.Context(), taskID, req.Title, req.Description, models.TaskStatus(req.Status)); err != nil {
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
		"message": "Task updated",
	})
}

type assignRequest struct {
	AssigneeID string `json:"assigneeId"`
}

func (h *TaskHandler) AssignTask(c fiber.Ctx) error {
	assignedBy, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	taskID, err := bson.ObjectIDFromHex(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	var req assignRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	assigneeID, err := bson.ObjectIDFromHex(req.AssigneeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid assignee ID format",
		})
	}

	grant, err := h.taskService.AssignTask(c.Context(), taskID, assigneeID, assignedBy)
	if err != nil {
		if service.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if service.IsDuplicate(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": grant,
	})
}

func (h *TaskHandler) CompleteTask(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	taskID, err := bson.ObjectIDFromHex(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	if err := h.taskService.CompleteTask(c.Context(), taskID, actorID); err != nil {
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
		"message": "Task completed",
	})
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *TaskHandler) AddComment(c fiber.Ctx) error {
	actorID, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	taskID, err := bson.ObjectIDFromHex(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	var req commentRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Comment body is required",
		})
	}

	comment, err := h.taskService.AddComment(c.Context(), taskID, actorID, req.Body)
	if err != nil {
		if service.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": comment,
	})
}

func (h *TaskHandler) ListComments(c fiber.Ctx) error {
	taskID, err := bson.ObjectIDFromHex(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	comments, err := h.taskService.ListComments(c.Context(), taskID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": comments,
	})
}
