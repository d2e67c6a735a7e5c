package service

import (
	"collab_service/internal/models"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type TaskStore interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Task, error)
	FindByProject(ctx context.Context, projectID bson.ObjectID) ([]*models.Task, error)
	Update(ctx context.Context, id bson.ObjectID, title, description string, status models.TaskStatus) error
	Complete(ctx context.Context, id, completedBy bson.ObjectID) error
	AddComment(ctx context.Context, comment *models.TaskComment) (*models.TaskComment, error)
	ListComments(ctx context.Context, taskID bson.ObjectID) ([]*models.TaskComment, error)
}

type TaskService struct {
	taskRepo     TaskStore
	grantService *GrantService
}

func NewTaskService(taskRepo TaskStore, grantService *GrantService) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		grantService: grantService,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, projectID bson.ObjectID, title, description string, createdBy bson.ObjectID) (*models.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	return s.taskRepo.Create(ctx, &models.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		CreatedBy:   createdBy,
	})
}

func (s *TaskService) GetTask(ctx context.Context, id bson.ObjectID) (*models.Task, error) {
	return s.taskRepo.FindByID(ctx, id)
}

func (s *TaskService) ListByProject(ctx context.Context, projectID bson.ObjectID) ([]*models.Task, error) {
	return s.taskRepo.FindByProject(ctx, projectID)
}

func (s *TaskService) UpdateTask(ctx context.Context, id bson.ObjectID, title, description string, status models.TaskStatus) error {
	return s.taskRepo.Update(ctx, id, title, description, status)
}

// AssignTask grants the assignee role on the task. The grant service
// supersedes any existing assignee, so one call is all it takes to
// hand a task over. The UI is expected to confirm intent before
// replacing an existing assignee.
func (s *TaskService) AssignTask(ctx context.Context, taskID, assigneeID, assignedBy bson.ObjectID) (*models.Grant, error) {
	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return nil, err
	}

	grant, err := s.grantService.Grant(ctx, GrantInput{
		ResourceType: models.ResourceTask,
		ResourceID:   taskID,
		ActorID:      assigneeID,
		Role:         string(models.TaskAssignee),
		GrantedBy:    assignedBy,
		Reason:       "task assignment",
	})
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, taskID, "", "", models.TaskStatusInProgress); err != nil {
		return nil, fmt.Errorf("assignee granted but task status update failed: %w", err)
	}

	return grant, nil
}

func (s *TaskService) CompleteTask(ctx context.Context, taskID, completedBy bson.ObjectID) error {
	return s.taskRepo.Complete(ctx, taskID, completedBy)
}

func (s *TaskService) AddComment(ctx context.Context, taskID, authorID bson.ObjectID, body string) (*models.TaskComment, error) {
	if body == "" {
		return nil, fmt.Errorf("comment body is required")
	}

	return s.taskRepo.AddComment(ctx, &models.TaskComment{
		TaskID:   taskID,
		AuthorID: authorID,
		Body:     body,
	})
}

func (s *TaskService) ListComments(ctx context.Context, taskID bson.ObjectID) ([]*models.TaskComment, error) {
	return s.taskRepo.ListComments(ctx, taskID)
}
