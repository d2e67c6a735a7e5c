package service

import (
	"collab_service/internal/models"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Project, error)
	FindByTeam(ctx context.Context, teamID bson.ObjectID) ([]*models.Project, error)
	Update(ctx context.Context, id bson.ObjectID, name, description string) error
	Archive(ctx context.Context, id bson.ObjectID) error
}

type ProjectService struct {
	projectRepo ProjectStore
}

func NewProjectService(projectRepo ProjectStore) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
	}
}

func (s *ProjectService) CreateProject(ctx context.Context, teamID bson.ObjectID, name, description string, createdBy bson.ObjectID) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	return s.projectRepo.Create(ctx, &models.Project{
		TeamID:      teamID,
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
	})
}

func (s *ProjectService) GetProject(ctx context.Context, id bson.ObjectID) (*models.Project, error) {
	return s.projectRepo.FindByID(ctx, id)
}

func (s *ProjectService) ListByTeam(ctx context.Context, teamID bson.ObjectID) ([]*models.Project, error) {
	return s.projectRepo.FindByTeam(ctx, teamID)
}

func (s *ProjectService) UpdateProject(ctx context.Context, id bson.ObjectID, name, description string) error {
	return s.projectRepo.Update(ctx, id, name, description)
}

func (s *ProjectService) ArchiveProject(ctx context.Context, id bson.ObjectID) error {
	return s.projectRepo.Archive(ctx, id)
}
