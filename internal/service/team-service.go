package service

import (
	"collab_service/internal/models"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type TeamStore interface {
	Create(ctx context.Context, team *models.Team) (*models.Team, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Team, error)
	FindMemberRole(ctx context.Context, actorID, teamID bson.ObjectID) (*models.TeamMember, error)
	AddMember(ctx context.Context, member *models.TeamMember) (*models.TeamMember, error)
	UpdateMemberRole(ctx context.Context, teamID, actorID bson.ObjectID, role models.TeamRole) error
	RemoveMember(ctx context.Context, teamID, actorID bson.ObjectID) error
	ListMembers(ctx context.Context, teamID bson.ObjectID) ([]*models.TeamMember, error)
}

type TeamService struct {
	teamRepo TeamStore
}

func NewTeamService(teamRepo TeamStore) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
	}
}

// CreateTeam creates the team and enrolls the creator as its owner,
// so the new team is manageable from the first permission check.
func (s *TeamService) CreateTeam(ctx context.Context, name, description string, ownerID bson.ObjectID) (*models.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}

	team, err := s.teamRepo.Create(ctx, &models.Team{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, err
	}

	_, err = s.teamRepo.AddMember(ctx, &models.TeamMember{
		TeamID:  team.ID,
		ActorID: ownerID,
		Role:    models.TeamOwner,
		AddedBy: ownerID,
		AddedAt: time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("team created but owner membership failed: %w", err)
	}

	return team, nil
}

func (s *TeamService) GetTeam(ctx context.Context, id bson.ObjectID) (*models.Team, error) {
	return s.teamRepo.FindByID(ctx, id)
}

func validTeamRole(role models.TeamRole) error {
	for _, r := range models.TeamRoles {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("unknown team role %q", role)
}

func (s *TeamService) AddMember(ctx context.Context, teamID, actorID bson.ObjectID, role models.TeamRole, addedBy bson.ObjectID) (*models.TeamMember, error) {
	if err := validTeamRole(role); err != nil {
		return nil, err
	}

	return s.teamRepo.AddMember(ctx, &models.TeamMember{
		TeamID:  teamID,
		ActorID: actorID,
		Role:    role,
		AddedBy: addedBy,
	})
}

func (s *TeamService) UpdateMemberRole(ctx context.Context, teamID, actorID bson.ObjectID, role models.TeamRole) error {
	if err := validTeamRole(role); err != nil {
		return err
	}
	return s.teamRepo.UpdateMemberRole(ctx, teamID, actorID, role)
}

func (s *TeamService) RemoveMember(ctx context.Context, teamID, actorID bson.ObjectID) error {
	return s.teamRepo.RemoveMember(ctx, teamID, actorID)
}

func (s *TeamService) ListMembers(ctx context.Context, teamID bson.ObjectID) ([]*models.TeamMember, error) {
	return s.teamRepo.ListMembers(ctx, teamID)
}
