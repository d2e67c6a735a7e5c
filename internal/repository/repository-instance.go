package repository

import (
	"collab_service/internal/config"
	"collab_service/internal/database/mongo"
)

type Repositories struct {
	GrantRepository   *GrantRepository
	AuditRepository   *AuditRepository
	TeamRepository    *TeamRepository
	ProjectRepository *ProjectRepository
	TaskRepository    *TaskRepository
	DecisionCache     *DecisionCacheRepository
}

var Repositories_instance = &Repositories{
	GrantRepository:   NewGrantRepository(mongo.Mongo_Database),
	AuditRepository:   NewAuditRepository(mongo.Mongo_Database),
	TeamRepository:    NewTeamRepository(mongo.Mongo_Database),
	ProjectRepository: NewProjectRepository(mongo.Mongo_Database),
	TaskRepository:    NewTaskRepository(mongo.Mongo_Database),
	DecisionCache:     NewDecisionCacheRepository(config.ServiceConfig.Permission.CacheTTL),
}
