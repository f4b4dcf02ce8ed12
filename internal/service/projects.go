// projects.go — проекты (жилые комплексы).
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// ProjectService — проекты.
type ProjectService struct {
	repo   repository.ProjectRepository
	cache  *cache.QueryCache
	logger *slog.Logger
}

// NewProjectService создаёт сервис проектов.
func NewProjectService(repo repository.ProjectRepository, c *cache.QueryCache, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		repo:   repo,
		cache:  c,
		logger: logger.With(slog.String("component", "project_service")),
	}
}

// List возвращает проекты, доступные в scope.
func (s *ProjectService) List(ctx context.Context, scope Scope) ([]*model.Project, error) {
	ids := []int64(scope)
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixProjects, cache.ProjectsKey(ids)),
		func(ctx context.Context) ([]*model.Project, error) {
			return s.repo.List(ctx, ids)
		})
}

// Get возвращает проект.
func (s *ProjectService) Get(ctx context.Context, scope Scope, id int64) (*model.Project, error) {
	if err := checkScope(scope, id, "проект"); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "проект")
	}
	return p, nil
}

// Create создаёт проект.
func (s *ProjectService) Create(ctx context.Context, name string, description *string) (*model.Project, error) {
	if err := requireText(name, "name"); err != nil {
		return nil, err
	}
	p := &model.Project{Name: strings.TrimSpace(name), Description: trimPtr(description)}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, translate(err, "проект")
	}
	s.cache.InvalidateTables("projects")
	s.logger.Info("Проект создан", slog.Int64("id", p.ID), slog.String("name", p.Name))
	return p, nil
}

// Update переименовывает проект и меняет описание.
func (s *ProjectService) Update(ctx context.Context, id int64, name, description *string) (*model.Project, error) {
	if err := requireTextPtr(name, "name"); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "проект")
	}
	if name != nil {
		p.Name = strings.TrimSpace(*name)
	}
	if description != nil {
		p.Description = trimPtr(description)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, translate(err, "проект")
	}
	s.cache.InvalidateTables("projects")
	return p, nil
}

// Delete удаляет проект. Проект с данными удалить нельзя.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateDelete(err, "проект")
	}
	s.cache.InvalidateTables("projects")
	s.logger.Info("Проект удалён", slog.Int64("id", id))
	return nil
}
