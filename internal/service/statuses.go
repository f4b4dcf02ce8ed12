// statuses.go — справочники статусов по типам сущностей.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// StatusService — справочники статусов.
type StatusService struct {
	repo   repository.StatusRepository
	cache  *cache.QueryCache
	logger *slog.Logger
}

// NewStatusService создаёт сервис статусов.
func NewStatusService(repo repository.StatusRepository, c *cache.QueryCache, logger *slog.Logger) *StatusService {
	return &StatusService{
		repo:   repo,
		cache:  c,
		logger: logger.With(slog.String("component", "status_service")),
	}
}

func validEntity(entity model.StatusEntity) error {
	if !entity.IsValid() {
		return fmt.Errorf("%w: неизвестный тип статусов %q", ErrValidation, entity)
	}
	return nil
}

// List возвращает статусы сущности в порядке сортировки.
func (s *StatusService) List(ctx context.Context, entity model.StatusEntity) ([]*model.Status, error) {
	if err := validEntity(entity); err != nil {
		return nil, err
	}
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixStatuses, entity),
		func(ctx context.Context) ([]*model.Status, error) {
			return s.repo.List(ctx, entity)
		})
}

// Create добавляет статус.
func (s *StatusService) Create(ctx context.Context, in *model.Status) (*model.Status, error) {
	if err := validEntity(in.Entity); err != nil {
		return nil, err
	}
	if err := requireText(in.Name, "name"); err != nil {
		return nil, err
	}
	st := &model.Status{
		Entity:    in.Entity,
		Name:      strings.TrimSpace(in.Name),
		Color:     trimPtr(in.Color),
		IsClosed:  in.IsClosed,
		SortOrder: in.SortOrder,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, translate(err, "статус")
	}
	s.cache.InvalidateTables("statuses")
	s.logger.Info("Статус создан",
		slog.String("entity", string(st.Entity)),
		slog.String("name", st.Name),
	)
	return st, nil
}

// Update меняет статус. entity должна совпадать со статусом.
func (s *StatusService) Update(ctx context.Context, entity model.StatusEntity, id int64, patch model.StatusPatch) (*model.Status, error) {
	if err := s.belongs(ctx, entity, id); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Name, "name"); err != nil {
		return nil, err
	}
	st, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "статус")
	}
	s.cache.InvalidateTables("statuses")
	return st, nil
}

// Delete удаляет статус.
func (s *StatusService) Delete(ctx context.Context, entity model.StatusEntity, id int64) error {
	if err := s.belongs(ctx, entity, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateDelete(err, "статус")
	}
	s.cache.InvalidateTables("statuses")
	return nil
}

func (s *StatusService) belongs(ctx context.Context, entity model.StatusEntity, id int64) error {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return translate(err, "статус")
	}
	if st.Entity != entity {
		return fmt.Errorf("%w: статус", ErrNotFound)
	}
	return nil
}
