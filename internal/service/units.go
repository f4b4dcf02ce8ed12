// units.go — объекты и шахматка корпуса.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/matrix"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// UnitService — объекты (квартиры, помещения).
type UnitService struct {
	repo   repository.UnitRepository
	cache  *cache.QueryCache
	logger *slog.Logger
}

// NewUnitService создаёт сервис объектов.
func NewUnitService(repo repository.UnitRepository, c *cache.QueryCache, logger *slog.Logger) *UnitService {
	return &UnitService{
		repo:   repo,
		cache:  c,
		logger: logger.With(slog.String("component", "unit_service")),
	}
}

// List возвращает объекты проекта с фильтром по корпусу и секции.
func (s *UnitService) List(ctx context.Context, scope Scope, f model.UnitFilter) ([]*model.Unit, error) {
	if err := checkScope(scope, f.ProjectID, "проект"); err != nil {
		return nil, err
	}
	key := cache.Key(cache.PrefixUnits, f.ProjectID, f.Building, f.Section)
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]*model.Unit, error) {
		return s.repo.List(ctx, f)
	})
}

// Get возвращает объект.
func (s *UnitService) Get(ctx context.Context, scope Scope, id int64) (*model.Unit, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "объект")
	}
	if err := checkScope(scope, u.ProjectID, "объект"); err != nil {
		return nil, err
	}
	return u, nil
}

// Create создаёт объект.
func (s *UnitService) Create(ctx context.Context, scope Scope, u *model.Unit) (*model.Unit, error) {
	if err := checkScope(scope, u.ProjectID, "проект"); err != nil {
		return nil, err
	}
	if err := requireText(u.Name, "name"); err != nil {
		return nil, err
	}
	unit := &model.Unit{
		ProjectID: u.ProjectID,
		Building:  trimPtr(u.Building),
		Section:   trimPtr(u.Section),
		Floor:     trimPtr(u.Floor),
		Name:      strings.TrimSpace(u.Name),
		PersonID:  u.PersonID,
	}
	if err := s.repo.Create(ctx, unit); err != nil {
		return nil, translate(err, "объект")
	}
	s.cache.InvalidateTables("units")
	s.logger.Info("Объект создан",
		slog.Int64("id", unit.ID),
		slog.Int64("project_id", unit.ProjectID),
		slog.String("name", unit.Name),
	)
	return unit, nil
}

// Update меняет поля объекта.
func (s *UnitService) Update(ctx context.Context, scope Scope, id int64, patch model.UnitPatch) (*model.Unit, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Name, "name"); err != nil {
		return nil, err
	}
	u, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "объект")
	}
	s.cache.InvalidateTables("units")
	return u, nil
}

// Delete удаляет объект.
func (s *UnitService) Delete(ctx context.Context, scope Scope, id int64) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateDelete(err, "объект")
	}
	s.cache.InvalidateTables("units")
	s.logger.Info("Объект удалён", slog.Int64("id", id))
	return nil
}

// Buildings возвращает корпуса проекта.
func (s *UnitService) Buildings(ctx context.Context, scope Scope, projectID int64) ([]string, error) {
	if err := checkScope(scope, projectID, "проект"); err != nil {
		return nil, err
	}
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixBuildings, projectID),
		func(ctx context.Context) ([]string, error) {
			return s.repo.Buildings(ctx, projectID)
		})
}

// Matrix строит шахматку корпуса: объекты одним запросом, затем признаки
// по набору их идентификаторов. Результат кэшируется целиком и
// пересчитывается полностью после инвалидации.
func (s *UnitService) Matrix(ctx context.Context, scope Scope, projectID int64, building *string) (*matrix.Matrix, error) {
	if err := checkScope(scope, projectID, "проект"); err != nil {
		return nil, err
	}
	key := cache.Key(cache.PrefixMatrix, projectID, building)
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (*matrix.Matrix, error) {
		units, err := s.repo.List(ctx, model.UnitFilter{ProjectID: projectID, Building: building})
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(units))
		for i, u := range units {
			ids[i] = u.ID
		}
		annotations, err := s.repo.Annotations(ctx, ids)
		if err != nil {
			return nil, err
		}
		return matrix.Build(units, annotations), nil
	})
}

// AddUnit добавляет на этаж объект со следующим номером.
func (s *UnitService) AddUnit(ctx context.Context, scope Scope, projectID int64, building, section *string, floor string) (*model.Unit, error) {
	if err := requireText(floor, "floor"); err != nil {
		return nil, err
	}
	units, err := s.siblings(ctx, scope, projectID, building, section)
	if err != nil {
		return nil, err
	}
	floor = strings.TrimSpace(floor)
	return s.Create(ctx, scope, &model.Unit{
		ProjectID: projectID,
		Building:  building,
		Section:   section,
		Floor:     &floor,
		Name:      matrix.NextUnitName(units, floor),
	})
}

// AddFloor добавляет этаж над последним числовым этажом с первым объектом.
func (s *UnitService) AddFloor(ctx context.Context, scope Scope, projectID int64, building, section *string) (*model.Unit, error) {
	units, err := s.siblings(ctx, scope, projectID, building, section)
	if err != nil {
		return nil, err
	}
	floor := matrix.NextFloor(units)
	return s.Create(ctx, scope, &model.Unit{
		ProjectID: projectID,
		Building:  building,
		Section:   section,
		Floor:     &floor,
		Name:      matrix.NextUnitName(units, floor),
	})
}

// siblings — объекты той же секции корпуса, прочитанные мимо кэша.
func (s *UnitService) siblings(ctx context.Context, scope Scope, projectID int64, building, section *string) ([]*model.Unit, error) {
	if err := checkScope(scope, projectID, "проект"); err != nil {
		return nil, err
	}
	units, err := s.repo.List(ctx, model.UnitFilter{
		ProjectID: projectID,
		Building:  trimPtr(building),
		Section:   trimPtr(section),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения объектов секции: %w", err)
	}
	return units, nil
}
