// permissions.go — права ролей. Роль без записи в БД получает права
// по умолчанию (встроенные или из GH_PERMISSIONS_FILE).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// PermissionService — права ролей.
type PermissionService struct {
	repo     repository.RolePermissionRepository
	defaults map[string]model.RolePermission
	cache    *cache.QueryCache
	logger   *slog.Logger
}

// NewPermissionService создаёт сервис прав.
// defaults — права по умолчанию (rbac.LoadDefaults).
func NewPermissionService(
	repo repository.RolePermissionRepository,
	defaults map[string]model.RolePermission,
	c *cache.QueryCache,
	logger *slog.Logger,
) *PermissionService {
	return &PermissionService{
		repo:     repo,
		defaults: defaults,
		cache:    c,
		logger:   logger.With(slog.String("component", "permission_service")),
	}
}

// Get возвращает права роли.
func (s *PermissionService) Get(ctx context.Context, role string) (*model.RolePermission, error) {
	normalized := rbac.NormalizeRole(role)
	if normalized == "" {
		return nil, fmt.Errorf("%w: недопустимая роль %q", ErrValidation, role)
	}
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixPermissions, normalized),
		func(ctx context.Context) (*model.RolePermission, error) {
			p, err := s.repo.Get(ctx, normalized)
			if errors.Is(err, repository.ErrNotFound) {
				return s.fallback(normalized), nil
			}
			return p, err
		})
}

func (s *PermissionService) fallback(role string) *model.RolePermission {
	def, ok := s.defaults[role]
	if !ok {
		return &model.RolePermission{Role: role}
	}
	return &model.RolePermission{
		Role:                role,
		Pages:               slices.Clone(def.Pages),
		EditTables:          slices.Clone(def.EditTables),
		DeleteTables:        slices.Clone(def.DeleteTables),
		OnlyAssignedProject: def.OnlyAssignedProject,
	}
}

// List возвращает права всех ролей; отсутствующие в БД — по умолчанию.
func (s *PermissionService) List(ctx context.Context) ([]*model.RolePermission, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	byRole := make(map[string]*model.RolePermission, len(stored))
	for _, p := range stored {
		byRole[p.Role] = p
	}
	result := make([]*model.RolePermission, 0, len(rbac.Roles))
	for _, role := range rbac.Roles {
		if p, ok := byRole[role]; ok {
			result = append(result, p)
			continue
		}
		result = append(result, s.fallback(role))
	}
	return result, nil
}

// Update сохраняет права роли.
func (s *PermissionService) Update(ctx context.Context, p *model.RolePermission) (*model.RolePermission, error) {
	role := rbac.NormalizeRole(p.Role)
	if role == "" {
		return nil, fmt.Errorf("%w: недопустимая роль %q", ErrValidation, p.Role)
	}
	for _, t := range append(slices.Clone(p.EditTables), p.DeleteTables...) {
		if !rbac.IsValidTable(t) {
			return nil, fmt.Errorf("%w: неизвестная таблица %q", ErrValidation, t)
		}
	}
	for _, page := range p.Pages {
		if !slices.Contains(rbac.Pages, page) {
			return nil, fmt.Errorf("%w: неизвестная страница %q", ErrValidation, page)
		}
	}

	updated := &model.RolePermission{
		Role:                role,
		Pages:               p.Pages,
		EditTables:          p.EditTables,
		DeleteTables:        p.DeleteTables,
		OnlyAssignedProject: p.OnlyAssignedProject,
	}
	if err := s.repo.Upsert(ctx, updated); err != nil {
		return nil, err
	}
	s.cache.InvalidateTables("role_permissions")
	s.logger.Info("Права роли обновлены",
		slog.String("role", role),
		slog.Int("edit_tables", len(updated.EditTables)),
		slog.Int("delete_tables", len(updated.DeleteTables)),
	)
	return updated, nil
}
