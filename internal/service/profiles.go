// profiles.go — профили пользователей: первый вход, администрирование,
// статистика.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// ProfileService — профили пользователей.
type ProfileService struct {
	repo   repository.ProfileRepository
	tx     TxRunner
	cache  *cache.QueryCache
	logger *slog.Logger
}

// NewProfileService создаёт сервис профилей.
func NewProfileService(repo repository.ProfileRepository, tx TxRunner, c *cache.QueryCache, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		repo:   repo,
		tx:     tx,
		cache:  c,
		logger: logger.With(slog.String("component", "profile_service")),
	}
}

// Identity — данные пользователя из токена IdP.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Resolve возвращает профиль пользователя токена, создавая его при первом
// входе. Новый профиль всегда получает роль ENGINEER: claims токена
// задаёт сам пользователь, роль меняет только администратор.
func (s *ProfileService) Resolve(ctx context.Context, id Identity) (*model.Profile, error) {
	key := cache.Key(cache.PrefixProfiles, id.Subject)
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (*model.Profile, error) {
		p, err := s.repo.GetByID(ctx, id.Subject)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		email := strings.TrimSpace(id.Email)
		if email == "" {
			email = id.Subject
		}
		p, err = s.repo.Ensure(ctx, &model.Profile{
			ID:    id.Subject,
			Email: email,
			Name:  trimPtr(&id.Name),
			Role:  rbac.RoleEngineer,
		})
		if err != nil {
			return nil, translate(err, "профиль")
		}
		s.logger.Info("Создан профиль при первом входе",
			slog.String("id", p.ID),
			slog.String("email", p.Email),
			slog.String("role", p.Role),
		)
		return p, nil
	})
}

// List возвращает всех пользователей.
func (s *ProfileService) List(ctx context.Context) ([]*model.Profile, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixProfiles, "all"), s.repo.List)
}

// Get возвращает профиль.
func (s *ProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "пользователь")
	}
	return p, nil
}

// Update меняет имя, роль и проекты пользователя.
func (s *ProfileService) Update(ctx context.Context, id string, patch model.ProfilePatch) (*model.Profile, error) {
	if patch.Role != nil {
		role := rbac.NormalizeRole(*patch.Role)
		if role == "" {
			return nil, fmt.Errorf("%w: недопустимая роль %q, допустимые: %s",
				ErrValidation, *patch.Role, strings.Join(rbac.Roles, ", "))
		}
		patch.Role = &role
	}
	patch.Name = trimPtr(patch.Name)

	var p *model.Profile
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, translate(err, "пользователь")
	}
	s.cache.InvalidateTables("profiles")
	s.logger.Info("Профиль обновлён",
		slog.String("id", id),
		slog.String("role", p.Role),
		slog.Int("projects", len(p.ProjectIDs)),
	)
	return p, nil
}

// Delete удаляет профиль.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateDelete(err, "пользователь")
	}
	s.cache.InvalidateTables("profiles")
	s.logger.Info("Профиль удалён", slog.String("id", id))
	return nil
}

// Stats возвращает количество записей, за которые отвечает пользователь.
func (s *ProfileService) Stats(ctx context.Context, id string) (*model.UserStats, error) {
	st, err := s.repo.Stats(ctx, id)
	if err != nil {
		return nil, err
	}
	return st, nil
}
