// parties.go — физлица, подрядчики и бригады.
// Дубликаты проверяются заранее для понятного сообщения; источник
// истины — уникальные ограничения БД (23505 даёт ту же ошибку).
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

// PartyService — справочники участников: физлица, подрядчики, бригады.
type PartyService struct {
	persons     repository.PersonRepository
	contractors repository.ContractorRepository
	brigades    repository.BrigadeRepository
	cache       *cache.QueryCache
	logger      *slog.Logger
}

// NewPartyService создаёт сервис справочников участников.
func NewPartyService(
	persons repository.PersonRepository,
	contractors repository.ContractorRepository,
	brigades repository.BrigadeRepository,
	c *cache.QueryCache,
	logger *slog.Logger,
) *PartyService {
	return &PartyService{
		persons:     persons,
		contractors: contractors,
		brigades:    brigades,
		cache:       c,
		logger:      logger.With(slog.String("component", "party_service")),
	}
}

// --- Физлица ---

// ListPersons возвращает физлиц.
func (s *PartyService) ListPersons(ctx context.Context) ([]*model.Person, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixPersons, "all"), s.persons.List)
}

// GetPerson возвращает физлицо.
func (s *PartyService) GetPerson(ctx context.Context, id int64) (*model.Person, error) {
	p, err := s.persons.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "физлицо")
	}
	return p, nil
}

// CreatePerson создаёт физлицо, если паспорт не занят.
func (s *PartyService) CreatePerson(ctx context.Context, in *model.Person) (*model.Person, error) {
	if err := requireText(in.FullName, "full_name"); err != nil {
		return nil, err
	}
	p := &model.Person{
		FullName:       strings.TrimSpace(in.FullName),
		PassportSeries: trimPtr(in.PassportSeries),
		PassportNumber: trimPtr(in.PassportNumber),
		Phone:          trimPtr(in.Phone),
		Email:          trimPtr(in.Email),
		Description:    trimPtr(in.Description),
	}
	if err := s.checkPassport(ctx, p.PassportSeries, p.PassportNumber, 0); err != nil {
		return nil, err
	}
	if err := s.persons.Create(ctx, p); err != nil {
		return nil, translate(err, "физлицо")
	}
	s.cache.InvalidateTables("persons")
	s.logger.Info("Физлицо создано", slog.Int64("id", p.ID))
	return p, nil
}

// UpdatePerson меняет поля физлица с проверкой паспорта на дубликат.
func (s *PartyService) UpdatePerson(ctx context.Context, id int64, patch model.PersonPatch) (*model.Person, error) {
	if err := requireTextPtr(patch.FullName, "full_name"); err != nil {
		return nil, err
	}
	current, err := s.persons.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "физлицо")
	}
	series, number := current.PassportSeries, current.PassportNumber
	if patch.PassportSeries != nil {
		series = trimPtr(patch.PassportSeries)
	}
	if patch.PassportNumber != nil {
		number = trimPtr(patch.PassportNumber)
	}
	if err := s.checkPassport(ctx, series, number, id); err != nil {
		return nil, err
	}

	p, err := s.persons.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "физлицо")
	}
	s.cache.InvalidateTables("persons")
	return p, nil
}

// DeletePerson удаляет физлицо.
func (s *PartyService) DeletePerson(ctx context.Context, id int64) error {
	if err := s.persons.Delete(ctx, id); err != nil {
		return translateDelete(err, "физлицо")
	}
	s.cache.InvalidateTables("persons")
	s.logger.Info("Физлицо удалено", slog.Int64("id", id))
	return nil
}

func (s *PartyService) checkPassport(ctx context.Context, series, number *string, excludeID int64) error {
	if series == nil || number == nil {
		return nil
	}
	dup, err := s.persons.FindByPassport(ctx, *series, *number, excludeID)
	if err != nil {
		return err
	}
	if dup != nil {
		return fmt.Errorf("%w: физлицо с паспортом %s %s уже существует (%s)", ErrConflict, *series, *number, dup.FullName)
	}
	return nil
}

// --- Подрядчики ---

// ListContractors возвращает подрядчиков.
func (s *PartyService) ListContractors(ctx context.Context) ([]*model.Contractor, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixContractors, "all"), s.contractors.List)
}

// GetContractor возвращает подрядчика.
func (s *PartyService) GetContractor(ctx context.Context, id int64) (*model.Contractor, error) {
	c, err := s.contractors.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "подрядчик")
	}
	return c, nil
}

// CreateContractor создаёт подрядчика, если пара наименование+ИНН свободна.
func (s *PartyService) CreateContractor(ctx context.Context, in *model.Contractor) (*model.Contractor, error) {
	if err := requireText(in.Name, "name"); err != nil {
		return nil, err
	}
	if err := requireText(in.INN, "inn"); err != nil {
		return nil, err
	}
	c := &model.Contractor{
		Name:        strings.TrimSpace(in.Name),
		INN:         strings.TrimSpace(in.INN),
		Phone:       trimPtr(in.Phone),
		Email:       trimPtr(in.Email),
		Description: trimPtr(in.Description),
	}
	if err := s.checkContractor(ctx, c.Name, c.INN, 0); err != nil {
		return nil, err
	}
	if err := s.contractors.Create(ctx, c); err != nil {
		return nil, translate(err, "подрядчик")
	}
	s.cache.InvalidateTables("contractors")
	s.logger.Info("Подрядчик создан", slog.Int64("id", c.ID), slog.String("inn", c.INN))
	return c, nil
}

// UpdateContractor меняет поля подрядчика с проверкой на дубликат.
func (s *PartyService) UpdateContractor(ctx context.Context, id int64, patch model.ContractorPatch) (*model.Contractor, error) {
	if err := requireTextPtr(patch.Name, "name"); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.INN, "inn"); err != nil {
		return nil, err
	}
	current, err := s.contractors.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "подрядчик")
	}
	name, inn := current.Name, current.INN
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
	}
	if patch.INN != nil {
		inn = strings.TrimSpace(*patch.INN)
	}
	if err := s.checkContractor(ctx, name, inn, id); err != nil {
		return nil, err
	}

	c, err := s.contractors.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "подрядчик")
	}
	s.cache.InvalidateTables("contractors")
	return c, nil
}

// DeleteContractor удаляет подрядчика.
func (s *PartyService) DeleteContractor(ctx context.Context, id int64) error {
	if err := s.contractors.Delete(ctx, id); err != nil {
		return translateDelete(err, "подрядчик")
	}
	s.cache.InvalidateTables("contractors")
	s.logger.Info("Подрядчик удалён", slog.Int64("id", id))
	return nil
}

func (s *PartyService) checkContractor(ctx context.Context, name, inn string, excludeID int64) error {
	dup, err := s.contractors.FindByNameINN(ctx, name, inn, excludeID)
	if err != nil {
		return err
	}
	if dup != nil {
		return fmt.Errorf("%w: подрядчик %s с ИНН %s уже существует", ErrConflict, name, inn)
	}
	return nil
}

// --- Бригады ---

// ListBrigades возвращает бригады.
func (s *PartyService) ListBrigades(ctx context.Context) ([]*model.Brigade, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixBrigades, "all"), s.brigades.List)
}

// CreateBrigade создаёт бригаду.
func (s *PartyService) CreateBrigade(ctx context.Context, name string) (*model.Brigade, error) {
	if err := requireText(name, "name"); err != nil {
		return nil, err
	}
	b := &model.Brigade{Name: strings.TrimSpace(name)}
	if err := s.brigades.Create(ctx, b); err != nil {
		return nil, translate(err, "бригада")
	}
	s.cache.InvalidateTables("brigades")
	return b, nil
}

// RenameBrigade переименовывает бригаду.
func (s *PartyService) RenameBrigade(ctx context.Context, id int64, name string) error {
	if err := requireText(name, "name"); err != nil {
		return err
	}
	if err := s.brigades.Rename(ctx, id, strings.TrimSpace(name)); err != nil {
		return translate(err, "бригада")
	}
	s.cache.InvalidateTables("brigades")
	return nil
}

// DeleteBrigade удаляет бригаду.
func (s *PartyService) DeleteBrigade(ctx context.Context, id int64) error {
	if err := s.brigades.Delete(ctx, id); err != nil {
		return translateDelete(err, "бригада")
	}
	s.cache.InvalidateTables("brigades")
	return nil
}
