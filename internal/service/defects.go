// defects.go — дефекты и фиксация их устранения.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/filters"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/naming"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// DefectService — дефекты.
type DefectService struct {
	repo        repository.DefectRepository
	attachments *AttachmentService
	cache       *cache.QueryCache
	logger      *slog.Logger
}

// NewDefectService создаёт сервис дефектов.
func NewDefectService(
	repo repository.DefectRepository,
	attachments *AttachmentService,
	c *cache.QueryCache,
	logger *slog.Logger,
) *DefectService {
	return &DefectService{
		repo:        repo,
		attachments: attachments,
		cache:       c,
		logger:      logger.With(slog.String("component", "defect_service")),
	}
}

// DefectView — строка реестра дефектов для отображения.
type DefectView struct {
	*model.Defect
	ProjectName    string `json:"project_name"`
	UnitName       string `json:"unit_name"`
	StatusName     string `json:"status_name"`
	StatusColor    string `json:"status_color,omitempty"`
	StatusIsClosed bool   `json:"status_is_closed"`
	// Executor — бригада или подрядчик
	Executor string `json:"executor"`
	// Days — дней от получения до устранения (или до сегодня)
	Days *int `json:"days,omitempty"`
}

// ListWithRelations возвращает реестр дефектов.
func (s *DefectService) ListWithRelations(ctx context.Context, scope Scope, projectIDs []int64) ([]*model.DefectRow, error) {
	ids := scope.Narrow(projectIDs)
	rows, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixDefects, cache.ProjectsKey(ids)),
		func(ctx context.Context) ([]*model.DefectRow, error) {
			return s.repo.ListWithRelations(ctx, ids)
		})
	if err != nil {
		s.logger.Error("Ошибка получения реестра дефектов", slog.String("error", err.Error()))
		return nil, err
	}
	return rows, nil
}

// Register возвращает отфильтрованный реестр в виде строк для отображения
// и варианты значений фильтров.
func (s *DefectService) Register(ctx context.Context, scope Scope, f filters.DefectFilters) ([]*DefectView, map[filters.Field][]filters.Option, error) {
	rows, err := s.ListWithRelations(ctx, scope, nil)
	if err != nil {
		return nil, nil, err
	}
	matched := filters.ApplyDefects(rows, f)
	views := make([]*DefectView, len(matched))
	now := time.Now()
	for i, r := range matched {
		views[i] = defectView(r, now)
	}
	return views, filters.DefectOptions(rows, f), nil
}

func defectView(r *model.DefectRow, now time.Time) *DefectView {
	v := &DefectView{
		Defect:         &r.Defect,
		ProjectName:    orDash(r.ProjectName),
		UnitName:       orDash(r.UnitName),
		StatusName:     orDash(r.StatusName),
		StatusIsClosed: r.StatusIsClosed,
		Executor:       "—",
	}
	if r.StatusColor != nil {
		v.StatusColor = *r.StatusColor
	}
	switch {
	case r.BrigadeName != nil:
		v.Executor = *r.BrigadeName
	case r.ContractorName != nil:
		v.Executor = *r.ContractorName
	}
	if r.ReceivedAt != nil {
		end := now
		if r.FixedAt != nil {
			end = *r.FixedAt
		}
		days := int(end.Sub(*r.ReceivedAt).Hours() / 24)
		v.Days = &days
	}
	return v
}

// Get возвращает дефект.
func (s *DefectService) Get(ctx context.Context, scope Scope, id int64) (*model.Defect, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "дефект")
	}
	if err := checkScope(scope, d.ProjectID, "дефект"); err != nil {
		return nil, err
	}
	return d, nil
}

// Create создаёт дефект.
func (s *DefectService) Create(ctx context.Context, scope Scope, in *model.Defect) (*model.Defect, error) {
	if err := checkScope(scope, in.ProjectID, "проект"); err != nil {
		return nil, err
	}
	if err := requireText(in.Description, "description"); err != nil {
		return nil, err
	}
	if in.BrigadeID != nil && in.ContractorID != nil {
		return nil, fmt.Errorf("%w: исполнитель — бригада или подрядчик, не оба", ErrValidation)
	}
	d := &model.Defect{
		ProjectID:    in.ProjectID,
		UnitID:       in.UnitID,
		Description:  strings.TrimSpace(in.Description),
		StatusID:     in.StatusID,
		ClaimID:      in.ClaimID,
		CourtCaseID:  in.CourtCaseID,
		BrigadeID:    in.BrigadeID,
		ContractorID: in.ContractorID,
		IsWarranty:   in.IsWarranty,
		ReceivedAt:   in.ReceivedAt,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, translate(err, "дефект")
	}
	s.cache.InvalidateTables("defects")
	s.logger.Info("Дефект создан", slog.Int64("id", d.ID), slog.Int64("project_id", d.ProjectID))
	return d, nil
}

// Update меняет поля дефекта. Назначение бригады снимает подрядчика
// и наоборот.
func (s *DefectService) Update(ctx context.Context, scope Scope, id int64, patch model.DefectPatch) (*model.Defect, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Description, "description"); err != nil {
		return nil, err
	}
	if patch.BrigadeID != nil && patch.ContractorID != nil {
		return nil, fmt.Errorf("%w: исполнитель — бригада или подрядчик, не оба", ErrValidation)
	}
	d, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "дефект")
	}
	s.cache.InvalidateTables("defects")
	return d, nil
}

// Delete удаляет дефект вместе с вложениями.
func (s *DefectService) Delete(ctx context.Context, scope Scope, id int64) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	err := s.attachments.DeleteWithParent(ctx, model.ParentDefect, id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return translateDelete(err, "дефект")
	}
	s.cache.InvalidateTables("defects")
	return nil
}

// Upload прикладывает файлы к дефекту.
func (s *DefectService) Upload(ctx context.Context, scope Scope, id int64, files []model.UploadFile, userID string) ([]*model.Attachment, error) {
	d, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.attachments.Upload(ctx, model.ParentDefect, id, naming.DefectPrefix(d.ProjectID), files, userID)
}

// FixInput — данные об устранении дефекта.
type FixInput struct {
	FixedAt      time.Time
	BrigadeID    *int64
	ContractorID *int64
	StatusID     *int64
	Files        []model.UploadFile
}

// Fix фиксирует устранение: фото загружаются параллельно, затем
// записываются дата, исполнитель и статус.
func (s *DefectService) Fix(ctx context.Context, scope Scope, id int64, in FixInput, userID string) (*model.Defect, error) {
	d, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if in.FixedAt.IsZero() {
		return nil, fmt.Errorf("%w: поле fixed_at обязательно", ErrValidation)
	}
	if in.BrigadeID != nil && in.ContractorID != nil {
		return nil, fmt.Errorf("%w: исполнитель — бригада или подрядчик, не оба", ErrValidation)
	}
	if d.ReceivedAt != nil && in.FixedAt.Before(*d.ReceivedAt) {
		return nil, fmt.Errorf("%w: дата устранения раньше даты получения", ErrValidation)
	}

	if _, err := s.attachments.Upload(ctx, model.ParentDefect, id, naming.DefectPrefix(d.ProjectID), in.Files, userID); err != nil {
		return nil, err
	}

	patch := model.DefectPatch{
		FixedAt:      &in.FixedAt,
		FixedBy:      &userID,
		BrigadeID:    in.BrigadeID,
		ContractorID: in.ContractorID,
		StatusID:     in.StatusID,
	}
	fixed, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "дефект")
	}
	s.cache.InvalidateTables("defects")
	s.logger.Info("Устранение дефекта зафиксировано",
		slog.Int64("id", id),
		slog.Int("photos", len(in.Files)),
		slog.String("fixed_by", userID),
	)
	return fixed, nil
}
