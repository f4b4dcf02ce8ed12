// claims.go — досудебные претензии.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/filters"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/naming"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// ClaimService — претензии.
type ClaimService struct {
	repo        repository.ClaimRepository
	attachments *AttachmentService
	tx          TxRunner
	cache       *cache.QueryCache
	logger      *slog.Logger
}

// NewClaimService создаёт сервис претензий.
func NewClaimService(
	repo repository.ClaimRepository,
	attachments *AttachmentService,
	tx TxRunner,
	c *cache.QueryCache,
	logger *slog.Logger,
) *ClaimService {
	return &ClaimService{
		repo:        repo,
		attachments: attachments,
		tx:          tx,
		cache:       c,
		logger:      logger.With(slog.String("component", "claim_service")),
	}
}

// ClaimView — строка реестра претензий для отображения.
type ClaimView struct {
	*model.Claim
	ProjectName    string `json:"project_name"`
	StatusName     string `json:"status_name"`
	StatusColor    string `json:"status_color,omitempty"`
	StatusIsClosed bool   `json:"status_is_closed"`
	EngineerName   string `json:"engineer_name"`
	UnitNames      string `json:"unit_names"`
}

func claimView(r *model.ClaimRow) *ClaimView {
	v := &ClaimView{
		Claim:          &r.Claim,
		ProjectName:    orDash(r.ProjectName),
		StatusName:     orDash(r.StatusName),
		StatusIsClosed: r.StatusIsClosed,
		EngineerName:   orDash(r.EngineerName),
		UnitNames:      joinOrDash(r.UnitNames),
	}
	if r.StatusColor != nil {
		v.StatusColor = *r.StatusColor
	}
	return v
}

// ListWithRelations возвращает реестр претензий проектов.
func (s *ClaimService) ListWithRelations(ctx context.Context, scope Scope, projectIDs []int64) ([]*model.ClaimRow, error) {
	ids := scope.Narrow(projectIDs)
	rows, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixClaims, cache.ProjectsKey(ids)),
		func(ctx context.Context) ([]*model.ClaimRow, error) {
			return s.repo.ListWithRelations(ctx, ids)
		})
	if err != nil {
		s.logger.Error("Ошибка получения реестра претензий", slog.String("error", err.Error()))
		return nil, err
	}
	return rows, nil
}

// Register возвращает отфильтрованный реестр и варианты фильтров.
func (s *ClaimService) Register(ctx context.Context, scope Scope, f filters.ClaimFilters) ([]*ClaimView, map[filters.Field][]filters.Option, error) {
	rows, err := s.ListWithRelations(ctx, scope, nil)
	if err != nil {
		return nil, nil, err
	}
	matched := filters.ApplyClaims(rows, f)
	views := make([]*ClaimView, len(matched))
	for i, r := range matched {
		views[i] = claimView(r)
	}
	return views, filters.ClaimOptions(rows, f), nil
}

// Get возвращает претензию.
func (s *ClaimService) Get(ctx context.Context, scope Scope, id int64) (*model.Claim, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "претензия")
	}
	if err := checkScope(scope, c.ProjectID, "претензия"); err != nil {
		return nil, err
	}
	return c, nil
}

// Create создаёт претензию со связями с объектами и дефектами.
func (s *ClaimService) Create(ctx context.Context, scope Scope, in *model.Claim, userID string) (*model.Claim, error) {
	if err := checkScope(scope, in.ProjectID, "проект"); err != nil {
		return nil, err
	}
	if err := requireText(in.Number, "number"); err != nil {
		return nil, err
	}
	c := &model.Claim{
		ProjectID:             in.ProjectID,
		StatusID:              in.StatusID,
		Number:                strings.TrimSpace(in.Number),
		ClaimDate:             in.ClaimDate,
		ReceivedAt:            in.ReceivedAt,
		ResolveUntil:          in.ResolveUntil,
		ResponsibleEngineerID: in.ResponsibleEngineerID,
		Description:           trimPtr(in.Description),
		UnitIDs:               in.UnitIDs,
		DefectIDs:             in.DefectIDs,
		CreatedBy:             &userID,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		return nil, translate(err, "претензия")
	}
	s.cache.InvalidateTables("claims")
	s.logger.Info("Претензия создана",
		slog.Int64("id", c.ID),
		slog.String("number", c.Number),
		slog.Int("units", len(c.UnitIDs)),
	)
	return c, nil
}

// Update меняет поля и связи претензии в одной транзакции.
func (s *ClaimService) Update(ctx context.Context, scope Scope, id int64, patch model.ClaimPatch) (*model.Claim, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Number, "number"); err != nil {
		return nil, err
	}
	var c *model.Claim
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, translate(err, "претензия")
	}
	s.cache.InvalidateTables("claims")
	return c, nil
}

// Delete удаляет претензию вместе с вложениями.
func (s *ClaimService) Delete(ctx context.Context, scope Scope, id int64) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	err := s.attachments.DeleteWithParent(ctx, model.ParentClaim, id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return translateDelete(err, "претензия")
	}
	s.cache.InvalidateTables("claims")
	s.logger.Info("Претензия удалена", slog.Int64("id", id))
	return nil
}

// Upload прикладывает файлы к претензии.
func (s *ClaimService) Upload(ctx context.Context, scope Scope, id int64, files []model.UploadFile, userID string) ([]*model.Attachment, error) {
	c, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.attachments.Upload(ctx, model.ParentClaim, id, naming.ClaimPrefix(c.ProjectID), files, userID)
}
