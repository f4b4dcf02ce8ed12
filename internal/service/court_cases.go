// court_cases.go — судебные дела.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/filters"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/naming"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// CourtCaseService — судебные дела.
type CourtCaseService struct {
	repo        repository.CourtCaseRepository
	attachments *AttachmentService
	tx          TxRunner
	cache       *cache.QueryCache
	logger      *slog.Logger
}

// NewCourtCaseService создаёт сервис судебных дел.
func NewCourtCaseService(
	repo repository.CourtCaseRepository,
	attachments *AttachmentService,
	tx TxRunner,
	c *cache.QueryCache,
	logger *slog.Logger,
) *CourtCaseService {
	return &CourtCaseService{
		repo:        repo,
		attachments: attachments,
		tx:          tx,
		cache:       c,
		logger:      logger.With(slog.String("component", "court_case_service")),
	}
}

// CourtCaseView — строка реестра дел для отображения.
type CourtCaseView struct {
	*model.CourtCase
	ProjectName    string  `json:"project_name"`
	StatusName     string  `json:"status_name"`
	StatusColor    string  `json:"status_color,omitempty"`
	StatusIsClosed bool    `json:"status_is_closed"`
	LawyerName     string  `json:"lawyer_name"`
	EngineerName   string  `json:"engineer_name"`
	UnitNames      string  `json:"unit_names"`
	Plaintiffs     string  `json:"plaintiffs"`
	Defendants     string  `json:"defendants"`
	TotalClaimed   float64 `json:"total_claimed"`
}

func courtCaseView(r *model.CourtCaseRow) *CourtCaseView {
	v := &CourtCaseView{
		CourtCase:      &r.CourtCase,
		ProjectName:    orDash(r.ProjectName),
		StatusName:     orDash(r.StatusName),
		StatusIsClosed: r.StatusIsClosed,
		LawyerName:     orDash(r.LawyerName),
		EngineerName:   orDash(r.EngineerName),
		UnitNames:      joinOrDash(r.UnitNames),
		Plaintiffs:     joinOrDash(r.PartyNames(model.PartyPlaintiff)),
		Defendants:     joinOrDash(r.PartyNames(model.PartyDefendant)),
		TotalClaimed:   r.TotalClaimed,
	}
	if r.StatusColor != nil {
		v.StatusColor = *r.StatusColor
	}
	return v
}

// ListWithRelations возвращает реестр дел проектов.
func (s *CourtCaseService) ListWithRelations(ctx context.Context, scope Scope, projectIDs []int64) ([]*model.CourtCaseRow, error) {
	ids := scope.Narrow(projectIDs)
	rows, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixCourtCases, cache.ProjectsKey(ids)),
		func(ctx context.Context) ([]*model.CourtCaseRow, error) {
			return s.repo.ListWithRelations(ctx, ids)
		})
	if err != nil {
		s.logger.Error("Ошибка получения реестра судебных дел", slog.String("error", err.Error()))
		return nil, err
	}
	return rows, nil
}

// Register возвращает дела, прошедшие фильтры, в виде строк для отображения.
func (s *CourtCaseService) Register(ctx context.Context, scope Scope, f filters.CourtCaseFilters) ([]*CourtCaseView, error) {
	rows, err := s.ListWithRelations(ctx, scope, nil)
	if err != nil {
		return nil, err
	}
	matched := filters.ApplyCourtCases(rows, f)
	views := make([]*CourtCaseView, len(matched))
	for i, r := range matched {
		views[i] = courtCaseView(r)
	}
	return views, nil
}

// FilterOptions возвращает варианты значений каждого фильтра: значения
// дел, удовлетворяющих всем фильтрам, кроме самого поля.
func (s *CourtCaseService) FilterOptions(ctx context.Context, scope Scope, projectIDs []int64, f filters.CourtCaseFilters) (map[filters.Field][]filters.Option, error) {
	rows, err := s.ListWithRelations(ctx, scope, projectIDs)
	if err != nil {
		return nil, err
	}
	return filters.CourtCaseOptions(rows, f), nil
}

// Get возвращает дело.
func (s *CourtCaseService) Get(ctx context.Context, scope Scope, id int64) (*model.CourtCase, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "судебное дело")
	}
	if err := checkScope(scope, c.ProjectID, "судебное дело"); err != nil {
		return nil, err
	}
	return c, nil
}

func validateParties(parties []model.CourtCaseParty) error {
	for i, p := range parties {
		if p.Role != model.PartyPlaintiff && p.Role != model.PartyDefendant {
			return fmt.Errorf("%w: сторона %d: неизвестная роль %q", ErrValidation, i+1, p.Role)
		}
		if (p.PersonID == nil) == (p.ContractorID == nil) {
			return fmt.Errorf("%w: сторона %d: укажите физлицо или подрядчика", ErrValidation, i+1)
		}
	}
	return nil
}

func validateLawsuits(claims []model.LawsuitClaim) error {
	for i, c := range claims {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: требование %d: не указано наименование", ErrValidation, i+1)
		}
		for _, amount := range []*float64{c.ClaimedAmount, c.ConfirmedAmount, c.PaidAmount} {
			if amount != nil && *amount < 0 {
				return fmt.Errorf("%w: требование %d: сумма не может быть отрицательной", ErrValidation, i+1)
			}
		}
	}
	return nil
}

// Create создаёт дело со связями, сторонами и требованиями.
func (s *CourtCaseService) Create(ctx context.Context, scope Scope, in *model.CourtCase, userID string) (*model.CourtCase, error) {
	if err := checkScope(scope, in.ProjectID, "проект"); err != nil {
		return nil, err
	}
	if err := requireText(in.Number, "number"); err != nil {
		return nil, err
	}
	if err := validateParties(in.Parties); err != nil {
		return nil, err
	}
	if err := validateLawsuits(in.LawsuitClaims); err != nil {
		return nil, err
	}
	c := &model.CourtCase{
		ProjectID:             in.ProjectID,
		Number:                strings.TrimSpace(in.Number),
		CaseDate:              in.CaseDate,
		StatusID:              in.StatusID,
		LawyerID:              in.LawyerID,
		ResponsibleEngineerID: in.ResponsibleEngineerID,
		Description:           trimPtr(in.Description),
		FixStartDate:          in.FixStartDate,
		FixEndDate:            in.FixEndDate,
		UnitIDs:               in.UnitIDs,
		DefectIDs:             in.DefectIDs,
		ClaimIDs:              in.ClaimIDs,
		Parties:               in.Parties,
		LawsuitClaims:         in.LawsuitClaims,
		CreatedBy:             &userID,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		return nil, translate(err, "судебное дело")
	}
	s.cache.InvalidateTables("court_cases")
	s.logger.Info("Судебное дело создано",
		slog.Int64("id", c.ID),
		slog.String("number", c.Number),
		slog.Int("parties", len(c.Parties)),
	)
	return c, nil
}

// Update меняет поля дела; переданные наборы связей заменяются целиком.
func (s *CourtCaseService) Update(ctx context.Context, scope Scope, id int64, patch model.CourtCasePatch) (*model.CourtCase, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Number, "number"); err != nil {
		return nil, err
	}
	if err := validateParties(patch.Parties); err != nil {
		return nil, err
	}
	if err := validateLawsuits(patch.LawsuitClaims); err != nil {
		return nil, err
	}
	var c *model.CourtCase
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, translate(err, "судебное дело")
	}
	s.cache.InvalidateTables("court_cases")
	return c, nil
}

// Delete удаляет дело вместе с вложениями.
func (s *CourtCaseService) Delete(ctx context.Context, scope Scope, id int64) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	err := s.attachments.DeleteWithParent(ctx, model.ParentCourtCase, id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return translateDelete(err, "судебное дело")
	}
	s.cache.InvalidateTables("court_cases")
	s.logger.Info("Судебное дело удалено", slog.Int64("id", id))
	return nil
}

// Upload прикладывает файлы к делу. Ключ строится по первому объекту дела.
func (s *CourtCaseService) Upload(ctx context.Context, scope Scope, id int64, files []model.UploadFile, userID string) ([]*model.Attachment, error) {
	c, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	var unitID int64
	if len(c.UnitIDs) > 0 {
		unitID = c.UnitIDs[0]
	}
	return s.attachments.Upload(ctx, model.ParentCourtCase, id, naming.CourtCasePrefix(c.ProjectID, unitID), files, userID)
}
