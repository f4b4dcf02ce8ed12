// tickets.go — замечания по объектам.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/naming"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// TicketService — замечания.
type TicketService struct {
	repo        repository.TicketRepository
	attachments *AttachmentService
	cache       *cache.QueryCache
	logger      *slog.Logger
}

// NewTicketService создаёт сервис замечаний.
func NewTicketService(
	repo repository.TicketRepository,
	attachments *AttachmentService,
	c *cache.QueryCache,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		repo:        repo,
		attachments: attachments,
		cache:       c,
		logger:      logger.With(slog.String("component", "ticket_service")),
	}
}

// List возвращает замечания в пределах scope.
func (s *TicketService) List(ctx context.Context, scope Scope, f model.TicketFilter) ([]*model.Ticket, error) {
	f.ProjectIDs = scope.Narrow(f.ProjectIDs)
	key := cache.Key(cache.PrefixTickets, cache.ProjectsKey(f.ProjectIDs), f.UnitID, f.StatusID)
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]*model.Ticket, error) {
		return s.repo.List(ctx, f)
	})
}

// Get возвращает замечание.
func (s *TicketService) Get(ctx context.Context, scope Scope, id int64) (*model.Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "замечание")
	}
	if err := checkScope(scope, t.ProjectID, "замечание"); err != nil {
		return nil, err
	}
	return t, nil
}

// Create создаёт замечание от имени userID.
func (s *TicketService) Create(ctx context.Context, scope Scope, in *model.Ticket, userID string) (*model.Ticket, error) {
	if err := checkScope(scope, in.ProjectID, "проект"); err != nil {
		return nil, err
	}
	if err := requireText(in.Title, "title"); err != nil {
		return nil, err
	}
	t := &model.Ticket{
		ProjectID:             in.ProjectID,
		UnitID:                in.UnitID,
		Title:                 strings.TrimSpace(in.Title),
		Description:           trimPtr(in.Description),
		StatusID:              in.StatusID,
		IsWarranty:            in.IsWarranty,
		ReceivedAt:            in.ReceivedAt,
		FixedAt:               in.FixedAt,
		ResponsibleEngineerID: in.ResponsibleEngineerID,
		CreatedBy:             &userID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, translate(err, "замечание")
	}
	s.cache.InvalidateTables("tickets")
	s.logger.Info("Замечание создано", slog.Int64("id", t.ID), slog.Int64("project_id", t.ProjectID))
	return t, nil
}

// Update меняет поля замечания.
func (s *TicketService) Update(ctx context.Context, scope Scope, id int64, patch model.TicketPatch) (*model.Ticket, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Title, "title"); err != nil {
		return nil, err
	}
	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "замечание")
	}
	s.cache.InvalidateTables("tickets")
	return t, nil
}

// Delete удаляет замечание вместе с вложениями.
func (s *TicketService) Delete(ctx context.Context, scope Scope, id int64) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	err := s.attachments.DeleteWithParent(ctx, model.ParentTicket, id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return translateDelete(err, "замечание")
	}
	s.cache.InvalidateTables("tickets")
	return nil
}

// Upload прикладывает файлы к замечанию.
func (s *TicketService) Upload(ctx context.Context, scope Scope, id int64, files []model.UploadFile, userID string) ([]*model.Attachment, error) {
	t, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	var unitID int64
	if t.UnitID != nil {
		unitID = *t.UnitID
	}
	atts, err := s.attachments.Upload(ctx, model.ParentTicket, id, naming.TicketPrefix(t.ProjectID, unitID), files, userID)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateTables("tickets")
	return atts, nil
}
