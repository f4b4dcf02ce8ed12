// letters.go — корреспонденция и архив документов.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/naming"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// LetterService — письма и папки документов.
type LetterService struct {
	letters     repository.LetterRepository
	folders     repository.FolderRepository
	attachments *AttachmentService
	cache       *cache.QueryCache
	logger      *slog.Logger
}

// NewLetterService создаёт сервис корреспонденции.
func NewLetterService(
	letters repository.LetterRepository,
	folders repository.FolderRepository,
	attachments *AttachmentService,
	c *cache.QueryCache,
	logger *slog.Logger,
) *LetterService {
	return &LetterService{
		letters:     letters,
		folders:     folders,
		attachments: attachments,
		cache:       c,
		logger:      logger.With(slog.String("component", "letter_service")),
	}
}

// List возвращает письма в пределах scope.
// Пользователь с ограничением по проектам не видит письма без проекта
// (то же правило в Get и Create). Папки без проекта видны всем.
func (s *LetterService) List(ctx context.Context, scope Scope, f model.LetterFilter) ([]*model.Letter, error) {
	f.ProjectIDs = scope.Narrow(f.ProjectIDs)
	var direction *string
	if f.Direction != nil {
		direction = ptr(string(*f.Direction))
	}
	key := cache.Key(cache.PrefixLetters, cache.ProjectsKey(f.ProjectIDs), f.UnitID, direction)
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]*model.Letter, error) {
		return s.letters.List(ctx, f)
	})
}

// Get возвращает письмо.
func (s *LetterService) Get(ctx context.Context, scope Scope, id int64) (*model.Letter, error) {
	l, err := s.letters.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "письмо")
	}
	if !scope.Covers(l.ProjectID) {
		return nil, fmt.Errorf("%w: письмо", ErrNotFound)
	}
	return l, nil
}

// Create регистрирует письмо.
func (s *LetterService) Create(ctx context.Context, scope Scope, in *model.Letter, userID string) (*model.Letter, error) {
	if !scope.Covers(in.ProjectID) {
		return nil, fmt.Errorf("%w: проект", ErrNotFound)
	}
	if !in.Direction.IsValid() {
		return nil, fmt.Errorf("%w: направление письма — incoming или outgoing", ErrValidation)
	}
	if err := requireText(in.Number, "number"); err != nil {
		return nil, err
	}
	if err := requireText(in.Subject, "subject"); err != nil {
		return nil, err
	}
	l := &model.Letter{
		ProjectID:         in.ProjectID,
		UnitID:            in.UnitID,
		Direction:         in.Direction,
		Number:            strings.TrimSpace(in.Number),
		LetterDate:        in.LetterDate,
		Subject:           strings.TrimSpace(in.Subject),
		Content:           trimPtr(in.Content),
		Sender:            trimPtr(in.Sender),
		Receiver:          trimPtr(in.Receiver),
		ResponsibleUserID: in.ResponsibleUserID,
		StatusID:          in.StatusID,
		CreatedBy:         &userID,
	}
	if err := s.letters.Create(ctx, l); err != nil {
		return nil, translate(err, "письмо")
	}
	s.cache.InvalidateTables("letters")
	s.logger.Info("Письмо зарегистрировано",
		slog.Int64("id", l.ID),
		slog.String("direction", string(l.Direction)),
		slog.String("number", l.Number),
	)
	return l, nil
}

// Update меняет поля письма.
func (s *LetterService) Update(ctx context.Context, scope Scope, id int64, patch model.LetterPatch) (*model.Letter, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	if patch.Direction != nil && !patch.Direction.IsValid() {
		return nil, fmt.Errorf("%w: направление письма — incoming или outgoing", ErrValidation)
	}
	if err := requireTextPtr(patch.Number, "number"); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Subject, "subject"); err != nil {
		return nil, err
	}
	if !scope.AllowsPtr(patch.ProjectID) {
		return nil, fmt.Errorf("%w: проект", ErrNotFound)
	}
	l, err := s.letters.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "письмо")
	}
	s.cache.InvalidateTables("letters")
	return l, nil
}

// Delete удаляет письмо вместе с вложениями.
func (s *LetterService) Delete(ctx context.Context, scope Scope, id int64) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	err := s.attachments.DeleteWithParent(ctx, model.ParentLetter, id, func(ctx context.Context) error {
		return s.letters.Delete(ctx, id)
	})
	if err != nil {
		return translateDelete(err, "письмо")
	}
	s.cache.InvalidateTables("letters")
	s.logger.Info("Письмо удалено", slog.Int64("id", id))
	return nil
}

// Upload прикладывает файлы к письму.
func (s *LetterService) Upload(ctx context.Context, scope Scope, id int64, files []model.UploadFile, userID string) ([]*model.Attachment, error) {
	l, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	var projectID int64
	if l.ProjectID != nil {
		projectID = *l.ProjectID
	}
	atts, err := s.attachments.Upload(ctx, model.ParentLetter, id, naming.LetterPrefix(projectID), files, userID)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateTables("letters")
	return atts, nil
}

// --- Папки документов ---

// ListFolders возвращает папки проектов scope и общие папки.
func (s *LetterService) ListFolders(ctx context.Context, scope Scope) ([]*model.DocumentFolder, error) {
	ids := []int64(scope)
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.PrefixFolders, cache.ProjectsKey(ids)),
		func(ctx context.Context) ([]*model.DocumentFolder, error) {
			return s.folders.List(ctx, ids)
		})
}

// GetFolder возвращает папку.
func (s *LetterService) GetFolder(ctx context.Context, scope Scope, id int64) (*model.DocumentFolder, error) {
	f, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "папка")
	}
	if !scope.AllowsPtr(f.ProjectID) {
		return nil, fmt.Errorf("%w: папка", ErrNotFound)
	}
	return f, nil
}

// CreateFolder создаёт папку.
func (s *LetterService) CreateFolder(ctx context.Context, scope Scope, in *model.DocumentFolder, userID string) (*model.DocumentFolder, error) {
	if !scope.AllowsPtr(in.ProjectID) {
		return nil, fmt.Errorf("%w: проект", ErrNotFound)
	}
	if err := requireText(in.Name, "name"); err != nil {
		return nil, err
	}
	f := &model.DocumentFolder{
		Name:        strings.TrimSpace(in.Name),
		Description: trimPtr(in.Description),
		ProjectID:   in.ProjectID,
		CreatedBy:   &userID,
	}
	if err := s.folders.Create(ctx, f); err != nil {
		return nil, translate(err, "папка")
	}
	s.cache.InvalidateTables("document_folders")
	return f, nil
}

// UpdateFolder меняет папку.
func (s *LetterService) UpdateFolder(ctx context.Context, scope Scope, id int64, patch model.FolderPatch) (*model.DocumentFolder, error) {
	if _, err := s.GetFolder(ctx, scope, id); err != nil {
		return nil, err
	}
	if err := requireTextPtr(patch.Name, "name"); err != nil {
		return nil, err
	}
	if !scope.AllowsPtr(patch.ProjectID) {
		return nil, fmt.Errorf("%w: проект", ErrNotFound)
	}
	f, err := s.folders.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "папка")
	}
	s.cache.InvalidateTables("document_folders")
	return f, nil
}

// DeleteFolder удаляет папку вместе с документами.
func (s *LetterService) DeleteFolder(ctx context.Context, scope Scope, id int64) error {
	if _, err := s.GetFolder(ctx, scope, id); err != nil {
		return err
	}
	err := s.attachments.DeleteWithParent(ctx, model.ParentFolder, id, func(ctx context.Context) error {
		return s.folders.Delete(ctx, id)
	})
	if err != nil {
		return translateDelete(err, "папка")
	}
	s.cache.InvalidateTables("document_folders")
	return nil
}

// UploadDocuments кладёт файлы в папку.
func (s *LetterService) UploadDocuments(ctx context.Context, scope Scope, id int64, files []model.UploadFile, userID string) ([]*model.Attachment, error) {
	if _, err := s.GetFolder(ctx, scope, id); err != nil {
		return nil, err
	}
	return s.attachments.Upload(ctx, model.ParentFolder, id, naming.FolderPrefix(id), files, userID)
}
