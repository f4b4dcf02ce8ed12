// attachments.go — вложения: загрузка в объектное хранилище, ссылки
// на скачивание и удаление вместе с родительской записью.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/naming"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
	"github.com/svarovsky7/GarantHUB-sub002/internal/storage"
)

// uploadConcurrency — одновременные загрузки одного запроса.
const uploadConcurrency = 4

// AttachmentService — вложения записей.
type AttachmentService struct {
	repo      repository.AttachmentRepository
	store     storage.ObjectStore
	tx        TxRunner
	signedTTL time.Duration
	maxSize   int64
	now       func() time.Time
	logger    *slog.Logger
}

// NewAttachmentService создаёт сервис вложений.
// maxSize — предельный размер одного файла (0 — без ограничения).
func NewAttachmentService(
	repo repository.AttachmentRepository,
	store storage.ObjectStore,
	tx TxRunner,
	signedTTL time.Duration,
	maxSize int64,
	logger *slog.Logger,
) *AttachmentService {
	return &AttachmentService{
		repo:      repo,
		store:     store,
		tx:        tx,
		signedTTL: signedTTL,
		maxSize:   maxSize,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "attachment_service")),
	}
}

// Upload загружает файлы параллельно и привязывает их к родителю.
// Ключи объектов строятся от prefix (naming.*Prefix). Возвращает
// вложения в порядке files. При ошибке уже загруженные объекты удаляются.
func (s *AttachmentService) Upload(
	ctx context.Context,
	parent model.AttachmentParent,
	parentID int64,
	prefix string,
	files []model.UploadFile,
	userID string,
) ([]*model.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	for _, f := range files {
		if s.maxSize > 0 && f.Size > s.maxSize {
			return nil, fmt.Errorf("%w: файл %s больше допустимого размера %d байт", ErrValidation, f.Name, s.maxSize)
		}
	}

	now := s.now()
	result := make([]*model.Attachment, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		// Смещение на миллисекунду: ключи одного пакета не совпадают
		key := naming.StorageKey(prefix, f.Name, now.Add(time.Duration(i)*time.Millisecond))
		g.Go(func() error {
			a, err := s.put(gctx, key, f)
			if err != nil {
				return err
			}
			if userID != "" {
				a.UploadedBy = &userID
			}
			result[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.cleanup(ctx, result)
		return nil, err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, a := range result {
			if err := s.repo.Create(ctx, a); err != nil {
				return err
			}
			if err := s.repo.Link(ctx, parent, parentID, a.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.cleanup(ctx, result)
		return nil, translate(err, "родительская запись")
	}

	s.logger.Info("Вложения загружены",
		slog.String("parent", string(parent)),
		slog.Int64("parent_id", parentID),
		slog.Int("count", len(result)),
	)
	return result, nil
}

// put загружает один файл и возвращает несохранённую запись вложения.
func (s *AttachmentService) put(ctx context.Context, key string, f model.UploadFile) (*model.Attachment, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", f.Name, err)
	}
	defer r.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(f.Name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.store.Upload(ctx, key, contentType, r, f.Size); err != nil {
		return nil, translateStorage(fmt.Errorf("ошибка загрузки %s: %w", f.Name, err))
	}
	return &model.Attachment{
		StoragePath:  key,
		MimeType:     contentType,
		OriginalName: f.Name,
		Size:         f.Size,
	}, nil
}

// cleanup удаляет объекты, загруженные до ошибки.
func (s *AttachmentService) cleanup(ctx context.Context, uploaded []*model.Attachment) {
	var keys []string
	for _, a := range uploaded {
		if a != nil {
			keys = append(keys, a.StoragePath)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.store.Remove(context.WithoutCancel(ctx), keys...); err != nil {
		s.logger.Warn("Не удалось удалить загруженные объекты после ошибки",
			slog.Int("count", len(keys)),
			slog.String("error", err.Error()),
		)
	}
}

// List возвращает вложения записи.
func (s *AttachmentService) List(ctx context.Context, parent model.AttachmentParent, parentID int64) ([]*model.Attachment, error) {
	atts, err := s.repo.ListByParent(ctx, parent, parentID)
	if err != nil {
		return nil, err
	}
	return atts, nil
}

// Get возвращает вложение и его родителя.
func (s *AttachmentService) Get(ctx context.Context, id int64) (*model.Attachment, model.AttachmentParent, int64, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", 0, translate(err, "вложение")
	}
	parent, parentID, err := s.repo.ParentOf(ctx, id)
	if err != nil {
		return nil, "", 0, translate(err, "вложение")
	}
	return a, parent, parentID, nil
}

// SignedURL возвращает временную ссылку на скачивание.
func (s *AttachmentService) SignedURL(ctx context.Context, a *model.Attachment) (string, time.Time, error) {
	u, err := s.store.SignedURL(ctx, a.StoragePath, s.signedTTL)
	if err != nil {
		return "", time.Time{}, translateStorage(err)
	}
	return u, s.now().Add(s.signedTTL), nil
}

// Open открывает содержимое вложения.
func (s *AttachmentService) Open(ctx context.Context, a *model.Attachment) (io.ReadCloser, error) {
	r, err := s.store.Open(ctx, a.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: файл вложения", ErrNotFound)
		}
		return nil, translateStorage(err)
	}
	return r, nil
}

// Delete удаляет одно вложение: объект, затем запись (связь удаляется каскадом).
func (s *AttachmentService) Delete(ctx context.Context, a *model.Attachment) error {
	if err := s.store.Remove(ctx, a.StoragePath); err != nil {
		return translateStorage(err)
	}
	if err := s.repo.DeleteByIDs(ctx, []int64{a.ID}); err != nil {
		return err
	}
	s.logger.Info("Вложение удалено", slog.Int64("id", a.ID), slog.String("path", a.StoragePath))
	return nil
}

// DeleteWithParent удаляет запись вместе с вложениями:
//  1. одним вызовом удаляет все объекты из хранилища;
//  2. в одной транзакции удаляет записи вложений (одним запросом)
//     и затем саму родительскую запись (deleteParent).
func (s *AttachmentService) DeleteWithParent(
	ctx context.Context,
	parent model.AttachmentParent,
	parentID int64,
	deleteParent func(ctx context.Context) error,
) error {
	atts, err := s.repo.ListByParent(ctx, parent, parentID)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(atts))
	paths := make([]string, 0, len(atts))
	for _, a := range atts {
		ids = append(ids, a.ID)
		paths = append(paths, a.StoragePath)
	}

	if len(paths) > 0 {
		if err := s.store.Remove(ctx, paths...); err != nil {
			return translateStorage(err)
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		return deleteParent(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Запись удалена вместе с вложениями",
		slog.String("parent", string(parent)),
		slog.Int64("parent_id", parentID),
		slog.Int("attachments", len(ids)),
	)
	return nil
}
