package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// AttachmentRepository — метаданные вложений и их связь с родителями.
type AttachmentRepository interface {
	// Create добавляет запись о загруженном файле.
	Create(ctx context.Context, a *model.Attachment) error
	// Link привязывает вложение к родителю. Вложение имеет одного родителя.
	Link(ctx context.Context, parent model.AttachmentParent, parentID, attachmentID int64) error
	GetByID(ctx context.Context, id int64) (*model.Attachment, error)
	// ListByParent возвращает вложения записи в порядке загрузки.
	ListByParent(ctx context.Context, parent model.AttachmentParent, parentID int64) ([]*model.Attachment, error)
	// ParentOf возвращает родителя вложения.
	ParentOf(ctx context.Context, id int64) (model.AttachmentParent, int64, error)
	// DeleteByIDs удаляет записи вложений одним запросом.
	DeleteByIDs(ctx context.Context, ids []int64) error
}

type attachmentRepo struct {
	db DBTX
}

// NewAttachmentRepository создаёт репозиторий вложений.
func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepo{db: db}
}

const attachmentColumns = `a.id, a.storage_path, a.mime_type, a.original_name, a.size, a.uploaded_by, a.uploaded_at`

func scanAttachment(row pgx.Row) (*model.Attachment, error) {
	a := &model.Attachment{}
	err := row.Scan(&a.ID, &a.StoragePath, &a.MimeType, &a.OriginalName, &a.Size, &a.UploadedBy, &a.UploadedAt)
	return a, err
}

func (r *attachmentRepo) Create(ctx context.Context, a *model.Attachment) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO attachments (storage_path, mime_type, original_name, size, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at`,
		a.StoragePath, a.MimeType, a.OriginalName, a.Size, a.UploadedBy,
	).Scan(&a.ID, &a.UploadedAt)
	if err != nil {
		return writeError(err, "создания вложения", "файл с таким путём уже зарегистрирован")
	}
	return nil
}

func (r *attachmentRepo) Link(ctx context.Context, parent model.AttachmentParent, parentID, attachmentID int64) error {
	if !parent.IsValid() {
		return fmt.Errorf("неизвестный тип родителя вложения %q", parent)
	}
	db := conn(ctx, r.db)

	_, err := db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, attachment_id) VALUES ($1, $2)`, parent.LinkTable(), parent.LinkColumn()),
		parentID, attachmentID)
	if err != nil {
		return writeError(err, "привязки вложения", "вложение уже привязано")
	}

	_, err = db.Exec(ctx, `
		INSERT INTO attachment_owners (attachment_id, parent, parent_id) VALUES ($1, $2, $3)`,
		attachmentID, parent, parentID)
	if err != nil {
		return writeError(err, "привязки вложения", "вложение уже привязано")
	}
	return nil
}

func (r *attachmentRepo) GetByID(ctx context.Context, id int64) (*model.Attachment, error) {
	a, err := scanAttachment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+attachmentColumns+` FROM attachments a WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения вложения: %w", err)
	}
	return a, nil
}

func (r *attachmentRepo) ListByParent(ctx context.Context, parent model.AttachmentParent, parentID int64) ([]*model.Attachment, error) {
	if !parent.IsValid() {
		return nil, fmt.Errorf("неизвестный тип родителя вложения %q", parent)
	}
	query := fmt.Sprintf(`
		SELECT %s FROM attachments a
		JOIN %s l ON l.attachment_id = a.id
		WHERE l.%s = $1
		ORDER BY a.id`, attachmentColumns, parent.LinkTable(), parent.LinkColumn())

	rows, err := conn(ctx, r.db).Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения вложений: %w", err)
	}
	defer rows.Close()

	var result []*model.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования вложения: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *attachmentRepo) ParentOf(ctx context.Context, id int64) (model.AttachmentParent, int64, error) {
	var parent model.AttachmentParent
	var parentID int64
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT parent, parent_id FROM attachment_owners WHERE attachment_id = $1`, id,
	).Scan(&parent, &parentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, ErrNotFound
		}
		return "", 0, fmt.Errorf("ошибка получения родителя вложения: %w", err)
	}
	return parent, parentID, nil
}

func (r *attachmentRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM attachments WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("ошибка удаления вложений: %w", err)
	}
	return nil
}
