package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// LetterRepository — реестр корреспонденции.
type LetterRepository interface {
	Create(ctx context.Context, l *model.Letter) error
	GetByID(ctx context.Context, id int64) (*model.Letter, error)
	List(ctx context.Context, f model.LetterFilter) ([]*model.Letter, error)
	Update(ctx context.Context, id int64, patch model.LetterPatch) (*model.Letter, error)
	Delete(ctx context.Context, id int64) error
}

type letterRepo struct {
	db DBTX
}

// NewLetterRepository создаёт репозиторий писем.
func NewLetterRepository(db DBTX) LetterRepository {
	return &letterRepo{db: db}
}

var letterColumns = `l.id, l.project_id, l.unit_id, l.direction, l.number, l.letter_date, l.subject,
	l.content, l.sender, l.receiver, l.responsible_user_id, l.status_id, l.created_by, l.created_at, ` +
	attachmentIDsExpr("letter_attachments", "letter_id", "l.id")

func scanLetter(row pgx.Row) (*model.Letter, error) {
	l := &model.Letter{}
	err := row.Scan(&l.ID, &l.ProjectID, &l.UnitID, &l.Direction, &l.Number, &l.LetterDate, &l.Subject,
		&l.Content, &l.Sender, &l.Receiver, &l.ResponsibleUserID, &l.StatusID, &l.CreatedBy, &l.CreatedAt,
		&l.AttachmentIDs)
	return l, err
}

func (r *letterRepo) Create(ctx context.Context, l *model.Letter) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO letters (project_id, unit_id, direction, number, letter_date, subject, content,
			sender, receiver, responsible_user_id, status_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		l.ProjectID, l.UnitID, l.Direction, l.Number, l.LetterDate, l.Subject, l.Content,
		l.Sender, l.Receiver, l.ResponsibleUserID, l.StatusID, l.CreatedBy,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return writeError(err, "создания письма", "письмо уже существует")
	}
	return nil
}

func (r *letterRepo) GetByID(ctx context.Context, id int64) (*model.Letter, error) {
	l, err := scanLetter(conn(ctx, r.db).QueryRow(ctx, `SELECT `+letterColumns+` FROM letters l WHERE l.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения письма: %w", err)
	}
	return l, nil
}

func (r *letterRepo) List(ctx context.Context, f model.LetterFilter) ([]*model.Letter, error) {
	var w whereBuilder
	if f.ProjectIDs != nil {
		w.add("l.project_id = ANY($%d)", f.ProjectIDs)
	}
	if f.UnitID != nil {
		w.add("l.unit_id = $%d", *f.UnitID)
	}
	if f.Direction != nil {
		w.add("l.direction = $%d", *f.Direction)
	}

	rows, err := conn(ctx, r.db).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM letters l %s ORDER BY l.letter_date DESC NULLS LAST, l.id DESC`, letterColumns, w.String()),
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения писем: %w", err)
	}
	defer rows.Close()

	var result []*model.Letter
	for rows.Next() {
		l, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования письма: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *letterRepo) Update(ctx context.Context, id int64, patch model.LetterPatch) (*model.Letter, error) {
	var b updateBuilder
	setPtr(&b, "project_id", patch.ProjectID)
	setPtr(&b, "unit_id", patch.UnitID)
	setPtr(&b, "direction", patch.Direction)
	setPtr(&b, "number", patch.Number)
	setPtr(&b, "letter_date", patch.LetterDate)
	setPtr(&b, "subject", patch.Subject)
	setPtr(&b, "content", patch.Content)
	setPtr(&b, "sender", patch.Sender)
	setPtr(&b, "receiver", patch.Receiver)
	setPtr(&b, "responsible_user_id", patch.ResponsibleUserID)
	setPtr(&b, "status_id", patch.StatusID)
	if !b.empty() {
		query, args := b.build("letters", id, "")
		tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
		if err != nil {
			return nil, writeError(err, "обновления письма", "")
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *letterRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "letters", id)
}

// --- Папки документов ---

// FolderRepository — папки архива документов.
type FolderRepository interface {
	Create(ctx context.Context, f *model.DocumentFolder) error
	GetByID(ctx context.Context, id int64) (*model.DocumentFolder, error)
	// List возвращает папки проектов projectIDs и общие папки без проекта.
	// projectIDs == nil — все папки.
	List(ctx context.Context, projectIDs []int64) ([]*model.DocumentFolder, error)
	Update(ctx context.Context, id int64, patch model.FolderPatch) (*model.DocumentFolder, error)
	Delete(ctx context.Context, id int64) error
}

type folderRepo struct {
	db DBTX
}

// NewFolderRepository создаёт репозиторий папок документов.
func NewFolderRepository(db DBTX) FolderRepository {
	return &folderRepo{db: db}
}

const folderColumns = `id, name, description, project_id, created_by, created_at`

func scanFolder(row pgx.Row) (*model.DocumentFolder, error) {
	f := &model.DocumentFolder{}
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.ProjectID, &f.CreatedBy, &f.CreatedAt)
	return f, err
}

func (r *folderRepo) Create(ctx context.Context, f *model.DocumentFolder) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO document_folders (name, description, project_id, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		f.Name, f.Description, f.ProjectID, f.CreatedBy,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return writeError(err, "создания папки", "папка уже существует")
	}
	return nil
}

func (r *folderRepo) GetByID(ctx context.Context, id int64) (*model.DocumentFolder, error) {
	f, err := scanFolder(conn(ctx, r.db).QueryRow(ctx, `SELECT `+folderColumns+` FROM document_folders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения папки: %w", err)
	}
	return f, nil
}

func (r *folderRepo) List(ctx context.Context, projectIDs []int64) ([]*model.DocumentFolder, error) {
	var w whereBuilder
	if projectIDs != nil {
		w.add("(project_id IS NULL OR project_id = ANY($%d))", projectIDs)
	}

	rows, err := conn(ctx, r.db).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM document_folders %s ORDER BY name, id`, folderColumns, w.String()), w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения папок: %w", err)
	}
	defer rows.Close()

	var result []*model.DocumentFolder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования папки: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *folderRepo) Update(ctx context.Context, id int64, patch model.FolderPatch) (*model.DocumentFolder, error) {
	var b updateBuilder
	setPtr(&b, "name", patch.Name)
	setPtr(&b, "description", patch.Description)
	setPtr(&b, "project_id", patch.ProjectID)
	if b.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := b.build("document_folders", id, folderColumns)
	f, err := scanFolder(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, writeError(err, "обновления папки", "папка уже существует")
	}
	return f, nil
}

func (r *folderRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "document_folders", id)
}
