package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// StatusRepository — справочники статусов по типам сущностей.
type StatusRepository interface {
	Create(ctx context.Context, s *model.Status) error
	GetByID(ctx context.Context, id int64) (*model.Status, error)
	List(ctx context.Context, entity model.StatusEntity) ([]*model.Status, error)
	Update(ctx context.Context, id int64, patch model.StatusPatch) (*model.Status, error)
	Delete(ctx context.Context, id int64) error
}

type statusRepo struct {
	db DBTX
}

// NewStatusRepository создаёт репозиторий статусов.
func NewStatusRepository(db DBTX) StatusRepository {
	return &statusRepo{db: db}
}

const statusColumns = `id, entity, name, color, is_closed, sort_order, created_at`

const errStatusTaken = "статус с таким названием уже существует"

func scanStatus(row pgx.Row) (*model.Status, error) {
	s := &model.Status{}
	err := row.Scan(&s.ID, &s.Entity, &s.Name, &s.Color, &s.IsClosed, &s.SortOrder, &s.CreatedAt)
	return s, err
}

func (r *statusRepo) Create(ctx context.Context, s *model.Status) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO statuses (entity, name, color, is_closed, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		s.Entity, s.Name, s.Color, s.IsClosed, s.SortOrder,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return writeError(err, "создания статуса", errStatusTaken)
	}
	return nil
}

func (r *statusRepo) GetByID(ctx context.Context, id int64) (*model.Status, error) {
	s, err := scanStatus(conn(ctx, r.db).QueryRow(ctx, `SELECT `+statusColumns+` FROM statuses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения статуса: %w", err)
	}
	return s, nil
}

func (r *statusRepo) List(ctx context.Context, entity model.StatusEntity) ([]*model.Status, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT `+statusColumns+` FROM statuses
		WHERE entity = $1
		ORDER BY sort_order, id`, entity)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статусов: %w", err)
	}
	defer rows.Close()

	var result []*model.Status
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования статуса: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *statusRepo) Update(ctx context.Context, id int64, patch model.StatusPatch) (*model.Status, error) {
	var b updateBuilder
	setPtr(&b, "name", patch.Name)
	setPtr(&b, "color", patch.Color)
	setPtr(&b, "is_closed", patch.IsClosed)
	setPtr(&b, "sort_order", patch.SortOrder)
	if b.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := b.build("statuses", id, statusColumns)
	s, err := scanStatus(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, writeError(err, "обновления статуса", errStatusTaken)
	}
	return s, nil
}

func (r *statusRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "statuses", id)
}
