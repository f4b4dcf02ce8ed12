package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// ProjectRepository — CRUD для таблицы projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	// List возвращает проекты; ids == nil — все проекты.
	List(ctx context.Context, ids []int64) ([]*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id int64) error
}

type projectRepo struct {
	db DBTX
}

// NewProjectRepository создаёт репозиторий проектов.
func NewProjectRepository(db DBTX) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO projects (name, description) VALUES ($1, $2) RETURNING id, created_at`,
		p.Name, p.Description,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return writeError(err, "создания проекта", "проект с таким названием уже существует")
	}
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	p := &model.Project{}
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, name, description, created_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проекта: %w", err)
	}
	return p, nil
}

func (r *projectRepo) List(ctx context.Context, ids []int64) ([]*model.Project, error) {
	var w whereBuilder
	if ids != nil {
		w.add("id = ANY($%d)", ids)
	}
	query := fmt.Sprintf(`SELECT id, name, description, created_at FROM projects %s ORDER BY name`, w.String())

	rows, err := conn(ctx, r.db).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка проектов: %w", err)
	}
	defer rows.Close()

	var result []*model.Project
	for rows.Next() {
		p := &model.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования проекта: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`UPDATE projects SET name = $2, description = $3 WHERE id = $1 RETURNING created_at`,
		p.ID, p.Name, p.Description,
	).Scan(&p.CreatedAt)
	if err != nil {
		return writeError(err, "обновления проекта", "проект с таким названием уже существует")
	}
	return nil
}

func (r *projectRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "projects", id)
}
