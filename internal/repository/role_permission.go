package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// RolePermissionRepository — права ролей (таблица role_permissions).
type RolePermissionRepository interface {
	// Get возвращает права роли. Если записи нет — ErrNotFound.
	Get(ctx context.Context, role string) (*model.RolePermission, error)
	// List возвращает все сохранённые записи.
	List(ctx context.Context) ([]*model.RolePermission, error)
	// Upsert создаёт или обновляет права роли.
	Upsert(ctx context.Context, p *model.RolePermission) error
}

type rolePermissionRepo struct {
	db DBTX
}

// NewRolePermissionRepository создаёт репозиторий прав ролей.
func NewRolePermissionRepository(db DBTX) RolePermissionRepository {
	return &rolePermissionRepo{db: db}
}

const rpColumns = `role, pages, edit_tables, delete_tables, only_assigned_project`

func scanRolePermission(row pgx.Row) (*model.RolePermission, error) {
	p := &model.RolePermission{}
	err := row.Scan(&p.Role, &p.Pages, &p.EditTables, &p.DeleteTables, &p.OnlyAssignedProject)
	return p, err
}

func (r *rolePermissionRepo) Get(ctx context.Context, role string) (*model.RolePermission, error) {
	p, err := scanRolePermission(conn(ctx, r.db).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM role_permissions WHERE role = $1`, rpColumns), role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения прав роли %s: %w", role, err)
	}
	return p, nil
}

func (r *rolePermissionRepo) List(ctx context.Context) ([]*model.RolePermission, error) {
	rows, err := conn(ctx, r.db).Query(ctx, fmt.Sprintf(`SELECT %s FROM role_permissions ORDER BY role`, rpColumns))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения прав ролей: %w", err)
	}
	defer rows.Close()

	var result []*model.RolePermission
	for rows.Next() {
		p, err := scanRolePermission(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования прав роли: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *rolePermissionRepo) Upsert(ctx context.Context, p *model.RolePermission) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO role_permissions (role, pages, edit_tables, delete_tables, only_assigned_project)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (role) DO UPDATE SET
			pages = EXCLUDED.pages,
			edit_tables = EXCLUDED.edit_tables,
			delete_tables = EXCLUDED.delete_tables,
			only_assigned_project = EXCLUDED.only_assigned_project,
			updated_at = NOW()`,
		p.Role, nonNil(p.Pages), nonNil(p.EditTables), nonNil(p.DeleteTables), p.OnlyAssignedProject)
	if err != nil {
		return fmt.Errorf("ошибка сохранения прав роли %s: %w", p.Role, err)
	}
	return nil
}

// nonNil заменяет nil-срез пустым: колонки массивов NOT NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
