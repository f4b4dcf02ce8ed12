package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// UnitRepository — объекты (квартиры) проектов.
type UnitRepository interface {
	Create(ctx context.Context, u *model.Unit) error
	GetByID(ctx context.Context, id int64) (*model.Unit, error)
	List(ctx context.Context, f model.UnitFilter) ([]*model.Unit, error)
	Update(ctx context.Context, id int64, patch model.UnitPatch) (*model.Unit, error)
	Delete(ctx context.Context, id int64) error
	// Buildings возвращает различные корпуса проекта по алфавиту.
	Buildings(ctx context.Context, projectID int64) ([]string, error)
	// Annotations возвращает признаки объектов для шахматки.
	// Объекты без признаков в результат не попадают.
	Annotations(ctx context.Context, unitIDs []int64) (map[int64]model.UnitAnnotation, error)
}

type unitRepo struct {
	db DBTX
}

// NewUnitRepository создаёт репозиторий объектов.
func NewUnitRepository(db DBTX) UnitRepository {
	return &unitRepo{db: db}
}

const unitColumns = `id, project_id, building, section, floor, name, person_id, created_at`

func scanUnit(row pgx.Row) (*model.Unit, error) {
	u := &model.Unit{}
	err := row.Scan(&u.ID, &u.ProjectID, &u.Building, &u.Section, &u.Floor, &u.Name, &u.PersonID, &u.CreatedAt)
	return u, err
}

func (r *unitRepo) Create(ctx context.Context, u *model.Unit) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO units (project_id, building, section, floor, name, person_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		u.ProjectID, u.Building, u.Section, u.Floor, u.Name, u.PersonID,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return writeError(err, "создания объекта", "объект уже существует")
	}
	return nil
}

func (r *unitRepo) GetByID(ctx context.Context, id int64) (*model.Unit, error) {
	u, err := scanUnit(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+unitColumns+` FROM units WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения объекта: %w", err)
	}
	return u, nil
}

func (r *unitRepo) List(ctx context.Context, f model.UnitFilter) ([]*model.Unit, error) {
	var w whereBuilder
	w.add("project_id = $%d", f.ProjectID)
	if f.Building != nil {
		w.add("building = $%d", *f.Building)
	}
	if f.Section != nil {
		w.add("section = $%d", *f.Section)
	}

	rows, err := conn(ctx, r.db).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM units %s ORDER BY id`, unitColumns, w.String()), w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения объектов: %w", err)
	}
	defer rows.Close()

	var result []*model.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования объекта: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *unitRepo) Update(ctx context.Context, id int64, patch model.UnitPatch) (*model.Unit, error) {
	var b updateBuilder
	setPtr(&b, "building", patch.Building)
	setPtr(&b, "section", patch.Section)
	setPtr(&b, "floor", patch.Floor)
	setPtr(&b, "name", patch.Name)
	setPtr(&b, "person_id", patch.PersonID)
	if b.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := b.build("units", id, unitColumns)
	u, err := scanUnit(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, writeError(err, "обновления объекта", "объект уже существует")
	}
	return u, nil
}

func (r *unitRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "units", id)
}

func (r *unitRepo) Buildings(ctx context.Context, projectID int64) ([]string, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT DISTINCT building FROM units
		WHERE project_id = $1 AND building IS NOT NULL AND building <> ''
		ORDER BY building`, projectID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корпусов: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *unitRepo) Annotations(ctx context.Context, unitIDs []int64) (map[int64]model.UnitAnnotation, error) {
	result := make(map[int64]model.UnitAnnotation)
	if len(unitIDs) == 0 {
		return result, nil
	}

	// Последняя претензия объекта определяет цвет ячейки.
	rows, err := conn(ctx, r.db).Query(ctx, `
		WITH ids AS (SELECT unnest($1::bigint[]) AS unit_id)
		SELECT ids.unit_id,
			EXISTS (
				SELECT 1 FROM court_case_units ccu
				JOIN court_cases cc ON cc.id = ccu.court_case_id
				LEFT JOIN statuses s ON s.id = cc.status_id
				WHERE ccu.unit_id = ids.unit_id AND NOT COALESCE(s.is_closed, false)
			) AS has_court_case,
			EXISTS (SELECT 1 FROM letters l WHERE l.unit_id = ids.unit_id) AS has_letter,
			last_claim.name, last_claim.color
		FROM ids
		LEFT JOIN LATERAL (
			SELECT s.name, s.color
			FROM claim_units cu
			JOIN claims c ON c.id = cu.claim_id
			JOIN statuses s ON s.id = c.status_id
			WHERE cu.unit_id = ids.unit_id
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT 1
		) last_claim ON true`, unitIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения признаков объектов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.UnitAnnotation
		if err := rows.Scan(&a.UnitID, &a.HasCourtCase, &a.HasLetter, &a.ClaimStatusName, &a.ClaimStatusColor); err != nil {
			return nil, fmt.Errorf("ошибка сканирования признаков: %w", err)
		}
		if a.HasCourtCase || a.HasLetter || a.ClaimStatusName != nil {
			result[a.UnitID] = a
		}
	}
	return result, rows.Err()
}
