package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// ClaimRepository — досудебные претензии.
// Create и Update пишут несколько таблиц: вызывать внутри TxRunner.RunInTx.
type ClaimRepository interface {
	Create(ctx context.Context, c *model.Claim) error
	GetByID(ctx context.Context, id int64) (*model.Claim, error)
	Update(ctx context.Context, id int64, patch model.ClaimPatch) (*model.Claim, error)
	Delete(ctx context.Context, id int64) error
	// ListWithRelations — реестр претензий с названиями связанных записей.
	ListWithRelations(ctx context.Context, projectIDs []int64) ([]*model.ClaimRow, error)
}

type claimRepo struct {
	db DBTX
}

// NewClaimRepository создаёт репозиторий претензий.
func NewClaimRepository(db DBTX) ClaimRepository {
	return &claimRepo{db: db}
}

const claimColumns = `c.id, c.project_id, c.status_id, c.number, c.claim_date, c.received_at,
	c.resolve_until, c.responsible_engineer_id, c.description, c.created_by, c.created_at,
	COALESCE(ARRAY(SELECT unit_id FROM claim_units WHERE claim_id = c.id ORDER BY unit_id), '{}'),
	COALESCE(ARRAY(SELECT defect_id FROM claim_defects WHERE claim_id = c.id ORDER BY defect_id), '{}')`

func claimDest(c *model.Claim) []any {
	return []any{&c.ID, &c.ProjectID, &c.StatusID, &c.Number, &c.ClaimDate, &c.ReceivedAt,
		&c.ResolveUntil, &c.ResponsibleEngineerID, &c.Description, &c.CreatedBy, &c.CreatedAt,
		&c.UnitIDs, &c.DefectIDs}
}

func (r *claimRepo) Create(ctx context.Context, c *model.Claim) error {
	db := conn(ctx, r.db)
	err := db.QueryRow(ctx, `
		INSERT INTO claims (project_id, status_id, number, claim_date, received_at, resolve_until,
			responsible_engineer_id, description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		c.ProjectID, c.StatusID, c.Number, c.ClaimDate, c.ReceivedAt, c.ResolveUntil,
		c.ResponsibleEngineerID, c.Description, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return writeError(err, "создания претензии", "претензия уже существует")
	}

	if err := replaceLinks(ctx, db, "claim_units", "claim_id", "unit_id", c.ID, c.UnitIDs); err != nil {
		return err
	}
	return replaceLinks(ctx, db, "claim_defects", "claim_id", "defect_id", c.ID, c.DefectIDs)
}

func (r *claimRepo) GetByID(ctx context.Context, id int64) (*model.Claim, error) {
	c := &model.Claim{}
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT `+claimColumns+` FROM claims c WHERE c.id = $1`, id).
		Scan(claimDest(c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения претензии: %w", err)
	}
	return c, nil
}

func (r *claimRepo) Update(ctx context.Context, id int64, patch model.ClaimPatch) (*model.Claim, error) {
	db := conn(ctx, r.db)

	var b updateBuilder
	setPtr(&b, "status_id", patch.StatusID)
	setPtr(&b, "number", patch.Number)
	setPtr(&b, "claim_date", patch.ClaimDate)
	setPtr(&b, "received_at", patch.ReceivedAt)
	setPtr(&b, "resolve_until", patch.ResolveUntil)
	setPtr(&b, "responsible_engineer_id", patch.ResponsibleEngineerID)
	setPtr(&b, "description", patch.Description)
	if !b.empty() {
		query, args := b.build("claims", id, "")
		tag, err := db.Exec(ctx, query, args...)
		if err != nil {
			return nil, writeError(err, "обновления претензии", "")
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}

	if patch.UnitIDs != nil {
		if err := replaceLinks(ctx, db, "claim_units", "claim_id", "unit_id", id, patch.UnitIDs); err != nil {
			return nil, err
		}
	}
	if patch.DefectIDs != nil {
		if err := replaceLinks(ctx, db, "claim_defects", "claim_id", "defect_id", id, patch.DefectIDs); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *claimRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "claims", id)
}

func (r *claimRepo) ListWithRelations(ctx context.Context, projectIDs []int64) ([]*model.ClaimRow, error) {
	var w whereBuilder
	if projectIDs != nil {
		w.add("c.project_id = ANY($%d)", projectIDs)
	}

	query := fmt.Sprintf(`
		SELECT %s,
			p.name, s.name, s.color, COALESCE(s.is_closed, false), e.name,
			COALESCE(ARRAY(
				SELECT u.name FROM claim_units cu JOIN units u ON u.id = cu.unit_id
				WHERE cu.claim_id = c.id ORDER BY cu.unit_id
			), '{}')
		FROM claims c
		JOIN projects p ON p.id = c.project_id
		LEFT JOIN statuses s ON s.id = c.status_id
		LEFT JOIN profiles e ON e.id = c.responsible_engineer_id
		%s
		ORDER BY c.created_at DESC, c.id DESC`, claimColumns, w.String())

	rows, err := conn(ctx, r.db).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения реестра претензий: %w", err)
	}
	defer rows.Close()

	var result []*model.ClaimRow
	for rows.Next() {
		row := &model.ClaimRow{}
		dest := append(claimDest(&row.Claim),
			&row.ProjectName, &row.StatusName, &row.StatusColor, &row.StatusIsClosed,
			&row.EngineerName, &row.UnitNames)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка сканирования претензии: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
