package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// DefectRepository — дефекты и их устранение.
type DefectRepository interface {
	Create(ctx context.Context, d *model.Defect) error
	GetByID(ctx context.Context, id int64) (*model.Defect, error)
	Update(ctx context.Context, id int64, patch model.DefectPatch) (*model.Defect, error)
	Delete(ctx context.Context, id int64) error
	// ListWithRelations — реестр дефектов с названиями связанных записей.
	// projectIDs == nil — все проекты.
	ListWithRelations(ctx context.Context, projectIDs []int64) ([]*model.DefectRow, error)
}

type defectRepo struct {
	db DBTX
}

// NewDefectRepository создаёт репозиторий дефектов.
func NewDefectRepository(db DBTX) DefectRepository {
	return &defectRepo{db: db}
}

var defectColumns = `d.id, d.project_id, d.unit_id, d.description, d.status_id, d.claim_id,
	d.court_case_id, d.brigade_id, d.contractor_id, d.is_warranty, d.received_at, d.fixed_at,
	d.fixed_by, d.created_at, ` + attachmentIDsExpr("defect_attachments", "defect_id", "d.id")

func defectDest(d *model.Defect) []any {
	return []any{&d.ID, &d.ProjectID, &d.UnitID, &d.Description, &d.StatusID, &d.ClaimID,
		&d.CourtCaseID, &d.BrigadeID, &d.ContractorID, &d.IsWarranty, &d.ReceivedAt, &d.FixedAt,
		&d.FixedBy, &d.CreatedAt, &d.AttachmentIDs}
}

func (r *defectRepo) Create(ctx context.Context, d *model.Defect) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO defects (project_id, unit_id, description, status_id, claim_id, court_case_id,
			brigade_id, contractor_id, is_warranty, received_at, fixed_at, fixed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		d.ProjectID, d.UnitID, d.Description, d.StatusID, d.ClaimID, d.CourtCaseID,
		d.BrigadeID, d.ContractorID, d.IsWarranty, d.ReceivedAt, d.FixedAt, d.FixedBy,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return writeError(err, "создания дефекта", "дефект уже существует")
	}
	return nil
}

func (r *defectRepo) GetByID(ctx context.Context, id int64) (*model.Defect, error) {
	d := &model.Defect{}
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT `+defectColumns+` FROM defects d WHERE d.id = $1`, id).
		Scan(defectDest(d)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения дефекта: %w", err)
	}
	return d, nil
}

func (r *defectRepo) Update(ctx context.Context, id int64, patch model.DefectPatch) (*model.Defect, error) {
	var b updateBuilder
	setPtr(&b, "unit_id", patch.UnitID)
	setPtr(&b, "description", patch.Description)
	setPtr(&b, "status_id", patch.StatusID)
	setPtr(&b, "claim_id", patch.ClaimID)
	setPtr(&b, "court_case_id", patch.CourtCaseID)
	// Исполнитель один: назначение бригады снимает подрядчика и наоборот.
	if patch.BrigadeID != nil {
		b.set("brigade_id", *patch.BrigadeID)
		b.set("contractor_id", nil)
	} else if patch.ContractorID != nil {
		b.set("contractor_id", *patch.ContractorID)
		b.set("brigade_id", nil)
	}
	setPtr(&b, "is_warranty", patch.IsWarranty)
	setPtr(&b, "received_at", patch.ReceivedAt)
	setPtr(&b, "fixed_at", patch.FixedAt)
	setPtr(&b, "fixed_by", patch.FixedBy)
	if !b.empty() {
		query, args := b.build("defects", id, "")
		tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
		if err != nil {
			return nil, writeError(err, "обновления дефекта", "")
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *defectRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "defects", id)
}

func (r *defectRepo) ListWithRelations(ctx context.Context, projectIDs []int64) ([]*model.DefectRow, error) {
	var w whereBuilder
	if projectIDs != nil {
		w.add("d.project_id = ANY($%d)", projectIDs)
	}

	query := fmt.Sprintf(`
		SELECT %s,
			p.name, u.name, s.name, s.color, COALESCE(s.is_closed, false), b.name, c.name
		FROM defects d
		JOIN projects p ON p.id = d.project_id
		LEFT JOIN units u ON u.id = d.unit_id
		LEFT JOIN statuses s ON s.id = d.status_id
		LEFT JOIN brigades b ON b.id = d.brigade_id
		LEFT JOIN contractors c ON c.id = d.contractor_id
		%s
		ORDER BY d.id DESC`, defectColumns, w.String())

	rows, err := conn(ctx, r.db).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения реестра дефектов: %w", err)
	}
	defer rows.Close()

	var result []*model.DefectRow
	for rows.Next() {
		row := &model.DefectRow{}
		dest := append(defectDest(&row.Defect),
			&row.ProjectName, &row.UnitName, &row.StatusName, &row.StatusColor,
			&row.StatusIsClosed, &row.BrigadeName, &row.ContractorName)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка сканирования дефекта: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
