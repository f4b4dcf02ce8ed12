package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// CourtCaseRepository — судебные дела со сторонами и исковыми требованиями.
// Create и Update пишут несколько таблиц: вызывать внутри TxRunner.RunInTx.
type CourtCaseRepository interface {
	Create(ctx context.Context, c *model.CourtCase) error
	GetByID(ctx context.Context, id int64) (*model.CourtCase, error)
	Update(ctx context.Context, id int64, patch model.CourtCasePatch) (*model.CourtCase, error)
	Delete(ctx context.Context, id int64) error
	// ListWithRelations — реестр дел с названиями связанных записей,
	// сторонами и суммой заявленных требований.
	ListWithRelations(ctx context.Context, projectIDs []int64) ([]*model.CourtCaseRow, error)
}

type courtCaseRepo struct {
	db DBTX
}

// NewCourtCaseRepository создаёт репозиторий судебных дел.
func NewCourtCaseRepository(db DBTX) CourtCaseRepository {
	return &courtCaseRepo{db: db}
}

const courtCaseColumns = `cc.id, cc.project_id, cc.number, cc.case_date, cc.status_id, cc.lawyer_id,
	cc.responsible_engineer_id, cc.description, cc.fix_start_date, cc.fix_end_date,
	cc.created_by, cc.created_at,
	COALESCE(ARRAY(SELECT unit_id FROM court_case_units WHERE court_case_id = cc.id ORDER BY unit_id), '{}'),
	COALESCE(ARRAY(SELECT defect_id FROM court_case_defects WHERE court_case_id = cc.id ORDER BY defect_id), '{}'),
	COALESCE(ARRAY(SELECT claim_id FROM court_case_claims WHERE court_case_id = cc.id ORDER BY claim_id), '{}')`

func courtCaseDest(c *model.CourtCase) []any {
	return []any{&c.ID, &c.ProjectID, &c.Number, &c.CaseDate, &c.StatusID, &c.LawyerID,
		&c.ResponsibleEngineerID, &c.Description, &c.FixStartDate, &c.FixEndDate,
		&c.CreatedBy, &c.CreatedAt, &c.UnitIDs, &c.DefectIDs, &c.ClaimIDs}
}

func (r *courtCaseRepo) Create(ctx context.Context, c *model.CourtCase) error {
	db := conn(ctx, r.db)
	err := db.QueryRow(ctx, `
		INSERT INTO court_cases (project_id, number, case_date, status_id, lawyer_id,
			responsible_engineer_id, description, fix_start_date, fix_end_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		c.ProjectID, c.Number, c.CaseDate, c.StatusID, c.LawyerID,
		c.ResponsibleEngineerID, c.Description, c.FixStartDate, c.FixEndDate, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return writeError(err, "создания судебного дела", "дело уже существует")
	}

	return r.writeRelations(ctx, db, c.ID, c.UnitIDs, c.DefectIDs, c.ClaimIDs, c.Parties, c.LawsuitClaims)
}

// writeRelations заменяет непустые (не nil) наборы связей дела.
func (r *courtCaseRepo) writeRelations(ctx context.Context, db DBTX, id int64,
	units, defects, claims []int64, parties []model.CourtCaseParty, lawsuits []model.LawsuitClaim,
) error {
	if units != nil {
		if err := replaceLinks(ctx, db, "court_case_units", "court_case_id", "unit_id", id, units); err != nil {
			return err
		}
	}
	if defects != nil {
		if err := replaceLinks(ctx, db, "court_case_defects", "court_case_id", "defect_id", id, defects); err != nil {
			return err
		}
	}
	if claims != nil {
		if err := replaceLinks(ctx, db, "court_case_claims", "court_case_id", "claim_id", id, claims); err != nil {
			return err
		}
	}
	if parties != nil {
		if _, err := db.Exec(ctx, `DELETE FROM court_case_parties WHERE court_case_id = $1`, id); err != nil {
			return fmt.Errorf("ошибка очистки сторон дела: %w", err)
		}
		for _, p := range parties {
			_, err := db.Exec(ctx, `
				INSERT INTO court_case_parties (court_case_id, role, person_id, contractor_id)
				VALUES ($1, $2, $3, $4)`, id, p.Role, p.PersonID, p.ContractorID)
			if err != nil {
				return writeError(err, "записи стороны дела", "")
			}
		}
	}
	if lawsuits != nil {
		if _, err := db.Exec(ctx, `DELETE FROM lawsuit_claims WHERE court_case_id = $1`, id); err != nil {
			return fmt.Errorf("ошибка очистки исковых требований: %w", err)
		}
		for _, l := range lawsuits {
			_, err := db.Exec(ctx, `
				INSERT INTO lawsuit_claims (court_case_id, name, claimed_amount, confirmed_amount, paid_amount)
				VALUES ($1, $2, $3, $4, $5)`, id, l.Name, l.ClaimedAmount, l.ConfirmedAmount, l.PaidAmount)
			if err != nil {
				return writeError(err, "записи искового требования", "")
			}
		}
	}
	return nil
}

func (r *courtCaseRepo) GetByID(ctx context.Context, id int64) (*model.CourtCase, error) {
	db := conn(ctx, r.db)
	c := &model.CourtCase{}
	err := db.QueryRow(ctx, `SELECT `+courtCaseColumns+` FROM court_cases cc WHERE cc.id = $1`, id).
		Scan(courtCaseDest(c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения судебного дела: %w", err)
	}

	byID := map[int64]*model.CourtCase{c.ID: c}
	if err := r.loadParties(ctx, db, byID); err != nil {
		return nil, err
	}
	if err := r.loadLawsuits(ctx, db, byID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *courtCaseRepo) Update(ctx context.Context, id int64, patch model.CourtCasePatch) (*model.CourtCase, error) {
	db := conn(ctx, r.db)

	var b updateBuilder
	setPtr(&b, "number", patch.Number)
	setPtr(&b, "case_date", patch.CaseDate)
	setPtr(&b, "status_id", patch.StatusID)
	setPtr(&b, "lawyer_id", patch.LawyerID)
	setPtr(&b, "responsible_engineer_id", patch.ResponsibleEngineerID)
	setPtr(&b, "description", patch.Description)
	setPtr(&b, "fix_start_date", patch.FixStartDate)
	setPtr(&b, "fix_end_date", patch.FixEndDate)
	if !b.empty() {
		query, args := b.build("court_cases", id, "")
		tag, err := db.Exec(ctx, query, args...)
		if err != nil {
			return nil, writeError(err, "обновления судебного дела", "")
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}

	err := r.writeRelations(ctx, db, id, patch.UnitIDs, patch.DefectIDs, patch.ClaimIDs, patch.Parties, patch.LawsuitClaims)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *courtCaseRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "court_cases", id)
}

func (r *courtCaseRepo) ListWithRelations(ctx context.Context, projectIDs []int64) ([]*model.CourtCaseRow, error) {
	db := conn(ctx, r.db)

	var w whereBuilder
	if projectIDs != nil {
		w.add("cc.project_id = ANY($%d)", projectIDs)
	}

	query := fmt.Sprintf(`
		SELECT %s,
			p.name, s.name, s.color, COALESCE(s.is_closed, false), l.name, e.name,
			COALESCE(ARRAY(
				SELECT u.name FROM court_case_units ccu JOIN units u ON u.id = ccu.unit_id
				WHERE ccu.court_case_id = cc.id ORDER BY ccu.unit_id
			), '{}'),
			COALESCE((SELECT SUM(claimed_amount) FROM lawsuit_claims WHERE court_case_id = cc.id), 0)::float8
		FROM court_cases cc
		JOIN projects p ON p.id = cc.project_id
		LEFT JOIN statuses s ON s.id = cc.status_id
		LEFT JOIN profiles l ON l.id = cc.lawyer_id
		LEFT JOIN profiles e ON e.id = cc.responsible_engineer_id
		%s
		ORDER BY cc.created_at DESC, cc.id DESC`, courtCaseColumns, w.String())

	rows, err := db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения реестра судебных дел: %w", err)
	}
	defer rows.Close()

	var result []*model.CourtCaseRow
	byID := make(map[int64]*model.CourtCase)
	for rows.Next() {
		row := &model.CourtCaseRow{}
		dest := append(courtCaseDest(&row.CourtCase),
			&row.ProjectName, &row.StatusName, &row.StatusColor, &row.StatusIsClosed,
			&row.LawyerName, &row.EngineerName, &row.UnitNames, &row.TotalClaimed)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка сканирования судебного дела: %w", err)
		}
		result = append(result, row)
		byID[row.ID] = &row.CourtCase
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadParties(ctx, db, byID); err != nil {
		return nil, err
	}
	if err := r.loadLawsuits(ctx, db, byID); err != nil {
		return nil, err
	}
	return result, nil
}

// loadParties заполняет стороны для набора дел одним запросом.
func (r *courtCaseRepo) loadParties(ctx context.Context, db DBTX, byID map[int64]*model.CourtCase) error {
	if len(byID) == 0 {
		return nil
	}
	rows, err := db.Query(ctx, `
		SELECT ccp.court_case_id, ccp.role, ccp.person_id, ccp.contractor_id,
			COALESCE(pe.full_name, co.name, '')
		FROM court_case_parties ccp
		LEFT JOIN persons pe ON pe.id = ccp.person_id
		LEFT JOIN contractors co ON co.id = ccp.contractor_id
		WHERE ccp.court_case_id = ANY($1)
		ORDER BY ccp.id`, mapKeys(byID))
	if err != nil {
		return fmt.Errorf("ошибка получения сторон дел: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var caseID int64
		var p model.CourtCaseParty
		if err := rows.Scan(&caseID, &p.Role, &p.PersonID, &p.ContractorID, &p.Name); err != nil {
			return fmt.Errorf("ошибка сканирования стороны дела: %w", err)
		}
		if c, ok := byID[caseID]; ok {
			c.Parties = append(c.Parties, p)
		}
	}
	return rows.Err()
}

// loadLawsuits заполняет исковые требования для набора дел.
func (r *courtCaseRepo) loadLawsuits(ctx context.Context, db DBTX, byID map[int64]*model.CourtCase) error {
	if len(byID) == 0 {
		return nil
	}
	rows, err := db.Query(ctx, `
		SELECT court_case_id, id, name, claimed_amount::float8, confirmed_amount::float8, paid_amount::float8
		FROM lawsuit_claims
		WHERE court_case_id = ANY($1)
		ORDER BY id`, mapKeys(byID))
	if err != nil {
		return fmt.Errorf("ошибка получения исковых требований: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var caseID int64
		var l model.LawsuitClaim
		if err := rows.Scan(&caseID, &l.ID, &l.Name, &l.ClaimedAmount, &l.ConfirmedAmount, &l.PaidAmount); err != nil {
			return fmt.Errorf("ошибка сканирования искового требования: %w", err)
		}
		if c, ok := byID[caseID]; ok {
			c.LawsuitClaims = append(c.LawsuitClaims, l)
		}
	}
	return rows.Err()
}

func mapKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
