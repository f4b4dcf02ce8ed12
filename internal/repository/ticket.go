package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// TicketRepository — замечания по объектам.
type TicketRepository interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id int64) (*model.Ticket, error)
	List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, error)
	Update(ctx context.Context, id int64, patch model.TicketPatch) (*model.Ticket, error)
	Delete(ctx context.Context, id int64) error
}

type ticketRepo struct {
	db DBTX
}

// NewTicketRepository создаёт репозиторий замечаний.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepo{db: db}
}

var ticketColumns = `t.id, t.project_id, t.unit_id, t.title, t.description, t.status_id,
	t.is_warranty, t.received_at, t.fixed_at, t.responsible_engineer_id, t.created_by, t.created_at, ` +
	attachmentIDsExpr("ticket_attachments", "ticket_id", "t.id")

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	t := &model.Ticket{}
	err := row.Scan(&t.ID, &t.ProjectID, &t.UnitID, &t.Title, &t.Description, &t.StatusID,
		&t.IsWarranty, &t.ReceivedAt, &t.FixedAt, &t.ResponsibleEngineerID, &t.CreatedBy, &t.CreatedAt,
		&t.AttachmentIDs)
	return t, err
}

func (r *ticketRepo) Create(ctx context.Context, t *model.Ticket) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO tickets (project_id, unit_id, title, description, status_id, is_warranty,
			received_at, fixed_at, responsible_engineer_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		t.ProjectID, t.UnitID, t.Title, t.Description, t.StatusID, t.IsWarranty,
		t.ReceivedAt, t.FixedAt, t.ResponsibleEngineerID, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return writeError(err, "создания замечания", "замечание уже существует")
	}
	return nil
}

func (r *ticketRepo) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	t, err := scanTicket(conn(ctx, r.db).QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения замечания: %w", err)
	}
	return t, nil
}

func (r *ticketRepo) List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, error) {
	var w whereBuilder
	if f.ProjectIDs != nil {
		w.add("t.project_id = ANY($%d)", f.ProjectIDs)
	}
	if f.UnitID != nil {
		w.add("t.unit_id = $%d", *f.UnitID)
	}
	if f.StatusID != nil {
		w.add("t.status_id = $%d", *f.StatusID)
	}

	rows, err := conn(ctx, r.db).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM tickets t %s ORDER BY t.created_at DESC, t.id DESC`, ticketColumns, w.String()),
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения замечаний: %w", err)
	}
	defer rows.Close()

	var result []*model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования замечания: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *ticketRepo) Update(ctx context.Context, id int64, patch model.TicketPatch) (*model.Ticket, error) {
	var b updateBuilder
	setPtr(&b, "unit_id", patch.UnitID)
	setPtr(&b, "title", patch.Title)
	setPtr(&b, "description", patch.Description)
	setPtr(&b, "status_id", patch.StatusID)
	setPtr(&b, "is_warranty", patch.IsWarranty)
	setPtr(&b, "received_at", patch.ReceivedAt)
	setPtr(&b, "fixed_at", patch.FixedAt)
	setPtr(&b, "responsible_engineer_id", patch.ResponsibleEngineerID)
	if !b.empty() {
		query, args := b.build("tickets", id, "")
		tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
		if err != nil {
			return nil, writeError(err, "обновления замечания", "")
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "tickets", id)
}
