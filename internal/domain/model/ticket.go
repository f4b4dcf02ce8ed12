package model

import "time"

// Ticket — замечание по объекту (гарантийное обращение собственника).
type Ticket struct {
	ID          int64   `json:"id"`
	ProjectID   int64   `json:"project_id"`
	UnitID      *int64  `json:"unit_id,omitempty"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	StatusID    *int64  `json:"status_id,omitempty"`
	// IsWarranty — замечание признано гарантийным
	IsWarranty            bool       `json:"is_warranty"`
	ReceivedAt            *time.Time `json:"received_at,omitempty"`
	FixedAt               *time.Time `json:"fixed_at,omitempty"`
	ResponsibleEngineerID *string    `json:"responsible_engineer_id,omitempty"`
	CreatedBy             *string    `json:"created_by,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	AttachmentIDs         []int64    `json:"attachment_ids"`
}

// TicketPatch — изменяемые поля замечания.
type TicketPatch struct {
	UnitID                *int64     `json:"unit_id"`
	Title                 *string    `json:"title"`
	Description           *string    `json:"description"`
	StatusID              *int64     `json:"status_id"`
	IsWarranty            *bool      `json:"is_warranty"`
	ReceivedAt            *time.Time `json:"received_at"`
	FixedAt               *time.Time `json:"fixed_at"`
	ResponsibleEngineerID *string    `json:"responsible_engineer_id"`
}

// TicketFilter — фильтр реестра замечаний.
type TicketFilter struct {
	ProjectIDs []int64
	UnitID     *int64
	StatusID   *int64
}
