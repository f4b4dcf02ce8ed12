package model

import "time"

// Claim — досудебная претензия собственника.
// Связь с объектами и дефектами — через claim_units и claim_defects.
type Claim struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	StatusID  *int64     `json:"status_id,omitempty"`
	Number    string     `json:"number"`
	ClaimDate *time.Time `json:"claim_date,omitempty"`
	// ReceivedAt — дата получения претензии застройщиком
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	// ResolveUntil — крайний срок ответа/устранения
	ResolveUntil          *time.Time `json:"resolve_until,omitempty"`
	ResponsibleEngineerID *string    `json:"responsible_engineer_id,omitempty"`
	Description           *string    `json:"description,omitempty"`
	UnitIDs               []int64    `json:"unit_ids"`
	DefectIDs             []int64    `json:"defect_ids"`
	CreatedBy             *string    `json:"created_by,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// ClaimPatch — изменяемые поля претензии. UnitIDs/DefectIDs != nil
// полностью заменяют набор связей.
type ClaimPatch struct {
	StatusID              *int64     `json:"status_id"`
	Number                *string    `json:"number"`
	ClaimDate             *time.Time `json:"claim_date"`
	ReceivedAt            *time.Time `json:"received_at"`
	ResolveUntil          *time.Time `json:"resolve_until"`
	ResponsibleEngineerID *string    `json:"responsible_engineer_id"`
	Description           *string    `json:"description"`
	UnitIDs               []int64    `json:"unit_ids"`
	DefectIDs             []int64    `json:"defect_ids"`
}

// ClaimRow — претензия с данными связанных записей.
type ClaimRow struct {
	Claim
	ProjectName    *string
	StatusName     *string
	StatusColor    *string
	StatusIsClosed bool
	EngineerName   *string
	UnitNames      []string
}
