package model

import "time"

// Defect — запись об устранении дефекта.
// Может ссылаться на претензию или судебное дело. Исполнитель — бригада
// застройщика либо подрядчик.
type Defect struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"project_id"`
	UnitID       *int64     `json:"unit_id,omitempty"`
	Description  string     `json:"description"`
	StatusID     *int64     `json:"status_id,omitempty"`
	ClaimID      *int64     `json:"claim_id,omitempty"`
	CourtCaseID  *int64     `json:"court_case_id,omitempty"`
	BrigadeID    *int64     `json:"brigade_id,omitempty"`
	ContractorID *int64     `json:"contractor_id,omitempty"`
	IsWarranty   bool       `json:"is_warranty"`
	ReceivedAt   *time.Time `json:"received_at,omitempty"`
	FixedAt      *time.Time `json:"fixed_at,omitempty"`
	// FixedBy — пользователь, зафиксировавший устранение
	FixedBy       *string   `json:"fixed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	AttachmentIDs []int64   `json:"attachment_ids"`
}

// DefectPatch — изменяемые поля дефекта.
type DefectPatch struct {
	UnitID       *int64     `json:"unit_id"`
	Description  *string    `json:"description"`
	StatusID     *int64     `json:"status_id"`
	ClaimID      *int64     `json:"claim_id"`
	CourtCaseID  *int64     `json:"court_case_id"`
	BrigadeID    *int64     `json:"brigade_id"`
	ContractorID *int64     `json:"contractor_id"`
	IsWarranty   *bool      `json:"is_warranty"`
	ReceivedAt   *time.Time `json:"received_at"`
	FixedAt      *time.Time `json:"fixed_at"`
	FixedBy      *string    `json:"fixed_by"`
}

// DefectRow — дефект с данными связанных записей (для реестра).
type DefectRow struct {
	Defect
	ProjectName    *string
	UnitName       *string
	StatusName     *string
	StatusColor    *string
	StatusIsClosed bool
	BrigadeName    *string
	ContractorName *string
}
