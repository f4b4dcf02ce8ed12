package model

import "time"

// StatusEntity — тип сущности, к которой относится справочник статусов.
type StatusEntity string

const (
	StatusEntityTicket    StatusEntity = "ticket"
	StatusEntityDefect    StatusEntity = "defect"
	StatusEntityClaim     StatusEntity = "claim"
	StatusEntityCourtCase StatusEntity = "court_case"
	StatusEntityLetter    StatusEntity = "letter"
)

// IsValid проверяет, что тип сущности известен.
func (e StatusEntity) IsValid() bool {
	switch e {
	case StatusEntityTicket, StatusEntityDefect, StatusEntityClaim,
		StatusEntityCourtCase, StatusEntityLetter:
		return true
	}
	return false
}

// Status — запись справочника статусов.
// IsClosed отмечает финальные статусы: такие записи скрываются
// переключателем «скрыть закрытые».
type Status struct {
	ID        int64        `json:"id"`
	Entity    StatusEntity `json:"entity"`
	Name      string       `json:"name"`
	Color     *string      `json:"color,omitempty"`
	IsClosed  bool         `json:"is_closed"`
	SortOrder int          `json:"sort_order"`
	CreatedAt time.Time    `json:"created_at"`
}

// StatusPatch — изменяемые поля статуса.
type StatusPatch struct {
	Name      *string `json:"name"`
	Color     *string `json:"color"`
	IsClosed  *bool   `json:"is_closed"`
	SortOrder *int    `json:"sort_order"`
}
