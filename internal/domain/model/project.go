// Пакет model — доменные модели GarantHUB.
package model

import "time"

// Project — проект (жилой комплекс). Верхний уровень разграничения данных.
// Хранится в таблице projects.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Unit — объект (квартира, помещение) в корпусе проекта.
// Хранится в таблице units.
type Unit struct {
	ID        int64 `json:"id"`
	ProjectID int64 `json:"project_id"`
	// Building — корпус (может отсутствовать)
	Building *string `json:"building,omitempty"`
	// Section — секция (подъезд)
	Section *string `json:"section,omitempty"`
	// Floor — метка этажа: число ("3") или текст ("Цоколь")
	Floor *string `json:"floor,omitempty"`
	// Name — номер объекта на этаже
	Name string `json:"name"`
	// PersonID — собственник (физлицо)
	PersonID  *int64    `json:"person_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitPatch — изменяемые поля объекта. nil — поле не меняется.
type UnitPatch struct {
	Building *string `json:"building"`
	Section  *string `json:"section"`
	Floor    *string `json:"floor"`
	Name     *string `json:"name"`
	PersonID *int64  `json:"person_id"`
}

// UnitAnnotation — признаки объекта для шахматки.
type UnitAnnotation struct {
	UnitID int64 `json:"unit_id"`
	// HasCourtCase — есть незакрытое судебное дело по объекту
	HasCourtCase bool `json:"has_court_case"`
	// HasLetter — есть письма по объекту
	HasLetter bool `json:"has_letter"`
	// ClaimStatusName / ClaimStatusColor — статус последней претензии
	ClaimStatusName  *string `json:"claim_status_name,omitempty"`
	ClaimStatusColor *string `json:"claim_status_color,omitempty"`
}

// UnitFilter — фильтр выборки объектов.
type UnitFilter struct {
	ProjectID int64
	Building  *string
	Section   *string
}
