package model

import "time"

// Person — физическое лицо (собственник, участник претензии или суда).
// Уникальность — по паре серия+номер паспорта (constraint persons_passport_key).
type Person struct {
	ID             int64     `json:"id"`
	FullName       string    `json:"full_name"`
	PassportSeries *string   `json:"passport_series,omitempty"`
	PassportNumber *string   `json:"passport_number,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Description    *string   `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PersonPatch — изменяемые поля физлица.
type PersonPatch struct {
	FullName       *string `json:"full_name"`
	PassportSeries *string `json:"passport_series"`
	PassportNumber *string `json:"passport_number"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email"`
	Description    *string `json:"description"`
}

// Contractor — юридическое лицо (подрядчик, ответчик).
// Уникальность — по паре наименование+ИНН.
type Contractor struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	INN         string    `json:"inn"`
	Phone       *string   `json:"phone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContractorPatch — изменяемые поля подрядчика.
type ContractorPatch struct {
	Name        *string `json:"name"`
	INN         *string `json:"inn"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Description *string `json:"description"`
}

// Brigade — собственная бригада застройщика (исполнитель устранения дефектов).
type Brigade struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
