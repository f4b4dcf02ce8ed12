package model

import "time"

// LetterDirection — направление письма.
type LetterDirection string

const (
	LetterIncoming LetterDirection = "incoming"
	LetterOutgoing LetterDirection = "outgoing"
)

// IsValid проверяет направление письма.
func (d LetterDirection) IsValid() bool {
	return d == LetterIncoming || d == LetterOutgoing
}

// Letter — входящее или исходящее письмо (корреспонденция).
type Letter struct {
	ID                int64           `json:"id"`
	ProjectID         *int64          `json:"project_id,omitempty"`
	UnitID            *int64          `json:"unit_id,omitempty"`
	Direction         LetterDirection `json:"direction"`
	Number            string          `json:"number"`
	LetterDate        *time.Time      `json:"letter_date,omitempty"`
	Subject           string          `json:"subject"`
	Content           *string         `json:"content,omitempty"`
	Sender            *string         `json:"sender,omitempty"`
	Receiver          *string         `json:"receiver,omitempty"`
	ResponsibleUserID *string         `json:"responsible_user_id,omitempty"`
	StatusID          *int64          `json:"status_id,omitempty"`
	CreatedBy         *string         `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	AttachmentIDs     []int64         `json:"attachment_ids"`
}

// LetterPatch — изменяемые поля письма.
type LetterPatch struct {
	ProjectID         *int64           `json:"project_id"`
	UnitID            *int64           `json:"unit_id"`
	Direction         *LetterDirection `json:"direction"`
	Number            *string          `json:"number"`
	LetterDate        *time.Time       `json:"letter_date"`
	Subject           *string          `json:"subject"`
	Content           *string          `json:"content"`
	Sender            *string          `json:"sender"`
	Receiver          *string          `json:"receiver"`
	ResponsibleUserID *string          `json:"responsible_user_id"`
	StatusID          *int64           `json:"status_id"`
}

// LetterFilter — фильтр реестра писем.
type LetterFilter struct {
	ProjectIDs []int64
	UnitID     *int64
	Direction  *LetterDirection
}

// DocumentFolder — папка архива документов (опционально привязана к проекту).
type DocumentFolder struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ProjectID   *int64    `json:"project_id,omitempty"`
	CreatedBy   *string   `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FolderPatch — изменяемые поля папки.
type FolderPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ProjectID   *int64  `json:"project_id"`
}
