package model

import (
	"io"
	"time"
)

// Attachment — ссылка на файл в объектном хранилище.
// Привязывается ровно к одной родительской записи через таблицу связи.
type Attachment struct {
	ID int64 `json:"id"`
	// StoragePath — ключ объекта в bucket
	StoragePath  string    `json:"storage_path"`
	MimeType     string    `json:"mime_type"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	UploadedBy   *string   `json:"uploaded_by,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// AttachmentParent — тип родительской записи вложения.
type AttachmentParent string

const (
	ParentTicket    AttachmentParent = "tickets"
	ParentDefect    AttachmentParent = "defects"
	ParentClaim     AttachmentParent = "claims"
	ParentCourtCase AttachmentParent = "court_cases"
	ParentLetter    AttachmentParent = "letters"
	ParentFolder    AttachmentParent = "folders"
)

// attachmentLinks — таблица связи и колонка родителя для каждого типа.
var attachmentLinks = map[AttachmentParent][2]string{
	ParentTicket:    {"ticket_attachments", "ticket_id"},
	ParentDefect:    {"defect_attachments", "defect_id"},
	ParentClaim:     {"claim_attachments", "claim_id"},
	ParentCourtCase: {"court_case_attachments", "court_case_id"},
	ParentLetter:    {"letter_attachments", "letter_id"},
	ParentFolder:    {"folder_attachments", "folder_id"},
}

// AttachmentParents — все типы родителей в фиксированном порядке.
var AttachmentParents = []AttachmentParent{
	ParentTicket, ParentDefect, ParentClaim, ParentCourtCase, ParentLetter, ParentFolder,
}

// IsValid проверяет, что тип родителя известен.
func (p AttachmentParent) IsValid() bool {
	_, ok := attachmentLinks[p]
	return ok
}

// LinkTable возвращает имя таблицы связи (например, defect_attachments).
func (p AttachmentParent) LinkTable() string {
	return attachmentLinks[p][0]
}

// LinkColumn возвращает колонку родителя в таблице связи.
func (p AttachmentParent) LinkColumn() string {
	return attachmentLinks[p][1]
}

// UploadFile — файл для загрузки вместе с метаданными.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	// Open возвращает поток содержимого. Вызывается один раз.
	Open func() (io.ReadSeekCloser, error)
}
