package model

import (
	"encoding/json"
	"time"
)

// Profile — профиль пользователя приложения.
// ID совпадает с sub токена IdP. Хранится в таблице profiles,
// назначенные проекты — в profile_projects.
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       *string   `json:"name,omitempty"`
	Role       string    `json:"role"`
	ProjectIDs []int64   `json:"project_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProfilePatch — изменяемые администратором поля профиля.
type ProfilePatch struct {
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	ProjectIDs []int64 `json:"project_ids"`
}

// UserStats — количество записей, за которые отвечает пользователь.
type UserStats struct {
	Tickets    int `json:"tickets"`
	Claims     int `json:"claims"`
	Defects    int `json:"defects"`
	CourtCases int `json:"court_cases"`
	Letters    int `json:"letters"`
}

// RolePermission — права роли: видимые страницы, редактируемые
// и удаляемые таблицы, ограничение назначенными проектами.
type RolePermission struct {
	Role                string   `json:"role"`
	Pages               []string `json:"pages" toml:"pages"`
	EditTables          []string `json:"edit_tables" toml:"edit_tables"`
	DeleteTables        []string `json:"delete_tables" toml:"delete_tables"`
	OnlyAssignedProject bool     `json:"only_assigned_project" toml:"only_assigned_project"`
}

// CanEdit проверяет право редактирования таблицы.
func (p *RolePermission) CanEdit(table string) bool {
	return contains(p.EditTables, table)
}

// CanDelete проверяет право удаления записей таблицы.
func (p *RolePermission) CanDelete(table string) bool {
	return contains(p.DeleteTables, table)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Preference — пользовательская настройка интерфейса (ключ → JSON).
// Version увеличивается при каждой записи.
type Preference struct {
	UserID    string          `json:"-"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StructureSelection — выбранные проект/корпус/секция на странице структуры.
// Хранится под ключом structurePageSelection.
type StructureSelection struct {
	ProjectID *int64  `json:"projectId"`
	Building  *string `json:"building"`
	Section   *string `json:"section"`
}
