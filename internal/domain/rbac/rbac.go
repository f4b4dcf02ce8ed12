// Пакет rbac — роли пользователей и права ролей по умолчанию.
// Права роли задают видимые страницы, редактируемые и удаляемые таблицы
// и ограничение назначенными проектами. Записи role_permissions в БД
// переопределяют значения по умолчанию.
package rbac

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// Роли приложения.
const (
	RoleAdmin      = "ADMIN"
	RoleEngineer   = "ENGINEER"
	RoleLawyer     = "LAWYER"
	RoleContractor = "CONTRACTOR"
)

// Roles — все роли в порядке убывания привилегий.
var Roles = []string{RoleAdmin, RoleEngineer, RoleLawyer, RoleContractor}

// Таблицы, на которые выдаются права редактирования и удаления.
const (
	TableProjects        = "projects"
	TableUnits           = "units"
	TablePersons         = "persons"
	TableContractors     = "contractors"
	TableBrigades        = "brigades"
	TableStatuses        = "statuses"
	TableTickets         = "tickets"
	TableDefects         = "defects"
	TableClaims          = "claims"
	TableCourtCases      = "court_cases"
	TableLetters         = "letters"
	TableFolders         = "folders"
	TableAttachments     = "attachments"
	TableProfiles        = "profiles"
	TableRolePermissions = "role_permissions"
)

// Tables — все таблицы с управляемыми правами.
var Tables = []string{
	TableProjects, TableUnits, TablePersons, TableContractors, TableBrigades,
	TableStatuses, TableTickets, TableDefects, TableClaims, TableCourtCases,
	TableLetters, TableFolders, TableAttachments, TableProfiles, TableRolePermissions,
}

// Pages — страницы клиентского приложения.
var Pages = []string{
	"dashboard", "structure", "tickets", "defects", "claims", "court-cases",
	"correspondence", "documents", "contractors", "persons", "admin",
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// NormalizeRole приводит роль к верхнему регистру и проверяет её.
// Для неизвестной роли возвращает пустую строку.
func NormalizeRole(role string) string {
	r := strings.ToUpper(strings.TrimSpace(role))
	if !IsValidRole(r) {
		return ""
	}
	return r
}

// IsValidTable проверяет имя таблицы.
func IsValidTable(table string) bool {
	return slices.Contains(Tables, table)
}

// DefaultPermissions возвращает встроенные права ролей.
func DefaultPermissions() map[string]model.RolePermission {
	return map[string]model.RolePermission{
		RoleAdmin: {
			Role:         RoleAdmin,
			Pages:        slices.Clone(Pages),
			EditTables:   slices.Clone(Tables),
			DeleteTables: slices.Clone(Tables),
		},
		RoleEngineer: {
			Role:         RoleEngineer,
			Pages:        []string{"dashboard", "structure", "tickets", "defects", "claims", "correspondence", "documents"},
			EditTables:   []string{TableUnits, TableTickets, TableDefects, TableClaims, TableLetters, TableFolders, TableAttachments, TableBrigades},
			DeleteTables: []string{TableTickets, TableDefects, TableAttachments},
		},
		RoleLawyer: {
			Role:  RoleLawyer,
			Pages: []string{"dashboard", "claims", "court-cases", "correspondence", "documents", "contractors", "persons"},
			EditTables: []string{
				TableClaims, TableCourtCases, TableLetters, TablePersons,
				TableContractors, TableFolders, TableAttachments,
			},
			DeleteTables: []string{TableCourtCases, TableLetters, TableAttachments},
		},
		RoleContractor: {
			Role:                RoleContractor,
			Pages:               []string{"defects", "tickets"},
			EditTables:          []string{TableDefects},
			OnlyAssignedProject: true,
		},
	}
}

// permissionsFile — формат TOML-файла с правами ролей.
//
//	[ENGINEER]
//	pages = ["structure", "tickets"]
//	edit_tables = ["tickets"]
//	only_assigned_project = true
type permissionsFile map[string]model.RolePermission

// LoadDefaults читает права по умолчанию из TOML-файла и накладывает их
// на встроенные. Пустой path — только встроенные права.
func LoadDefaults(path string) (map[string]model.RolePermission, error) {
	defaults := DefaultPermissions()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение файла прав %s: %w", path, err)
	}
	return mergeTOML(defaults, string(data))
}

// mergeTOML разбирает TOML и заменяет права перечисленных в нём ролей.
func mergeTOML(defaults map[string]model.RolePermission, data string) (map[string]model.RolePermission, error) {
	var file permissionsFile
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("разбор TOML прав ролей: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("неизвестные ключи в файле прав: %v", undecoded)
	}

	for role, perm := range file {
		normalized := NormalizeRole(role)
		if normalized == "" {
			return nil, fmt.Errorf("неизвестная роль %q в файле прав", role)
		}
		for _, t := range append(slices.Clone(perm.EditTables), perm.DeleteTables...) {
			if !IsValidTable(t) {
				return nil, fmt.Errorf("роль %s: неизвестная таблица %q", normalized, t)
			}
		}
		perm.Role = normalized
		defaults[normalized] = perm
	}
	return defaults, nil
}
