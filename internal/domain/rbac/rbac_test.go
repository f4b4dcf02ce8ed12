package rbac

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleEngineer, true},
		{RoleLawyer, true},
		{RoleContractor, true},
		{"admin", false},
		{"", false},
		{"SUPERADMIN", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			got := IsValidRole(tt.role)
			if got != tt.want {
				t.Errorf("IsValidRole(%q) = %v, хотели %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"admin", RoleAdmin},
		{" Lawyer ", RoleLawyer},
		{"CONTRACTOR", RoleContractor},
		{"viewer", ""},
	}
	for _, tt := range tests {
		if got := NormalizeRole(tt.in); got != tt.want {
			t.Errorf("NormalizeRole(%q) = %q, хотели %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultPermissions(t *testing.T) {
	perms := DefaultPermissions()

	for _, role := range Roles {
		p, ok := perms[role]
		if !ok {
			t.Fatalf("нет прав по умолчанию для роли %s", role)
		}
		if p.Role != role {
			t.Errorf("права роли %s: Role = %q", role, p.Role)
		}
	}

	admin := perms[RoleAdmin]
	for _, table := range Tables {
		if !admin.CanEdit(table) || !admin.CanDelete(table) {
			t.Errorf("ADMIN должен редактировать и удалять %s", table)
		}
	}

	contractor := perms[RoleContractor]
	if !contractor.OnlyAssignedProject {
		t.Error("CONTRACTOR должен быть ограничен назначенными проектами")
	}
	if contractor.CanDelete(TableDefects) {
		t.Error("CONTRACTOR не должен удалять дефекты")
	}
}

func TestDefaultPermissions_Independent(t *testing.T) {
	a := DefaultPermissions()
	b := DefaultPermissions()

	a[RoleAdmin].EditTables[0] = "changed"
	if b[RoleAdmin].EditTables[0] == "changed" {
		t.Error("DefaultPermissions возвращает общие срезы")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Run("пустой путь — встроенные права", func(t *testing.T) {
		perms, err := LoadDefaults("")
		if err != nil {
			t.Fatalf("LoadDefaults: %v", err)
		}
		if len(perms) != len(Roles) {
			t.Errorf("ролей = %d, хотели %d", len(perms), len(Roles))
		}
	})

	t.Run("файл переопределяет роль", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "permissions.toml")
		content := `
[engineer]
pages = ["structure"]
edit_tables = ["units", "tickets"]
delete_tables = []
only_assigned_project = true
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		perms, err := LoadDefaults(path)
		if err != nil {
			t.Fatalf("LoadDefaults: %v", err)
		}
		eng := perms[RoleEngineer]
		if !eng.OnlyAssignedProject {
			t.Error("ожидается only_assigned_project = true")
		}
		if eng.CanEdit(TableDefects) {
			t.Error("defects не должен быть в edit_tables после переопределения")
		}
		if !eng.CanEdit(TableTickets) {
			t.Error("tickets должен быть в edit_tables")
		}
		if perms[RoleAdmin].Role != RoleAdmin {
			t.Error("права ADMIN должны остаться встроенными")
		}
	})

	t.Run("неизвестная таблица", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "permissions.toml")
		content := "[LAWYER]\nedit_tables = [\"payments\"]\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadDefaults(path); err == nil {
			t.Error("ожидалась ошибка для неизвестной таблицы")
		}
	})

	t.Run("неизвестная роль", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "permissions.toml")
		if err := os.WriteFile(path, []byte("[GUEST]\npages = []\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadDefaults(path); err == nil {
			t.Error("ожидалась ошибка для неизвестной роли")
		}
	})

	t.Run("файл отсутствует", func(t *testing.T) {
		if _, err := LoadDefaults(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("ожидалась ошибка чтения файла")
		}
	})
}
