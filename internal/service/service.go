// Пакет service — бизнес-операции GarantHUB поверх репозиториев,
// объектного хранилища и кэша запросов.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
)

// TxRunner выполняет fn в одной транзакции (repository.TxRunner).
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher — получатель событий ленты изменений (realtime.Hub).
type Publisher interface {
	Publish(e realtime.Event)
}

// Scope — набор проектов, доступных пользователю. nil — все проекты.
type Scope []int64

// Allows проверяет доступ к проекту.
func (s Scope) Allows(projectID int64) bool {
	return s == nil || slices.Contains(s, projectID)
}

// AllowsPtr — то же для необязательной ссылки на проект.
// Записи без проекта видны всем.
func (s Scope) AllowsPtr(projectID *int64) bool {
	return projectID == nil || s.Allows(*projectID)
}

// Covers — доступ к записи с необязательным проектом, когда запись без
// проекта видна только пользователю без ограничения.
func (s Scope) Covers(projectID *int64) bool {
	if projectID == nil {
		return s == nil
	}
	return s.Allows(*projectID)
}

// Narrow пересекает scope с запрошенными проектами.
// requested == nil — без дополнительного ограничения.
func (s Scope) Narrow(requested []int64) []int64 {
	if requested == nil {
		return s
	}
	if s == nil {
		return requested
	}
	out := make([]int64, 0, len(requested))
	for _, id := range requested {
		if slices.Contains(s, id) {
			out = append(out, id)
		}
	}
	return out
}

// checkScope возвращает ErrNotFound для записи чужого проекта,
// чтобы не раскрывать её существование.
func checkScope(scope Scope, projectID int64, what string) error {
	if !scope.Allows(projectID) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}

// requireText проверяет обязательное текстовое поле.
func requireText(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: поле %s обязательно", ErrValidation, field)
	}
	return nil
}

// requireTextPtr — то же для поля частичного обновления: nil допустим.
func requireTextPtr(value *string, field string) error {
	if value == nil {
		return nil
	}
	return requireText(*value, field)
}

// trimPtr обрезает пробелы; пустая строка превращается в nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// orDash возвращает значение или прочерк для отображения.
func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "—"
	}
	return *s
}

// joinOrDash соединяет имена через запятую или возвращает прочерк.
func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "—"
	}
	return strings.Join(names, ", ")
}

func ptr[T any](v T) *T { return &v }
