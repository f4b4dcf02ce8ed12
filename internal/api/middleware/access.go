// access.go — проверка прав пользователя на маршрутах.
// Должны использоваться ПОСЛЕ JWTAuth.Middleware().
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
)

// Action — вид изменения таблицы.
type Action string

const (
	// ActionEdit — создание и изменение записей.
	ActionEdit Action = "edit"
	// ActionDelete — удаление записей.
	ActionDelete Action = "delete"
)

// RequireRole возвращает middleware, требующий одну из указанных ролей.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				apierrors.Unauthorized(w, "Отсутствует пользователь в контексте")
				return
			}
			if !user.HasAnyRole(roles...) {
				apierrors.Forbidden(w, fmt.Sprintf("Недостаточно прав: требуется роль %s", strings.Join(roles, " или ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTable возвращает middleware, требующий право action на таблицу.
func RequireTable(table string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				apierrors.Unauthorized(w, "Отсутствует пользователь в контексте")
				return
			}

			allowed := false
			switch action {
			case ActionEdit:
				allowed = user.Permissions.CanEdit(table)
			case ActionDelete:
				allowed = user.Permissions.CanDelete(table)
			}
			if !allowed {
				apierrors.Forbidden(w, fmt.Sprintf("Недостаточно прав на %s: %s", action, table))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireWrite — RequireTable по методу запроса: DELETE требует права
// удаления, POST/PUT/PATCH — права редактирования, чтение свободно.
func RequireWrite(table string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		edit := RequireTable(table, ActionEdit)(next)
		del := RequireTable(table, ActionDelete)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodDelete:
				del.ServeHTTP(w, r)
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				edit.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
