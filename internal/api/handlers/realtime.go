package handlers

import (
	"net/http"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
)

// Realtime — GET /realtime?table=&filter=project_id=eq.N (WebSocket).
// Пользователь с ограничением по проектам подписывается только
// с фильтром по своему проекту; настройки доступны всем, но приходят
// только владельцу.
func (h *APIHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := realtime.ParseFilter(q.Get("table"), q.Get("filter"))
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	u := user(r)
	if u.Scope != nil && f.Table != realtime.TablePreferences {
		if f.Column != "project_id" || !u.Scope.Allows(f.Value) {
			apierrors.Forbidden(w, "Подписка доступна только на назначенные проекты: укажите filter=project_id=eq.<id>")
			return
		}
	}

	realtime.ServeWS(w, r, h.hub, u.ID(), f, h.logger)
}
