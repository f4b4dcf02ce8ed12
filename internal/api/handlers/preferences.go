package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
)

// originHeader — идентификатор сеанса (вкладки) клиента. Возвращается
// в событиях ленты, чтобы сеанс-источник мог их пропустить.
const originHeader = "X-Client-Origin"

// preferenceRequest — тело записи настройки.
type preferenceRequest struct {
	Value json.RawMessage `json:"value"`
	// ExpectedVersion — версия, поверх которой пишем; 0 — только создание
	ExpectedVersion *int64 `json:"expected_version"`
	Origin          string `json:"origin"`
}

// ListPreferences — GET /preferences.
func (h *APIHandler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Preferences.List(r.Context(), user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetPreference — GET /preferences/{key}.
func (h *APIHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Preferences.Get(r.Context(), user(r).ID(), chiParam(r, "key"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutPreference — PUT /preferences/{key}. Устаревшая expected_version — 409.
func (h *APIHandler) PutPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Value) == 0 {
		apierrors.ValidationError(w, "Поле value обязательно")
		return
	}
	origin := req.Origin
	if origin == "" {
		origin = r.Header.Get(originHeader)
	}
	p, err := h.svc.Preferences.Put(r.Context(), user(r).ID(), chiParam(r, "key"), req.Value, req.ExpectedVersion, origin)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePreference — DELETE /preferences/{key}.
func (h *APIHandler) DeletePreference(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Preferences.Delete(r.Context(), user(r).ID(), chiParam(r, "key"), r.Header.Get(originHeader))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
