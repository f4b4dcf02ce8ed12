package handlers

import (
	"net/http"
	"strconv"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/filters"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

// registerResponse — реестр с доступными значениями фильтров.
type registerResponse[T any] struct {
	Items   []T                               `json:"items"`
	Total   int                               `json:"total"`
	Options map[filters.Field][]filters.Option `json:"options"`
}

func newRegister[T any](items []T, options map[filters.Field][]filters.Option) registerResponse[T] {
	if items == nil {
		items = []T{}
	}
	return registerResponse[T]{Items: items, Total: len(items), Options: options}
}

type defectRequest struct {
	ProjectID    int64               `json:"project_id"`
	UnitID       *int64              `json:"unit_id"`
	Description  string              `json:"description"`
	StatusID     *int64              `json:"status_id"`
	ClaimID      *int64              `json:"claim_id"`
	CourtCaseID  *int64              `json:"court_case_id"`
	BrigadeID    *int64              `json:"brigade_id"`
	ContractorID *int64              `json:"contractor_id"`
	IsWarranty   bool                `json:"is_warranty"`
	ReceivedAt   *openapi_types.Date `json:"received_at"`
}

type defectPatchRequest struct {
	UnitID       *int64              `json:"unit_id"`
	Description  *string             `json:"description"`
	StatusID     *int64              `json:"status_id"`
	ClaimID      *int64              `json:"claim_id"`
	CourtCaseID  *int64              `json:"court_case_id"`
	BrigadeID    *int64              `json:"brigade_id"`
	ContractorID *int64              `json:"contractor_id"`
	IsWarranty   *bool               `json:"is_warranty"`
	ReceivedAt   *openapi_types.Date `json:"received_at"`
	FixedAt      *openapi_types.Date `json:"fixed_at"`
}

// parseDefectFilters читает фильтры реестра дефектов из query.
func parseDefectFilters(r *http.Request) (filters.DefectFilters, error) {
	var f filters.DefectFilters
	var err error
	if f.ProjectIDs, err = queryInt64s(r, "project_id"); err != nil {
		return f, err
	}
	if f.StatusIDs, err = queryInt64s(r, "status_id"); err != nil {
		return f, err
	}
	if f.UnitIDs, err = queryInt64s(r, "unit_id"); err != nil {
		return f, err
	}
	f.HideClosed = queryBool(r, "hide_closed")
	return f, nil
}

// ListDefects — GET /defects: реестр с вариантами фильтров.
func (h *APIHandler) ListDefects(w http.ResponseWriter, r *http.Request) {
	f, err := parseDefectFilters(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	items, options, err := h.svc.Defects.Register(r.Context(), scope(r), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegister(items, options))
}

// GetDefect — GET /defects/{id}.
func (h *APIHandler) GetDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.svc.Defects.Get(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateDefect — POST /defects.
func (h *APIHandler) CreateDefect(w http.ResponseWriter, r *http.Request) {
	var req defectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Defects.Create(r.Context(), scope(r), &model.Defect{
		ProjectID:    req.ProjectID,
		UnitID:       req.UnitID,
		Description:  req.Description,
		StatusID:     req.StatusID,
		ClaimID:      req.ClaimID,
		CourtCaseID:  req.CourtCaseID,
		BrigadeID:    req.BrigadeID,
		ContractorID: req.ContractorID,
		IsWarranty:   req.IsWarranty,
		ReceivedAt:   dateTime(req.ReceivedAt),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDefect — PATCH /defects/{id}.
func (h *APIHandler) UpdateDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req defectPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Defects.Update(r.Context(), scope(r), id, model.DefectPatch{
		UnitID:       req.UnitID,
		Description:  req.Description,
		StatusID:     req.StatusID,
		ClaimID:      req.ClaimID,
		CourtCaseID:  req.CourtCaseID,
		BrigadeID:    req.BrigadeID,
		ContractorID: req.ContractorID,
		IsWarranty:   req.IsWarranty,
		ReceivedAt:   dateTime(req.ReceivedAt),
		FixedAt:      dateTime(req.FixedAt),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDefect — DELETE /defects/{id}.
func (h *APIHandler) DeleteDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Defects.Delete(r.Context(), scope(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FixDefect — POST /defects/{id}/fix (multipart): поля fixed_at,
// brigade_id или contractor_id, status_id и фото в поле files.
func (h *APIHandler) FixDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	files, cleanup, ok := h.uploadFiles(w, r)
	if !ok {
		return
	}
	defer cleanup()

	in := service.FixInput{Files: files}
	fixedAt := r.FormValue("fixed_at")
	if fixedAt == "" {
		apierrors.ValidationError(w, "Поле fixed_at обязательно")
		return
	}
	t, err := time.Parse(openapi_types.DateFormat, fixedAt)
	if err != nil {
		apierrors.ValidationError(w, "Некорректная дата fixed_at, ожидается ГГГГ-ММ-ДД")
		return
	}
	in.FixedAt = t

	for _, field := range []struct {
		name string
		dst  **int64
	}{
		{"brigade_id", &in.BrigadeID},
		{"contractor_id", &in.ContractorID},
		{"status_id", &in.StatusID},
	} {
		raw := r.FormValue(field.name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apierrors.ValidationError(w, "Некорректное значение "+field.name)
			return
		}
		*field.dst = &n
	}

	d, err := h.svc.Defects.Fix(r.Context(), scope(r), id, in, user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
