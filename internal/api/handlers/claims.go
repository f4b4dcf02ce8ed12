package handlers

import (
	"net/http"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/filters"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

type claimRequest struct {
	ProjectID             int64               `json:"project_id"`
	StatusID              *int64              `json:"status_id"`
	Number                string              `json:"number"`
	ClaimDate             *openapi_types.Date `json:"claim_date"`
	ReceivedAt            *openapi_types.Date `json:"received_at"`
	ResolveUntil          *openapi_types.Date `json:"resolve_until"`
	ResponsibleEngineerID *string             `json:"responsible_engineer_id"`
	Description           *string             `json:"description"`
	UnitIDs               []int64             `json:"unit_ids"`
	DefectIDs             []int64             `json:"defect_ids"`
}

type claimPatchRequest struct {
	StatusID              *int64              `json:"status_id"`
	Number                *string             `json:"number"`
	ClaimDate             *openapi_types.Date `json:"claim_date"`
	ReceivedAt            *openapi_types.Date `json:"received_at"`
	ResolveUntil          *openapi_types.Date `json:"resolve_until"`
	ResponsibleEngineerID *string             `json:"responsible_engineer_id"`
	Description           *string             `json:"description"`
	UnitIDs               []int64             `json:"unit_ids"`
	DefectIDs             []int64             `json:"defect_ids"`
}

func parseClaimFilters(r *http.Request) (filters.ClaimFilters, error) {
	var f filters.ClaimFilters
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
	f.EngineerIDs = queryStrings(r, "engineer_id")
	f.Number = strings.TrimSpace(r.URL.Query().Get("number"))
	f.HideClosed = queryBool(r, "hide_closed")
	return f, nil
}

// ListClaims — GET /claims: реестр претензий с вариантами фильтров.
func (h *APIHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	f, err := parseClaimFilters(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	items, options, err := h.svc.Claims.Register(r.Context(), scope(r), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegister(items, options))
}

// GetClaim — GET /claims/{id}.
func (h *APIHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.Claims.Get(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateClaim — POST /claims.
func (h *APIHandler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.Claims.Create(r.Context(), scope(r), &model.Claim{
		ProjectID:             req.ProjectID,
		StatusID:              req.StatusID,
		Number:                req.Number,
		ClaimDate:             dateTime(req.ClaimDate),
		ReceivedAt:            dateTime(req.ReceivedAt),
		ResolveUntil:          dateTime(req.ResolveUntil),
		ResponsibleEngineerID: req.ResponsibleEngineerID,
		Description:           req.Description,
		UnitIDs:               req.UnitIDs,
		DefectIDs:             req.DefectIDs,
	}, user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateClaim — PATCH /claims/{id}. Переданные unit_ids/defect_ids
// заменяют связи целиком.
func (h *APIHandler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req claimPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.Claims.Update(r.Context(), scope(r), id, model.ClaimPatch{
		StatusID:              req.StatusID,
		Number:                req.Number,
		ClaimDate:             dateTime(req.ClaimDate),
		ReceivedAt:            dateTime(req.ReceivedAt),
		ResolveUntil:          dateTime(req.ResolveUntil),
		ResponsibleEngineerID: req.ResponsibleEngineerID,
		Description:           req.Description,
		UnitIDs:               req.UnitIDs,
		DefectIDs:             req.DefectIDs,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteClaim — DELETE /claims/{id}.
func (h *APIHandler) DeleteClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Claims.Delete(r.Context(), scope(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
