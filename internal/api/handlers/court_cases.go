package handlers

import (
	"net/http"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/filters"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

type courtCaseRequest struct {
	ProjectID             int64                  `json:"project_id"`
	Number                string                 `json:"number"`
	CaseDate              *openapi_types.Date    `json:"case_date"`
	StatusID              *int64                 `json:"status_id"`
	LawyerID              *string                `json:"lawyer_id"`
	ResponsibleEngineerID *string                `json:"responsible_engineer_id"`
	Description           *string                `json:"description"`
	FixStartDate          *openapi_types.Date    `json:"fix_start_date"`
	FixEndDate            *openapi_types.Date    `json:"fix_end_date"`
	UnitIDs               []int64                `json:"unit_ids"`
	DefectIDs             []int64                `json:"defect_ids"`
	ClaimIDs              []int64                `json:"claim_ids"`
	Parties               []model.CourtCaseParty `json:"parties"`
	LawsuitClaims         []model.LawsuitClaim   `json:"lawsuit_claims"`
}

type courtCasePatchRequest struct {
	Number                *string                `json:"number"`
	CaseDate              *openapi_types.Date    `json:"case_date"`
	StatusID              *int64                 `json:"status_id"`
	LawyerID              *string                `json:"lawyer_id"`
	ResponsibleEngineerID *string                `json:"responsible_engineer_id"`
	Description           *string                `json:"description"`
	FixStartDate          *openapi_types.Date    `json:"fix_start_date"`
	FixEndDate            *openapi_types.Date    `json:"fix_end_date"`
	UnitIDs               []int64                `json:"unit_ids"`
	DefectIDs             []int64                `json:"defect_ids"`
	ClaimIDs              []int64                `json:"claim_ids"`
	Parties               []model.CourtCaseParty `json:"parties"`
	LawsuitClaims         []model.LawsuitClaim   `json:"lawsuit_claims"`
}

// parseCourtCaseFilters читает фильтры реестра дел из query.
func parseCourtCaseFilters(r *http.Request) (filters.CourtCaseFilters, error) {
	var f filters.CourtCaseFilters
	var err error
	if f.ProjectIDs, err = queryInt64s(r, "project_id"); err != nil {
		return f, err
	}
	if f.UnitIDs, err = queryInt64s(r, "unit_id"); err != nil {
		return f, err
	}
	if f.StatusIDs, err = queryInt64s(r, "status_id"); err != nil {
		return f, err
	}
	f.LawyerIDs = queryStrings(r, "lawyer_id")
	f.EngineerIDs = queryStrings(r, "engineer_id")
	q := r.URL.Query()
	f.Plaintiff = strings.TrimSpace(q.Get("plaintiff"))
	f.Defendant = strings.TrimSpace(q.Get("defendant"))
	f.CaseNumber = strings.TrimSpace(q.Get("case_number"))
	if f.DateFrom, err = queryDate(r, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = queryDate(r, "date_to"); err != nil {
		return f, err
	}
	f.HideClosed = queryBool(r, "hide_closed")
	return f, nil
}

// ListCourtCases — GET /court-cases.
func (h *APIHandler) ListCourtCases(w http.ResponseWriter, r *http.Request) {
	f, err := parseCourtCaseFilters(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	items, err := h.svc.CourtCases.Register(r.Context(), scope(r), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// CourtCaseFilterOptions — GET /court-cases/filter-options: для каждого
// поля варианты, достижимые при остальных активных фильтрах.
func (h *APIHandler) CourtCaseFilterOptions(w http.ResponseWriter, r *http.Request) {
	f, err := parseCourtCaseFilters(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	// Набор записей — по выбранным проектам; фильтр проекта участвует
	// в вычислении вариантов наравне с остальными.
	options, err := h.svc.CourtCases.FilterOptions(r.Context(), scope(r), nil, f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

// GetCourtCase — GET /court-cases/{id}.
func (h *APIHandler) GetCourtCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.CourtCases.Get(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCourtCase — POST /court-cases.
func (h *APIHandler) CreateCourtCase(w http.ResponseWriter, r *http.Request) {
	var req courtCaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CourtCases.Create(r.Context(), scope(r), &model.CourtCase{
		ProjectID:             req.ProjectID,
		Number:                req.Number,
		CaseDate:              dateTime(req.CaseDate),
		StatusID:              req.StatusID,
		LawyerID:              req.LawyerID,
		ResponsibleEngineerID: req.ResponsibleEngineerID,
		Description:           req.Description,
		FixStartDate:          dateTime(req.FixStartDate),
		FixEndDate:            dateTime(req.FixEndDate),
		UnitIDs:               req.UnitIDs,
		DefectIDs:             req.DefectIDs,
		ClaimIDs:              req.ClaimIDs,
		Parties:               req.Parties,
		LawsuitClaims:         req.LawsuitClaims,
	}, user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCourtCase — PATCH /court-cases/{id}.
func (h *APIHandler) UpdateCourtCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req courtCasePatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CourtCases.Update(r.Context(), scope(r), id, model.CourtCasePatch{
		Number:                req.Number,
		CaseDate:              dateTime(req.CaseDate),
		StatusID:              req.StatusID,
		LawyerID:              req.LawyerID,
		ResponsibleEngineerID: req.ResponsibleEngineerID,
		Description:           req.Description,
		FixStartDate:          dateTime(req.FixStartDate),
		FixEndDate:            dateTime(req.FixEndDate),
		UnitIDs:               req.UnitIDs,
		DefectIDs:             req.DefectIDs,
		ClaimIDs:              req.ClaimIDs,
		Parties:               req.Parties,
		LawsuitClaims:         req.LawsuitClaims,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCourtCase — DELETE /court-cases/{id}.
func (h *APIHandler) DeleteCourtCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.CourtCases.Delete(r.Context(), scope(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
