package handlers

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// ticketRequest — тело создания замечания. Даты — ГГГГ-ММ-ДД.
type ticketRequest struct {
	ProjectID             int64               `json:"project_id"`
	UnitID                *int64              `json:"unit_id"`
	Title                 string              `json:"title"`
	Description           *string             `json:"description"`
	StatusID              *int64              `json:"status_id"`
	IsWarranty            bool                `json:"is_warranty"`
	ReceivedAt            *openapi_types.Date `json:"received_at"`
	FixedAt               *openapi_types.Date `json:"fixed_at"`
	ResponsibleEngineerID *string             `json:"responsible_engineer_id"`
}

// ticketPatchRequest — изменяемые поля замечания.
type ticketPatchRequest struct {
	UnitID                *int64              `json:"unit_id"`
	Title                 *string             `json:"title"`
	Description           *string             `json:"description"`
	StatusID              *int64              `json:"status_id"`
	IsWarranty            *bool               `json:"is_warranty"`
	ReceivedAt            *openapi_types.Date `json:"received_at"`
	FixedAt               *openapi_types.Date `json:"fixed_at"`
	ResponsibleEngineerID *string             `json:"responsible_engineer_id"`
}

// ListTickets — GET /tickets?project_id=&unit_id=&status_id=.
func (h *APIHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	var f model.TicketFilter
	var err error
	if f.ProjectIDs, err = queryInt64s(r, "project_id"); err == nil {
		if f.UnitID, err = queryInt64(r, "unit_id"); err == nil {
			f.StatusID, err = queryInt64(r, "status_id")
		}
	}
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	items, err := h.svc.Tickets.List(r.Context(), scope(r), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetTicket — GET /tickets/{id}.
func (h *APIHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.svc.Tickets.Get(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTicket — POST /tickets.
func (h *APIHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Tickets.Create(r.Context(), scope(r), &model.Ticket{
		ProjectID:             req.ProjectID,
		UnitID:                req.UnitID,
		Title:                 req.Title,
		Description:           req.Description,
		StatusID:              req.StatusID,
		IsWarranty:            req.IsWarranty,
		ReceivedAt:            dateTime(req.ReceivedAt),
		FixedAt:               dateTime(req.FixedAt),
		ResponsibleEngineerID: req.ResponsibleEngineerID,
	}, user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTicket — PATCH /tickets/{id}.
func (h *APIHandler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ticketPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Tickets.Update(r.Context(), scope(r), id, model.TicketPatch{
		UnitID:                req.UnitID,
		Title:                 req.Title,
		Description:           req.Description,
		StatusID:              req.StatusID,
		IsWarranty:            req.IsWarranty,
		ReceivedAt:            dateTime(req.ReceivedAt),
		FixedAt:               dateTime(req.FixedAt),
		ResponsibleEngineerID: req.ResponsibleEngineerID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTicket — DELETE /tickets/{id}. Вложения удаляются вместе с записью.
func (h *APIHandler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Tickets.Delete(r.Context(), scope(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
