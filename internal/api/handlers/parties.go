package handlers

import (
	"net/http"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// --- Физлица ---

// personRequest — тело создания физлица.
type personRequest struct {
	FullName       string  `json:"full_name"`
	PassportSeries *string `json:"passport_series"`
	PassportNumber *string `json:"passport_number"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email"`
	Description    *string `json:"description"`
}

// ListPersons — GET /persons.
func (h *APIHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Parties.ListPersons(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetPerson — GET /persons/{id}.
func (h *APIHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.Parties.GetPerson(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePerson — POST /persons. Дубликат паспорта — 409.
func (h *APIHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Parties.CreatePerson(r.Context(), &model.Person{
		FullName:       req.FullName,
		PassportSeries: req.PassportSeries,
		PassportNumber: req.PassportNumber,
		Phone:          req.Phone,
		Email:          req.Email,
		Description:    req.Description,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePerson — PATCH /persons/{id}.
func (h *APIHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch model.PersonPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.svc.Parties.UpdatePerson(r.Context(), id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePerson — DELETE /persons/{id}.
func (h *APIHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Parties.DeletePerson(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Подрядчики ---

// contractorRequest — тело создания подрядчика.
type contractorRequest struct {
	Name        string  `json:"name"`
	INN         string  `json:"inn"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Description *string `json:"description"`
}

// ListContractors — GET /contractors.
func (h *APIHandler) ListContractors(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Parties.ListContractors(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetContractor — GET /contractors/{id}.
func (h *APIHandler) GetContractor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.Parties.GetContractor(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateContractor — POST /contractors. Дубликат наименование+ИНН — 409.
func (h *APIHandler) CreateContractor(w http.ResponseWriter, r *http.Request) {
	var req contractorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.Parties.CreateContractor(r.Context(), &model.Contractor{
		Name:        req.Name,
		INN:         req.INN,
		Phone:       req.Phone,
		Email:       req.Email,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContractor — PATCH /contractors/{id}.
func (h *APIHandler) UpdateContractor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch model.ContractorPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	c, err := h.svc.Parties.UpdateContractor(r.Context(), id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContractor — DELETE /contractors/{id}.
func (h *APIHandler) DeleteContractor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Parties.DeleteContractor(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Бригады ---

type brigadeRequest struct {
	Name string `json:"name"`
}

// ListBrigades — GET /brigades.
func (h *APIHandler) ListBrigades(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Parties.ListBrigades(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// CreateBrigade — POST /brigades.
func (h *APIHandler) CreateBrigade(w http.ResponseWriter, r *http.Request) {
	var req brigadeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.Parties.CreateBrigade(r.Context(), req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// RenameBrigade — PATCH /brigades/{id}.
func (h *APIHandler) RenameBrigade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req brigadeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Parties.RenameBrigade(r.Context(), id, req.Name); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBrigade — DELETE /brigades/{id}.
func (h *APIHandler) DeleteBrigade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Parties.DeleteBrigade(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Статусы ---

// statusEntity извлекает тип сущности справочника из пути.
func statusEntity(w http.ResponseWriter, r *http.Request) (model.StatusEntity, bool) {
	e := model.StatusEntity(chiParam(r, "entity"))
	if !e.IsValid() {
		apierrors.ValidationError(w, "Неизвестный тип справочника статусов: "+string(e))
		return "", false
	}
	return e, true
}

type statusRequest struct {
	Name      string  `json:"name"`
	Color     *string `json:"color"`
	IsClosed  bool    `json:"is_closed"`
	SortOrder int     `json:"sort_order"`
}

// ListStatuses — GET /statuses/{entity}.
func (h *APIHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	entity, ok := statusEntity(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Statuses.List(r.Context(), entity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// CreateStatus — POST /statuses/{entity}.
func (h *APIHandler) CreateStatus(w http.ResponseWriter, r *http.Request) {
	entity, ok := statusEntity(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.Statuses.Create(r.Context(), &model.Status{
		Entity:    entity,
		Name:      req.Name,
		Color:     req.Color,
		IsClosed:  req.IsClosed,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// UpdateStatus — PATCH /statuses/{entity}/{id}.
func (h *APIHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	entity, ok := statusEntity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch model.StatusPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	s, err := h.svc.Statuses.Update(r.Context(), entity, id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteStatus — DELETE /statuses/{entity}/{id}.
func (h *APIHandler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	entity, ok := statusEntity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Statuses.Delete(r.Context(), entity, id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
