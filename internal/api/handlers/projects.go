package handlers

import (
	"net/http"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// projectRequest — тело создания/изменения проекта.
type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ListProjects — GET /projects.
func (h *APIHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Projects.List(r.Context(), scope(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetProject — GET /projects/{id}.
func (h *APIHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.Projects.Get(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProject — POST /projects.
func (h *APIHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == nil {
		apierrors.ValidationError(w, "Поле name обязательно")
		return
	}
	p, err := h.svc.Projects.Create(r.Context(), *req.Name, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProject — PATCH /projects/{id}.
func (h *APIHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Projects.Update(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject — DELETE /projects/{id}.
func (h *APIHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Projects.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBuildings — GET /projects/{id}/buildings.
func (h *APIHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.Units.Buildings(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetMatrix — GET /projects/{id}/matrix?building=.
func (h *APIHandler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.svc.Units.Matrix(r.Context(), scope(r), id, queryString(r, "building"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- Объекты ---

// ListUnits — GET /units?project_id=&building=&section=.
func (h *APIHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryInt64(r, "project_id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if projectID == nil {
		apierrors.ValidationError(w, "Параметр project_id обязателен")
		return
	}
	items, err := h.svc.Units.List(r.Context(), scope(r), model.UnitFilter{
		ProjectID: *projectID,
		Building:  queryString(r, "building"),
		Section:   queryString(r, "section"),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetUnit — GET /units/{id}.
func (h *APIHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.svc.Units.Get(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// unitRequest — тело создания объекта.
type unitRequest struct {
	ProjectID int64   `json:"project_id"`
	Building  *string `json:"building"`
	Section   *string `json:"section"`
	Floor     *string `json:"floor"`
	Name      string  `json:"name"`
	PersonID  *int64  `json:"person_id"`
}

// CreateUnit — POST /units.
func (h *APIHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Units.Create(r.Context(), scope(r), &model.Unit{
		ProjectID: req.ProjectID,
		Building:  req.Building,
		Section:   req.Section,
		Floor:     req.Floor,
		Name:      req.Name,
		PersonID:  req.PersonID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUnit — PATCH /units/{id}.
func (h *APIHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch model.UnitPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	u, err := h.svc.Units.Update(r.Context(), scope(r), id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUnit — DELETE /units/{id}.
func (h *APIHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Units.Delete(r.Context(), scope(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// matrixPosition — корпус и секция шахматки.
type matrixPosition struct {
	ProjectID int64   `json:"project_id"`
	Building  *string `json:"building"`
	Section   *string `json:"section"`
	Floor     *string `json:"floor"`
}

// AddUnit — POST /units/add-unit: новый объект на этаже со следующим номером.
func (h *APIHandler) AddUnit(w http.ResponseWriter, r *http.Request) {
	var req matrixPosition
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Floor == nil {
		apierrors.ValidationError(w, "Поле floor обязательно")
		return
	}
	u, err := h.svc.Units.AddUnit(r.Context(), scope(r), req.ProjectID, req.Building, req.Section, *req.Floor)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// AddFloor — POST /units/add-floor: новый этаж над верхним.
func (h *APIHandler) AddFloor(w http.ResponseWriter, r *http.Request) {
	var req matrixPosition
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Units.AddFloor(r.Context(), scope(r), req.ProjectID, req.Building, req.Section)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
