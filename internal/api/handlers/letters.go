package handlers

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

type letterRequest struct {
	ProjectID         *int64                `json:"project_id"`
	UnitID            *int64                `json:"unit_id"`
	Direction         model.LetterDirection `json:"direction"`
	Number            string                `json:"number"`
	LetterDate        *openapi_types.Date   `json:"letter_date"`
	Subject           string                `json:"subject"`
	Content           *string               `json:"content"`
	Sender            *string               `json:"sender"`
	Receiver          *string               `json:"receiver"`
	ResponsibleUserID *string               `json:"responsible_user_id"`
	StatusID          *int64                `json:"status_id"`
}

type letterPatchRequest struct {
	ProjectID         *int64                 `json:"project_id"`
	UnitID            *int64                 `json:"unit_id"`
	Direction         *model.LetterDirection `json:"direction"`
	Number            *string                `json:"number"`
	LetterDate        *openapi_types.Date    `json:"letter_date"`
	Subject           *string                `json:"subject"`
	Content           *string                `json:"content"`
	Sender            *string                `json:"sender"`
	Receiver          *string                `json:"receiver"`
	ResponsibleUserID *string                `json:"responsible_user_id"`
	StatusID          *int64                 `json:"status_id"`
}

// ListLetters — GET /letters?project_id=&unit_id=&direction=.
func (h *APIHandler) ListLetters(w http.ResponseWriter, r *http.Request) {
	var f model.LetterFilter
	var err error
	if f.ProjectIDs, err = queryInt64s(r, "project_id"); err == nil {
		f.UnitID, err = queryInt64(r, "unit_id")
	}
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if d := r.URL.Query().Get("direction"); d != "" {
		dir := model.LetterDirection(d)
		if !dir.IsValid() {
			apierrors.ValidationError(w, "Некорректное направление письма: "+d)
			return
		}
		f.Direction = &dir
	}
	items, err := h.svc.Letters.List(r.Context(), scope(r), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetLetter — GET /letters/{id}.
func (h *APIHandler) GetLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	l, err := h.svc.Letters.Get(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// CreateLetter — POST /letters.
func (h *APIHandler) CreateLetter(w http.ResponseWriter, r *http.Request) {
	var req letterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.Letters.Create(r.Context(), scope(r), &model.Letter{
		ProjectID:         req.ProjectID,
		UnitID:            req.UnitID,
		Direction:         req.Direction,
		Number:            req.Number,
		LetterDate:        dateTime(req.LetterDate),
		Subject:           req.Subject,
		Content:           req.Content,
		Sender:            req.Sender,
		Receiver:          req.Receiver,
		ResponsibleUserID: req.ResponsibleUserID,
		StatusID:          req.StatusID,
	}, user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// UpdateLetter — PATCH /letters/{id}.
func (h *APIHandler) UpdateLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req letterPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.Letters.Update(r.Context(), scope(r), id, model.LetterPatch{
		ProjectID:         req.ProjectID,
		UnitID:            req.UnitID,
		Direction:         req.Direction,
		Number:            req.Number,
		LetterDate:        dateTime(req.LetterDate),
		Subject:           req.Subject,
		Content:           req.Content,
		Sender:            req.Sender,
		Receiver:          req.Receiver,
		ResponsibleUserID: req.ResponsibleUserID,
		StatusID:          req.StatusID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeleteLetter — DELETE /letters/{id}.
func (h *APIHandler) DeleteLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Letters.Delete(r.Context(), scope(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Папки документов ---

type folderRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ProjectID   *int64  `json:"project_id"`
}

// ListFolders — GET /folders.
func (h *APIHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Letters.ListFolders(r.Context(), scope(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetFolder — GET /folders/{id}.
func (h *APIHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	f, err := h.svc.Letters.GetFolder(r.Context(), scope(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// CreateFolder — POST /folders.
func (h *APIHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.svc.Letters.CreateFolder(r.Context(), scope(r), &model.DocumentFolder{
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
	}, user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// UpdateFolder — PATCH /folders/{id}.
func (h *APIHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch model.FolderPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	f, err := h.svc.Letters.UpdateFolder(r.Context(), scope(r), id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteFolder — DELETE /folders/{id}.
func (h *APIHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Letters.DeleteFolder(r.Context(), scope(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
