package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

// attachmentResponse — метаданные вложения со ссылкой на скачивание.
type attachmentResponse struct {
	*model.Attachment
	Parent    model.AttachmentParent `json:"parent"`
	ParentID  int64                  `json:"parent_id"`
	URL       string                 `json:"url"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// checkParent проверяет, что родитель вложения виден пользователю.
// Чужой проект даёт ErrNotFound.
func (h *APIHandler) checkParent(ctx context.Context, sc service.Scope, parent model.AttachmentParent, id int64) error {
	var err error
	switch parent {
	case model.ParentTicket:
		_, err = h.svc.Tickets.Get(ctx, sc, id)
	case model.ParentDefect:
		_, err = h.svc.Defects.Get(ctx, sc, id)
	case model.ParentClaim:
		_, err = h.svc.Claims.Get(ctx, sc, id)
	case model.ParentCourtCase:
		_, err = h.svc.CourtCases.Get(ctx, sc, id)
	case model.ParentLetter:
		_, err = h.svc.Letters.Get(ctx, sc, id)
	case model.ParentFolder:
		_, err = h.svc.Letters.GetFolder(ctx, sc, id)
	default:
		err = fmt.Errorf("%w: неизвестный тип родителя %q", service.ErrValidation, parent)
	}
	return err
}

// ListAttachments — GET /{entity}/{id}/attachments.
func (h *APIHandler) ListAttachments(parent model.AttachmentParent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := h.checkParent(r.Context(), scope(r), parent, id); err != nil {
			h.fail(w, err)
			return
		}
		items, err := h.svc.Attachments.List(r.Context(), parent, id)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newList(items))
	}
}

// UploadAttachments — POST /{entity}/{id}/attachments (multipart, поле files).
// Право редактирования родительской таблицы проверяется на маршруте.
func (h *APIHandler) UploadAttachments(parent model.AttachmentParent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		files, cleanup, ok := h.uploadFiles(w, r)
		if !ok {
			return
		}
		defer cleanup()
		if len(files) == 0 {
			apierrors.ValidationError(w, "Нет файлов в поле files")
			return
		}

		atts, err := h.upload(r.Context(), scope(r), parent, id, files, user(r).ID())
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newList(atts))
	}
}

// upload загружает файлы через сервис родительской записи.
func (h *APIHandler) upload(
	ctx context.Context,
	sc service.Scope,
	parent model.AttachmentParent,
	id int64,
	files []model.UploadFile,
	userID string,
) ([]*model.Attachment, error) {
	switch parent {
	case model.ParentTicket:
		return h.svc.Tickets.Upload(ctx, sc, id, files, userID)
	case model.ParentDefect:
		return h.svc.Defects.Upload(ctx, sc, id, files, userID)
	case model.ParentClaim:
		return h.svc.Claims.Upload(ctx, sc, id, files, userID)
	case model.ParentCourtCase:
		return h.svc.CourtCases.Upload(ctx, sc, id, files, userID)
	case model.ParentLetter:
		return h.svc.Letters.Upload(ctx, sc, id, files, userID)
	case model.ParentFolder:
		return h.svc.Letters.UploadDocuments(ctx, sc, id, files, userID)
	}
	return nil, fmt.Errorf("%w: неизвестный тип родителя %q", service.ErrValidation, parent)
}

// loadAttachment читает вложение и проверяет доступ к его родителю.
func (h *APIHandler) loadAttachment(w http.ResponseWriter, r *http.Request) (*model.Attachment, model.AttachmentParent, int64, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, "", 0, false
	}
	a, parent, parentID, err := h.svc.Attachments.Get(r.Context(), id)
	if err == nil {
		err = h.checkParent(r.Context(), scope(r), parent, parentID)
	}
	if err != nil {
		h.fail(w, err)
		return nil, "", 0, false
	}
	return a, parent, parentID, true
}

// GetAttachment — GET /attachments/{id}: метаданные и временная ссылка.
func (h *APIHandler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	a, parent, parentID, ok := h.loadAttachment(w, r)
	if !ok {
		return
	}
	url, expiresAt, err := h.svc.Attachments.SignedURL(r.Context(), a)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attachmentResponse{
		Attachment: a,
		Parent:     parent,
		ParentID:   parentID,
		URL:        url,
		ExpiresAt:  expiresAt,
	})
}

// DownloadAttachment — GET /attachments/{id}/content: содержимое файла
// с исходным именем.
func (h *APIHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	a, _, _, ok := h.loadAttachment(w, r)
	if !ok {
		return
	}
	body, err := h.svc.Attachments.Open(r.Context(), a)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.OriginalName}))
	if a.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("Обрыв передачи вложения",
			slog.Int64("attachment_id", a.ID),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteAttachment — DELETE /attachments/{id}.
func (h *APIHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	a, _, _, ok := h.loadAttachment(w, r)
	if !ok {
		return
	}
	if err := h.svc.Attachments.Delete(r.Context(), a); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
