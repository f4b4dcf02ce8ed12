// Пакет errors — ответы с ошибками API GarantHUB.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

// Коды ошибок API.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeStorageMisconfigured = "STORAGE_MISCONFIGURED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// Conflict — 409 конфликт (дубликат, устаревшая версия, запись используется).
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// StorageMisconfigured — 502 bucket вложений не найден в хранилище.
func StorageMisconfigured(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeStorageMisconfigured, message)
}

// RateLimited — 429 превышена частота запросов.
func RateLimited(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// FromService записывает ответ по ошибке сервисного слоя.
// Неизвестные ошибки логируются, клиенту уходит INTERNAL_ERROR без деталей.
func FromService(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case stderrors.Is(err, service.ErrValidation):
		ValidationError(w, err.Error())
	case stderrors.Is(err, service.ErrNotFound):
		NotFound(w, err.Error())
	case stderrors.Is(err, service.ErrConflict):
		Conflict(w, err.Error())
	case stderrors.Is(err, service.ErrForbidden):
		Forbidden(w, err.Error())
	case stderrors.Is(err, service.ErrStorageMisconfigured):
		logger.Error("Хранилище вложений настроено неверно", slog.String("error", err.Error()))
		StorageMisconfigured(w, err.Error())
	default:
		logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		InternalError(w, "Внутренняя ошибка сервера")
	}
}
